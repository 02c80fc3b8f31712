// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reason

import (
	"encoding/json"
	"fmt"
	"strings"
)

// draftSystemPrompt frames the drafting stage. The response contract
// mirrors DraftResponse exactly.
const draftSystemPrompt = `You are a research analyst covering the %s sector.

Draft one newsletter section from the evidence provided.

Rules:
- Write a big-picture paragraph of 80-140 words summarizing key themes.
- Produce EXACTLY %d bullet points. %s
- Every claim MUST be supported by the provided evidence. Reference
  evidence by evidence id.
- Only cover news inside the window %s to %s.
- Voice: %s. Region focus: %s.%s
- Add a short headline (4-8 words).
- If the evidence is thin on a theme, you may list follow_up_queries
  (search queries) instead of speculating.

Respond with a single JSON object:
{
  "headline": "...",
  "paragraph": "...",
  "paragraph_evidence_ids": ["ev_xxx"],
  "bullets": [{"text": "...", "evidence_ids": ["ev_xxx"], "focus_entity": "Company or empty"}],
  "risk_flags": ["uncertainties or coverage gaps"],
  "follow_up_queries": []
}

Evidence:
%s`

// reviewSystemPrompt frames the review stage. Scores are 0-5 per rubric
// dimension; issues fixable by a pure style pass must not be blocking.
const reviewSystemPrompt = `You are a senior editor reviewing a newsletter section draft.

Score each rubric dimension 0-5:
- grounding: claims supported by the cited evidence, weighing each
  source's reliability tier
- clarity: concise and comprehensible
- newsworthiness: timely, important developments
- balance: avoids hype, includes caveats
- voice_fit: matches the requested voice (%s)

List blocking_issues only for problems that bar acceptance outright,
such as an unsupported claim or a duplicated bullet. Style problems a
copy editor can fix (tense, concision) are NOT blocking; list them under
issues instead.

For each problem, propose an action with type one of
fetch_source, rewrite, add_citation, clarify, adjust_tone.

Respond with a single JSON object:
{
  "scores": {"grounding": 0, "clarity": 0, "newsworthiness": 0, "balance": 0, "voice_fit": 0},
  "issues": [],
  "blocking_issues": [],
  "actions": [{"type": "rewrite", "description": "...", "target": "bullet_1", "suggested_query": ""}],
  "notes": ""
}

Draft under review (round %d):
%s

Available evidence:
%s`

// editSystemPrompt frames the harmonization stage. The citation rules here
// are also enforced mechanically after the call.
const editSystemPrompt = `You are a newsletter editor performing a final consistency pass.

Harmonize tone and voice across the sections below. You may shorten or
rearrange sentences for readability.

Hard rules:
- DO NOT add new facts or claims.
- DO NOT add, swap, or invent evidence ids; you may drop an id only when
  you removed the sentence it supported.
- If you find a claim with no surviving citation, list it under
  unsupported_claims as "<vertical>: <claim>" instead of silently
  rewriting it.

Voice: %s.%s

Respond with a single JSON object:
{
  "sections": [{"vertical": "...", "headline": "...", "paragraph": "...", "paragraph_evidence_ids": [], "bullets": [{"text": "...", "evidence_ids": [], "focus_entity": ""}]}],
  "changes_made": [],
  "unsupported_claims": ["vertical: claim"]
}

Sections to edit:
%s`

// buildDraftPrompt renders the drafting system prompt for a request.
func buildDraftPrompt(req DraftRequest) string {
	entityRule := "Cover sector-wide themes."
	if !req.SectorWide && len(req.FocusEntities) > 0 {
		entityRule = "ONLY reference these companies:\n  " + strings.Join(req.FocusEntities, "\n  ")
	}

	region := req.Region
	if region == "" {
		region = "Global"
	}

	var extra strings.Builder
	if req.Style != "" {
		fmt.Fprintf(&extra, "\n- Additional style guidance: %s", req.Style)
	}
	if len(req.FixInstructions) > 0 {
		fmt.Fprintf(&extra, "\n- Apply these revision instructions to your previous draft:\n  %s",
			strings.Join(req.FixInstructions, "\n  "))
	}
	if req.PriorDraft != nil {
		prior, _ := json.Marshal(req.PriorDraft)
		fmt.Fprintf(&extra, "\n- Previous draft for context: %s", prior)
	}

	evidence, _ := json.MarshalIndent(req.Evidence, "", "  ")
	return fmt.Sprintf(draftSystemPrompt,
		req.DisplayName,
		req.BulletCount,
		entityRule,
		req.Window.Start.Format("2006-01-02"),
		req.Window.End.Format("2006-01-02"),
		req.Voice,
		region,
		extra.String(),
		evidence,
	)
}

// buildReviewPrompt renders the review system prompt for a request.
func buildReviewPrompt(req ReviewRequest) string {
	draft, _ := json.MarshalIndent(req.Draft, "", "  ")

	var ev strings.Builder
	for _, e := range req.Evidence {
		title := e.Title
		if title == "" {
			title = "No title"
		}
		if e.Reliability != "" {
			fmt.Fprintf(&ev, "- %s: %s (%s, %s reliability)\n", e.ID, title, e.Tool, e.Reliability)
		} else {
			fmt.Fprintf(&ev, "- %s: %s (%s)\n", e.ID, title, e.Tool)
		}
	}

	return fmt.Sprintf(reviewSystemPrompt, req.Voice, req.Round, draft, ev.String())
}

// buildEditPrompt renders the harmonization system prompt for a request.
func buildEditPrompt(req EditRequest) string {
	style := ""
	if req.Style != "" {
		style = " Style guidance: " + req.Style + "."
	}
	sections, _ := json.MarshalIndent(req.Sections, "", "  ")
	return fmt.Sprintf(editSystemPrompt, req.Voice, style, sections)
}
