// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reason defines the structured-request/structured-response
// boundary to the reasoning service, one contract per pipeline stage.
// Responses are validated against the expected shape at this boundary so
// downstream stages never branch on loosely-typed fields.
package reason

import (
	"context"

	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// EvidenceSummary is the compact evidence view sent with stage requests.
// Reliability rides along so the reviewer can weigh source trust when
// scoring grounding.
type EvidenceSummary struct {
	ID          string            `json:"id"`
	Title       string            `json:"title,omitempty"`
	Text        string            `json:"text,omitempty"`
	URL         string            `json:"url,omitempty"`
	Tool        string            `json:"tool,omitempty"`
	Reliability types.Reliability `json:"reliability,omitempty"`
}

// maxEvidenceTextLen truncates evidence text in summaries to keep stage
// requests bounded.
const maxEvidenceTextLen = 1000

// SummarizeEvidence converts a pack into the request-side evidence view.
func SummarizeEvidence(pack types.EvidencePack) []EvidenceSummary {
	out := make([]EvidenceSummary, 0, len(pack.Items))
	for _, item := range pack.Items {
		text := item.Text
		if len(text) > maxEvidenceTextLen {
			text = text[:maxEvidenceTextLen]
		}
		out = append(out, EvidenceSummary{
			ID:          item.ID,
			Title:       item.Title,
			Text:        text,
			URL:         item.URL,
			Tool:        item.Tool,
			Reliability: item.Reliability,
		})
	}
	return out
}

// DraftRequest asks the service to draft one section.
type DraftRequest struct {
	Vertical        string            `json:"vertical"`
	DisplayName     string            `json:"display_name"`
	Window          types.TimeWindow  `json:"window"`
	Voice           string            `json:"voice"`
	Region          string            `json:"region,omitempty"`
	Style           string            `json:"style,omitempty"`
	FocusEntities   []string          `json:"focus_entities"`
	BulletCount     int               `json:"bullet_count"`
	SectorWide      bool              `json:"sector_wide"`
	Evidence        []EvidenceSummary `json:"evidence"`
	FixInstructions []string          `json:"fix_instructions,omitempty"`
	PriorDraft      *types.Draft      `json:"prior_draft,omitempty"`
}

// DraftBullet is one bullet in a draft response.
type DraftBullet struct {
	Text        string   `json:"text"`
	EvidenceIDs []string `json:"evidence_ids"`
	FocusEntity string   `json:"focus_entity,omitempty"`
}

// DraftResponse is the service's structured answer to a DraftRequest.
type DraftResponse struct {
	Headline             string        `json:"headline"`
	Paragraph            string        `json:"paragraph"`
	ParagraphEvidenceIDs []string      `json:"paragraph_evidence_ids"`
	Bullets              []DraftBullet `json:"bullets"`
	RiskFlags            []string      `json:"risk_flags,omitempty"`

	// FollowUpQueries are additional retrieval queries the drafter may
	// execute within its remaining budget before re-drafting.
	FollowUpQueries []string `json:"follow_up_queries,omitempty"`
}

// ReviewRequest asks the service to score one draft against the rubric.
type ReviewRequest struct {
	Vertical string            `json:"vertical"`
	Voice    string            `json:"voice"`
	Round    int               `json:"round"`
	Draft    types.Draft       `json:"draft"`
	Evidence []EvidenceSummary `json:"evidence"`
}

// ReviewScores carries the five rubric dimensions of a review response.
type ReviewScores struct {
	Grounding      int `json:"grounding"`
	Clarity        int `json:"clarity"`
	Newsworthiness int `json:"newsworthiness"`
	Balance        int `json:"balance"`
	VoiceFit       int `json:"voice_fit"`
}

// ReviewAction is one suggested fix in a review response.
type ReviewAction struct {
	Type           string `json:"type"`
	Description    string `json:"description"`
	Target         string `json:"target,omitempty"`
	SuggestedQuery string `json:"suggested_query,omitempty"`
}

// ReviewResponse is the service's structured answer to a ReviewRequest.
type ReviewResponse struct {
	Scores         ReviewScores   `json:"scores"`
	Issues         []string       `json:"issues,omitempty"`
	BlockingIssues []string       `json:"blocking_issues,omitempty"`
	Actions        []ReviewAction `json:"actions,omitempty"`
	Notes          string         `json:"notes,omitempty"`
}

// EditRequest asks the service to harmonize style across accepted sections.
type EditRequest struct {
	Voice    string        `json:"voice"`
	Style    string        `json:"style,omitempty"`
	Sections []types.Draft `json:"sections"`
}

// EditedSection is one harmonized section in an edit response.
type EditedSection struct {
	Vertical             string        `json:"vertical"`
	Headline             string        `json:"headline,omitempty"`
	Paragraph            string        `json:"paragraph"`
	ParagraphEvidenceIDs []string      `json:"paragraph_evidence_ids"`
	Bullets              []DraftBullet `json:"bullets"`
}

// EditResponse is the service's structured answer to an EditRequest.
type EditResponse struct {
	Sections    []EditedSection `json:"sections"`
	ChangesMade []string        `json:"changes_made,omitempty"`

	// UnsupportedClaims lists claims the editor could not keep grounded.
	// Any entry is a blocking condition for the affected unit.
	UnsupportedClaims []string `json:"unsupported_claims,omitempty"`
}

// Service is the reasoning-service contract, one method per stage.
// Implementations must return a SchemaError when the service's output
// does not conform to the stage's response shape.
type Service interface {
	Draft(ctx context.Context, req DraftRequest) (DraftResponse, error)
	Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error)
	Edit(ctx context.Context, req EditRequest) (EditResponse, error)
}
