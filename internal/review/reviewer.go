// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review scores drafts against the acceptance rubric and routes
// the outcomes. Acceptance is decided here, deterministically, from the
// returned scores; the reasoning service only supplies the scores.
package review

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/newsletter-engine/internal/reason"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// Reviewer runs one rubric review per unit per round.
type Reviewer struct {
	svc reason.Service
	log *logrus.Logger
}

// NewReviewer wires a reviewer over the reasoning service.
func NewReviewer(svc reason.Service, log *logrus.Logger) *Reviewer {
	return &Reviewer{svc: svc, log: log}
}

// Review scores one draft. The acceptance decision comes from the scores
// and blocking issues alone; a rejected result always carries a fix plan
// with at least one action.
func (r *Reviewer) Review(ctx context.Context, voice string, round int, draft types.Draft, pack types.EvidencePack) (*types.ReviewResult, error) {
	req := reason.ReviewRequest{
		Vertical: draft.Vertical,
		Voice:    voice,
		Round:    round,
		Draft:    draft,
		Evidence: reason.SummarizeEvidence(pack),
	}

	resp, err := r.svc.Review(ctx, req)
	if reason.IsSchemaError(err) {
		r.log.WithError(err).WithField("vertical", draft.Vertical).Warn("review schema failure, retrying once")
		resp, err = r.svc.Review(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	score := types.ReviewScore{
		Grounding:      resp.Scores.Grounding,
		Clarity:        resp.Scores.Clarity,
		Newsworthiness: resp.Scores.Newsworthiness,
		Balance:        resp.Scores.Balance,
		VoiceFit:       resp.Scores.VoiceFit,
		BlockingIssues: resp.BlockingIssues,
	}

	result := &types.ReviewResult{
		Vertical: draft.Vertical,
		Round:    round,
		Score:    score,
		Issues:   resp.Issues,
		Accepted: score.Accepted(),
		Notes:    resp.Notes,
	}
	if !result.Accepted {
		result.Plan = buildPlan(draft.Vertical, resp)
	}

	r.log.WithFields(logrus.Fields{
		"vertical":  draft.Vertical,
		"round":     round,
		"grounding": score.Grounding,
		"clarity":   score.Clarity,
		"blocking":  len(score.BlockingIssues),
		"accepted":  result.Accepted,
	}).Info("review complete")
	return result, nil
}

// buildPlan converts review actions into a fix plan, synthesizing a
// rewrite action when the service rejected the draft without proposing
// anything concrete.
func buildPlan(vertical string, resp reason.ReviewResponse) *types.FixPlan {
	plan := &types.FixPlan{Vertical: vertical}
	plan.Issues = append(plan.Issues, resp.BlockingIssues...)
	plan.Issues = append(plan.Issues, resp.Issues...)

	for _, a := range resp.Actions {
		t := types.FixActionType(a.Type)
		switch t {
		case types.FixFetchSource, types.FixRewrite, types.FixAddCitation, types.FixClarify, types.FixAdjustTone:
		default:
			t = types.FixRewrite
		}
		plan.Actions = append(plan.Actions, types.FixAction{
			Type:           t,
			Description:    a.Description,
			Target:         a.Target,
			SuggestedQuery: a.SuggestedQuery,
		})
	}

	if len(plan.Actions) == 0 {
		desc := "revise the draft to resolve the review issues"
		if len(plan.Issues) > 0 {
			desc = "revise the draft to resolve: " + plan.Issues[0]
		}
		plan.Actions = append(plan.Actions, types.FixAction{
			Type:        types.FixRewrite,
			Description: desc,
		})
	}
	return plan
}
