// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"errors"
	"testing"

	"github.com/pdiddy/newsletter-engine/internal/logging"
	"github.com/pdiddy/newsletter-engine/internal/reason"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// mockService replays scripted review responses.
type mockService struct {
	responses []reason.ReviewResponse
	errs      []error
	calls     int
}

func (m *mockService) Draft(ctx context.Context, req reason.DraftRequest) (reason.DraftResponse, error) {
	return reason.DraftResponse{}, errors.New("not implemented")
}

func (m *mockService) Review(ctx context.Context, req reason.ReviewRequest) (reason.ReviewResponse, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return reason.ReviewResponse{}, m.errs[i]
	}
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func (m *mockService) Edit(ctx context.Context, req reason.EditRequest) (reason.EditResponse, error) {
	return reason.EditResponse{}, errors.New("not implemented")
}

func testDraft() types.Draft {
	return types.Draft{
		Vertical:             types.VerticalDataCenters,
		Paragraph:            "Capacity grew.",
		ParagraphEvidenceIDs: []string{"ev_11aa22bb"},
		Bullets: []types.Bullet{
			{Text: "Equinix expanded.", EvidenceIDs: []string{"ev_11aa22bb"}},
		},
	}
}

func passingScores() reason.ReviewScores {
	return reason.ReviewScores{Grounding: 5, Clarity: 4, Newsworthiness: 4, Balance: 4, VoiceFit: 4}
}

func TestReviewAccepts(t *testing.T) {
	svc := &mockService{responses: []reason.ReviewResponse{{Scores: passingScores()}}}
	r := NewReviewer(svc, logging.Discard())

	result, err := r.Review(context.Background(), "analytical", 0, testDraft(), types.EvidencePack{})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if !result.Accepted {
		t.Error("passing scores not accepted")
	}
	if result.Plan != nil {
		t.Error("accepted result carries a fix plan")
	}
}

func TestReviewRejectsLowClarity(t *testing.T) {
	scores := passingScores()
	scores.Clarity = 3
	svc := &mockService{responses: []reason.ReviewResponse{{
		Scores: scores,
		Issues: []string{"second bullet is convoluted"},
		Actions: []reason.ReviewAction{
			{Type: "clarify", Description: "split the second bullet", Target: "bullet_2"},
		},
	}}}
	r := NewReviewer(svc, logging.Discard())

	result, err := r.Review(context.Background(), "analytical", 1, testDraft(), types.EvidencePack{})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if result.Accepted {
		t.Error("clarity 3 was accepted")
	}
	if result.Plan == nil || len(result.Plan.Actions) != 1 {
		t.Fatalf("plan = %+v", result.Plan)
	}
	if result.Plan.Actions[0].Type != types.FixClarify {
		t.Errorf("action type = %q", result.Plan.Actions[0].Type)
	}
}

func TestReviewBlockingIssueOverridesScores(t *testing.T) {
	svc := &mockService{responses: []reason.ReviewResponse{{
		Scores:         passingScores(),
		BlockingIssues: []string{"claim about Iron Mountain has no citation"},
	}}}
	r := NewReviewer(svc, logging.Discard())

	result, err := r.Review(context.Background(), "analytical", 0, testDraft(), types.EvidencePack{})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if result.Accepted {
		t.Error("blocking issue did not bar acceptance")
	}
}

func TestReviewSynthesizesPlanWhenActionsMissing(t *testing.T) {
	scores := passingScores()
	scores.Grounding = 2
	svc := &mockService{responses: []reason.ReviewResponse{{
		Scores: scores,
		Issues: []string{"paragraph overstates the evidence"},
	}}}
	r := NewReviewer(svc, logging.Discard())

	result, err := r.Review(context.Background(), "analytical", 0, testDraft(), types.EvidencePack{})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if result.Plan == nil || len(result.Plan.Actions) == 0 {
		t.Fatal("no plan synthesized for rejection without actions")
	}
	if result.Plan.Actions[0].Type != types.FixRewrite {
		t.Errorf("synthesized action type = %q", result.Plan.Actions[0].Type)
	}
}

func TestReviewUnknownActionTypeCoerced(t *testing.T) {
	scores := passingScores()
	scores.Grounding = 1
	svc := &mockService{responses: []reason.ReviewResponse{{
		Scores:  scores,
		Actions: []reason.ReviewAction{{Type: "summon_editor", Description: "do something"}},
	}}}
	r := NewReviewer(svc, logging.Discard())

	result, err := r.Review(context.Background(), "analytical", 0, testDraft(), types.EvidencePack{})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if result.Plan.Actions[0].Type != types.FixRewrite {
		t.Errorf("action type = %q, want coerced rewrite", result.Plan.Actions[0].Type)
	}
}

func TestReviewSchemaFailureRetriedOnce(t *testing.T) {
	svc := &mockService{
		responses: []reason.ReviewResponse{{}, {Scores: passingScores()}},
		errs:      []error{&reason.SchemaError{Stage: "review", Err: errors.New("bad json")}},
	}
	r := NewReviewer(svc, logging.Discard())

	result, err := r.Review(context.Background(), "analytical", 0, testDraft(), types.EvidencePack{})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if svc.calls != 2 {
		t.Errorf("service calls = %d, want 2", svc.calls)
	}
	if !result.Accepted {
		t.Error("retried review not accepted")
	}
}
