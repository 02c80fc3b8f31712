// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package edit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pdiddy/newsletter-engine/internal/logging"
	"github.com/pdiddy/newsletter-engine/internal/reason"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

type mockService struct {
	responses []reason.EditResponse
	errs      []error
	calls     int
}

func (m *mockService) Draft(ctx context.Context, req reason.DraftRequest) (reason.DraftResponse, error) {
	return reason.DraftResponse{}, errors.New("not implemented")
}

func (m *mockService) Review(ctx context.Context, req reason.ReviewRequest) (reason.ReviewResponse, error) {
	return reason.ReviewResponse{}, errors.New("not implemented")
}

func (m *mockService) Edit(ctx context.Context, req reason.EditRequest) (reason.EditResponse, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return reason.EditResponse{}, m.errs[i]
	}
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func inputDrafts() []types.Draft {
	return []types.Draft{
		{
			Vertical:             types.VerticalDataCenters,
			Headline:             "Capacity race",
			Paragraph:            "Hyperscalers kept buying.",
			ParagraphEvidenceIDs: []string{"ev_11aa22bb"},
			Bullets: []types.Bullet{
				{Text: "Equinix expanded.", EvidenceIDs: []string{"ev_33cc44dd"}},
			},
			RiskFlags: []string{"limited coverage of APAC"},
		},
		{
			Vertical:             types.VerticalTowersWireless,
			Headline:             "Towers hold steady",
			Paragraph:            "Carriers paused spend.",
			ParagraphEvidenceIDs: []string{"ev_55ee66ff"},
		},
	}
}

func TestHarmonizeAppliesEdits(t *testing.T) {
	svc := &mockService{responses: []reason.EditResponse{{
		Sections: []reason.EditedSection{{
			Vertical:             types.VerticalDataCenters,
			Paragraph:            "Hyperscalers continued buying capacity.",
			ParagraphEvidenceIDs: []string{"ev_11aa22bb"},
			Bullets: []reason.DraftBullet{
				{Text: "Equinix expanded in Dallas.", EvidenceIDs: []string{"ev_33cc44dd"}},
			},
		}},
		ChangesMade: []string{"tightened data_centers paragraph"},
	}}}
	e := NewEditor(svc, logging.Discard())

	out, blocked, err := e.Harmonize(context.Background(), "analytical", "", inputDrafts())
	if err != nil {
		t.Fatalf("Harmonize: %v", err)
	}
	if len(blocked) != 0 {
		t.Fatalf("blocked = %v", blocked)
	}
	dc := out[types.VerticalDataCenters]
	if dc.Paragraph != "Hyperscalers continued buying capacity." {
		t.Errorf("paragraph = %q", dc.Paragraph)
	}
	if len(dc.RiskFlags) != 1 {
		t.Errorf("risk flags lost in edit: %v", dc.RiskFlags)
	}
	// Section the editor skipped comes back unchanged.
	tw := out[types.VerticalTowersWireless]
	if tw.Paragraph != "Carriers paused spend." {
		t.Errorf("untouched section changed: %q", tw.Paragraph)
	}
}

func TestHarmonizeRejectsAddedCitation(t *testing.T) {
	svc := &mockService{responses: []reason.EditResponse{{
		Sections: []reason.EditedSection{{
			Vertical:             types.VerticalDataCenters,
			Paragraph:            "Hyperscalers kept buying.",
			ParagraphEvidenceIDs: []string{"ev_11aa22bb", "ev_99999999"},
		}},
	}}}
	e := NewEditor(svc, logging.Discard())

	out, blocked, err := e.Harmonize(context.Background(), "analytical", "", inputDrafts())
	if err != nil {
		t.Fatalf("Harmonize: %v", err)
	}
	reason, ok := blocked[types.VerticalDataCenters]
	if !ok {
		t.Fatal("added citation not blocked")
	}
	if !strings.Contains(reason, "ev_99999999") {
		t.Errorf("blocked reason = %q", reason)
	}
	// The blocked section keeps its pre-edit draft in the output map.
	if out[types.VerticalDataCenters].Paragraph != "Hyperscalers kept buying." {
		t.Errorf("blocked section draft mutated")
	}
}

func TestHarmonizeDroppedCitationAllowed(t *testing.T) {
	svc := &mockService{responses: []reason.EditResponse{{
		Sections: []reason.EditedSection{{
			Vertical:             types.VerticalDataCenters,
			Paragraph:            "Hyperscalers kept buying.",
			ParagraphEvidenceIDs: []string{"ev_11aa22bb"},
			// Bullet removed together with its citation.
		}},
	}}}
	e := NewEditor(svc, logging.Discard())

	_, blocked, err := e.Harmonize(context.Background(), "analytical", "", inputDrafts())
	if err != nil {
		t.Fatalf("Harmonize: %v", err)
	}
	if len(blocked) != 0 {
		t.Errorf("subset edit blocked: %v", blocked)
	}
}

func TestHarmonizeUnsupportedClaimBlocks(t *testing.T) {
	svc := &mockService{responses: []reason.EditResponse{{
		UnsupportedClaims: []string{types.VerticalTowersWireless + ": carrier spend figure has no citation"},
	}}}
	e := NewEditor(svc, logging.Discard())

	_, blocked, err := e.Harmonize(context.Background(), "analytical", "", inputDrafts())
	if err != nil {
		t.Fatalf("Harmonize: %v", err)
	}
	if _, ok := blocked[types.VerticalTowersWireless]; !ok {
		t.Errorf("unsupported claim did not block unit: %v", blocked)
	}
}

func TestHarmonizeSchemaFailureRetriedOnce(t *testing.T) {
	svc := &mockService{
		responses: []reason.EditResponse{{}, {}},
		errs:      []error{&reason.SchemaError{Stage: "edit", Err: errors.New("bad json")}},
	}
	e := NewEditor(svc, logging.Discard())

	if _, _, err := e.Harmonize(context.Background(), "analytical", "", inputDrafts()); err != nil {
		t.Fatalf("Harmonize: %v", err)
	}
	if svc.calls != 2 {
		t.Errorf("service calls = %d, want 2", svc.calls)
	}
}
