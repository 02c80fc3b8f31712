// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package draft produces validated section drafts. The drafter invokes the
// reasoning service, runs a bounded follow-up retrieval loop, and enforces
// citation grounding mechanically before any draft can reach review.
package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/newsletter-engine/internal/evidence"
	"github.com/pdiddy/newsletter-engine/internal/reason"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// ErrNoEvidence signals that a unit has no evidence to draft from.
var ErrNoEvidence = errors.New("no evidence available for drafting")

// maxFollowUpRounds bounds the propose-queries/re-draft loop so the budget
// invariant stays mechanically checkable.
const maxFollowUpRounds = 2

// Drafter turns one unit's evidence into a validated section draft.
type Drafter struct {
	svc     reason.Service
	builder *evidence.Builder
	policy  types.BulletPolicy
	log     *logrus.Logger
}

// NewDrafter wires a drafter over the reasoning service and the evidence
// builder used for follow-up queries.
func NewDrafter(svc reason.Service, builder *evidence.Builder, policy types.BulletPolicy, log *logrus.Logger) *Drafter {
	return &Drafter{svc: svc, builder: builder, policy: policy, log: log}
}

// FocusEntities resolves the focus-entity list for a vertical: the run's
// explicit override when present, otherwise the registry default capped
// at the bullet limit.
func FocusEntities(state *types.RunState, vertical string) (entities []string, explicit bool) {
	if list, ok := state.FocusEntities[vertical]; ok && len(list) > 0 {
		return list, true
	}
	if info, ok := types.VerticalByID(vertical); ok {
		list := info.FocusEntities
		if len(list) > types.MaxBullets {
			list = list[:types.MaxBullets]
		}
		return list, false
	}
	return nil, false
}

// SeedQueries builds the initial retrieval queries for a vertical from its
// seed keywords and focus entities, optionally scoped to a region.
func SeedQueries(state *types.RunState, vertical string) []string {
	var queries []string

	year := state.Window.End.Year()
	if info, ok := types.VerticalByID(vertical); ok {
		keywords := info.SeedKeywords
		if len(keywords) > 3 {
			keywords = keywords[:3]
		}
		for _, kw := range keywords {
			q := fmt.Sprintf("%s %d", kw, year)
			if state.Region != "" {
				q += " " + state.Region
			}
			queries = append(queries, q)
		}
	}

	entities, _ := FocusEntities(state, vertical)
	for _, e := range entities {
		q := e + " news"
		if state.Region != "" {
			q += " " + state.Region
		}
		queries = append(queries, q)
	}
	return queries
}

// Tickers returns the stock tickers for a vertical's focus entities, for
// optional market-data seeding.
func Tickers(state *types.RunState, vertical string) []string {
	info, ok := types.VerticalByID(vertical)
	if !ok {
		return nil
	}
	entities, _ := FocusEntities(state, vertical)
	var tickers []string
	for _, e := range entities {
		if t, ok := info.Tickers[e]; ok && t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}

// Draft produces a validated draft for one unit. When plan is non-nil its
// instructions are appended verbatim to the generation context alongside
// the prior draft. The pack may grow as a side effect of follow-up
// queries; the shared budget counter bounds that growth.
func (d *Drafter) Draft(ctx context.Context, state *types.RunState, vertical string, pack *evidence.Pack, plan *types.FixPlan, prior *types.Draft) (*types.Draft, error) {
	if pack.Len() == 0 {
		return nil, ErrNoEvidence
	}

	entities, _ := FocusEntities(state, vertical)
	req := reason.DraftRequest{
		Vertical:      vertical,
		DisplayName:   types.DisplayName(vertical),
		Window:        state.Window,
		Voice:         state.Voice,
		Region:        state.Region,
		Style:         state.Style,
		FocusEntities: entities,
		PriorDraft:    prior,
	}
	if plan != nil {
		req.FixInstructions = plan.Instructions()
	}

	var resp reason.DraftResponse
	for round := 0; ; round++ {
		snap := pack.Snapshot()
		req.BulletCount = d.policy.Count(len(entities), len(snap.Items))
		req.SectorWide = d.policy.SectorWide(len(snap.Items))
		req.Evidence = reason.SummarizeEvidence(snap)

		var err error
		resp, err = d.callDraft(ctx, req)
		if err != nil {
			return nil, err
		}

		if round >= maxFollowUpRounds || len(resp.FollowUpQueries) == 0 || pack.Remaining() == 0 {
			break
		}

		queries := resp.FollowUpQueries
		if len(queries) > pack.Remaining() {
			queries = queries[:pack.Remaining()]
		}
		d.log.WithFields(logrus.Fields{"vertical": vertical, "queries": len(queries)}).
			Debug("executing follow-up queries")
		if err := d.builder.Gather(ctx, pack, queries, state.Window); err != nil {
			return nil, err
		}
	}

	snap := pack.Snapshot()
	result := d.convert(vertical, resp, snap, req.BulletCount)
	if err := Validate(result, snap); err != nil {
		// One corrective attempt before the unit's attempt fails.
		req.FixInstructions = append(req.FixInstructions,
			"add_citation: every bullet and the paragraph must cite at least one evidence id from the provided evidence")
		resp, rerr := d.callDraft(ctx, req)
		if rerr != nil {
			return nil, rerr
		}
		result = d.convert(vertical, resp, snap, req.BulletCount)
		if verr := Validate(result, snap); verr != nil {
			return nil, verr
		}
	}
	return result, nil
}

// callDraft invokes the reasoning service, retrying a schema failure once.
func (d *Drafter) callDraft(ctx context.Context, req reason.DraftRequest) (reason.DraftResponse, error) {
	resp, err := d.svc.Draft(ctx, req)
	if reason.IsSchemaError(err) {
		d.log.WithError(err).WithField("vertical", req.Vertical).Warn("draft schema failure, retrying once")
		resp, err = d.svc.Draft(ctx, req)
	}
	return resp, err
}

// convert maps a service response onto the draft model: markers are
// stripped from display text, IDs are normalized and filtered to the
// pack, and the bullet list is clipped to the policy count.
func (d *Drafter) convert(vertical string, resp reason.DraftResponse, pack types.EvidencePack, bulletCount int) *types.Draft {
	available := make(map[string]bool)
	for _, id := range pack.IDs() {
		available[id] = true
	}

	keep := func(ids []string) []string {
		var kept []string
		for _, id := range NormalizeEvidenceIDs(ids) {
			if available[id] {
				kept = append(kept, id)
			}
		}
		return kept
	}

	paraIDs := keep(resp.ParagraphEvidenceIDs)
	if len(paraIDs) == 0 {
		paraIDs = keep(ExtractEvidenceIDs(resp.Paragraph))
	}

	out := &types.Draft{
		Vertical:             vertical,
		Headline:             StripEvidenceMarkers(resp.Headline),
		Paragraph:            StripEvidenceMarkers(resp.Paragraph),
		ParagraphEvidenceIDs: paraIDs,
		RiskFlags:            resp.RiskFlags,
	}

	bullets := resp.Bullets
	if len(bullets) > bulletCount {
		bullets = bullets[:bulletCount]
	}
	for _, b := range bullets {
		ids := keep(b.EvidenceIDs)
		if len(ids) == 0 {
			ids = keep(ExtractEvidenceIDs(b.Text))
		}
		out.Bullets = append(out.Bullets, types.Bullet{
			Text:        StripEvidenceMarkers(b.Text),
			EvidenceIDs: ids,
			FocusEntity: b.FocusEntity,
		})
	}
	return out
}

// Validate applies the hard citation constraints: the paragraph and every
// bullet must cite at least one evidence ID present in the pack, and the
// bullet list must respect the cap. An invalid draft never reaches review.
func Validate(d *types.Draft, pack types.EvidencePack) error {
	var problems []string

	if len(d.ParagraphEvidenceIDs) == 0 {
		problems = append(problems, "paragraph cites no evidence")
	}
	for _, id := range d.ParagraphEvidenceIDs {
		if !pack.HasID(id) {
			problems = append(problems, fmt.Sprintf("paragraph cites unknown evidence %s", id))
		}
	}

	if len(d.Bullets) > types.MaxBullets {
		problems = append(problems, fmt.Sprintf("%d bullets exceeds limit %d", len(d.Bullets), types.MaxBullets))
	}
	for i, b := range d.Bullets {
		if len(b.EvidenceIDs) == 0 {
			problems = append(problems, fmt.Sprintf("bullet %d cites no evidence", i+1))
			continue
		}
		for _, id := range b.EvidenceIDs {
			if !pack.HasID(id) {
				problems = append(problems, fmt.Sprintf("bullet %d cites unknown evidence %s", i+1, id))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("draft failed citation validation: %s", strings.Join(problems, "; "))
	}
	return nil
}
