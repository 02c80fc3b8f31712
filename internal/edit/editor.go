// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package edit runs the cross-section consistency pass. The editor may
// reword accepted drafts for tone and voice but can never strengthen
// their claims: the cited evidence of every section after the pass must
// be a subset of what it cited before.
package edit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/newsletter-engine/internal/reason"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// ErrCitationAdded reports a section whose post-edit citations are not a
// subset of its pre-edit citations.
var ErrCitationAdded = errors.New("editor introduced a citation absent from the reviewed draft")

// Editor harmonizes tone across accepted sections in one service call.
type Editor struct {
	svc reason.Service
	log *logrus.Logger
}

// NewEditor wires an editor over the reasoning service.
func NewEditor(svc reason.Service, log *logrus.Logger) *Editor {
	return &Editor{svc: svc, log: log}
}

// Harmonize runs the consistency pass over the given drafts. It returns
// the harmonized sections keyed by vertical, plus a map of verticals
// whose edit violated a hard rule and must fail, with the reason.
// Sections the service left out come back unchanged. Risk flags survive
// the pass untouched.
func (e *Editor) Harmonize(ctx context.Context, voice, style string, drafts []types.Draft) (map[string]*types.Draft, map[string]string, error) {
	req := reason.EditRequest{Voice: voice, Style: style, Sections: drafts}

	resp, err := e.svc.Edit(ctx, req)
	if reason.IsSchemaError(err) {
		e.log.WithError(err).Warn("edit schema failure, retrying once")
		resp, err = e.svc.Edit(ctx, req)
	}
	if err != nil {
		return nil, nil, err
	}

	before := make(map[string]*types.Draft, len(drafts))
	out := make(map[string]*types.Draft, len(drafts))
	for i := range drafts {
		d := drafts[i]
		before[d.Vertical] = &d
		out[d.Vertical] = &d
	}

	blocked := make(map[string]string)
	for _, sec := range resp.Sections {
		orig, ok := before[sec.Vertical]
		if !ok {
			e.log.WithField("vertical", sec.Vertical).Warn("editor returned unknown section, ignoring")
			continue
		}
		edited := applySection(orig, sec)
		if added := citationsAdded(orig, edited); len(added) > 0 {
			blocked[sec.Vertical] = fmt.Sprintf("%v: %s", ErrCitationAdded, strings.Join(added, ", "))
			continue
		}
		out[sec.Vertical] = edited
	}

	for _, claim := range resp.UnsupportedClaims {
		vertical, detail, found := strings.Cut(claim, ":")
		vertical = strings.TrimSpace(vertical)
		if !found || before[vertical] == nil {
			e.log.WithField("claim", claim).Warn("unsupported claim without a known vertical")
			continue
		}
		blocked[vertical] = "unsupported claim after edit: " + strings.TrimSpace(detail)
	}

	if len(resp.ChangesMade) > 0 {
		e.log.WithField("changes", len(resp.ChangesMade)).Info("consistency pass applied")
	}
	return out, blocked, nil
}

// applySection folds an edited section onto its original draft, keeping
// fields the editor does not own.
func applySection(orig *types.Draft, sec reason.EditedSection) *types.Draft {
	edited := &types.Draft{
		Vertical:             orig.Vertical,
		Headline:             orig.Headline,
		Paragraph:            sec.Paragraph,
		ParagraphEvidenceIDs: sec.ParagraphEvidenceIDs,
		RiskFlags:            orig.RiskFlags,
	}
	if sec.Headline != "" {
		edited.Headline = sec.Headline
	}
	for _, b := range sec.Bullets {
		edited.Bullets = append(edited.Bullets, types.Bullet{
			Text:        b.Text,
			EvidenceIDs: b.EvidenceIDs,
			FocusEntity: b.FocusEntity,
		})
	}
	return edited
}

// citationsAdded returns the evidence IDs cited after the edit that were
// not cited before it.
func citationsAdded(before, after *types.Draft) []string {
	prior := before.CitedSet()
	var added []string
	for _, id := range after.CitedIDs() {
		if !prior[id] {
			added = append(added, id)
		}
	}
	return added
}
