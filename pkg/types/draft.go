// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// MaxBullets caps the bullet list length of any draft.
const MaxBullets = 5

// Bullet is a single one-line item in a section draft.
type Bullet struct {
	// Text is the bullet content, with evidence markers stripped.
	Text string `json:"text" yaml:"text"`

	// EvidenceIDs lists the evidence items supporting the bullet.
	// A bullet with no IDs is never eligible for review.
	EvidenceIDs []string `json:"evidence_ids" yaml:"evidence_ids"`

	// FocusEntity names the focus entity the bullet is keyed to, if any.
	FocusEntity string `json:"focus_entity,omitempty" yaml:"focus_entity,omitempty"`
}

// Draft is one section's content: a big-picture paragraph plus a bounded
// list of bullets, each annotated with the evidence it relies on.
type Draft struct {
	// Vertical identifies the section.
	Vertical string `json:"vertical" yaml:"vertical"`

	// Headline is a short title for the section.
	Headline string `json:"headline,omitempty" yaml:"headline,omitempty"`

	// Paragraph is the big-picture summary (~80-140 words).
	Paragraph string `json:"paragraph" yaml:"paragraph"`

	// ParagraphEvidenceIDs lists the evidence supporting the paragraph.
	ParagraphEvidenceIDs []string `json:"paragraph_evidence_ids" yaml:"paragraph_evidence_ids"`

	// Bullets holds up to MaxBullets items in display order.
	Bullets []Bullet `json:"bullets" yaml:"bullets"`

	// RiskFlags lists uncertainties or missing context.
	RiskFlags []string `json:"risk_flags,omitempty" yaml:"risk_flags,omitempty"`
}

// CitedIDs returns every evidence ID the draft references, first-seen
// order, paragraph before bullets, without duplicates.
func (d *Draft) CitedIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(list []string) {
		for _, id := range list {
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	add(d.ParagraphEvidenceIDs)
	for _, b := range d.Bullets {
		add(b.EvidenceIDs)
	}
	return ids
}

// CitedSet returns the draft's cited evidence IDs as a set.
func (d *Draft) CitedSet() map[string]bool {
	set := make(map[string]bool)
	for _, id := range d.CitedIDs() {
		set[id] = true
	}
	return set
}
