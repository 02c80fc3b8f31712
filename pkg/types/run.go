// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the newsletter-engine
// pipeline: run state, units, evidence, drafts, reviews, and configuration.
package types

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// RunMode selects which workflow a run executes.
type RunMode string

const (
	// ModeGenerate produces a full issue covering every requested vertical.
	ModeGenerate RunMode = "generate"

	// ModeUpdateOneUnit regenerates a single section of a prior issue;
	// sibling sections are loaded read-only from the stored run.
	ModeUpdateOneUnit RunMode = "update_one_unit"
)

// Phase is the orchestrator's position in the run state machine.
type Phase string

const (
	PhaseInit       Phase = "init"
	PhaseFanningOut Phase = "fanning_out"
	PhaseReviewing  Phase = "reviewing"
	PhaseFixing     Phase = "fixing"
	PhaseEditing    Phase = "editing"
	PhaseAssembling Phase = "assembling"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether the phase is absorbing.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// UnitStatus tracks one vertical's progress through drafting and review.
type UnitStatus string

const (
	UnitPending     UnitStatus = "pending"
	UnitDrafting    UnitStatus = "drafting"
	UnitUnderReview UnitStatus = "under_review"
	UnitNeedsFix    UnitStatus = "needs_fix"
	UnitAccepted    UnitStatus = "accepted"
	UnitFailed      UnitStatus = "failed"
)

// Terminal reports whether the unit has finished the pipeline.
func (s UnitStatus) Terminal() bool {
	return s == UnitAccepted || s == UnitFailed
}

// TimeWindow bounds the coverage period for an issue.
type TimeWindow struct {
	// Start is the first day covered.
	Start time.Time `json:"start" yaml:"start"`

	// End is the last day covered. Never later than the run's start time;
	// the orchestrator clamps a future end to "now" instead of erroring.
	End time.Time `json:"end" yaml:"end"`
}

// Days returns the window length in whole days.
func (w TimeWindow) Days() int {
	return int(w.End.Sub(w.Start).Hours() / 24)
}

// Unit is one vertical's work item: its draft, evidence, and review trail.
// Owned exclusively by the orchestrator; stage results are folded in only
// after the unit's task reports completion.
type Unit struct {
	// Vertical identifies the topic track (e.g. "data_centers").
	Vertical string `json:"vertical" yaml:"vertical"`

	// Status is the unit's position in the pipeline.
	Status UnitStatus `json:"status" yaml:"status"`

	// Draft is the current section draft, nil until drafting completes.
	Draft *Draft `json:"draft,omitempty" yaml:"draft,omitempty"`

	// Pack is the evidence gathered for this unit. It grows monotonically:
	// follow-up retrieval appends, never removes.
	Pack EvidencePack `json:"pack" yaml:"pack"`

	// RiskFlags lists uncertainties and coverage gaps noted while drafting.
	RiskFlags []string `json:"risk_flags,omitempty" yaml:"risk_flags,omitempty"`

	// History records every review round in order.
	History []ReviewResult `json:"history,omitempty" yaml:"history,omitempty"`

	// FailureReason explains a failed status. Empty otherwise.
	FailureReason string `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`

	// ReadOnly marks a sibling loaded from a prior run in update mode.
	// Read-only units bypass drafting and review.
	ReadOnly bool `json:"read_only,omitempty" yaml:"read_only,omitempty"`
}

// RunState identifies one execution of the workflow. Created at run start,
// mutated only by the orchestrator, immutable once Phase is terminal.
type RunState struct {
	// ID uniquely identifies the run (e.g. "newsletter_20260830_a1b2c3").
	ID string `json:"id" yaml:"id"`

	// Mode selects full generation or a targeted single-section update.
	Mode RunMode `json:"mode" yaml:"mode"`

	// Window is the coverage period.
	Window TimeWindow `json:"window" yaml:"window"`

	// Verticals lists the requested topic tracks in output order.
	Verticals []string `json:"verticals" yaml:"verticals"`

	// Voice is the requested voice profile, passed through verbatim.
	Voice string `json:"voice" yaml:"voice"`

	// Region is an optional geographic focus, passed through verbatim.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Style holds freeform style directives, passed through verbatim.
	Style string `json:"style,omitempty" yaml:"style,omitempty"`

	// FocusEntities overrides the default focus-entity list per vertical.
	FocusEntities map[string][]string `json:"focus_entities,omitempty" yaml:"focus_entities,omitempty"`

	// CallBudget is the retrieval-call budget per vertical, shared across
	// initial seeding and every follow-up round.
	CallBudget int `json:"call_budget" yaml:"call_budget"`

	// MaxReviewRounds bounds the reviewing→fixing loop.
	MaxReviewRounds int `json:"max_review_rounds" yaml:"max_review_rounds"`

	// Round counts completed reviewing→fixing transitions.
	Round int `json:"round" yaml:"round"`

	// Phase is the orchestrator's current state-machine position.
	Phase Phase `json:"phase" yaml:"phase"`

	// Units holds per-vertical work state, keyed by vertical ID.
	Units map[string]*Unit `json:"units" yaml:"units"`

	// CreatedAt is the run start time.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// TargetVertical names the single unit to regenerate in update mode.
	TargetVertical string `json:"target_vertical,omitempty" yaml:"target_vertical,omitempty"`

	// UpdateInstruction carries the caller's revision request in update mode.
	UpdateInstruction string `json:"update_instruction,omitempty" yaml:"update_instruction,omitempty"`
}

// Unit returns the unit for a vertical, or nil if none exists.
func (r *RunState) Unit(vertical string) *Unit {
	return r.Units[vertical]
}

// ActiveUnits returns the units the pipeline still drives: in update mode
// only the target, otherwise every requested unit.
func (r *RunState) ActiveUnits() []*Unit {
	var active []*Unit
	for _, v := range r.Verticals {
		u := r.Units[v]
		if u == nil || u.ReadOnly {
			continue
		}
		active = append(active, u)
	}
	return active
}

// NewRunID produces a run identifier with a date stamp and 3 bytes of
// entropy, e.g. "newsletter_20260830_a1b2c3".
func NewRunID(now time.Time) string {
	b := make([]byte, 3)
	rand.Read(b)
	return fmt.Sprintf("newsletter_%s_%s", now.UTC().Format("20060102"), hex.EncodeToString(b))
}
