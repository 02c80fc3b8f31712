// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Review rubric acceptance thresholds.
const (
	GroundingThreshold = 4
	ClarityThreshold   = 4
)

// ReviewScore holds the five rubric dimensions, each 0-5, plus any
// blocking issues found during review.
type ReviewScore struct {
	// Grounding measures how well claims are supported by evidence.
	Grounding int `json:"grounding" yaml:"grounding"`

	// Clarity measures conciseness and comprehensibility.
	Clarity int `json:"clarity" yaml:"clarity"`

	// Newsworthiness measures timeliness and importance.
	Newsworthiness int `json:"newsworthiness" yaml:"newsworthiness"`

	// Balance measures whether the draft avoids hype and includes caveats.
	Balance int `json:"balance" yaml:"balance"`

	// VoiceFit measures how well the tone matches the requested voice.
	VoiceFit int `json:"voice_fit" yaml:"voice_fit"`

	// BlockingIssues lists problems that bar acceptance regardless of
	// scores (e.g. "unsupported claim", "duplicate bullet").
	BlockingIssues []string `json:"blocking_issues,omitempty" yaml:"blocking_issues,omitempty"`
}

// Accepted applies the deterministic acceptance predicate:
// grounding and clarity at threshold, and no blocking issues.
func (s ReviewScore) Accepted() bool {
	return s.Grounding >= GroundingThreshold &&
		s.Clarity >= ClarityThreshold &&
		len(s.BlockingIssues) == 0
}

// FixActionType classifies a revision instruction.
type FixActionType string

const (
	FixFetchSource FixActionType = "fetch_source"
	FixRewrite     FixActionType = "rewrite"
	FixAddCitation FixActionType = "add_citation"
	FixClarify     FixActionType = "clarify"
	FixAdjustTone  FixActionType = "adjust_tone"
)

// FixAction is one actionable instruction in a fix plan.
type FixAction struct {
	// Type classifies the action.
	Type FixActionType `json:"type" yaml:"type"`

	// Description says what needs to be done.
	Description string `json:"description" yaml:"description"`

	// Target names the part of the draft to change (e.g. "bullet_2").
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// SuggestedQuery is an optional retrieval query supporting the fix.
	SuggestedQuery string `json:"suggested_query,omitempty" yaml:"suggested_query,omitempty"`
}

// FixPlan is a reviewer-issued, targeted set of revision instructions for
// exactly one unit. Consumed once by the fix router, then retained only
// in the review history.
type FixPlan struct {
	// Vertical names the single target unit.
	Vertical string `json:"vertical" yaml:"vertical"`

	// Issues describes the problems found.
	Issues []string `json:"issues" yaml:"issues"`

	// Actions lists at least one concrete instruction.
	Actions []FixAction `json:"actions" yaml:"actions"`
}

// SuggestedQueries collects the retrieval queries attached to actions.
func (p *FixPlan) SuggestedQueries() []string {
	var queries []string
	for _, a := range p.Actions {
		if a.SuggestedQuery != "" {
			queries = append(queries, a.SuggestedQuery)
		}
	}
	return queries
}

// Instructions renders the plan's actions as plain instruction strings.
func (p *FixPlan) Instructions() []string {
	out := make([]string, 0, len(p.Actions))
	for _, a := range p.Actions {
		line := string(a.Type) + ": " + a.Description
		if a.Target != "" {
			line += " (target: " + a.Target + ")"
		}
		out = append(out, line)
	}
	return out
}

// ReviewResult is one complete review round for a unit.
type ReviewResult struct {
	// Vertical identifies the reviewed unit.
	Vertical string `json:"vertical" yaml:"vertical"`

	// Round is the review iteration this result belongs to.
	Round int `json:"round" yaml:"round"`

	// Score holds the rubric scores and blocking issues.
	Score ReviewScore `json:"score" yaml:"score"`

	// Issues lists the non-blocking problems the reviewer noted.
	Issues []string `json:"issues,omitempty" yaml:"issues,omitempty"`

	// Plan is the fix plan for a rejected draft, nil on acceptance.
	Plan *FixPlan `json:"plan,omitempty" yaml:"plan,omitempty"`

	// Accepted records the deterministic acceptance outcome.
	Accepted bool `json:"accepted" yaml:"accepted"`

	// Notes carries optional reviewer commentary.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
}
