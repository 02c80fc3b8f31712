// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package run drives the newsletter workflow: an explicit state machine
// over run phases, the fan-out/fan-in scheduler for unit work, the review
// loop, and run persistence.
package run

import (
	"fmt"

	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// Event is a state-machine input. Transitions not listed in the table are
// rejected; the machine never guesses.
type Event string

const (
	EventStart       Event = "start"
	EventFanOutDone  Event = "fan_out_done"
	EventFixesNeeded Event = "fixes_needed"
	EventFixesDone   Event = "fixes_done"
	EventAllAccepted Event = "all_accepted"
	EventEditsDone   Event = "edits_done"
	EventAssembled   Event = "assembled"
	EventAbort       Event = "abort"
)

// transitions is the full (phase, event) table. Both terminal phases are
// absorbing: no event leaves them.
var transitions = map[types.Phase]map[Event]types.Phase{
	types.PhaseInit: {
		EventStart: types.PhaseFanningOut,
		EventAbort: types.PhaseFailed,
	},
	types.PhaseFanningOut: {
		EventFanOutDone: types.PhaseReviewing,
		EventAbort:      types.PhaseFailed,
	},
	types.PhaseReviewing: {
		EventFixesNeeded: types.PhaseFixing,
		EventAllAccepted: types.PhaseEditing,
		EventAbort:       types.PhaseFailed,
	},
	types.PhaseFixing: {
		EventFixesDone: types.PhaseReviewing,
		EventAbort:     types.PhaseFailed,
	},
	types.PhaseEditing: {
		EventEditsDone: types.PhaseAssembling,
		EventAbort:     types.PhaseFailed,
	},
	types.PhaseAssembling: {
		EventAssembled: types.PhaseDone,
		EventAbort:     types.PhaseFailed,
	},
}

// Fire applies an event to the run's phase. The round counter increments
// exactly on the reviewing to fixing transition and nowhere else.
func Fire(state *types.RunState, ev Event) error {
	next, ok := transitions[state.Phase][ev]
	if !ok {
		return fmt.Errorf("no transition from phase %q on event %q", state.Phase, ev)
	}
	if state.Phase == types.PhaseReviewing && next == types.PhaseFixing {
		state.Round++
	}
	state.Phase = next
	return nil
}

// ReviewOutcome derives the post-routing event from unit statuses alone:
// any active unit sent back to drafting means another fix round, anything
// else means the review loop is finished.
func ReviewOutcome(state *types.RunState) Event {
	for _, u := range state.ActiveUnits() {
		if u.Status == types.UnitDrafting || u.Status == types.UnitNeedsFix {
			return EventFixesNeeded
		}
	}
	return EventAllAccepted
}
