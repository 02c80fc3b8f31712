// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// Route applies one round of review results to unit statuses: accepted
// drafts become accepted units, rejected drafts with a fix plan go back
// to drafting, and a rejection that carries no actionable plan is treated
// as acceptance rather than an unactionable loop. Applying the same
// round's results twice is a no-op. Every status write is announced
// through notify when one is provided.
func Route(state *types.RunState, results map[string]*types.ReviewResult, log *logrus.Logger, notify func(vertical string, status types.UnitStatus)) {
	set := func(unit *types.Unit, status types.UnitStatus) {
		unit.Status = status
		if notify != nil {
			notify(unit.Vertical, status)
		}
	}

	for vertical, result := range results {
		unit := state.Unit(vertical)
		if unit == nil || unit.Status != types.UnitUnderReview {
			continue
		}
		if n := len(unit.History); n > 0 && unit.History[n-1].Round == result.Round {
			continue
		}
		unit.History = append(unit.History, *result)

		switch {
		case result.Accepted:
			set(unit, types.UnitAccepted)
		case result.Plan == nil || len(result.Plan.Actions) == 0:
			log.WithField("vertical", vertical).Warn("rejection without actionable plan, accepting draft as-is")
			set(unit, types.UnitAccepted)
		default:
			set(unit, types.UnitDrafting)
		}
	}
}

// LatestPlan returns the fix plan from a unit's most recent review round,
// or nil when the last round accepted the draft.
func LatestPlan(unit *types.Unit) *types.FixPlan {
	if n := len(unit.History); n > 0 {
		return unit.History[n-1].Plan
	}
	return nil
}
