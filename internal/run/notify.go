// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package run

import (
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// Notifier receives run lifecycle announcements. UnitTransition fires on
// every unit status change, always from the orchestrator goroutine and
// only for requested verticals. Implementations must not block the
// orchestrator.
type Notifier interface {
	UnitTransition(runID, vertical string, status types.UnitStatus)
	RunCompleted(state *types.RunState, issuePath string)
	RunFailed(state *types.RunState, err error)
}

// LogNotifier announces unit progress and run outcomes through the
// structured log.
type LogNotifier struct {
	Log *logrus.Logger
}

func (n *LogNotifier) UnitTransition(runID, vertical string, status types.UnitStatus) {
	n.Log.WithFields(logrus.Fields{
		"run":    runID,
		"unit":   vertical,
		"status": status,
	}).Info("unit entered state")
}

func (n *LogNotifier) RunCompleted(state *types.RunState, issuePath string) {
	accepted, failed := 0, 0
	for _, u := range state.Units {
		switch u.Status {
		case types.UnitAccepted:
			accepted++
		case types.UnitFailed:
			failed++
		}
	}
	n.Log.WithFields(logrus.Fields{
		"run":      state.ID,
		"accepted": accepted,
		"failed":   failed,
		"rounds":   state.Round,
		"issue":    issuePath,
	}).Info("run completed")
}

func (n *LogNotifier) RunFailed(state *types.RunState, err error) {
	n.Log.WithError(err).WithField("run", state.ID).Error("run failed")
}
