// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/newsletter-engine/internal/assemble"
	"github.com/pdiddy/newsletter-engine/internal/draft"
	"github.com/pdiddy/newsletter-engine/internal/edit"
	"github.com/pdiddy/newsletter-engine/internal/evidence"
	"github.com/pdiddy/newsletter-engine/internal/reason"
	"github.com/pdiddy/newsletter-engine/internal/review"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// ErrNoVerticals is the run-level fatal for a request naming no verticals.
var ErrNoVerticals = errors.New("a run requires at least one vertical")

// Params describes one requested run.
type Params struct {
	// Mode selects generation or a single-section update.
	Mode types.RunMode

	// Verticals lists the topic tracks in output order.
	Verticals []string

	// Window is the coverage period. A zero window defaults to the last
	// seven days; a future end is clamped to now.
	Window types.TimeWindow

	// Voice, Region, and Style are passed through to every stage verbatim.
	Voice  string
	Region string
	Style  string

	// FocusEntities overrides the default focus-entity list per vertical.
	FocusEntities map[string][]string

	// BaseRunID names the run to update in update mode. Empty selects the
	// latest completed run.
	BaseRunID string

	// TargetVertical is the single section to regenerate in update mode.
	TargetVertical string

	// UpdateInstruction is the caller's revision request in update mode.
	UpdateInstruction string
}

// Orchestrator owns a run's state and drives it through the state
// machine. Unit work is delegated to goroutines during fan-out; all state
// mutation happens on the orchestrator's goroutine.
type Orchestrator struct {
	cfg      types.PipelineConfig
	builder  *evidence.Builder
	drafter  *draft.Drafter
	reviewer *review.Reviewer
	editor   *edit.Editor
	store    *Store
	notifier Notifier
	log      *logrus.Logger

	// packs holds each unit's live evidence pack so fix rounds keep
	// drawing from the same budget.
	packs map[string]*evidence.Pack

	// deadlines holds each unit's absolute deadline, stamped at dispatch.
	// One deadline spans the unit's whole draft+review+fix chain.
	deadlines map[string]time.Time

	// priors holds the base-run draft of the target unit in update mode.
	priors map[string]*types.Draft
}

// NewOrchestrator wires the pipeline stages over shared dependencies.
func NewOrchestrator(cfg types.PipelineConfig, svc reason.Service, builder *evidence.Builder, store *Store, notifier Notifier, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		builder:   builder,
		drafter:   draft.NewDrafter(svc, builder, cfg.Bullets, log),
		reviewer:  review.NewReviewer(svc, log),
		editor:    edit.NewEditor(svc, log),
		store:     store,
		notifier:  notifier,
		log:       log,
		packs:     make(map[string]*evidence.Pack),
		deadlines: make(map[string]time.Time),
		priors:    make(map[string]*types.Draft),
	}
}

// Run executes one workflow end to end and returns the final state plus
// the path of the written issue file.
func (o *Orchestrator) Run(ctx context.Context, params Params) (*types.RunState, string, error) {
	state, err := o.prepare(ctx, params)
	if err != nil {
		return nil, "", err
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Scheduling.RunDeadline)
	defer cancel()

	o.persist(ctx, state)
	if err := Fire(state, EventStart); err != nil {
		return state, "", o.fail(ctx, state, err)
	}
	o.persist(ctx, state)

	o.fanOut(ctx, state)
	if err := Fire(state, EventFanOutDone); err != nil {
		return state, "", o.fail(ctx, state, err)
	}
	o.persist(ctx, state)

	if !o.anyReviewable(state) {
		return state, "", o.fail(ctx, state, errors.New("every unit failed before review"))
	}

	if err := o.reviewLoop(ctx, state); err != nil {
		return state, "", o.fail(ctx, state, err)
	}
	if !o.anyAccepted(state) {
		return state, "", o.fail(ctx, state, errors.New("every unit failed during review"))
	}

	o.editPass(ctx, state)
	if err := Fire(state, EventEditsDone); err != nil {
		return state, "", o.fail(ctx, state, err)
	}
	o.persist(ctx, state)

	doc := assemble.Assemble(state, o.cfg.Output.Title)
	path, err := o.store.SaveIssue(ctx, state.ID, assemble.Markdown(doc))
	if err != nil {
		return state, "", o.fail(ctx, state, err)
	}
	if err := Fire(state, EventAssembled); err != nil {
		return state, "", o.fail(ctx, state, err)
	}
	o.persist(ctx, state)

	o.notifier.RunCompleted(state, path)
	return state, path, nil
}

// prepare validates the request and builds the initial run state. Errors
// here are run-level fatals raised before any work starts.
func (o *Orchestrator) prepare(ctx context.Context, params Params) (*types.RunState, error) {
	now := time.Now().UTC()

	window := params.Window
	if window.End.IsZero() {
		window.End = now
	}
	if window.End.After(now) {
		o.log.WithField("end", window.End).Warn("clamping future window end to now")
		window.End = now
	}
	if window.Start.IsZero() {
		window.Start = window.End.AddDate(0, 0, -7)
	}
	if window.Start.After(window.End) {
		return nil, fmt.Errorf("window start %s is after end %s",
			window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))
	}

	state := &types.RunState{
		ID:              types.NewRunID(now),
		Mode:            params.Mode,
		Window:          window,
		Voice:           params.Voice,
		Region:          params.Region,
		Style:           params.Style,
		FocusEntities:   params.FocusEntities,
		CallBudget:      o.cfg.Retrieval.CallBudget,
		MaxReviewRounds: o.cfg.Review.MaxRounds,
		Phase:           types.PhaseInit,
		Units:           make(map[string]*types.Unit),
		CreatedAt:       now,
	}

	if params.Mode == types.ModeUpdateOneUnit {
		return o.prepareUpdate(ctx, state, params)
	}

	state.Verticals = params.Verticals
	if len(state.Verticals) == 0 {
		return nil, ErrNoVerticals
	}
	for _, v := range state.Verticals {
		state.Units[v] = &types.Unit{Vertical: v, Status: types.UnitPending}
	}
	return state, nil
}

// prepareUpdate builds update-mode state: siblings come from the base run
// read-only, only the target unit goes through the pipeline again.
func (o *Orchestrator) prepareUpdate(ctx context.Context, state *types.RunState, params Params) (*types.RunState, error) {
	if params.TargetVertical == "" {
		return nil, errors.New("update mode requires a target vertical")
	}

	var base *types.RunState
	var err error
	if params.BaseRunID != "" {
		base, err = o.store.LoadRun(ctx, params.BaseRunID)
	} else {
		base, err = o.store.LatestCompletedRun(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("loading base run: %w", err)
	}

	target := base.Unit(params.TargetVertical)
	if target == nil {
		return nil, fmt.Errorf("base run %s has no unit for vertical %q", base.ID, params.TargetVertical)
	}

	state.Verticals = base.Verticals
	state.TargetVertical = params.TargetVertical
	state.UpdateInstruction = params.UpdateInstruction
	if state.Voice == "" {
		state.Voice = base.Voice
	}
	if state.Region == "" {
		state.Region = base.Region
	}
	if state.Style == "" {
		state.Style = base.Style
	}

	for _, v := range base.Verticals {
		u := base.Unit(v)
		if u == nil {
			continue
		}
		if v == params.TargetVertical {
			state.Units[v] = &types.Unit{Vertical: v, Status: types.UnitPending}
			if u.Draft != nil {
				o.priors[v] = u.Draft
			}
			continue
		}
		sibling := *u
		sibling.ReadOnly = true
		state.Units[v] = &sibling
	}
	return state, nil
}

// unitResult carries one fan-out worker's outcome back to the barrier.
type unitResult struct {
	vertical string
	draft    *types.Draft
	err      error
}

// fanOut seeds evidence and drafts every active unit concurrently, one
// goroutine per unit, then folds the results into the state at the
// barrier. Each unit's deadline is stamped here and bounds everything
// the unit does later, review and fix rounds included. A single unit's
// failure never aborts the others.
func (o *Orchestrator) fanOut(ctx context.Context, state *types.RunState) {
	active := state.ActiveUnits()
	results := make(chan unitResult, len(active))
	var wg sync.WaitGroup

	// Packs and deadlines are created before the workers launch;
	// goroutines only read the maps.
	now := time.Now()
	for _, unit := range active {
		o.packs[unit.Vertical] = evidence.NewPack(unit.Vertical, state.CallBudget)
		o.deadlines[unit.Vertical] = now.Add(o.cfg.Scheduling.UnitTimeout)
	}

	for _, unit := range active {
		o.setStatus(state, unit, types.UnitDrafting)
		wg.Add(1)
		go func(vertical string) {
			defer wg.Done()
			unitCtx, cancel := context.WithDeadline(ctx, o.deadlines[vertical])
			defer cancel()
			d, err := o.seedUnit(unitCtx, state, vertical)
			results <- unitResult{vertical: vertical, draft: d, err: err}
		}(unit.Vertical)
	}

	wg.Wait()
	close(results)

	for res := range results {
		unit := state.Unit(res.vertical)
		unit.Pack = o.packs[res.vertical].Snapshot()
		if res.err != nil {
			o.setStatus(state, unit, types.UnitFailed)
			unit.FailureReason = res.err.Error()
			o.log.WithError(res.err).WithField("vertical", res.vertical).Error("unit failed during fan-out")
			continue
		}
		unit.Draft = res.draft
		unit.RiskFlags = res.draft.RiskFlags
		o.setStatus(state, unit, types.UnitUnderReview)
	}
}

// setStatus applies a unit status change and announces the transition.
// Only ever called on the orchestrator goroutine.
func (o *Orchestrator) setStatus(state *types.RunState, unit *types.Unit, status types.UnitStatus) {
	unit.Status = status
	o.notifier.UnitTransition(state.ID, unit.Vertical, status)
}

// unitContext bounds a call by the unit's own deadline so one slow unit
// cannot run until the global deadline at its siblings' expense.
func (o *Orchestrator) unitContext(ctx context.Context, vertical string) (context.Context, context.CancelFunc) {
	if deadline, ok := o.deadlines[vertical]; ok {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithCancel(ctx)
}

// seedUnit gathers a unit's initial evidence and produces its first
// draft. In update mode the base draft and the caller's instruction ride
// along as revision context.
func (o *Orchestrator) seedUnit(ctx context.Context, state *types.RunState, vertical string) (*types.Draft, error) {
	pack := o.packs[vertical]

	if err := o.builder.Gather(ctx, pack, draft.SeedQueries(state, vertical), state.Window); err != nil {
		return nil, fmt.Errorf("gathering evidence: %w", err)
	}
	if tickers := draft.Tickers(state, vertical); len(tickers) > 0 {
		if err := o.builder.GatherMarket(ctx, pack, tickers, state.Window, "daily"); err != nil {
			return nil, fmt.Errorf("gathering market data: %w", err)
		}
	}

	var plan *types.FixPlan
	if state.Mode == types.ModeUpdateOneUnit && state.UpdateInstruction != "" {
		plan = &types.FixPlan{
			Vertical: vertical,
			Actions: []types.FixAction{
				{Type: types.FixRewrite, Description: state.UpdateInstruction},
			},
		}
	}
	return o.drafter.Draft(ctx, state, vertical, pack, plan, o.priors[vertical])
}

// anyReviewable reports whether at least one active unit survived fan-out.
func (o *Orchestrator) anyReviewable(state *types.RunState) bool {
	for _, u := range state.ActiveUnits() {
		if u.Status == types.UnitUnderReview {
			return true
		}
	}
	return false
}

// anyAccepted reports whether at least one active unit survived review.
// When none did there is nothing worth assembling and the run aborts.
func (o *Orchestrator) anyAccepted(state *types.RunState) bool {
	for _, u := range state.ActiveUnits() {
		if u.Status == types.UnitAccepted {
			return true
		}
	}
	return false
}

// reviewLoop drives review rounds until every active unit is terminal,
// the round bound is hit, or the run deadline expires. The latter two
// force-accept whatever drafts exist.
func (o *Orchestrator) reviewLoop(ctx context.Context, state *types.RunState) error {
	for {
		if ctx.Err() != nil {
			o.log.Warn("run deadline reached, accepting current drafts")
			o.forceAccept(state, "run deadline reached")
			return Fire(state, EventAllAccepted)
		}

		results := make(map[string]*types.ReviewResult)
		for _, v := range state.Verticals {
			unit := state.Unit(v)
			if unit == nil || unit.ReadOnly || unit.Status != types.UnitUnderReview {
				continue
			}
			uctx, cancel := o.unitContext(ctx, v)
			res, err := o.reviewer.Review(uctx, state.Voice, state.Round, *unit.Draft, unit.Pack)
			timedOut := uctx.Err() != nil && ctx.Err() == nil
			cancel()
			if err != nil {
				why := fmt.Sprintf("review failed: %v", err)
				if timedOut {
					why = fmt.Sprintf("unit timed out in review round %d", state.Round)
				}
				o.setStatus(state, unit, types.UnitFailed)
				unit.FailureReason = why
				o.log.WithError(err).WithField("vertical", v).Error("unit failed during review")
				continue
			}
			results[v] = res
		}
		review.Route(state, results, o.log, func(vertical string, status types.UnitStatus) {
			o.notifier.UnitTransition(state.ID, vertical, status)
		})

		if ReviewOutcome(state) == EventAllAccepted {
			return Fire(state, EventAllAccepted)
		}
		if state.Round >= state.MaxReviewRounds {
			o.log.WithField("round", state.Round).Info("review round bound reached, accepting current drafts")
			o.forceAccept(state, "review round bound reached")
			return Fire(state, EventAllAccepted)
		}

		if err := Fire(state, EventFixesNeeded); err != nil {
			return err
		}
		o.persist(ctx, state)

		o.applyFixes(ctx, state)

		if err := Fire(state, EventFixesDone); err != nil {
			return err
		}
		o.persist(ctx, state)
	}
}

// applyFixes re-drafts every unit the router sent back, executing any
// suggested retrieval first within the unit's remaining budget and its
// own deadline.
func (o *Orchestrator) applyFixes(ctx context.Context, state *types.RunState) {
	for _, v := range state.Verticals {
		unit := state.Unit(v)
		if unit == nil || unit.ReadOnly || unit.Status != types.UnitDrafting {
			continue
		}
		plan := review.LatestPlan(unit)
		pack := o.packs[v]
		uctx, cancel := o.unitContext(ctx, v)

		if plan != nil {
			if queries := plan.SuggestedQueries(); len(queries) > 0 {
				if err := o.builder.Gather(uctx, pack, queries, state.Window); err != nil {
					o.log.WithError(err).WithField("vertical", v).Warn("fix retrieval failed")
				}
			}
		}

		d, err := o.drafter.Draft(uctx, state, v, pack, plan, unit.Draft)
		timedOut := uctx.Err() != nil && ctx.Err() == nil
		cancel()
		unit.Pack = pack.Snapshot()
		if err != nil {
			why := fmt.Sprintf("fix round %d failed: %v", state.Round, err)
			if timedOut {
				why = fmt.Sprintf("unit timed out in fix round %d", state.Round)
			}
			o.setStatus(state, unit, types.UnitFailed)
			unit.FailureReason = why
			o.log.WithError(err).WithField("vertical", v).Error("unit failed during fix round")
			continue
		}
		unit.Draft = d
		unit.RiskFlags = d.RiskFlags
		o.setStatus(state, unit, types.UnitUnderReview)
	}
}

// forceAccept promotes every in-flight unit holding a draft to accepted
// and fails the rest. The accept-what-you-have path for bound and
// deadline exits.
func (o *Orchestrator) forceAccept(state *types.RunState, why string) {
	for _, unit := range state.ActiveUnits() {
		if unit.Status.Terminal() {
			continue
		}
		if unit.Draft != nil {
			o.setStatus(state, unit, types.UnitAccepted)
			o.log.WithFields(logrus.Fields{"vertical": unit.Vertical, "reason": why}).
				Info("force-accepting draft")
			continue
		}
		o.setStatus(state, unit, types.UnitFailed)
		unit.FailureReason = why + " with no draft produced"
	}
}

// editPass runs the cross-section consistency pass over every accepted
// draft. Read-only siblings provide context but are never modified. A
// failed pass degrades to the reviewed drafts rather than failing the
// run; a hard-rule violation fails only the affected unit.
func (o *Orchestrator) editPass(ctx context.Context, state *types.RunState) {
	var drafts []types.Draft
	for _, v := range state.Verticals {
		unit := state.Unit(v)
		if unit != nil && unit.Status == types.UnitAccepted && unit.Draft != nil {
			drafts = append(drafts, *unit.Draft)
		}
	}
	if len(drafts) == 0 {
		return
	}

	edited, blocked, err := o.editor.Harmonize(ctx, state.Voice, state.Style, drafts)
	if err != nil {
		o.log.WithError(err).Warn("consistency pass failed, keeping reviewed drafts")
		return
	}

	for _, v := range state.Verticals {
		unit := state.Unit(v)
		if unit == nil || unit.ReadOnly || unit.Status != types.UnitAccepted {
			continue
		}
		if why, bad := blocked[v]; bad {
			o.setStatus(state, unit, types.UnitFailed)
			unit.FailureReason = why
			o.log.WithField("vertical", v).WithField("reason", why).Error("unit failed in consistency pass")
			continue
		}
		if d, ok := edited[v]; ok {
			unit.Draft = d
		}
	}
}

// fail drives the state machine to failed, persists, and notifies.
func (o *Orchestrator) fail(ctx context.Context, state *types.RunState, err error) error {
	if !state.Phase.Terminal() {
		if ferr := Fire(state, EventAbort); ferr != nil {
			o.log.WithError(ferr).Error("abort transition rejected")
		}
	}
	o.persist(ctx, state)
	o.notifier.RunFailed(state, err)
	return err
}

// persist saves the run state, logging rather than propagating failures
// so a flaky disk cannot kill an otherwise healthy run mid-phase.
func (o *Orchestrator) persist(ctx context.Context, state *types.RunState) {
	if err := o.store.SaveRun(ctx, state); err != nil {
		o.log.WithError(err).WithField("run", state.ID).Error("persisting run state failed")
	}
}
