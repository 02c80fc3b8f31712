// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/newsletter-engine/internal/evidence"
	"github.com/pdiddy/newsletter-engine/internal/logging"
	"github.com/pdiddy/newsletter-engine/internal/reason"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// scriptedService fabricates well-formed stage responses: drafts cite the
// evidence they were given, reviews replay per-vertical queues, edits
// replay one fixed response.
type scriptedService struct {
	mu            sync.Mutex
	draftReqs     []reason.DraftRequest
	reviewQueues  map[string][]reason.ReviewResponse
	defaultReview reason.ReviewResponse
	editResp      reason.EditResponse

	// reviewErr makes every review call fail when set.
	reviewErr error

	// blockedReviews lists verticals whose reviews hang until their
	// context expires.
	blockedReviews map[string]bool
}

func newScriptedService() *scriptedService {
	return &scriptedService{
		reviewQueues:   make(map[string][]reason.ReviewResponse),
		blockedReviews: make(map[string]bool),
		defaultReview: reason.ReviewResponse{
			Scores: reason.ReviewScores{Grounding: 5, Clarity: 4, Newsworthiness: 4, Balance: 4, VoiceFit: 4},
		},
	}
}

func (s *scriptedService) Draft(ctx context.Context, req reason.DraftRequest) (reason.DraftResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draftReqs = append(s.draftReqs, req)

	resp := reason.DraftResponse{
		Headline:             "Headline for " + req.Vertical,
		Paragraph:            fmt.Sprintf("Summary for %s, draft %d.", req.Vertical, len(s.draftReqs)),
		ParagraphEvidenceIDs: []string{req.Evidence[0].ID},
	}
	for i := 0; i < req.BulletCount; i++ {
		ev := req.Evidence[i%len(req.Evidence)]
		resp.Bullets = append(resp.Bullets, reason.DraftBullet{
			Text:        fmt.Sprintf("Bullet %d for %s.", i+1, req.Vertical),
			EvidenceIDs: []string{ev.ID},
		})
	}
	return resp, nil
}

func (s *scriptedService) Review(ctx context.Context, req reason.ReviewRequest) (reason.ReviewResponse, error) {
	s.mu.Lock()
	if s.reviewErr != nil {
		defer s.mu.Unlock()
		return reason.ReviewResponse{}, s.reviewErr
	}
	blocked := s.blockedReviews[req.Vertical]
	s.mu.Unlock()
	if blocked {
		<-ctx.Done()
		return reason.ReviewResponse{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if queue := s.reviewQueues[req.Vertical]; len(queue) > 0 {
		resp := queue[0]
		s.reviewQueues[req.Vertical] = queue[1:]
		return resp, nil
	}
	return s.defaultReview, nil
}

func (s *scriptedService) Edit(ctx context.Context, req reason.EditRequest) (reason.EditResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editResp, nil
}

func (s *scriptedService) draftCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.draftReqs)
}

func (s *scriptedService) draftReq(i int) reason.DraftRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftReqs[i]
}

// stubSearch fabricates search hits with unique URLs. limit caps the
// total items handed out across all calls; zero means unlimited.
type stubSearch struct {
	mu      sync.Mutex
	perCall int
	limit   int
	total   int
}

func (s *stubSearch) Search(ctx context.Context, query string, maxResults int, window types.TimeWindow) ([]types.EvidenceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []types.EvidenceItem
	for i := 0; i < s.perCall; i++ {
		if s.limit > 0 && s.total >= s.limit {
			break
		}
		s.total++
		items = append(items, types.EvidenceItem{
			ID:    types.NewEvidenceID(),
			Kind:  types.SourceWeb,
			Tool:  "tavily",
			URL:   fmt.Sprintf("https://example.com/articles/%d", s.total),
			Title: fmt.Sprintf("Article %d", s.total),
		})
	}
	return items, nil
}

func testConfig(t *testing.T) types.PipelineConfig {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.Store.Dir = t.TempDir()
	cfg.Retrieval.RatePerSecond = 1000
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg types.PipelineConfig, svc reason.Service, search evidence.Searcher) (*Orchestrator, *Store) {
	t.Helper()
	log := logging.Discard()
	store, err := NewStore(cfg.Store)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	builder := evidence.NewBuilder(evidence.ToolSet{Search: search}, cfg.Retrieval, log)
	return NewOrchestrator(cfg, svc, builder, store, &LogNotifier{Log: log}, log), store
}

func TestRunMixedOutcome(t *testing.T) {
	svc := newScriptedService()
	cfg := testConfig(t)
	o, _ := newTestOrchestrator(t, cfg, svc, &stubSearch{perCall: 2})

	// The unregistered vertical produces no seed queries, so its unit
	// fails with no evidence while its siblings complete.
	state, path, err := o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: []string{types.VerticalDataCenters, types.VerticalConnectivityFibre, "quantum_networks"},
		Voice:     "analytical",
	})
	require.NoError(t, err)
	assert.Equal(t, types.PhaseDone, state.Phase)

	assert.Equal(t, types.UnitAccepted, state.Unit(types.VerticalDataCenters).Status)
	assert.Equal(t, types.UnitAccepted, state.Unit(types.VerticalConnectivityFibre).Status)
	failed := state.Unit("quantum_networks")
	assert.Equal(t, types.UnitFailed, failed.Status)
	assert.NotEmpty(t, failed.FailureReason)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(data)
	assert.Contains(t, md, "No update available for this section in this issue.")
	assert.Contains(t, md, "## Data Centers")
	assert.Contains(t, md, "**Sources**")
}

func TestRunNoVerticalsFatal(t *testing.T) {
	svc := newScriptedService()
	o, _ := newTestOrchestrator(t, testConfig(t), svc, &stubSearch{perCall: 2})

	_, _, err := o.Run(context.Background(), Params{Mode: types.ModeGenerate})
	assert.ErrorIs(t, err, ErrNoVerticals)
}

func TestRunAllUnitsFailedFatal(t *testing.T) {
	svc := newScriptedService()
	o, store := newTestOrchestrator(t, testConfig(t), svc, &stubSearch{perCall: 0})

	state, _, err := o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: []string{types.VerticalDataCenters},
	})
	require.Error(t, err)
	assert.Equal(t, types.PhaseFailed, state.Phase)

	// The failed run is still inspectable from the store.
	got, err := store.LoadRun(context.Background(), state.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PhaseFailed, got.Phase)
}

func TestRunRoundBoundForcesAcceptance(t *testing.T) {
	svc := newScriptedService()
	svc.defaultReview = reason.ReviewResponse{
		Scores: reason.ReviewScores{Grounding: 2, Clarity: 3, Newsworthiness: 4, Balance: 4, VoiceFit: 4},
		Issues: []string{"never satisfied"},
		Actions: []reason.ReviewAction{
			{Type: "rewrite", Description: "try again"},
		},
	}
	cfg := testConfig(t)
	cfg.Review.MaxRounds = 2
	o, _ := newTestOrchestrator(t, cfg, svc, &stubSearch{perCall: 2})

	state, _, err := o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: []string{types.VerticalDataCenters},
	})
	require.NoError(t, err)

	assert.Equal(t, types.PhaseDone, state.Phase)
	assert.Equal(t, 2, state.Round)

	unit := state.Unit(types.VerticalDataCenters)
	assert.Equal(t, types.UnitAccepted, unit.Status)
	assert.Len(t, unit.History, 3, "one review per round: initial plus two fix rounds")
	assert.Equal(t, 3, svc.draftCalls(), "seed draft plus one re-draft per fix round")
}

func TestRunRejectThenAccept(t *testing.T) {
	svc := newScriptedService()
	svc.reviewQueues[types.VerticalDataCenters] = []reason.ReviewResponse{{
		Scores: reason.ReviewScores{Grounding: 5, Clarity: 3, Newsworthiness: 4, Balance: 4, VoiceFit: 4},
		Issues: []string{"second bullet is convoluted"},
		Actions: []reason.ReviewAction{
			{Type: "clarify", Description: "split the second bullet", Target: "bullet_2"},
		},
	}}
	o, _ := newTestOrchestrator(t, testConfig(t), svc, &stubSearch{perCall: 2})

	state, _, err := o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: []string{types.VerticalDataCenters},
	})
	require.NoError(t, err)

	unit := state.Unit(types.VerticalDataCenters)
	assert.Equal(t, types.UnitAccepted, unit.Status)
	assert.Equal(t, 1, state.Round)
	require.Len(t, unit.History, 2)
	assert.False(t, unit.History[0].Accepted)
	assert.True(t, unit.History[1].Accepted)

	require.Equal(t, 2, svc.draftCalls())
	fixReq := svc.draftReq(1)
	require.NotEmpty(t, fixReq.FixInstructions)
	assert.Contains(t, fixReq.FixInstructions[0], "clarify")
	assert.NotNil(t, fixReq.PriorDraft)
}

func TestRunFocusEntityBulletCount(t *testing.T) {
	svc := newScriptedService()
	o, _ := newTestOrchestrator(t, testConfig(t), svc, &stubSearch{perCall: 2})

	state, _, err := o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: []string{types.VerticalDataCenters},
		FocusEntities: map[string][]string{
			types.VerticalDataCenters: {"Equinix", "Digital Realty"},
		},
	})
	require.NoError(t, err)

	require.Equal(t, 1, svc.draftCalls())
	assert.Equal(t, 2, svc.draftReq(0).BulletCount)
	assert.False(t, svc.draftReq(0).SectorWide)
	assert.Len(t, state.Unit(types.VerticalDataCenters).Draft.Bullets, 2)
}

func TestRunSparseEvidenceSectorWide(t *testing.T) {
	svc := newScriptedService()
	o, _ := newTestOrchestrator(t, testConfig(t), svc, &stubSearch{perCall: 1, limit: 1})

	state, _, err := o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: []string{types.VerticalDataCenters},
	})
	require.NoError(t, err)

	require.Equal(t, 1, svc.draftCalls())
	assert.True(t, svc.draftReq(0).SectorWide, "one evidence item must trigger the sector-wide fallback")
	assert.Equal(t, types.UnitAccepted, state.Unit(types.VerticalDataCenters).Status)
}

func TestRunBudgetCarriesAcrossRounds(t *testing.T) {
	svc := newScriptedService()
	svc.reviewQueues[types.VerticalDataCenters] = []reason.ReviewResponse{{
		Scores: reason.ReviewScores{Grounding: 2, Clarity: 4, Newsworthiness: 4, Balance: 4, VoiceFit: 4},
		Actions: []reason.ReviewAction{
			{Type: "fetch_source", Description: "find a primary source", SuggestedQuery: "equinix earnings report"},
		},
	}}
	cfg := testConfig(t)
	cfg.Retrieval.CallBudget = 5
	o, _ := newTestOrchestrator(t, cfg, svc, &stubSearch{perCall: 1})

	state, _, err := o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: []string{types.VerticalDataCenters},
	})
	require.NoError(t, err)

	unit := state.Unit(types.VerticalDataCenters)
	assert.Equal(t, types.UnitAccepted, unit.Status)
	assert.LessOrEqual(t, unit.Pack.CallsUsed, 5, "seeding and fix retrieval share one budget")
}

func TestRunUpdateOneUnit(t *testing.T) {
	cfg := testConfig(t)

	baseSvc := newScriptedService()
	o, store := newTestOrchestrator(t, cfg, baseSvc, &stubSearch{perCall: 2})
	base, _, err := o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: []string{types.VerticalDataCenters, types.VerticalConnectivityFibre},
		Voice:     "analytical",
	})
	require.NoError(t, err)
	baseDraft := base.Unit(types.VerticalDataCenters).Draft.Paragraph

	updSvc := newScriptedService()
	log := logging.Discard()
	builder := evidence.NewBuilder(evidence.ToolSet{Search: &stubSearch{perCall: 2}}, cfg.Retrieval, log)
	upd := NewOrchestrator(cfg, updSvc, builder, store, &LogNotifier{Log: log}, log)

	state, path, err := upd.Run(context.Background(), Params{
		Mode:              types.ModeUpdateOneUnit,
		TargetVertical:    types.VerticalConnectivityFibre,
		UpdateInstruction: "mention pricing pressure explicitly",
	})
	require.NoError(t, err)
	assert.Equal(t, types.PhaseDone, state.Phase)

	sibling := state.Unit(types.VerticalDataCenters)
	assert.True(t, sibling.ReadOnly)
	assert.Equal(t, baseDraft, sibling.Draft.Paragraph, "read-only sibling must not change")
	assert.Equal(t, "analytical", state.Voice, "voice inherited from the base run")

	// Only the target was re-drafted, with the instruction and prior draft.
	require.Equal(t, 1, updSvc.draftCalls())
	req := updSvc.draftReq(0)
	assert.Equal(t, types.VerticalConnectivityFibre, req.Vertical)
	require.NotEmpty(t, req.FixInstructions)
	assert.Contains(t, req.FixInstructions[0], "mention pricing pressure")
	assert.NotNil(t, req.PriorDraft)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(data)
	assert.True(t, strings.Contains(md, "## Data Centers") && strings.Contains(md, "## Connectivity & Fibre"),
		"updated issue renders every section")
}

func TestRunUpdateUnknownTarget(t *testing.T) {
	cfg := testConfig(t)
	svc := newScriptedService()
	o, _ := newTestOrchestrator(t, cfg, svc, &stubSearch{perCall: 2})

	_, _, err := o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: []string{types.VerticalDataCenters},
	})
	require.NoError(t, err)

	_, _, err = o.Run(context.Background(), Params{
		Mode:           types.ModeUpdateOneUnit,
		TargetVertical: "nonexistent",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no unit")
}

// recordingNotifier captures unit transitions while delegating run
// outcomes to the log notifier.
type recordingNotifier struct {
	LogNotifier
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) UnitTransition(runID, vertical string, status types.UnitStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, vertical+":"+string(status))
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func TestRunAnnouncesUnitTransitions(t *testing.T) {
	cfg := testConfig(t)
	svc := newScriptedService()
	log := logging.Discard()
	store, err := NewStore(cfg.Store)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	builder := evidence.NewBuilder(evidence.ToolSet{Search: &stubSearch{perCall: 2}}, cfg.Retrieval, log)
	notifier := &recordingNotifier{LogNotifier: LogNotifier{Log: log}}
	o := NewOrchestrator(cfg, svc, builder, store, notifier, log)

	requested := []string{types.VerticalDataCenters, "quantum_networks"}
	_, _, err = o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: requested,
	})
	require.NoError(t, err)

	events := notifier.all()
	require.NotEmpty(t, events)
	known := map[string]bool{}
	for _, v := range requested {
		known[v] = true
	}
	for _, e := range events {
		vertical, _, _ := strings.Cut(e, ":")
		assert.True(t, known[vertical], "unrequested vertical announced: %s", e)
	}

	assert.Contains(t, events, types.VerticalDataCenters+":"+string(types.UnitDrafting))
	assert.Contains(t, events, types.VerticalDataCenters+":"+string(types.UnitUnderReview))
	assert.Contains(t, events, types.VerticalDataCenters+":"+string(types.UnitAccepted))
	assert.Contains(t, events, "quantum_networks:"+string(types.UnitFailed))
}

func TestRunUnitTimeoutFailsOnlyThatUnit(t *testing.T) {
	svc := newScriptedService()
	svc.blockedReviews[types.VerticalConnectivityFibre] = true
	cfg := testConfig(t)
	cfg.Scheduling.UnitTimeout = 100 * time.Millisecond

	o, _ := newTestOrchestrator(t, cfg, svc, &stubSearch{perCall: 2})
	state, _, err := o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: []string{types.VerticalDataCenters, types.VerticalConnectivityFibre},
	})
	require.NoError(t, err)
	assert.Equal(t, types.PhaseDone, state.Phase)

	slow := state.Unit(types.VerticalConnectivityFibre)
	assert.Equal(t, types.UnitFailed, slow.Status)
	assert.Contains(t, slow.FailureReason, "timed out")
	assert.Equal(t, types.UnitAccepted, state.Unit(types.VerticalDataCenters).Status,
		"a sibling must not pay for the slow unit")
}

func TestRunAllReviewsFailFatal(t *testing.T) {
	svc := newScriptedService()
	svc.reviewErr = errors.New("reasoning service unreachable")
	o, store := newTestOrchestrator(t, testConfig(t), svc, &stubSearch{perCall: 2})

	state, _, err := o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: []string{types.VerticalDataCenters, types.VerticalConnectivityFibre},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every unit failed during review")
	assert.Equal(t, types.PhaseFailed, state.Phase)

	got, err := store.LoadRun(context.Background(), state.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PhaseFailed, got.Phase)
}

func TestRunWindowClampedToNow(t *testing.T) {
	svc := newScriptedService()
	o, _ := newTestOrchestrator(t, testConfig(t), svc, &stubSearch{perCall: 2})

	future := types.TimeWindow{}
	future.End = future.End.AddDate(3000, 0, 0) // far future
	state, _, err := o.Run(context.Background(), Params{
		Mode:      types.ModeGenerate,
		Verticals: []string{types.VerticalDataCenters},
		Window:    future,
	})
	require.NoError(t, err)
	assert.False(t, state.Window.End.After(state.CreatedAt))
}
