package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/queryir"
	"github.com/roach88/til/internal/repository"
	"github.com/roach88/til/internal/session"
	"github.com/roach88/til/internal/store"
	"github.com/roach88/til/internal/testutil"
)

// errInjected is the failure returned for steps marked fail: true.
var errInjected = errors.New("harness: injected remote failure")

// pinnedStart is the clock every scenario runs with.
var pinnedStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness is the test execution engine.
// It runs one scenario against one fresh store and session.
type Harness struct {
	store    *store.Store
	remote   *faultyRemote
	session  *session.Session
	notifier *testutil.RecordingNotifier
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic ids and clock ensure reproducible traces.
//
// Execution flow:
//  1. Create fresh in-memory database and seed it
//  2. Build a session over the store
//  3. Execute flow steps with expect validation
//  4. Evaluate assertions and return result with pass/fail, trace and errors
func Run(scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	st, err := store.Open(":memory:",
		store.WithIDGenerator(store.NewSequenceGenerator("fact-")),
		store.WithClock(testutil.NewStepClock(pinnedStart, 0).Now),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	seeds := scenario.Seeds
	if len(seeds) == 0 {
		seeds = fact.DefaultSeeds()
	}
	if _, err := st.Seed(ctx, seeds); err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	remote := &faultyRemote{backend: st}
	notifier := &testutil.RecordingNotifier{}
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithNotifier(notifier),
	}
	if scenario.DiscardStale {
		opts = append(opts, session.WithDiscardStale())
	}

	h := &Harness{
		store:    st,
		remote:   remote,
		session:  session.New(repository.New(remote), opts...),
		notifier: notifier,
		logger:   logger,
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}
	result.Notices = notifier.Notices()

	actx := &AssertionContext{
		Store:   st,
		Ctx:     ctx,
		Facts:   h.session.Facts.Snapshot(),
		Notices: result.Notices,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeFlow runs all flow steps and validates expect clauses.
//
// A step that ends in a different outcome than expected is recorded as a
// result error; the flow continues so the trace stays complete.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		h.remote.arm(step.Fail)
		err := h.execute(ctx, step)
		h.remote.arm(false)

		outcome := classify(err)
		result.AddTrace(step.Invoke, step.Args, outcome, collectionIDs(h.session.Facts.Snapshot()))

		expected := OutcomeOK
		if step.Expect != nil {
			expected = step.Expect.Outcome
		}
		if outcome != expected {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected outcome %s, got %s (%v)",
				i, step.Invoke, expected, outcome, err))
		}

		h.logger.Info("flow step completed",
			"step", i,
			"action", step.Invoke,
			"outcome", outcome,
		)
	}
	return nil
}

func (h *Harness) execute(ctx context.Context, step FlowStep) error {
	switch step.Invoke {
	case ActionStart:
		return h.session.Loader.Start(ctx)
	case ActionSelect:
		return h.session.Loader.Select(ctx, step.Args["category"])
	case ActionVote:
		field, err := fact.ParseVoteField(step.Args["field"])
		if err != nil {
			return err
		}
		_, err = h.session.Voter.Vote(ctx, step.Args["id"], field)
		return err
	case ActionSubmit:
		h.session.Submitter.SetDraft(session.Form{
			Text:     step.Args["text"],
			Source:   step.Args["source"],
			Category: step.Args["category"],
		})
		_, err := h.session.Submitter.Submit(ctx)
		return err
	default:
		return fmt.Errorf("unknown action %q", step.Invoke)
	}
}

// classify maps a controller error to a trace outcome.
func classify(err error) string {
	var verr *fact.ValidationError
	var rerr *repository.RemoteError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, session.ErrUnknownCategory):
		return OutcomeUnknownCategory
	case errors.Is(err, session.ErrUnknownFact):
		return OutcomeUnknownFact
	case errors.Is(err, session.ErrVoteInFlight):
		return OutcomeVoteInFlight
	case errors.Is(err, session.ErrSubmitInFlight):
		return OutcomeSubmitInFlight
	case errors.As(err, &verr):
		return OutcomeValidationError
	case errors.As(err, &rerr):
		return OutcomeRemoteError
	default:
		return OutcomeError
	}
}

func collectionIDs(facts []fact.Fact) []string {
	out := make([]string, 0, len(facts))
	for _, f := range facts {
		out = append(out, f.ID)
	}
	return out
}

// faultyRemote forwards to the store unless armed, in which case every
// call fails with errInjected.
type faultyRemote struct {
	backend repository.Remote

	mu    sync.Mutex
	armed bool
}

func (r *faultyRemote) arm(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed = on
}

func (r *faultyRemote) failing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

func (r *faultyRemote) Select(ctx context.Context, q queryir.Select) ([]fact.Fact, error) {
	if r.failing() {
		return nil, errInjected
	}
	return r.backend.Select(ctx, q)
}

func (r *faultyRemote) Insert(ctx context.Context, q queryir.Insert) (fact.Fact, error) {
	if r.failing() {
		return fact.Fact{}, errInjected
	}
	return r.backend.Insert(ctx, q)
}

func (r *faultyRemote) Update(ctx context.Context, q queryir.Update) (fact.Fact, error) {
	if r.failing() {
		return fact.Fact{}, errInjected
	}
	return r.backend.Update(ctx, q)
}
