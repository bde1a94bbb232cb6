package harness

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/repository"
	"github.com/roach88/til/internal/session"
)

func step(action string, args map[string]string) FlowStep {
	if args == nil {
		args = map[string]string{}
	}
	return FlowStep{Invoke: action, Args: args}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "start loads every seed",
		Flow:        []FlowStep{step(ActionStart, nil)},
		Assertions: []Assertion{
			{Type: AssertCollection, IDs: []string{"1", "2", "3"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, ActionStart, result.Trace[0].Action)
	assert.Equal(t, OutcomeOK, result.Trace[0].Outcome)
	assert.Empty(t, result.Notices)
}

func TestRun_CustomSeeds(t *testing.T) {
	scenario := &Scenario{
		Name:        "custom_seeds",
		Description: "scenario seeds replace the defaults",
		Seeds: []fact.Fact{
			{ID: "x", Text: "low", Category: "science", VotesInteresting: 1},
			{ID: "y", Text: "high", Category: "science", VotesInteresting: 7},
		},
		Flow: []FlowStep{step(ActionStart, nil)},
		Assertions: []Assertion{
			{Type: AssertCollection, IDs: []string{"y", "x"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnexpectedOutcomeFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "a failing step without expect fails the run",
		Flow: []FlowStep{
			step(ActionStart, nil),
			step(ActionSelect, map[string]string{"category": "astrology"}),
		},
		Assertions: []Assertion{{Type: AssertTraceCount, Action: ActionSelect, Count: 1}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected outcome ok, got unknown_category")
	assert.Equal(t, OutcomeUnknownCategory, result.Trace[1].Outcome)
}

func TestRun_OutcomesPerStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "outcomes",
		Description: "each controller error maps to its outcome",
		Flow: []FlowStep{
			step(ActionStart, nil),
			{
				Invoke: ActionSubmit,
				Args:   map[string]string{"text": "", "source": "https://example.com", "category": "science"},
				Expect: &ExpectClause{Outcome: OutcomeValidationError},
			},
			{
				Invoke: ActionSubmit,
				Args:   map[string]string{"text": "t", "source": "https://example.com", "category": "astrology"},
				Expect: &ExpectClause{Outcome: OutcomeValidationError},
			},
			{
				Invoke: ActionVote,
				Args:   map[string]string{"id": "missing", "field": "interesting"},
				Expect: &ExpectClause{Outcome: OutcomeUnknownFact},
			},
			{
				Invoke: ActionVote,
				Args:   map[string]string{"id": "1", "field": "boring"},
				Expect: &ExpectClause{Outcome: OutcomeError},
			},
			{
				Invoke: ActionStart,
				Args:   map[string]string{},
				Fail:   true,
				Expect: &ExpectClause{Outcome: OutcomeRemoteError},
			},
		},
		Assertions: []Assertion{
			{Type: AssertNotices, Messages: []string{session.NoticeLoadFailed}},
			{Type: AssertCollection, IDs: []string{"1", "2", "3"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailOnlyAffectsItsStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "fail_scope",
		Description: "the step after a failing one reaches the store",
		Flow: []FlowStep{
			step(ActionStart, nil),
			{
				Invoke: ActionVote,
				Args:   map[string]string{"id": "3", "field": "false"},
				Fail:   true,
				Expect: &ExpectClause{Outcome: OutcomeRemoteError},
			},
			step(ActionVote, map[string]string{"id": "3", "field": "false"}),
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Table: "facts", Where: map[string]interface{}{"id": "3"}, Expect: map[string]interface{}{"votesFalse": 2}},
			{Type: AssertNotices, Messages: []string{session.NoticeVoteFailed}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name:        "deterministic",
		Description: "two runs produce identical traces",
		Flow: []FlowStep{
			step(ActionStart, nil),
			step(ActionSubmit, map[string]string{"text": "a", "source": "https://example.com", "category": "news"}),
			step(ActionSubmit, map[string]string{"text": "b", "source": "https://example.com", "category": "news"}),
		},
		Assertions: []Assertion{
			{Type: AssertCollection, IDs: []string{"fact-2", "fact-1", "1", "2", "3"}},
		},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, first.Pass, "errors: %v", first.Errors)
	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_FreshDatabasePerRun(t *testing.T) {
	scenario := &Scenario{
		Name:        "fresh",
		Description: "writes do not leak between runs",
		Flow: []FlowStep{
			step(ActionStart, nil),
			step(ActionVote, map[string]string{"id": "1", "field": "mindblowing"}),
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Table: "facts", Where: map[string]interface{}{"id": "1"}, Expect: map[string]interface{}{"votesMindblowing": 10}},
		},
	}

	for i := 0; i < 2; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, "run %d errors: %v", i, result.Errors)
	}
}

func TestRun_DiscardStale(t *testing.T) {
	// Sequential selections are never stale, so the option must not change
	// the outcome of a plain flow.
	scenario := &Scenario{
		Name:         "discard_stale",
		Description:  "sequential selections apply with discard enabled",
		DiscardStale: true,
		Flow: []FlowStep{
			step(ActionStart, nil),
			step(ActionSelect, map[string]string{"category": "society"}),
		},
		Assertions: []Assertion{{Type: AssertCollection, IDs: []string{"2", "3"}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{fmt.Errorf("select: %w", session.ErrUnknownCategory), OutcomeUnknownCategory},
		{session.ErrUnknownFact, OutcomeUnknownFact},
		{session.ErrVoteInFlight, OutcomeVoteInFlight},
		{session.ErrSubmitInFlight, OutcomeSubmitInFlight},
		{&fact.ValidationError{Field: "text", Reason: fact.ErrTextLength}, OutcomeValidationError},
		{&repository.RemoteError{Op: repository.OpList, Err: errInjected}, OutcomeRemoteError},
		{errors.New("boom"), OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestResult_AddError(t *testing.T) {
	result := NewResult()
	assert.True(t, result.Pass)

	result.AddError("first")
	result.AddError("second")

	assert.False(t, result.Pass)
	assert.Equal(t, []string{"first", "second"}, result.Errors)
}

func TestResult_AddTrace(t *testing.T) {
	result := NewResult()
	result.AddTrace(ActionStart, nil, OutcomeOK, []string{"1"})
	result.AddTrace(ActionVote, map[string]string{"id": "1"}, OutcomeRemoteError, []string{"1"})

	require.Len(t, result.Trace, 2)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, int64(2), result.Trace[1].Seq)
	assert.Equal(t, OutcomeRemoteError, result.Trace[1].Outcome)
}
