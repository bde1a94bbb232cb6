package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/queryir"
	"github.com/roach88/til/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s %v\n",
				event.Seq, event.Action, event.Args, event.Outcome, event.Collection)
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains a step matching
// the given action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Action == assertion.Action && matchArgs(event.Args, assertion.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the given order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// Step 1: Find first position of each expected action
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Action]; !seen {
			positions[event.Action] = i + 1 // 1-indexed for readability
		}
	}

	// Step 2: Verify all actions found
	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the action appears exactly the given number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState checks that exactly one remote row matches Where and
// holds the expected values (subset semantics).
//
// The lookup goes through the store's query compiler, so where keys are
// bound as parameters and checked as identifiers.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if assertion.Table == "" {
		return fmt.Errorf("final_state assertion requires table name")
	}

	filter, err := buildFilter(assertion.Where)
	if err != nil {
		return err
	}

	rows, err := st.Select(ctx, queryir.Select{From: assertion.Table, Filter: filter})
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(rows) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := factFields(rows[0])

	// Sorted so the first reported mismatch is stable.
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, fact.Columns),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// assertCollection checks that the session collection holds exactly the
// expected ids in order.
func assertCollection(trace []TraceEvent, facts []fact.Fact, assertion Assertion) error {
	actual := collectionIDs(facts)
	expected := assertion.IDs
	if expected == nil {
		expected = []string{}
	}
	if !reflect.DeepEqual(actual, expected) {
		return &AssertionError{
			Type:     AssertCollection,
			Expected: fmt.Sprintf("ids %v", expected),
			Actual:   fmt.Sprintf("ids %v", actual),
			Trace:    trace,
		}
	}
	return nil
}

// assertNotices checks that exactly the expected notices were raised.
func assertNotices(trace []TraceEvent, notices []string, assertion Assertion) error {
	if len(notices) == 0 && len(assertion.Messages) == 0 {
		return nil
	}
	if !reflect.DeepEqual(notices, assertion.Messages) {
		return &AssertionError{
			Type:     AssertNotices,
			Expected: fmt.Sprintf("notices %q", assertion.Messages),
			Actual:   fmt.Sprintf("notices %q", notices),
			Trace:    trace,
		}
	}
	return nil
}

// buildFilter turns a where map into an equality conjunction.
// Keys are sorted for deterministic query generation.
func buildFilter(where map[string]interface{}) (queryir.Predicate, error) {
	if len(where) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]queryir.Predicate, 0, len(keys))
	for _, key := range keys {
		v, err := toQueryValue(where[key])
		if err != nil {
			return nil, fmt.Errorf("where %q: %w", key, err)
		}
		preds = append(preds, queryir.Eq(key, v))
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return queryir.And{Predicates: preds}, nil
}

// toQueryValue converts a YAML-parsed value to a query parameter.
func toQueryValue(v interface{}) (any, error) {
	switch val := v.(type) {
	case string, int, int64, bool:
		return val, nil
	case nil:
		return nil, fmt.Errorf("null values are not comparable")
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// factFields maps column names to a fact's values.
func factFields(f fact.Fact) map[string]interface{} {
	return map[string]interface{}{
		fact.ColumnID:               f.ID,
		fact.ColumnText:             f.Text,
		fact.ColumnSource:           f.Source,
		fact.ColumnCategory:         f.Category,
		fact.ColumnVotesInteresting: f.VotesInteresting,
		fact.ColumnVotesMindblowing: f.VotesMindblowing,
		fact.ColumnVotesFalse:       f.VotesFalse,
		fact.ColumnCreatedIn:        f.CreatedIn,
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares expected and actual column values.
// YAML integers decode as int while counters are int64, so integers
// compare numerically across widths.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	if e, ok := asInt64(expected); ok {
		a, ok := asInt64(actual)
		return ok && e == a
	}

	switch exp := expected.(type) {
	case string:
		actualStr, ok := actual.(string)
		return ok && exp == actualStr
	case bool:
		actualBool, ok := actual.(bool)
		return ok && exp == actualBool
	}

	return reflect.DeepEqual(expected, actual)
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// matchArgs checks if actual args contain all expected args (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual, expected map[string]string) bool {
	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists || actualVal != expectedVal {
			return false
		}
	}
	return true
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store   *store.Store
	Ctx     context.Context
	Facts   []fact.Fact // collection snapshot after the flow
	Notices []string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the store and session state.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		case AssertCollection:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: collection requires session context", i)
			} else {
				err = assertCollection(result.Trace, actx.Facts, assertion)
			}
		case AssertNotices:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: notices requires session context", i)
			} else {
				err = assertNotices(result.Trace, actx.Notices, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
