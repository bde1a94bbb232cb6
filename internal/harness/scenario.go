package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/til/internal/fact"
)

// Scenario defines a session test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seeds are loaded into the remote store before the flow.
	// If empty, the built-in seed facts are used.
	Seeds []fact.Fact `yaml:"seeds,omitempty"`

	// DiscardStale enables stale list result dropping in the loader.
	DiscardStale bool `yaml:"discard_stale,omitempty"`

	// Flow is the sequence of user actions.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep is one user action.
type FlowStep struct {
	// Invoke is start, select, vote or submit.
	Invoke string `yaml:"invoke"`

	// Args holds the action arguments:
	//   select: category
	//   vote:   id, field
	//   submit: text, source, category
	Args map[string]string `yaml:"args"`

	// Fail makes the remote call issued by this step fail.
	Fail bool `yaml:"fail,omitempty"`

	// Expect checks the step outcome. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected step outcome.
type ExpectClause struct {
	// Outcome is one of the Outcome* constants.
	Outcome string `yaml:"outcome"`
}

// Flow actions.
const (
	ActionStart  = "start"
	ActionSelect = "select"
	ActionVote   = "vote"
	ActionSubmit = "submit"
)

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is the flow action (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected action arguments (trace_contains, subset match).
	Args map[string]string `yaml:"args,omitempty"`

	// Table is the remote table (final_state). Only facts exists.
	Table string `yaml:"table,omitempty"`

	// Where selects exactly one row (final_state).
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected column values (final_state, subset match).
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// IDs is the expected collection content (collection).
	IDs []string `yaml:"ids,omitempty"`

	// Messages are the expected notices (notices).
	Messages []string `yaml:"messages,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertCollection    = "collection"
	AssertNotices       = "notices"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Seeds))
	for i, f := range s.Seeds {
		if f.ID == "" {
			return fmt.Errorf("seeds[%d]: id is required", i)
		}
		if seen[f.ID] {
			return fmt.Errorf("seeds[%d]: duplicate id %q", i, f.ID)
		}
		seen[f.ID] = true
	}

	for i, step := range s.Flow {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

var requiredArgs = map[string][]string{
	ActionStart:  nil,
	ActionSelect: {"category"},
	ActionVote:   {"id", "field"},
	ActionSubmit: {"text", "source", "category"},
}

func validateStep(i int, step FlowStep) error {
	required, ok := requiredArgs[step.Invoke]
	if !ok {
		return fmt.Errorf("flow[%d]: unknown action %q", i, step.Invoke)
	}
	if step.Args == nil {
		return fmt.Errorf("flow[%d]: args is required (use empty map if no args)", i)
	}
	for _, key := range required {
		if _, ok := step.Args[key]; !ok {
			return fmt.Errorf("flow[%d]: %s requires arg %q", i, step.Invoke, key)
		}
	}
	if step.Expect != nil && step.Expect.Outcome == "" {
		return fmt.Errorf("flow[%d].expect: outcome is required", i)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertCollection, AssertNotices:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
