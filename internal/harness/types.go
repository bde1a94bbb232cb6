package harness

// Step outcomes recorded in the trace.
const (
	OutcomeOK              = "ok"
	OutcomeValidationError = "validation_error"
	OutcomeRemoteError     = "remote_error"
	OutcomeUnknownCategory = "unknown_category"
	OutcomeUnknownFact     = "unknown_fact"
	OutcomeVoteInFlight    = "vote_in_flight"
	OutcomeSubmitInFlight  = "submit_in_flight"
	OutcomeError           = "error"
)

// TraceEvent records one flow step and the collection right after it.
type TraceEvent struct {
	Seq        int64             `json:"seq"`
	Action     string            `json:"action"`
	Args       map[string]string `json:"args,omitempty"`
	Outcome    string            `json:"outcome"`
	Collection []string          `json:"collection"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Notices are the user notifications raised during the flow.
	Notices []string `json:"notices,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(action string, args map[string]string, outcome string, collection []string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:        int64(len(r.Trace) + 1),
		Action:     action,
		Args:       args,
		Outcome:    outcome,
		Collection: collection,
	})
}
