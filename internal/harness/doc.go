// Package harness replays YAML scenarios against a seeded session and checks
// the resulting trace, collection and remote state.
//
// # Scenario Format
//
//	name: technology_vote_submit
//	description: "Filter, upvote, then share a fact"
//	seeds:            # optional, defaults to the built-in seed facts
//	  - id: "1"
//	    text: ...
//	flow:
//	  - invoke: start
//	    args: {}
//	  - invoke: select
//	    args: { category: technology }
//	  - invoke: vote
//	    args: { id: "1", field: interesting }
//	    expect: { outcome: ok }
//	  - invoke: submit
//	    args: { text: Test, source: "https://example.com", category: technology }
//	    fail: true    # the remote call of this step fails
//	    expect: { outcome: remote_error }
//	assertions:
//	  - type: collection
//	    ids: ["1"]
//	  - type: final_state
//	    table: facts
//	    where: { id: "1" }
//	    expect: { votesInteresting: 25 }
//
// # Assertion Types
//
//   - trace_contains: an invocation with the action and a subset of args
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly N times
//   - final_state: one remote row matches where and holds the expected fields
//   - collection: the session collection holds exactly these ids, in order
//   - notices: the user saw exactly these notices, in order
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory SQLite store, fact ids fact-1, fact-2, ...
// and a clock pinned to 2026-01-01, so traces are byte-identical across runs
// and can be compared against golden files.
package harness
