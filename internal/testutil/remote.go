package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/queryir"
)

// Op names a remote operation for failure injection and call holding.
type Op string

const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

// ErrNoRow is returned by FakeRemote when an update filter matches nothing.
var ErrNoRow = fmt.Errorf("fake remote: %w", queryir.ErrNoMatch)

// Call is one remote call parked by FakeRemote.Hold.
//
// The caller blocks until Release or Fail is invoked.
type Call struct {
	Op    Op
	Query queryir.Query

	done chan error
	once sync.Once
}

// Release lets the call proceed against the fake's data.
func (c *Call) Release() {
	c.once.Do(func() { c.done <- nil })
}

// Fail makes the call return err without touching the fake's data.
func (c *Call) Fail(err error) {
	c.once.Do(func() { c.done <- err })
}

// FakeRemote is an in-memory implementation of the remote facts contract.
//
// It evaluates Equals/And filters, ORDER BY terms with an id tiebreak, and
// LIMIT the same way the SQL backends do. Ids are "new-1", "new-2", ...
//
// Thread-safety: all methods are safe for concurrent use.
type FakeRemote struct {
	mu      sync.Mutex
	facts   []fact.Fact
	nextID  int
	year    int
	fail    map[Op][]error
	held    map[Op]bool
	calls   map[Op]int
	pending chan *Call
}

// NewFakeRemote creates a fake holding a copy of facts.
func NewFakeRemote(facts ...fact.Fact) *FakeRemote {
	return &FakeRemote{
		facts:   append([]fact.Fact(nil), facts...),
		nextID:  1,
		year:    2026,
		fail:    make(map[Op][]error),
		held:    make(map[Op]bool),
		calls:   make(map[Op]int),
		pending: make(chan *Call, 64),
	}
}

// FailNext queues err as the result of the next call of op.
func (r *FakeRemote) FailNext(op Op, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[op] = append(r.fail[op], err)
}

// Hold parks every subsequent call of op until the test releases it.
// Parked calls are delivered on Pending in arrival order.
func (r *FakeRemote) Hold(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.held[op] = true
}

// Unhold stops parking calls of op. Already parked calls stay parked.
func (r *FakeRemote) Unhold(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, op)
}

// Pending delivers parked calls.
func (r *FakeRemote) Pending() <-chan *Call {
	return r.pending
}

// Calls returns how many calls of op reached the fake.
func (r *FakeRemote) Calls(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// Facts returns a copy of the stored rows in insertion order.
func (r *FakeRemote) Facts() []fact.Fact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]fact.Fact(nil), r.facts...)
}

// Get returns the stored row with the given id.
func (r *FakeRemote) Get(id string) (fact.Fact, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.facts {
		if f.ID == id {
			return f, true
		}
	}
	return fact.Fact{}, false
}

// enter records the call and applies holds and injected failures.
func (r *FakeRemote) enter(ctx context.Context, op Op, q queryir.Query) error {
	r.mu.Lock()
	r.calls[op]++
	held := r.held[op]
	var injected error
	if errs := r.fail[op]; len(errs) > 0 {
		injected = errs[0]
		r.fail[op] = errs[1:]
	}
	r.mu.Unlock()

	if injected != nil {
		return injected
	}
	if !held {
		return ctx.Err()
	}

	call := &Call{Op: op, Query: q, done: make(chan error, 1)}
	r.pending <- call
	select {
	case err := <-call.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Select implements the remote contract.
func (r *FakeRemote) Select(ctx context.Context, q queryir.Select) ([]fact.Fact, error) {
	if err := r.enter(ctx, OpSelect, q); err != nil {
		return nil, err
	}
	if err := queryir.Validate(q); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := []fact.Fact{}
	for _, f := range r.facts {
		ok, err := matches(f, q.Filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, f)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range q.OrderBy {
			c := compare(column(out[i], o.Field), column(out[j], o.Field))
			if c == 0 {
				continue
			}
			if o.Descending {
				return c > 0
			}
			return c < 0
		}
		return out[i].ID < out[j].ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Insert implements the remote contract.
func (r *FakeRemote) Insert(ctx context.Context, q queryir.Insert) (fact.Fact, error) {
	if err := r.enter(ctx, OpInsert, q); err != nil {
		return fact.Fact{}, err
	}
	if err := queryir.Validate(q); err != nil {
		return fact.Fact{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f := fact.Fact{CreatedIn: r.year}
	for _, a := range q.Values {
		if a.Field == fact.ColumnID {
			continue
		}
		if err := assign(&f, a); err != nil {
			return fact.Fact{}, err
		}
	}
	f.ID = fmt.Sprintf("new-%d", r.nextID)
	r.nextID++
	r.facts = append(r.facts, f)
	return f, nil
}

// Update implements the remote contract. Only the first matching row is
// echoed, as the client expects.
func (r *FakeRemote) Update(ctx context.Context, q queryir.Update) (fact.Fact, error) {
	if err := r.enter(ctx, OpUpdate, q); err != nil {
		return fact.Fact{}, err
	}
	if err := queryir.Validate(q); err != nil {
		return fact.Fact{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var echoed *fact.Fact
	for i := range r.facts {
		ok, err := matches(r.facts[i], q.Filter)
		if err != nil {
			return fact.Fact{}, err
		}
		if !ok {
			continue
		}
		for _, a := range q.Set {
			if err := assign(&r.facts[i], a); err != nil {
				return fact.Fact{}, err
			}
		}
		if echoed == nil {
			echoed = &r.facts[i]
		}
	}
	if echoed == nil {
		return fact.Fact{}, ErrNoRow
	}
	return *echoed, nil
}

func matches(f fact.Fact, p queryir.Predicate) (bool, error) {
	for _, eq := range queryir.Conjuncts(p) {
		v := column(f, eq.Field)
		if v == nil {
			return false, fmt.Errorf("fake remote: unknown column %q", eq.Field)
		}
		if compare(v, eq.Value) != 0 {
			return false, nil
		}
	}
	return true, nil
}

func column(f fact.Fact, name string) any {
	switch name {
	case fact.ColumnID:
		return f.ID
	case fact.ColumnText:
		return f.Text
	case fact.ColumnSource:
		return f.Source
	case fact.ColumnCategory:
		return f.Category
	case fact.ColumnVotesInteresting:
		return f.VotesInteresting
	case fact.ColumnVotesMindblowing:
		return f.VotesMindblowing
	case fact.ColumnVotesFalse:
		return f.VotesFalse
	case fact.ColumnCreatedIn:
		return int64(f.CreatedIn)
	default:
		return nil
	}
}

func assign(f *fact.Fact, a queryir.Assignment) error {
	switch a.Field {
	case fact.ColumnText, fact.ColumnSource, fact.ColumnCategory:
		s, ok := a.Value.(string)
		if !ok {
			return fmt.Errorf("fake remote: %s must be a string, got %T", a.Field, a.Value)
		}
		switch a.Field {
		case fact.ColumnText:
			f.Text = s
		case fact.ColumnSource:
			f.Source = s
		default:
			f.Category = s
		}
		return nil
	case fact.ColumnVotesInteresting, fact.ColumnVotesMindblowing, fact.ColumnVotesFalse, fact.ColumnCreatedIn:
		n, ok := toInt64(a.Value)
		if !ok {
			return fmt.Errorf("fake remote: %s must be an integer, got %T", a.Field, a.Value)
		}
		if n < 0 {
			return fmt.Errorf("fake remote: %s must be non-negative", a.Field)
		}
		switch a.Field {
		case fact.ColumnVotesInteresting:
			f.VotesInteresting = n
		case fact.ColumnVotesMindblowing:
			f.VotesMindblowing = n
		case fact.ColumnVotesFalse:
			f.VotesFalse = n
		default:
			f.CreatedIn = int(n)
		}
		return nil
	default:
		return fmt.Errorf("fake remote: unknown column %q", a.Field)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// compare orders two column values. Integers compare numerically, anything
// else by its string form.
func compare(a, b any) int {
	ai, aok := toInt64(a)
	bi, bok := toInt64(b)
	if aok && bok {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
