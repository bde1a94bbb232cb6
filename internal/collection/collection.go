// Package collection holds the session's in-memory view of facts.
//
// The collection is only ever mutated with rows echoed by the remote store:
// a list result replaces it wholesale, a created fact is prepended, and an
// updated fact is spliced in by id. Ids are unique at all times.
package collection

import (
	"errors"
	"sync"

	"github.com/roach88/til/internal/fact"
)

// ErrDuplicateID is returned by Prepend when the id is already present.
var ErrDuplicateID = errors.New("collection: duplicate fact id")

// ChangeKind describes a mutation.
type ChangeKind int

const (
	Replaced ChangeKind = iota + 1
	Prepended
	Patched
)

func (k ChangeKind) String() string {
	switch k {
	case Replaced:
		return "replaced"
	case Prepended:
		return "prepended"
	case Patched:
		return "patched"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after each mutation.
type Change struct {
	Kind ChangeKind
	// ID is the affected fact for Prepended and Patched.
	ID string
	// Facts is a snapshot taken right after the mutation.
	Facts []fact.Fact
}

// Collection is an ordered, id-unique list of facts.
//
// Thread-safety: Replace, Prepend and Patch are atomic relative to each
// other. Subscribers run on the mutating goroutine after the data lock is
// released, and changes reach them one at a time in the order they were
// applied. A subscriber may read the collection but must not mutate it.
type Collection struct {
	// notifyMu is taken before mu and held until every subscriber has seen
	// the change.
	notifyMu sync.Mutex
	mu       sync.RWMutex
	facts    []fact.Fact
	subs     map[int]func(Change)
	nextID   int
}

// New creates an empty collection. The zero value is also ready to use.
func New() *Collection {
	return &Collection{}
}

// Replace discards the current content and stores facts in order. When
// facts repeats an id, only the first occurrence is kept.
func (c *Collection) Replace(facts []fact.Fact) {
	next := make([]fact.Fact, 0, len(facts))
	seen := make(map[string]struct{}, len(facts))
	for _, f := range facts {
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}
		next = append(next, f)
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.facts = next
	change := c.changeLocked(Replaced, "")
	c.mu.Unlock()

	c.notify(change)
}

// Prepend inserts f at the front.
func (c *Collection) Prepend(f fact.Fact) error {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.indexLocked(f.ID) >= 0 {
		c.mu.Unlock()
		return ErrDuplicateID
	}
	next := make([]fact.Fact, 0, len(c.facts)+1)
	next = append(next, f)
	c.facts = append(next, c.facts...)
	change := c.changeLocked(Prepended, f.ID)
	c.mu.Unlock()

	c.notify(change)
	return nil
}

// Patch replaces the fact with f's id in place, keeping its position.
// Reports false, without notifying, when the id is not present.
func (c *Collection) Patch(f fact.Fact) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	i := c.indexLocked(f.ID)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	c.facts[i] = f
	change := c.changeLocked(Patched, f.ID)
	c.mu.Unlock()

	c.notify(change)
	return true
}

// Get returns the fact with the given id.
func (c *Collection) Get(id string) (fact.Fact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.facts[i], true
	}
	return fact.Fact{}, false
}

// Snapshot returns a copy of the facts in display order.
func (c *Collection) Snapshot() []fact.Fact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]fact.Fact{}, c.facts...)
}

// Len returns the number of facts.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.facts)
}

// Subscribe registers fn for future changes and returns a func removing it.
func (c *Collection) Subscribe(fn func(Change)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		c.subs = make(map[int]func(Change))
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// indexLocked is a linear scan; lists are capped at a few hundred rows.
func (c *Collection) indexLocked(id string) int {
	for i := range c.facts {
		if c.facts[i].ID == id {
			return i
		}
	}
	return -1
}

type pendingChange struct {
	change Change
	subs   []func(Change)
}

func (c *Collection) changeLocked(kind ChangeKind, id string) pendingChange {
	if len(c.subs) == 0 {
		return pendingChange{}
	}
	p := pendingChange{
		change: Change{Kind: kind, ID: id, Facts: append([]fact.Fact{}, c.facts...)},
		subs:   make([]func(Change), 0, len(c.subs)),
	}
	for _, fn := range c.subs {
		p.subs = append(p.subs, fn)
	}
	return p
}

func (c *Collection) notify(p pendingChange) {
	for _, fn := range p.subs {
		fn(p.change)
	}
}
