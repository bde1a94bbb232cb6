package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/til/internal/collection"
	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/observe"
)

// Voter applies vote increments with one vote in flight per fact.
type Voter struct {
	repo     Repository
	facts    *collection.Collection
	notifier Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	busy    map[string]struct{}
	busySet *observe.Value[[]string]
}

// NewVoter creates a Voter patching facts with echoed rows.
func NewVoter(repo Repository, facts *collection.Collection, opts ...Option) *Voter {
	o := buildOptions(opts)
	return &Voter{
		repo:     repo,
		facts:    facts,
		notifier: o.notifier,
		logger:   o.logger,
		busy:     make(map[string]struct{}),
		busySet:  observe.NewValue([]string{}),
	}
}

// Vote increments counter field of fact id.
//
// The new value is the collection's current counter plus one. On success the
// echoed row replaces the fact in place and is returned. On failure the user
// is notified and the collection is untouched.
func (v *Voter) Vote(ctx context.Context, id string, field fact.VoteField) (fact.Fact, error) {
	if !field.Valid() {
		return fact.Fact{}, fmt.Errorf("vote: invalid field %d", int(field))
	}

	v.mu.Lock()
	if _, inFlight := v.busy[id]; inFlight {
		v.mu.Unlock()
		return fact.Fact{}, fmt.Errorf("vote %q: %w", id, ErrVoteInFlight)
	}
	current, ok := v.facts.Get(id)
	if !ok {
		v.mu.Unlock()
		return fact.Fact{}, fmt.Errorf("vote %q: %w", id, ErrUnknownFact)
	}
	v.busy[id] = struct{}{}
	v.publishLocked()
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		delete(v.busy, id)
		v.publishLocked()
		v.mu.Unlock()
	}()

	updated, err := v.repo.IncrementVote(ctx, id, field, current.Votes(field))
	if err != nil {
		v.logger.WarnContext(ctx, "vote failed", "id", id, "field", field.Column(), "error", err)
		v.notifier.Notice(NoticeVoteFailed)
		return fact.Fact{}, err
	}

	if !v.facts.Patch(updated) {
		v.logger.DebugContext(ctx, "voted fact left the collection", "id", id)
	}
	return updated, nil
}

// Busy reports whether a vote on id is in flight.
func (v *Voter) Busy(id string) bool {
	ids := v.busySet.Get()
	i := sort.SearchStrings(ids, id)
	return i < len(ids) && ids[i] == id
}

// BusyIDs returns the ids with a vote in flight, sorted.
func (v *Voter) BusyIDs() []string {
	return v.busySet.Get()
}

// OnBusy subscribes fn to changes of the busy set. fn must not call Vote
// synchronously.
func (v *Voter) OnBusy(fn func([]string)) (cancel func()) {
	return v.busySet.Subscribe(fn)
}

func (v *Voter) publishLocked() {
	ids := make([]string, 0, len(v.busy))
	for id := range v.busy {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	v.busySet.Set(ids)
}
