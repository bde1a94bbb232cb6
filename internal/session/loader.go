package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/til/internal/category"
	"github.com/roach88/til/internal/collection"
	"github.com/roach88/til/internal/observe"
)

// State is the Loader's busy signal.
type State int

const (
	Idle State = iota
	Loading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Loader refetches the collection whenever the category selection changes.
//
// Overlapping selections are allowed. By default each result is applied in
// the order it completes, so a slow older response can overwrite a newer
// one. WithDiscardStale drops superseded results instead.
type Loader struct {
	repo         Repository
	facts        *collection.Collection
	categories   *category.Table
	notifier     Notifier
	logger       *slog.Logger
	defaultCat   string
	discardStale bool

	// mu orders in-flight accounting, state transitions and result
	// application.
	mu         sync.Mutex
	inFlight   int
	generation uint64
	state      *observe.Value[State]
	selected   *observe.Value[string]
}

// NewLoader creates a Loader replacing facts with list results.
func NewLoader(repo Repository, facts *collection.Collection, opts ...Option) *Loader {
	o := buildOptions(opts)
	return &Loader{
		repo:         repo,
		facts:        facts,
		categories:   o.categories,
		notifier:     o.notifier,
		logger:       o.logger,
		defaultCat:   o.defaultCategory,
		discardStale: o.discardStale,
		state:        observe.NewValue(Idle),
		selected:     observe.NewValue(""),
	}
}

// Start performs the initial selection of the default category.
func (l *Loader) Start(ctx context.Context) error {
	return l.Select(ctx, l.defaultCat)
}

// Select records cat as the current selection and refetches.
//
// On success the collection is replaced with the result. On failure the
// user is notified, the collection is left as it was, and the
// *repository.RemoteError is returned.
func (l *Loader) Select(ctx context.Context, cat string) error {
	if !l.categories.IsSelectable(cat) {
		return fmt.Errorf("select %q: %w", cat, ErrUnknownCategory)
	}

	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.inFlight++
	l.selected.Set(cat)
	l.state.Set(Loading)
	l.mu.Unlock()

	l.logger.DebugContext(ctx, "loading facts", "category", cat)
	facts, err := l.repo.ListByCategory(ctx, cat)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight--
	if l.inFlight == 0 {
		defer l.state.Set(Idle)
	}

	if l.discardStale && gen != l.generation {
		l.logger.DebugContext(ctx, "discarding superseded result", "category", cat, "error", err)
		return err
	}
	if err != nil {
		l.logger.WarnContext(ctx, "load failed", "category", cat, "error", err)
		l.notifier.Notice(NoticeLoadFailed)
		return err
	}

	l.facts.Replace(facts)
	l.logger.DebugContext(ctx, "facts loaded", "category", cat, "count", len(facts))
	return nil
}

// State returns Loading while any selection is in flight.
func (l *Loader) State() State {
	return l.state.Get()
}

// Selected returns the most recently requested category.
func (l *Loader) Selected() string {
	return l.selected.Get()
}

// OnState subscribes fn to state transitions. fn must not call back into
// the Loader synchronously.
func (l *Loader) OnState(fn func(State)) (cancel func()) {
	return l.state.Subscribe(fn)
}
