// Package session wires the fact collection to the remote store through
// three controllers:
//
//   - Loader: category selection, refetch, wholesale replace
//   - Voter: per-fact single-flight vote increments, patch in place
//   - Submitter: form draft, validation, insert, prepend
//
// Every controller call blocks only its own goroutine; any number of
// round trips may be in flight. The collection serializes the mutations
// their results produce.
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/til/internal/category"
	"github.com/roach88/til/internal/collection"
	"github.com/roach88/til/internal/fact"
)

var (
	// ErrUnknownCategory rejects a selection outside the category table.
	ErrUnknownCategory = errors.New("session: unknown category")
	// ErrUnknownFact rejects a vote on a fact the collection does not hold.
	ErrUnknownFact = errors.New("session: unknown fact")
	// ErrVoteInFlight rejects a vote while another vote on the same fact runs.
	ErrVoteInFlight = errors.New("session: vote already in flight for fact")
	// ErrSubmitInFlight rejects a submission while another one uploads.
	ErrSubmitInFlight = errors.New("session: submission already in flight")
)

// Repository is the remote access the controllers need.
// *repository.Client implements it.
type Repository interface {
	ListByCategory(ctx context.Context, cat string) ([]fact.Fact, error)
	Insert(ctx context.Context, v fact.ValidFact) (fact.Fact, error)
	IncrementVote(ctx context.Context, id string, field fact.VoteField, current int64) (fact.Fact, error)
}

type options struct {
	logger          *slog.Logger
	notifier        Notifier
	categories      *category.Table
	defaultCategory string
	discardStale    bool
}

// Option configures a controller or a Session.
type Option func(*options)

// WithLogger sets the logger for controller diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNotifier sets where user-visible notices go.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithCategories replaces the built-in category table.
func WithCategories(t *category.Table) Option {
	return func(o *options) {
		if t != nil {
			o.categories = t
		}
	}
}

// WithDefaultCategory sets the selection made by Loader.Start.
func WithDefaultCategory(name string) Option {
	return func(o *options) {
		if name != "" {
			o.defaultCategory = name
		}
	}
}

// WithDiscardStale makes the Loader drop results of selections that were
// superseded by a newer one before they completed.
func WithDiscardStale() Option {
	return func(o *options) {
		o.discardStale = true
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:          slog.Default(),
		categories:      category.Default(),
		defaultCategory: category.All,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = LogNotifier{Logger: o.logger}
	}
	return o
}

// Session is one client's view: a collection plus its controllers.
type Session struct {
	Facts     *collection.Collection
	Loader    *Loader
	Voter     *Voter
	Submitter *Submitter
}

// New creates a Session with an empty collection.
func New(repo Repository, opts ...Option) *Session {
	facts := collection.New()
	return &Session{
		Facts:     facts,
		Loader:    NewLoader(repo, facts, opts...),
		Voter:     NewVoter(repo, facts, opts...),
		Submitter: NewSubmitter(repo, facts, opts...),
	}
}
