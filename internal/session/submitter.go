package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/til/internal/category"
	"github.com/roach88/til/internal/collection"
	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/observe"
)

// Form is the submission draft.
type Form struct {
	Text     string
	Source   string
	Category string
}

// Submitter validates the draft and shares it with the remote store.
type Submitter struct {
	repo       Repository
	facts      *collection.Collection
	categories *category.Table
	notifier   Notifier
	logger     *slog.Logger

	mu        sync.Mutex
	draft     Form
	uploading *observe.Value[bool]
}

// NewSubmitter creates a Submitter prepending created facts to facts.
func NewSubmitter(repo Repository, facts *collection.Collection, opts ...Option) *Submitter {
	o := buildOptions(opts)
	return &Submitter{
		repo:       repo,
		facts:      facts,
		categories: o.categories,
		notifier:   o.notifier,
		logger:     o.logger,
		uploading:  observe.NewValue(false),
	}
}

// SetDraft replaces the draft.
func (s *Submitter) SetDraft(f Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = f
}

// Draft returns the current draft.
func (s *Submitter) Draft() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Remaining returns how many characters the draft text may still grow.
func (s *Submitter) Remaining() int {
	return fact.Remaining(s.Draft().Text)
}

// Uploading reports whether a submission is in flight.
func (s *Submitter) Uploading() bool {
	return s.uploading.Get()
}

// OnUploading subscribes fn to uploading flag changes. fn must not call
// back into the Submitter synchronously.
func (s *Submitter) OnUploading(fn func(bool)) (cancel func()) {
	return s.uploading.Subscribe(fn)
}

// Submit validates and inserts the draft.
//
// A *fact.ValidationError means nothing was sent and the draft is kept. A
// remote failure notifies the user and also keeps the draft. On success the
// created fact is prepended to the collection and the draft is cleared.
func (s *Submitter) Submit(ctx context.Context) (fact.Fact, error) {
	s.mu.Lock()
	if s.uploading.Get() {
		s.mu.Unlock()
		return fact.Fact{}, ErrSubmitInFlight
	}
	valid, err := s.validate(s.draft)
	if err != nil {
		s.mu.Unlock()
		return fact.Fact{}, err
	}
	s.uploading.Set(true)
	s.mu.Unlock()

	created, err := s.repo.Insert(ctx, valid)

	s.mu.Lock()
	if err == nil {
		s.draft = Form{}
	}
	s.uploading.Set(false)
	s.mu.Unlock()

	if err != nil {
		s.logger.WarnContext(ctx, "submit failed", "error", err)
		s.notifier.Notice(NoticeSubmitFailed)
		return fact.Fact{}, err
	}

	if err := s.facts.Prepend(created); err != nil {
		if !errors.Is(err, collection.ErrDuplicateID) {
			return created, err
		}
		s.logger.WarnContext(ctx, "created fact already cached", "id", created.ID)
	}
	return created, nil
}

func (s *Submitter) validate(f Form) (fact.ValidFact, error) {
	valid, err := fact.Validate(fact.Candidate{Text: f.Text, Source: f.Source, Category: f.Category})
	if err != nil {
		return fact.ValidFact{}, err
	}
	if _, err := s.categories.Lookup(valid.Category()); err != nil {
		return fact.ValidFact{}, &fact.ValidationError{
			Field:  "category",
			Reason: fact.ErrCategory,
			Detail: "not a known category",
		}
	}
	return valid, nil
}
