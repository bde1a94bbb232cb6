// Package repository mediates every read and write the client makes against
// the remote facts store.
//
// The Client owns no cache: each call is exactly one round trip through a
// Remote. Callers decide what to do with the echoed rows.
package repository

import (
	"context"
	"fmt"

	"github.com/roach88/til/internal/category"
	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/queryir"
)

const (
	// FactsTable is the remote table holding facts.
	FactsTable = "facts"

	// ResultLimit caps every list query.
	ResultLimit = 600
)

// Remote is the persistence contract the client depends on.
//
// Implementations echo stored rows from Insert and Update and must be safe
// for concurrent use.
type Remote interface {
	Select(ctx context.Context, q queryir.Select) ([]fact.Fact, error)
	Insert(ctx context.Context, q queryir.Insert) (fact.Fact, error)
	Update(ctx context.Context, q queryir.Update) (fact.Fact, error)
}

// Client issues the three fact operations against a Remote.
type Client struct {
	remote Remote
}

// New creates a Client backed by remote.
func New(remote Remote) *Client {
	return &Client{remote: remote}
}

// ListQuery builds the ranked list query for a category. The pseudo-category
// "all" selects every fact.
func ListQuery(cat string) queryir.Select {
	q := queryir.Select{
		From:    FactsTable,
		OrderBy: []queryir.Order{{Field: fact.ColumnVotesInteresting, Descending: true}},
		Limit:   ResultLimit,
	}
	if cat != category.All {
		q.Filter = queryir.Eq(fact.ColumnCategory, cat)
	}
	return q
}

// ListByCategory returns up to ResultLimit facts of the category ranked by
// votesInteresting, highest first.
func (c *Client) ListByCategory(ctx context.Context, cat string) ([]fact.Fact, error) {
	facts, err := c.remote.Select(ctx, ListQuery(cat))
	if err != nil {
		return nil, &RemoteError{Op: OpList, Err: err}
	}
	if facts == nil {
		facts = []fact.Fact{}
	}
	return facts, nil
}

// Insert sends text, source and category of a validated fact and returns the
// row as the remote created it.
func (c *Client) Insert(ctx context.Context, v fact.ValidFact) (fact.Fact, error) {
	q := queryir.Insert{
		Into: FactsTable,
		Values: []queryir.Assignment{
			{Field: fact.ColumnText, Value: v.Text()},
			{Field: fact.ColumnSource, Value: v.Source()},
			{Field: fact.ColumnCategory, Value: v.Category()},
		},
		Returning: fact.Columns,
	}
	created, err := c.remote.Insert(ctx, q)
	if err != nil {
		return fact.Fact{}, &RemoteError{Op: OpInsert, Err: err}
	}
	return created, nil
}

// IncrementVote sets the counter of fact id to current+1 and returns the
// updated row.
//
// The new value is computed here, not by the remote: two clients voting from
// the same stale value both write the same number.
func (c *Client) IncrementVote(ctx context.Context, id string, field fact.VoteField, current int64) (fact.Fact, error) {
	if !field.Valid() {
		return fact.Fact{}, &RemoteError{Op: OpVote, Err: fmt.Errorf("invalid vote field %d", field)}
	}
	q := queryir.Update{
		Table:     FactsTable,
		Set:       []queryir.Assignment{{Field: field.Column(), Value: current + 1}},
		Filter:    queryir.Eq(fact.ColumnID, id),
		Returning: fact.Columns,
	}
	updated, err := c.remote.Update(ctx, q)
	if err != nil {
		return fact.Fact{}, &RemoteError{Op: OpVote, Err: err}
	}
	return updated, nil
}
