package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/queryir"
)

// FactsTable is the only table the store serves.
const FactsTable = "facts"

var (
	// ErrNotFound indicates an update whose filter matched no row.
	ErrNotFound = fmt.Errorf("store: %w", queryir.ErrNoMatch)
	// ErrUnknownTable indicates a query against a table other than facts.
	ErrUnknownTable = errors.New("store: unknown table")
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFact(row rowScanner) (fact.Fact, error) {
	var f fact.Fact
	err := row.Scan(
		&f.ID,
		&f.Text,
		&f.Source,
		&f.Category,
		&f.VotesInteresting,
		&f.VotesMindblowing,
		&f.VotesFalse,
		&f.CreatedIn,
	)
	return f, err
}

// Select returns the fact rows matching q, in q's order.
// Whole rows are always returned regardless of q.Columns.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Select(ctx context.Context, q queryir.Select) ([]fact.Fact, error) {
	if q.From != FactsTable {
		return nil, fmt.Errorf("select: %w: %q", ErrUnknownTable, q.From)
	}
	q.Columns = fact.Columns

	query, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	s.logger.DebugContext(ctx, "store select", "sql", query, "params", params)

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	facts := []fact.Fact{}
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}

	return facts, nil
}

// Insert adds one fact and returns the stored row.
//
// The id is always assigned by the store's IDGenerator and createdIn is
// stamped with the current year unless the caller supplied one. Vote
// counters take the schema defaults when omitted.
func (s *Store) Insert(ctx context.Context, q queryir.Insert) (fact.Fact, error) {
	if q.Into != FactsTable {
		return fact.Fact{}, fmt.Errorf("insert: %w: %q", ErrUnknownTable, q.Into)
	}

	values := make([]queryir.Assignment, 0, len(q.Values)+2)
	values = append(values, queryir.Assignment{Field: fact.ColumnID, Value: s.ids.Generate()})
	hasYear := false
	for _, a := range q.Values {
		switch a.Field {
		case fact.ColumnID:
			continue
		case fact.ColumnCreatedIn:
			hasYear = true
		}
		values = append(values, a)
	}
	if !hasYear {
		values = append(values, queryir.Assignment{Field: fact.ColumnCreatedIn, Value: s.now().Year()})
	}

	q.Values = values
	q.Returning = fact.Columns

	query, params, err := s.compiler.Compile(q)
	if err != nil {
		return fact.Fact{}, fmt.Errorf("insert: %w", err)
	}
	s.logger.DebugContext(ctx, "store insert", "sql", query)

	f, err := scanFact(s.db.QueryRowContext(ctx, query, params...))
	if err != nil {
		return fact.Fact{}, fmt.Errorf("insert fact: %w", err)
	}
	return f, nil
}

// Update applies q and returns the first updated row.
// Returns ErrNotFound if the filter matched nothing.
func (s *Store) Update(ctx context.Context, q queryir.Update) (fact.Fact, error) {
	if q.Table != FactsTable {
		return fact.Fact{}, fmt.Errorf("update: %w: %q", ErrUnknownTable, q.Table)
	}
	for _, a := range q.Set {
		if a.Field == fact.ColumnID {
			return fact.Fact{}, fmt.Errorf("update: id is immutable")
		}
	}
	q.Returning = fact.Columns

	query, params, err := s.compiler.Compile(q)
	if err != nil {
		return fact.Fact{}, fmt.Errorf("update: %w", err)
	}
	s.logger.DebugContext(ctx, "store update", "sql", query, "params", params)

	f, err := scanFact(s.db.QueryRowContext(ctx, query, params...))
	if errors.Is(err, sql.ErrNoRows) {
		return fact.Fact{}, fmt.Errorf("update fact: %w", ErrNotFound)
	}
	if err != nil {
		return fact.Fact{}, fmt.Errorf("update fact: %w", err)
	}
	return f, nil
}

// Seed inserts facts with their given ids and counters.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - existing ids are skipped.
// Returns the number of rows actually inserted.
func (s *Store) Seed(ctx context.Context, facts []fact.Fact) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	inserted := 0
	for _, f := range facts {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO facts
			(id, text, source, category, votesInteresting, votesMindblowing, votesFalse, createdIn)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			f.ID,
			f.Text,
			f.Source,
			f.Category,
			f.VotesInteresting,
			f.VotesMindblowing,
			f.VotesFalse,
			f.CreatedIn,
		)
		if err != nil {
			return 0, fmt.Errorf("seed fact %q: %w", f.ID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("seed: rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed: commit: %w", err)
	}
	return inserted, nil
}

// Count returns the number of stored facts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM facts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return n, nil
}
