package mysqlstore

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/queryir"
)

// dryRunDB returns a handle that renders statements without connecting.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "til:til@tcp(127.0.0.1:3306)/til?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func newDryRunStore(t *testing.T) *Store {
	return New(dryRunDB(t), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func selectSQL(t *testing.T, q queryir.Select) string {
	t.Helper()
	db := dryRunDB(t)
	return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []factRow
		return selectScope(tx, q).Find(&rows)
	})
}

func TestSelectScope_CategoryList(t *testing.T) {
	sql := selectSQL(t, queryir.Select{
		From:    FactsTable,
		Filter:  queryir.Eq(fact.ColumnCategory, "technology"),
		OrderBy: []queryir.Order{{Field: fact.ColumnVotesInteresting, Descending: true}},
		Limit:   600,
	})

	assert.Contains(t, sql, "FROM `facts`")
	assert.Contains(t, sql, "WHERE `category` = 'technology'")
	assert.Contains(t, sql, "ORDER BY `votesInteresting` DESC,`id`")
	assert.Contains(t, sql, "LIMIT 600")
}

func TestSelectScope_NoFilterNoLimit(t *testing.T) {
	sql := selectSQL(t, queryir.Select{
		From:    FactsTable,
		OrderBy: []queryir.Order{{Field: fact.ColumnVotesInteresting, Descending: true}},
	})

	assert.NotContains(t, sql, "WHERE")
	assert.NotContains(t, sql, "LIMIT")
	assert.Contains(t, sql, "ORDER BY `votesInteresting` DESC,`id`")
}

func TestSelectScope_CallerOrdersByID(t *testing.T) {
	sql := selectSQL(t, queryir.Select{
		From:    FactsTable,
		OrderBy: []queryir.Order{{Field: fact.ColumnID, Descending: true}},
	})

	assert.Contains(t, sql, "ORDER BY `id` DESC")
	assert.NotContains(t, sql, "DESC,`id`")
}

func TestSelectScope_Conjunction(t *testing.T) {
	sql := selectSQL(t, queryir.Select{
		From: FactsTable,
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Eq(fact.ColumnCategory, "science"),
			queryir.Eq(fact.ColumnCreatedIn, 2024),
		}},
	})

	assert.Contains(t, sql, "`category` = 'science' AND `createdIn` = 2024")
}

func TestFactRow_Schema(t *testing.T) {
	s, err := schema.Parse(&factRow{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	assert.Equal(t, FactsTable, s.Table)
	for _, col := range fact.Columns {
		assert.NotNil(t, s.LookUpField(col), "missing column %q", col)
	}
	require.Len(t, s.PrimaryFields, 1)
	assert.Equal(t, fact.ColumnID, s.PrimaryFields[0].DBName)
}

func TestFactRow_RoundTrip(t *testing.T) {
	f := fact.Fact{
		ID: "1", Text: "t", Source: "https://a.io", Category: "news",
		VotesInteresting: 1, VotesMindblowing: 2, VotesFalse: 3, CreatedIn: 2020,
	}
	assert.Equal(t, f, rowOf(f).fact())
}

func TestStore_RejectsBeforeTouchingDB(t *testing.T) {
	s := newDryRunStore(t)
	ctx := context.Background()

	_, err := s.Select(ctx, queryir.Select{From: "users"})
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = s.Insert(ctx, queryir.Insert{Into: FactsTable})
	assert.ErrorIs(t, err, queryir.ErrInvalidQuery)

	_, err = s.Update(ctx, queryir.Update{
		Table:  FactsTable,
		Set:    []queryir.Assignment{{Field: fact.ColumnID, Value: "2"}},
		Filter: queryir.Eq(fact.ColumnID, "1"),
	})
	assert.Error(t, err)

	_, err = s.Update(ctx, queryir.Update{
		Table: FactsTable,
		Set:   []queryir.Assignment{{Field: fact.ColumnVotesFalse, Value: 1}},
	})
	assert.ErrorIs(t, err, queryir.ErrInvalidQuery)
}

func TestEnsureParam(t *testing.T) {
	assert.Equal(t, "u@tcp(h)/db?parseTime=true", ensureParam("u@tcp(h)/db", "parseTime", "true"))
	assert.Equal(t, "u@tcp(h)/db?a=1&parseTime=true", ensureParam("u@tcp(h)/db?a=1", "parseTime", "true"))
	assert.Equal(t, "u@tcp(h)/db?parseTime=false", ensureParam("u@tcp(h)/db?parseTime=false", "parseTime", "true"))
}
