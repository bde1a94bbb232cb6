// Package mysqlstore serves the facts table from MySQL through GORM.
//
// It accepts the same Query IR as the SQLite store. MySQL has no RETURNING,
// so writes re-read the stored row inside the same transaction before
// echoing it.
package mysqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/queryir"
)

// FactsTable is the only table the store serves.
const FactsTable = "facts"

var (
	// ErrNotFound indicates an update whose filter matched no row.
	ErrNotFound = fmt.Errorf("mysqlstore: %w", queryir.ErrNoMatch)
	// ErrUnknownTable indicates a query against a table other than facts.
	ErrUnknownTable = errors.New("mysqlstore: unknown table")
)

// factRow is the GORM model of one facts row.
type factRow struct {
	ID               string `gorm:"column:id;primaryKey;type:varchar(64)"`
	Text             string `gorm:"column:text;type:varchar(1024);not null"`
	Source           string `gorm:"column:source;type:varchar(2048);not null;default:''"`
	Category         string `gorm:"column:category;size:32;not null;default:'';index:idx_facts_category_votes,priority:1"`
	VotesInteresting int64  `gorm:"column:votesInteresting;not null;default:0;index:idx_facts_category_votes,priority:2"`
	VotesMindblowing int64  `gorm:"column:votesMindblowing;not null;default:0"`
	VotesFalse       int64  `gorm:"column:votesFalse;not null;default:0"`
	CreatedIn        int    `gorm:"column:createdIn;not null;default:0"`
}

func (factRow) TableName() string { return FactsTable }

func (r factRow) fact() fact.Fact {
	return fact.Fact{
		ID:               r.ID,
		Text:             r.Text,
		Source:           r.Source,
		Category:         r.Category,
		VotesInteresting: r.VotesInteresting,
		VotesMindblowing: r.VotesMindblowing,
		VotesFalse:       r.VotesFalse,
		CreatedIn:        r.CreatedIn,
	}
}

func rowOf(f fact.Fact) factRow {
	return factRow{
		ID:               f.ID,
		Text:             f.Text,
		Source:           f.Source,
		Category:         f.Category,
		VotesInteresting: f.VotesInteresting,
		VotesMindblowing: f.VotesMindblowing,
		VotesFalse:       f.VotesFalse,
		CreatedIn:        f.CreatedIn,
	}
}

// Store is the MySQL facts table.
type Store struct {
	db     *gorm.DB
	newID  func() string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides how new fact ids are assigned.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock overrides the clock used to stamp createdIn.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger for store diagnostics and GORM warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open connects to dsn and migrates the facts table.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	dsn = ensureParam(dsn, "parseTime", "true")
	if !strings.Contains(dsn, "charset=") {
		dsn = ensureParam(dsn, "charset", "utf8mb4")
		dsn = ensureParam(dsn, "collation", "utf8mb4_unicode_ci")
	}

	s := newStore(nil, opts)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: s.gormLogger()})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}
	s.db = db

	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// New wraps an existing GORM handle without migrating.
func New(db *gorm.DB, opts ...Option) *Store {
	return newStore(db, opts)
}

func newStore(db *gorm.DB, opts []Option) *Store {
	s := &Store{
		db:     db,
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) gormLogger() logger.Interface {
	return logger.New(
		slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
		logger.Config{SlowThreshold: time.Second, LogLevel: logger.Warn, IgnoreRecordNotFoundError: true, Colorful: false},
	)
}

// Migrate creates or updates the facts table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&factRow{}); err != nil {
		return fmt.Errorf("migrate facts: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Select returns the fact rows matching q in q's order, then id ascending.
func (s *Store) Select(ctx context.Context, q queryir.Select) ([]fact.Fact, error) {
	if err := s.check(q, q.From); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	var rows []factRow
	if err := selectScope(s.db.WithContext(ctx), q).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}

	facts := make([]fact.Fact, 0, len(rows))
	for _, r := range rows {
		facts = append(facts, r.fact())
	}
	return facts, nil
}

// Insert adds one fact with a generated id and returns the stored row.
func (s *Store) Insert(ctx context.Context, q queryir.Insert) (fact.Fact, error) {
	if err := s.check(q, q.Into); err != nil {
		return fact.Fact{}, fmt.Errorf("insert: %w", err)
	}

	values := map[string]any{
		fact.ColumnID:        s.newID(),
		fact.ColumnCreatedIn: s.now().Year(),
	}
	for _, a := range q.Values {
		if a.Field == fact.ColumnID {
			continue
		}
		values[a.Field] = a.Value
	}

	var stored factRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&factRow{}).Create(values).Error; err != nil {
			return err
		}
		return tx.Where(clause.Eq{Column: clause.Column{Name: fact.ColumnID}, Value: values[fact.ColumnID]}).
			First(&stored).Error
	})
	if err != nil {
		return fact.Fact{}, fmt.Errorf("insert fact: %w", err)
	}
	return stored.fact(), nil
}

// Update applies q and returns the first matching row as updated.
// Returns ErrNotFound if the filter matched nothing.
func (s *Store) Update(ctx context.Context, q queryir.Update) (fact.Fact, error) {
	if err := s.check(q, q.Table); err != nil {
		return fact.Fact{}, fmt.Errorf("update: %w", err)
	}
	set := make(map[string]any, len(q.Set))
	for _, a := range q.Set {
		if a.Field == fact.ColumnID {
			return fact.Fact{}, fmt.Errorf("update: id is immutable")
		}
		set[a.Field] = a.Value
	}

	var stored factRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := filterScope(tx, q.Filter).Order(clause.OrderByColumn{Column: clause.Column{Name: fact.ColumnID}}).
			First(&stored).Error; err != nil {
			return err
		}
		if err := filterScope(tx.Model(&factRow{}), q.Filter).Updates(set).Error; err != nil {
			return err
		}
		return tx.Where(clause.Eq{Column: clause.Column{Name: fact.ColumnID}, Value: stored.ID}).First(&stored).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fact.Fact{}, fmt.Errorf("update fact: %w", ErrNotFound)
	}
	if err != nil {
		return fact.Fact{}, fmt.Errorf("update fact: %w", err)
	}
	return stored.fact(), nil
}

// Seed inserts facts with their given ids, skipping ids already present.
func (s *Store) Seed(ctx context.Context, facts []fact.Fact) (int, error) {
	rows := make([]factRow, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, rowOf(f))
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("seed facts: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// Count returns the number of stored facts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&factRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return int(n), nil
}

func (s *Store) check(q queryir.Query, table string) error {
	if table != FactsTable {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return queryir.Validate(q)
}

// filterScope adds one WHERE equality per conjunct of p.
func filterScope(tx *gorm.DB, p queryir.Predicate) *gorm.DB {
	for _, eq := range queryir.Conjuncts(p) {
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: eq.Field}, Value: eq.Value})
	}
	return tx
}

// selectScope builds the filtered, ordered, limited facts query.
func selectScope(tx *gorm.DB, q queryir.Select) *gorm.DB {
	tx = filterScope(tx.Model(&factRow{}), q.Filter)
	orderedByID := false
	for _, o := range q.OrderBy {
		if o.Field == fact.ColumnID {
			orderedByID = true
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Field}, Desc: o.Descending})
	}
	if !orderedByID {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: fact.ColumnID}})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx
}

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}
