package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/til/internal/fact"
)

// createTestStore creates a new file-backed store in a temp dir.
// Ids come from a "fact-" sequence and createdIn is pinned to 2026.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithIDGenerator(NewSequenceGenerator("fact-")),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createSeededStore creates a test store holding the default seeds.
func createSeededStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	if _, err := s.Seed(context.Background(), fact.DefaultSeeds()); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	return s
}
