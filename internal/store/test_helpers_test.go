package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testEpoch is the fixed time reported by stores created with createTestStore.
var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "database.sqlite")
	s, err := Open(path, WithClock(func() time.Time { return testEpoch }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustCategory creates a category or fails the test.
func mustCategory(t *testing.T, s *Store, name string) Category {
	t.Helper()
	cat, err := s.CreateCategory(context.Background(), name)
	require.NoError(t, err)
	return cat
}

// mustArticle creates an article or fails the test.
func mustArticle(t *testing.T, s *Store, name string, categoryID int64) Article {
	t.Helper()
	art, err := s.CreateArticle(context.Background(), name, categoryID)
	require.NoError(t, err)
	return art
}

// mustField creates a field or fails the test.
func mustField(t *testing.T, s *Store, categoryID int64, name string) Field {
	t.Helper()
	f, err := s.CreateField(context.Background(), categoryID, name)
	require.NoError(t, err)
	return f
}

// mustConnection creates a connection pair or fails the test.
func mustConnection(t *testing.T, s *Store, mainID, otherID int64) Connection {
	t.Helper()
	c, err := s.CreateConnection(context.Background(), mainID, otherID)
	require.NoError(t, err)
	return c
}

// countWhere counts rows of table matching where.
func countWhere(t *testing.T, s *Store, table, where string, args ...any) int {
	t.Helper()
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE "+where, args...).Scan(&n)
	require.NoError(t, err)
	return n
}

// countRows returns per-table row counts or fails the test.
func countRows(t *testing.T, s *Store) RowCounts {
	t.Helper()
	c, err := s.CountRows(context.Background())
	require.NoError(t, err)
	return c
}
