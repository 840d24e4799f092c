package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/mailclient/internal/store"
)

// NewTestStore opens an in-memory store with migrations applied and
// closes it when the test ends.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	return openStore(t, ":memory:")
}

// NewFileStore opens a store backed by a file in a temp directory and
// returns its path so the test can reopen it.
func NewFileStore(t *testing.T) (*store.SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "mailclient.db")
	return openStore(t, path), path
}

func openStore(t *testing.T, path string) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err, "opening test store")

	t.Cleanup(func() { _ = s.Close() })
	return s
}
