package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testDB opens a fresh database under the test's temp directory.
func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
