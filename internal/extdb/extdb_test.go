package extdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "issues.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateExecuteQuery(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Migrate(`
		CREATE TABLE issues (id INTEGER PRIMARY KEY, title TEXT NOT NULL);
		CREATE INDEX idx_issues_title ON issues (title);
	`))

	n, err := db.Execute("INSERT INTO issues (id, title) VALUES (?, ?), (?, ?)",
		[]any{1, "first", 2, "second"})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	rows, err := db.Query("SELECT id, title FROM issues ORDER BY id", nil)
	require.NoError(t, err)
	// Two rows of two columns each, never flattened.
	require.Len(t, rows, 2)
	require.Len(t, rows[0], 2)
	require.Equal(t, int64(1), rows[0][0])
	require.Equal(t, "first", rows[0][1])
	require.Equal(t, "second", rows[1][1])
}

func TestMigrateRollsBackOnError(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Migrate("CREATE TABLE a (id INTEGER)"))
	err := db.Migrate("CREATE TABLE b (id INTEGER); CREATE TABLE a (id INTEGER)")
	require.Error(t, err)

	// The failed script must not have left table b behind.
	_, err = db.Query("SELECT * FROM b", nil)
	require.Error(t, err)
}

func TestQueryEmptyResult(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate("CREATE TABLE issues (id INTEGER)"))
	rows, err := db.Query("SELECT id FROM issues", nil)
	require.NoError(t, err)
	require.Empty(t, rows)
}
