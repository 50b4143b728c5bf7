package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_CreatesTables(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err, "InitDB should not return an error")
	defer teardown()

	for _, table := range []string{"players", "matches", "match_managers", "roster_entries", "waitlist_entries", "teams"} {
		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "Querying for %s table should not produce an error", table)
		assert.Equal(t, table, name)
	}
}

func TestInitDB_ActiveWaitlistEntryIsUnique(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	_, err = db.Exec(`INSERT INTO matches (id, owner_id, field_capacity, goalkeeper_capacity, auto_promote_minutes, created_at) VALUES ('m1', 'owner', 10, 2, 30, 0)`)
	require.NoError(t, err)

	insert := `INSERT INTO waitlist_entries (match_id, player_id, position, queue_position, status, added_at) VALUES ('m1', 'p1', 'FIELD', ?, ?, 0)`
	_, err = db.Exec(insert, 1, "EXPIRED")
	require.NoError(t, err)
	_, err = db.Exec(insert, 1, "WAITING")
	require.NoError(t, err, "a terminal entry must not block a new active one")
	_, err = db.Exec(insert, 2, "NOTIFIED")
	assert.Error(t, err, "two active entries for the same player must be rejected")
}

func TestInitDB_IsIdempotent(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	require.NoError(t, migrate(db, "sqlite3", "../../migrations"))
}
