package aggregate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mauv0809/pickup-roster/internal/aggregate"
	"github.com/mauv0809/pickup-roster/internal/database"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T, opts ...aggregate.Option) (*aggregate.Store, *metrics.Mock, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	_, err = match.New(db, match.Defaults{}).Create(context.Background(), match.CreateParams{
		ID: "m1", OwnerID: "owner", FieldCapacity: 4, GoalkeeperCapacity: 1, AutoPromoteMinutes: 30,
	})
	require.NoError(t, err)

	m := metrics.NewMock()
	opts = append([]aggregate.Option{aggregate.WithBaseDelay(time.Millisecond)}, opts...)
	return aggregate.New(db, m, opts...), m, dbTeardown
}

const bumpVersion = "UPDATE matches SET version = version + 1 WHERE id = 'm1'"

func TestRunTransaction_CommitsAndRecomputesCounters(t *testing.T) {
	store, _, teardown := setupTestStore(t)
	defer teardown()
	ctx := context.Background()

	err := store.RunTransaction(ctx, "m1", func(tx *aggregate.Tx) error {
		assert.Equal(t, "m1", tx.Match.ID)
		_, err := tx.Exec(`INSERT INTO roster_entries (match_id, player_id, position, status, updated_at) VALUES ('m1', 'p1', 'FIELD', 'CONFIRMED', 0), ('m1', 'p2', 'GOALKEEPER', 'CONFIRMED', 0), ('m1', 'p3', 'FIELD', 'PENDING', 0)`)
		return err
	})
	require.NoError(t, err)

	got, err := match.New(store.DB(), match.Defaults{}).Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.FieldCount)
	assert.Equal(t, 1, got.GoalkeeperCount)
	assert.Equal(t, int64(1), got.Version)
}

func TestRunTransaction_RetriesOnVersionConflict(t *testing.T) {
	store, m, teardown := setupTestStore(t)
	defer teardown()

	attempts := 0
	err := store.RunTransaction(context.Background(), "m1", func(tx *aggregate.Tx) error {
		attempts++
		if attempts == 1 {
			// Simulates a concurrent writer committing first.
			_, err := tx.Exec(bumpVersion)
			return err
		}
		_, err := tx.Exec(`INSERT INTO roster_entries (match_id, player_id, position, status, updated_at) VALUES ('m1', 'p1', 'FIELD', 'CONFIRMED', 0)`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, m.TxRetries())
	assert.Equal(t, 0, m.Contention())
}

func TestRunTransaction_SurfacesContentionAfterRetries(t *testing.T) {
	store, m, teardown := setupTestStore(t, aggregate.WithMaxRetries(2))
	defer teardown()

	attempts := 0
	afterCommitCalled := false
	err := store.RunTransaction(context.Background(), "m1", func(tx *aggregate.Tx) error {
		attempts++
		tx.AfterCommit(func() { afterCommitCalled = true })
		_, err := tx.Exec(bumpVersion)
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, match.ErrContention)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, m.Contention())
	assert.False(t, afterCommitCalled, "after-commit callbacks of failed attempts must not run")
}

func TestRunTransaction_FunctionErrorIsNotRetried(t *testing.T) {
	store, m, teardown := setupTestStore(t)
	defer teardown()

	attempts := 0
	err := store.RunTransaction(context.Background(), "m1", func(tx *aggregate.Tx) error {
		attempts++
		_, _ = tx.Exec(`INSERT INTO roster_entries (match_id, player_id, position, status, updated_at) VALUES ('m1', 'p1', 'FIELD', 'CONFIRMED', 0)`)
		return match.ErrMatchFull
	})
	assert.ErrorIs(t, err, match.ErrMatchFull)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 0, m.TxRetries())

	var count int
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM roster_entries").Scan(&count))
	assert.Equal(t, 0, count, "writes of an aborted transaction are rolled back")
}

func TestRunTransaction_UnknownMatch(t *testing.T) {
	store, _, teardown := setupTestStore(t)
	defer teardown()

	called := false
	err := store.RunTransaction(context.Background(), "missing", func(tx *aggregate.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, match.ErrNotFound)
	assert.False(t, called)
}

func TestRunTransaction_HooksRunOnlyAfterWrites(t *testing.T) {
	var hooked []string
	store, _, teardown := setupTestStore(t, aggregate.WithCommitHook(func(ctx context.Context, matchID string) {
		hooked = append(hooked, matchID)
	}))
	defer teardown()
	ctx := context.Background()

	require.NoError(t, store.RunTransaction(ctx, "m1", func(tx *aggregate.Tx) error { return nil }))
	assert.Empty(t, hooked, "read-only transactions do not fire commit hooks")

	order := []string{}
	require.NoError(t, store.RunTransaction(ctx, "m1", func(tx *aggregate.Tx) error {
		tx.AfterCommit(func() { order = append(order, "after") })
		_, err := tx.Exec(`UPDATE matches SET title = 'x' WHERE id = 'm1'`)
		return err
	}))
	assert.Equal(t, []string{"m1"}, hooked)
	assert.Equal(t, []string{"after"}, order)
}

func TestBatchWrite_IsAtomic(t *testing.T) {
	store, _, teardown := setupTestStore(t)
	defer teardown()
	ctx := context.Background()

	err := store.BatchWrite(ctx, "m1",
		aggregate.Op{Query: `INSERT INTO teams (id, match_id, ordinal, name, color) VALUES (?, 'm1', 1, 'Team 1', 'red')`, Args: []any{"t1"}},
		aggregate.Op{Query: `INSERT INTO teams (id, match_id, ordinal, name, color) VALUES (?, 'm1', 2, 'Team 2', 'blue')`, Args: []any{"t1"}},
	)
	require.Error(t, err)

	var count int
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM teams").Scan(&count))
	assert.Equal(t, 0, count)

	err = store.BatchWrite(ctx, "m1",
		aggregate.Op{Query: `INSERT INTO teams (id, match_id, ordinal, name, color) VALUES (?, 'm1', 1, 'Team 1', 'red')`, Args: []any{"t1"}},
		aggregate.Op{Query: `INSERT INTO teams (id, match_id, ordinal, name, color) VALUES (?, 'm1', 2, 'Team 2', 'blue')`, Args: []any{"t2"}},
	)
	require.NoError(t, err)
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM teams").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestRunTransaction_HonoursCancelledContext(t *testing.T) {
	store, _, teardown := setupTestStore(t)
	defer teardown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := store.RunTransaction(ctx, "m1", func(tx *aggregate.Tx) error { return nil })
	assert.True(t, errors.Is(err, context.Canceled))
}
