package waitlist_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mauv0809/pickup-roster/internal/aggregate"
	"github.com/mauv0809/pickup-roster/internal/database"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
	"github.com/mauv0809/pickup-roster/internal/waitlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Distinct timestamps keep insertion order observable.
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	queue   *waitlist.Queue
	store   *aggregate.Store
	matches match.Store
	clock   *clock
	metrics *metrics.Mock
}

func setup(t *testing.T) (*fixture, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	c := &clock{now: time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)}
	m := metrics.NewMock()
	store := aggregate.New(db, m, aggregate.WithClock(c.Now), aggregate.WithBaseDelay(time.Millisecond))
	matches := match.New(db, match.Defaults{FieldCapacity: 2, GoalkeeperCapacity: 1, AutoPromoteMinutes: 30})
	_, err = matches.Create(context.Background(), match.CreateParams{ID: "m1", OwnerID: "owner"})
	require.NoError(t, err)

	f := &fixture{queue: waitlist.New(store, m), store: store, matches: matches, clock: c, metrics: m}
	// Only full positions take waitlist entries.
	f.seat(t, match.PositionField, "f1", "f2")
	f.seat(t, match.PositionGoalkeeper, "g1")
	return f, dbTeardown
}

func (f *fixture) seat(t *testing.T, position match.Position, players ...string) {
	t.Helper()
	ops := make([]aggregate.Op, 0, len(players))
	for _, p := range players {
		ops = append(ops, aggregate.Op{
			Query: `INSERT INTO roster_entries (match_id, player_id, position, status, updated_at) VALUES ('m1', ?, ?, 'CONFIRMED', 0)`,
			Args:  []any{p, position},
		})
	}
	require.NoError(t, f.store.BatchWrite(context.Background(), "m1", ops...))
}

func (f *fixture) add(t *testing.T, players ...string) {
	t.Helper()
	for _, p := range players {
		_, err := f.queue.Add(context.Background(), "m1", p, match.PositionField)
		require.NoError(t, err)
	}
}

func positions(t *testing.T, q *waitlist.Queue) map[string]int {
	t.Helper()
	entries, err := q.List(context.Background(), "m1")
	require.NoError(t, err)
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[e.PlayerID] = e.QueuePosition
	}
	return out
}

func assertContiguous(t *testing.T, q *waitlist.Queue) {
	t.Helper()
	entries, err := q.List(context.Background(), "m1")
	require.NoError(t, err)
	for i, e := range entries {
		assert.Equal(t, i+1, e.QueuePosition, "entry %s", e.PlayerID)
	}
}

func TestAdd_AssignsTailPosition(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.add(t, "a", "b", "c")
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, positions(t, f.queue))
	assert.Equal(t, 3, f.metrics.WaitlistAdds())

	m, err := f.matches.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 3, m.WaitingCount)
}

func TestAdd_DuplicateReturnsExistingEntry(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	first, err := f.queue.Add(ctx, "m1", "a", match.PositionGoalkeeper)
	require.NoError(t, err)

	again, err := f.queue.Add(ctx, "m1", "a", match.PositionField)
	assert.ErrorIs(t, err, match.ErrAlreadyWaiting)
	require.NotNil(t, again)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, match.PositionGoalkeeper, again.Position)
	assert.Len(t, positions(t, f.queue), 1)
}

func TestAdd_RejectsConfirmedPlayer(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, f.store.BatchWrite(ctx, "m1", aggregate.Op{
		Query: `INSERT INTO roster_entries (match_id, player_id, position, status, updated_at) VALUES ('m1', 'a', 'FIELD', 'CONFIRMED', 0)`,
	}))

	_, err := f.queue.Add(ctx, "m1", "a", match.PositionField)
	assert.ErrorIs(t, err, match.ErrAlreadyConfirmed)
}

func TestAdd_RefusesPositionWithFreeSlot(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, f.store.BatchWrite(ctx, "m1", aggregate.Op{
		Query: `DELETE FROM roster_entries WHERE match_id = 'm1' AND player_id = 'f1'`,
	}))

	entry, err := f.queue.Add(ctx, "m1", "a", match.PositionField)
	assert.ErrorIs(t, err, match.ErrSlotAvailable)
	assert.Nil(t, entry)
	assert.Empty(t, positions(t, f.queue))
	assert.Equal(t, 0, f.metrics.WaitlistAdds())

	// The goalkeeper slot is still taken.
	_, err = f.queue.Add(ctx, "m1", "b", match.PositionGoalkeeper)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"b": 1}, positions(t, f.queue))
}

func TestAdd_RejectsClosedMatch(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, f.matches.UpdateStatus(ctx, "m1", match.StatusConfirmed))
	_, err := f.queue.Add(ctx, "m1", "a", match.PositionField)
	assert.ErrorIs(t, err, match.ErrConfirmationsClosed)
}

func TestAdd_ConcurrentCallsGetDistinctPositions(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.queue.Add(context.Background(), "m1", fmt.Sprintf("p%02d", i), match.PositionField)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := positions(t, f.queue)
	assert.Len(t, got, n)
	seen := make(map[int]bool)
	for _, pos := range got {
		assert.False(t, seen[pos], "duplicate position %d", pos)
		seen[pos] = true
		assert.True(t, pos >= 1 && pos <= n)
	}
}

func TestPromoteNext_PicksHeadAndRenumbers(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.add(t, "a", "b", "c")

	promoted, err := f.queue.PromoteNext(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, promoted)
	assert.Equal(t, "a", promoted.PlayerID)
	assert.Equal(t, match.WaitlistPromoted, promoted.Status)
	assert.Equal(t, map[string]int{"b": 1, "c": 2}, positions(t, f.queue))
}

func TestPromoteNext_EmptyQueue(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	promoted, err := f.queue.PromoteNext(context.Background(), "m1")
	require.NoError(t, err)
	assert.Nil(t, promoted)
}

func TestRemove_DeletesAllEntriesAndReorders(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	f.add(t, "a", "b", "c")
	removed, err := f.queue.Remove(ctx, "m1", "b")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, map[string]int{"a": 1, "c": 2}, positions(t, f.queue))

	_, err = f.queue.PromoteNext(ctx, "m1")
	require.NoError(t, err)
	removed, err = f.queue.Remove(ctx, "m1", "a")
	require.NoError(t, err)
	assert.False(t, removed, "only a terminal entry was left for a")

	history, err := f.queue.History(ctx, "m1")
	require.NoError(t, err)
	for _, e := range history {
		assert.NotEqual(t, "a", e.PlayerID)
		assert.NotEqual(t, "b", e.PlayerID)
	}
}

func TestLeave_CancelsAndKeepsHistory(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	f.add(t, "a", "b")
	left, err := f.queue.Leave(ctx, "m1", "a")
	require.NoError(t, err)
	assert.Equal(t, match.WaitlistCancelled, left.Status)
	assert.Equal(t, map[string]int{"b": 1}, positions(t, f.queue))

	_, err = f.queue.Leave(ctx, "m1", "a")
	assert.ErrorIs(t, err, match.ErrNotFound)

	history, err := f.queue.History(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, match.WaitlistCancelled, history[0].Status)
	assert.Equal(t, 1, history[0].QueuePosition, "terminal entries keep their last position")
}

func TestAdd_AfterTerminalEntryStartsAtTail(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	f.add(t, "a", "b")
	_, err := f.queue.Leave(ctx, "m1", "a")
	require.NoError(t, err)
	f.add(t, "a")

	assert.Equal(t, map[string]int{"b": 1, "a": 2}, positions(t, f.queue))
}

func TestNotifyNext_OneOutstandingOfferPerMatch(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	f.add(t, "a", "b")
	notified, err := f.queue.NotifyNext(ctx, "m1", 15)
	require.NoError(t, err)
	require.NotNil(t, notified)
	assert.Equal(t, "a", notified.PlayerID)
	assert.Equal(t, match.WaitlistNotified, notified.Status)
	require.NotNil(t, notified.NotifiedAt)
	require.NotNil(t, notified.ResponseDeadline)
	assert.Equal(t, 15*time.Minute, notified.ResponseDeadline.Sub(*notified.NotifiedAt))

	again, err := f.queue.NotifyNext(ctx, "m1", 15)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestExpire_IsIdempotentAndRespectsDeadline(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	f.add(t, "a", "b")
	notified, err := f.queue.NotifyNext(ctx, "m1", 10)
	require.NoError(t, err)

	expire := func() bool {
		var expired bool
		require.NoError(t, f.store.RunTransaction(ctx, "m1", func(tx *aggregate.Tx) error {
			var err error
			expired, err = f.queue.ExpireTx(tx, notified.ID)
			return err
		}))
		return expired
	}

	assert.False(t, expire(), "deadline not reached")

	due, err := f.queue.DueForExpiry(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Empty(t, due)

	f.clock.Advance(11 * time.Minute)
	due, err = f.queue.DueForExpiry(ctx, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].PlayerID)

	assert.True(t, expire())
	assert.False(t, expire(), "second expiry is a no-op")
	assert.Equal(t, map[string]int{"b": 1}, positions(t, f.queue))
}

func TestReorder_RepairsGapsAndIsIdempotent(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	f.add(t, "a", "b", "c")
	require.NoError(t, f.store.BatchWrite(ctx, "m1",
		aggregate.Op{Query: `UPDATE waitlist_entries SET queue_position = 7 WHERE player_id = 'a'`},
		aggregate.Op{Query: `UPDATE waitlist_entries SET queue_position = 7 WHERE player_id = 'c'`},
	))

	require.NoError(t, f.queue.Reorder(ctx, "m1"))
	first := positions(t, f.queue)
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, first)

	require.NoError(t, f.queue.Reorder(ctx, "m1"))
	assert.Equal(t, first, positions(t, f.queue))
	assertContiguous(t, f.queue)
}

func TestPosition(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	f.add(t, "a", "b")
	e, err := f.queue.Position(ctx, "m1", "b")
	require.NoError(t, err)
	assert.Equal(t, 2, e.QueuePosition)

	_, err = f.queue.Position(ctx, "m1", "zed")
	assert.ErrorIs(t, err, match.ErrNotFound)
}
