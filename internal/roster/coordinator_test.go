package roster_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mauv0809/pickup-roster/internal/aggregate"
	"github.com/mauv0809/pickup-roster/internal/auth"
	"github.com/mauv0809/pickup-roster/internal/database"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
	"github.com/mauv0809/pickup-roster/internal/roster"
	"github.com/mauv0809/pickup-roster/internal/waitlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type promoter struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *promoter) PromoteNext(ctx context.Context, matchID string) (*match.WaitlistEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, matchID)
	return nil, p.err
}

type fixture struct {
	coordinator *roster.Coordinator
	queue       *waitlist.Queue
	matches     match.Store
	promoter    *promoter
	metrics     *metrics.Mock
}

func setup(t *testing.T) (*fixture, func()) {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	m := metrics.NewMock()
	store := aggregate.New(db, m, aggregate.WithBaseDelay(time.Millisecond))
	matches := match.New(db, match.Defaults{FieldCapacity: 2, GoalkeeperCapacity: 1, AutoPromoteMinutes: 30})
	_, err = matches.Create(context.Background(), match.CreateParams{ID: "m1", OwnerID: "owner"})
	require.NoError(t, err)

	queue := waitlist.New(store, m)
	p := &promoter{}
	return &fixture{
		coordinator: roster.NewCoordinator(store, queue, p, auth.NewMockPermissions("owner"), m),
		queue:       queue,
		matches:     matches,
		promoter:    p,
		metrics:     m,
	}, teardown
}

func as(playerID string) context.Context {
	return auth.WithPlayerID(context.Background(), playerID)
}

func (f *fixture) confirm(t *testing.T, playerID string, position match.Position) *match.RosterEntry {
	t.Helper()
	entry, err := f.coordinator.Confirm(as(playerID), "m1", playerID, position, false)
	require.NoError(t, err)
	return entry
}

func (f *fixture) confirmed(t *testing.T) map[string]match.Position {
	t.Helper()
	entries, err := f.coordinator.List(context.Background(), "m1")
	require.NoError(t, err)
	out := make(map[string]match.Position)
	for _, e := range entries {
		if e.Status == match.RosterConfirmed {
			out[e.PlayerID] = e.Position
		}
	}
	return out
}

func TestConfirm(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	entry := f.confirm(t, "p1", match.PositionField)
	assert.Equal(t, match.RosterConfirmed, entry.Status)
	assert.Equal(t, match.PaymentPending, entry.PaymentStatus)
	require.NotNil(t, entry.ConfirmedAt)

	again := f.confirm(t, "p1", match.PositionField)
	assert.Equal(t, entry.ConfirmedAt.UnixMilli(), again.ConfirmedAt.UnixMilli())
	assert.Equal(t, 1, f.metrics.Confirmations(metrics.OutcomeConfirmed))
	assert.Equal(t, 1, f.metrics.Confirmations(metrics.OutcomeUnchanged))

	m, err := f.matches.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.FieldCount)
}

func TestConfirm_Full(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.confirm(t, "g1", match.PositionGoalkeeper)
	_, err := f.coordinator.Confirm(as("g2"), "m1", "g2", match.PositionGoalkeeper, false)
	assert.ErrorIs(t, err, match.ErrMatchFull)
	assert.Equal(t, 1, f.metrics.Confirmations(metrics.OutcomeFull))
}

func TestConfirm_Authorization(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	_, err := f.coordinator.Confirm(context.Background(), "m1", "p1", match.PositionField, false)
	assert.ErrorIs(t, err, match.ErrNotAuthenticated)

	_, err = f.coordinator.Confirm(as("p2"), "m1", "p1", match.PositionField, false)
	assert.ErrorIs(t, err, match.ErrNotAuthorized)

	_, err = f.coordinator.Confirm(as("owner"), "m1", "p1", match.PositionField, false)
	assert.NoError(t, err)
}

func TestConfirm_ClosedMatch(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.confirm(t, "p1", match.PositionField)
	require.NoError(t, f.matches.UpdateStatus(context.Background(), "m1", match.StatusConfirmed))

	_, err := f.coordinator.Confirm(as("p2"), "m1", "p2", match.PositionField, false)
	assert.ErrorIs(t, err, match.ErrConfirmationsClosed)

	// Confirmed players can still switch position.
	moved, err := f.coordinator.Confirm(as("p1"), "m1", "p1", match.PositionGoalkeeper, false)
	require.NoError(t, err)
	assert.Equal(t, match.PositionGoalkeeper, moved.Position)
}

func TestConfirm_PositionChangeNeedsRoom(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.confirm(t, "g1", match.PositionGoalkeeper)
	f.confirm(t, "p1", match.PositionField)

	_, err := f.coordinator.Confirm(as("p1"), "m1", "p1", match.PositionGoalkeeper, false)
	assert.ErrorIs(t, err, match.ErrMatchFull)
	assert.Equal(t, match.PositionField, f.confirmed(t)["p1"])
}

func TestConfirm_ConcurrentNeverExceedsCapacity(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	const players = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := range players {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("p%d", i)
			_, err := f.coordinator.Confirm(as(id), "m1", id, match.PositionField, false)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, match.ErrMatchFull)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, accepted)
	assert.Len(t, f.confirmed(t), 2)
}

func TestJoin_OverflowsToWaitlist(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.confirm(t, "p1", match.PositionField)
	f.confirm(t, "p2", match.PositionField)

	res, err := f.coordinator.Join(as("p3"), "m1", "p3", match.PositionField, false)
	require.NoError(t, err)
	assert.Nil(t, res.Roster)
	require.NotNil(t, res.Waitlist)
	assert.Equal(t, 1, res.Waitlist.QueuePosition)

	again, err := f.coordinator.Join(as("p3"), "m1", "p3", match.PositionField, false)
	require.NoError(t, err)
	require.NotNil(t, again.Waitlist)
	assert.Equal(t, res.Waitlist.ID, again.Waitlist.ID)

	m, err := f.matches.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.WaitingCount)
	assert.Equal(t, 2, f.metrics.Confirmations(metrics.OutcomeWaitlisted))
}

func TestJoin_PositionSwitchToFullPositionKeepsSlot(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.confirm(t, "g1", match.PositionGoalkeeper)
	f.confirm(t, "p1", match.PositionField)

	res, err := f.coordinator.Join(as("p1"), "m1", "p1", match.PositionGoalkeeper, false)
	assert.ErrorIs(t, err, match.ErrMatchFull)
	assert.Nil(t, res)
	assert.Equal(t, match.PositionField, f.confirmed(t)["p1"])

	entries, err := f.queue.List(context.Background(), "m1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConfirm_LeavesWaitlist(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.confirm(t, "p1", match.PositionField)
	f.confirm(t, "p2", match.PositionField)
	_, err := f.queue.Add(context.Background(), "m1", "p3", match.PositionField)
	require.NoError(t, err)
	_, err = f.coordinator.Cancel(as("p1"), "m1", "p1")
	require.NoError(t, err)
	f.confirm(t, "p3", match.PositionField)

	entries, err := f.queue.List(context.Background(), "m1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCancel(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.confirm(t, "p1", match.PositionField)

	removed, err := f.coordinator.Cancel(as("p1"), "m1", "p1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, f.confirmed(t))
	assert.Equal(t, []string{"m1"}, f.promoter.calls)

	removed, err = f.coordinator.Cancel(as("p1"), "m1", "p1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, f.promoter.calls, 1, "no promotion without a freed slot")
}

func TestCancel_PromotionFailureIsSwallowed(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.confirm(t, "p1", match.PositionField)
	f.promoter.err = match.ErrContention

	removed, err := f.coordinator.Cancel(as("p1"), "m1", "p1")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestCancel_KeepsPaymentOnRejoin(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.confirm(t, "p1", match.PositionField)
	_, err := f.coordinator.UpdatePaymentStatus(as("owner"), "m1", "p1", match.PaymentPaid)
	require.NoError(t, err)
	_, err = f.coordinator.Cancel(as("p1"), "m1", "p1")
	require.NoError(t, err)

	entry := f.confirm(t, "p1", match.PositionField)
	assert.Equal(t, match.PaymentPaid, entry.PaymentStatus)
}

func TestRemovePlayer(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.confirm(t, "p1", match.PositionField)
	f.confirm(t, "p2", match.PositionField)
	_, err := f.queue.Add(context.Background(), "m1", "w1", match.PositionField)
	require.NoError(t, err)

	_, err = f.coordinator.RemovePlayer(as("p1"), "m1", "p1")
	assert.ErrorIs(t, err, match.ErrNotAuthorized)

	removed, err := f.coordinator.RemovePlayer(as("owner"), "m1", "p1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"m1"}, f.promoter.calls)

	removed, err = f.coordinator.RemovePlayer(as("owner"), "m1", "w1")
	require.NoError(t, err)
	assert.False(t, removed)
	history, err := f.queue.History(context.Background(), "m1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUpdatePaymentStatus(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.confirm(t, "p1", match.PositionField)

	_, err := f.coordinator.UpdatePaymentStatus(as("p1"), "m1", "p1", match.PaymentPaid)
	assert.ErrorIs(t, err, match.ErrNotAuthorized)

	_, err = f.coordinator.UpdatePaymentStatus(as("owner"), "m1", "p1", "REFUNDED")
	assert.ErrorIs(t, err, match.ErrInvalidInput)

	_, err = f.coordinator.UpdatePaymentStatus(as("owner"), "m1", "nobody", match.PaymentPaid)
	assert.ErrorIs(t, err, match.ErrNotFound)

	entry, err := f.coordinator.UpdatePaymentStatus(as("owner"), "m1", "p1", match.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, match.PaymentPaid, entry.PaymentStatus)
}

func TestSummonAndAccept(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	f.confirm(t, "p1", match.PositionField)

	invited, err := f.coordinator.SummonPlayers(as("owner"), "m1", []string{"p1", "p2", "p3"}, match.PositionField)
	require.NoError(t, err)
	require.Len(t, invited, 2)
	assert.Equal(t, match.RosterPending, invited[0].Status)
	assert.Len(t, f.confirmed(t), 1, "invitations do not take slots")

	entry, err := f.coordinator.AcceptInvitation(as("p2"), "m1", "p2")
	require.NoError(t, err)
	assert.Equal(t, match.RosterConfirmed, entry.Status)

	_, err = f.coordinator.AcceptInvitation(as("p3"), "m1", "p3")
	assert.ErrorIs(t, err, match.ErrMatchFull)

	_, err = f.coordinator.AcceptInvitation(as("p4"), "m1", "p4")
	assert.ErrorIs(t, err, match.ErrNotFound)
}

func TestSummon_RequiresManager(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	_, err := f.coordinator.SummonPlayers(as("p1"), "m1", []string{"p2"}, match.PositionField)
	assert.ErrorIs(t, err, match.ErrNotAuthorized)
}

func TestConfirm_UnknownMatch(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	_, err := f.coordinator.Confirm(as("p1"), "nope", "p1", match.PositionField, false)
	assert.ErrorIs(t, err, match.ErrNotFound)
}
