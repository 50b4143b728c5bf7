package waitlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/aggregate"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
)

const columns = `id, match_id, player_id, position, queue_position, status, added_at, notified_at, response_deadline`

// Queue keeps one FIFO waitlist per match. Active entries (WAITING or
// NOTIFIED) always hold queue positions 1..N. The ...Tx methods run inside a
// caller's match transaction; the others open their own.
type Queue struct {
	store   *aggregate.Store
	metrics metrics.Metrics
}

func New(store *aggregate.Store, m metrics.Metrics) *Queue {
	return &Queue{store: store, metrics: m}
}

// Add enqueues the player. An existing active entry is returned together
// with match.ErrAlreadyWaiting.
func (q *Queue) Add(ctx context.Context, matchID, playerID string, position match.Position) (*match.WaitlistEntry, error) {
	var entry *match.WaitlistEntry
	err := q.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		var err error
		entry, err = q.AddTx(tx, playerID, position)
		return err
	})
	if err != nil && !errors.Is(err, match.ErrAlreadyWaiting) {
		return nil, err
	}
	return entry, err
}

// AddTx appends the player to the queue. When the player already holds an
// active entry it is returned together with match.ErrAlreadyWaiting. A
// position with a free slot is refused with match.ErrSlotAvailable.
func (q *Queue) AddTx(tx *aggregate.Tx, playerID string, position match.Position) (*match.WaitlistEntry, error) {
	if tx.Match.Status != match.StatusScheduled {
		return nil, fmt.Errorf("match %s is %s: %w", tx.Match.ID, tx.Match.Status, match.ErrConfirmationsClosed)
	}
	existing, err := q.ActiveEntryTx(tx, playerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, match.ErrAlreadyWaiting
	}

	var confirmed bool
	err = tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM roster_entries WHERE match_id = ? AND player_id = ? AND status = ?)`,
		tx.Match.ID, playerID, match.RosterConfirmed).Scan(&confirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to check roster for %s: %w", playerID, err)
	}
	if confirmed {
		return nil, fmt.Errorf("%s in match %s: %w", playerID, tx.Match.ID, match.ErrAlreadyConfirmed)
	}

	var taken int
	err = tx.QueryRow(`SELECT COUNT(*) FROM roster_entries WHERE match_id = ? AND status = ? AND position = ?`,
		tx.Match.ID, match.RosterConfirmed, position).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("failed to count confirmed %s players: %w", position, err)
	}
	if taken < tx.Match.Capacity(position) {
		return nil, fmt.Errorf("%s slots in match %s: %w", position, tx.Match.ID, match.ErrSlotAvailable)
	}

	var active int
	err = tx.QueryRow(`SELECT COUNT(*) FROM waitlist_entries WHERE match_id = ? AND status IN (?, ?)`,
		tx.Match.ID, match.WaitlistWaiting, match.WaitlistNotified).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("failed to count waitlist: %w", err)
	}

	entry := &match.WaitlistEntry{
		MatchID:       tx.Match.ID,
		PlayerID:      playerID,
		Position:      position,
		QueuePosition: active + 1,
		Status:        match.WaitlistWaiting,
		AddedAt:       match.FromMillis(match.Millis(tx.Now())),
	}
	res, err := tx.Exec(`
		INSERT INTO waitlist_entries (match_id, player_id, position, queue_position, status, added_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.MatchID, entry.PlayerID, entry.Position, entry.QueuePosition, entry.Status, match.Millis(entry.AddedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to add %s to waitlist: %w", playerID, err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read waitlist entry id: %w", err)
	}

	tx.AfterCommit(func() {
		q.metrics.IncWaitlistAdds()
		log.Info("Player added to waitlist", "matchID", entry.MatchID, "playerID", playerID, "queuePosition", entry.QueuePosition)
	})
	return entry, nil
}

// Remove deletes every entry of the player, terminal ones included, and
// reports whether an active entry was among them.
func (q *Queue) Remove(ctx context.Context, matchID, playerID string) (bool, error) {
	var removed bool
	err := q.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		var err error
		removed, err = q.RemoveTx(tx, playerID)
		return err
	})
	return removed, err
}

func (q *Queue) RemoveTx(tx *aggregate.Tx, playerID string) (bool, error) {
	active, err := q.ActiveEntryTx(tx, playerID)
	if err != nil {
		return false, err
	}
	if _, err := tx.Exec(`DELETE FROM waitlist_entries WHERE match_id = ? AND player_id = ?`, tx.Match.ID, playerID); err != nil {
		return false, fmt.Errorf("failed to remove %s from waitlist: %w", playerID, err)
	}
	if active == nil {
		return false, nil
	}
	return true, q.ReorderTx(tx)
}

// Leave cancels the player's active entry, keeping it as history.
func (q *Queue) Leave(ctx context.Context, matchID, playerID string) (*match.WaitlistEntry, error) {
	var entry *match.WaitlistEntry
	err := q.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		var err error
		entry, err = q.LeaveTx(tx, playerID)
		return err
	})
	return entry, err
}

func (q *Queue) LeaveTx(tx *aggregate.Tx, playerID string) (*match.WaitlistEntry, error) {
	entry, err := q.ActiveEntryTx(tx, playerID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("waitlist entry for %s in match %s: %w", playerID, tx.Match.ID, match.ErrNotFound)
	}
	if err := q.transition(tx, entry, match.WaitlistCancelled); err != nil {
		return nil, err
	}
	return entry, q.ReorderTx(tx)
}

// PromoteNext marks the head of the queue PROMOTED. It does not touch the
// roster; the caller completes admission. Returns nil when the queue is empty.
func (q *Queue) PromoteNext(ctx context.Context, matchID string) (*match.WaitlistEntry, error) {
	var entry *match.WaitlistEntry
	err := q.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		var err error
		entry, err = q.PromoteNextTx(tx)
		return err
	})
	return entry, err
}

func (q *Queue) PromoteNextTx(tx *aggregate.Tx) (*match.WaitlistEntry, error) {
	entries, err := q.ActiveEntriesTx(tx)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	head := entries[0]
	return &head, q.PromoteTx(tx, &head)
}

// PromoteTx marks a specific active entry PROMOTED and closes the gap it leaves.
func (q *Queue) PromoteTx(tx *aggregate.Tx, entry *match.WaitlistEntry) error {
	if err := q.transition(tx, entry, match.WaitlistPromoted); err != nil {
		return err
	}
	return q.ReorderTx(tx)
}

// NotifyNext offers the slot to the first WAITING entry. Only one entry per
// match is NOTIFIED at a time, so nil is returned while an offer is outstanding
// or when nobody is waiting.
func (q *Queue) NotifyNext(ctx context.Context, matchID string, autoPromoteMinutes int) (*match.WaitlistEntry, error) {
	var entry *match.WaitlistEntry
	err := q.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		var err error
		entry, err = q.NotifyNextTx(tx, time.Duration(autoPromoteMinutes)*time.Minute)
		return err
	})
	return entry, err
}

func (q *Queue) NotifyNextTx(tx *aggregate.Tx, timeout time.Duration) (*match.WaitlistEntry, error) {
	entries, err := q.ActiveEntriesTx(tx)
	if err != nil {
		return nil, err
	}
	var next *match.WaitlistEntry
	for i := range entries {
		switch entries[i].Status {
		case match.WaitlistNotified:
			return nil, nil
		case match.WaitlistWaiting:
			if next == nil {
				next = &entries[i]
			}
		}
	}
	if next == nil {
		return nil, nil
	}

	now := match.FromMillis(match.Millis(tx.Now()))
	deadline := now.Add(timeout)
	_, err = tx.Exec(`UPDATE waitlist_entries SET status = ?, notified_at = ?, response_deadline = ? WHERE id = ?`,
		match.WaitlistNotified, match.Millis(now), match.Millis(deadline), next.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to notify waitlist entry %d: %w", next.ID, err)
	}
	next.Status = match.WaitlistNotified
	next.NotifiedAt = &now
	next.ResponseDeadline = &deadline
	return next, nil
}

// ExpireTx moves a NOTIFIED entry past its deadline to EXPIRED. It returns
// false when the entry is no longer eligible, which makes repeated sweeps no-ops.
func (q *Queue) ExpireTx(tx *aggregate.Tx, entryID int64) (bool, error) {
	res, err := tx.Exec(`UPDATE waitlist_entries SET status = ? WHERE id = ? AND match_id = ? AND status = ? AND response_deadline < ?`,
		match.WaitlistExpired, entryID, tx.Match.ID, match.WaitlistNotified, match.Millis(tx.Now()))
	if err != nil {
		return false, fmt.Errorf("failed to expire waitlist entry %d: %w", entryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	return true, q.ReorderTx(tx)
}

// Reorder reassigns positions 1..N to active entries in insertion order.
func (q *Queue) Reorder(ctx context.Context, matchID string) error {
	return q.store.RunTransaction(ctx, matchID, q.ReorderTx)
}

func (q *Queue) ReorderTx(tx *aggregate.Tx) error {
	rows, err := tx.Query(`SELECT id, queue_position FROM waitlist_entries WHERE match_id = ? AND status IN (?, ?) ORDER BY added_at, id`,
		tx.Match.ID, match.WaitlistWaiting, match.WaitlistNotified)
	if err != nil {
		return fmt.Errorf("failed to read waitlist for reorder: %w", err)
	}
	type slot struct {
		id       int64
		position int
	}
	var slots []slot
	for rows.Next() {
		var s slot
		if err := rows.Scan(&s.id, &s.position); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		slots = append(slots, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for i, s := range slots {
		if s.position == i+1 {
			continue
		}
		if _, err := tx.Exec(`UPDATE waitlist_entries SET queue_position = ? WHERE id = ?`, i+1, s.id); err != nil {
			return fmt.Errorf("failed to reorder waitlist entry %d: %w", s.id, err)
		}
	}
	return nil
}

// ActiveEntryTx returns the player's WAITING or NOTIFIED entry, or nil.
func (q *Queue) ActiveEntryTx(tx *aggregate.Tx, playerID string) (*match.WaitlistEntry, error) {
	entry, err := scanEntry(tx.QueryRow(`SELECT `+columns+` FROM waitlist_entries WHERE match_id = ? AND player_id = ? AND status IN (?, ?)`,
		tx.Match.ID, playerID, match.WaitlistWaiting, match.WaitlistNotified))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read waitlist entry for %s: %w", playerID, err)
	}
	return entry, nil
}

// ActiveEntriesTx lists active entries by queue position.
func (q *Queue) ActiveEntriesTx(tx *aggregate.Tx) ([]match.WaitlistEntry, error) {
	rows, err := tx.Query(`SELECT `+columns+` FROM waitlist_entries WHERE match_id = ? AND status IN (?, ?) ORDER BY queue_position`,
		tx.Match.ID, match.WaitlistWaiting, match.WaitlistNotified)
	if err != nil {
		return nil, fmt.Errorf("failed to read waitlist: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// List returns the active queue without a transaction.
func (q *Queue) List(ctx context.Context, matchID string) ([]match.WaitlistEntry, error) {
	rows, err := q.store.DB().QueryContext(ctx, `SELECT `+columns+` FROM waitlist_entries WHERE match_id = ? AND status IN (?, ?) ORDER BY queue_position`,
		matchID, match.WaitlistWaiting, match.WaitlistNotified)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist for %s: %w", matchID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// History returns every entry of the match, terminal ones included, oldest first.
func (q *Queue) History(ctx context.Context, matchID string) ([]match.WaitlistEntry, error) {
	rows, err := q.store.DB().QueryContext(ctx, `SELECT `+columns+` FROM waitlist_entries WHERE match_id = ? ORDER BY added_at, id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to read waitlist history for %s: %w", matchID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Position returns the player's active entry.
func (q *Queue) Position(ctx context.Context, matchID, playerID string) (*match.WaitlistEntry, error) {
	entry, err := scanEntry(q.store.DB().QueryRowContext(ctx, `SELECT `+columns+` FROM waitlist_entries WHERE match_id = ? AND player_id = ? AND status IN (?, ?)`,
		matchID, playerID, match.WaitlistWaiting, match.WaitlistNotified))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("waitlist entry for %s in match %s: %w", playerID, matchID, match.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read waitlist position: %w", err)
	}
	return entry, nil
}

// DueForExpiry returns NOTIFIED entries, across all matches, whose deadline is before now.
func (q *Queue) DueForExpiry(ctx context.Context, now time.Time) ([]match.WaitlistEntry, error) {
	rows, err := q.store.DB().QueryContext(ctx, `SELECT `+columns+` FROM waitlist_entries WHERE status = ? AND response_deadline < ? ORDER BY match_id, response_deadline`,
		match.WaitlistNotified, match.Millis(now))
	if err != nil {
		return nil, fmt.Errorf("failed to query expired notifications: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (q *Queue) transition(tx *aggregate.Tx, entry *match.WaitlistEntry, to match.WaitlistStatus) error {
	res, err := tx.Exec(`UPDATE waitlist_entries SET status = ? WHERE id = ? AND status IN (?, ?)`,
		to, entry.ID, match.WaitlistWaiting, match.WaitlistNotified)
	if err != nil {
		return fmt.Errorf("failed to move waitlist entry %d to %s: %w", entry.ID, to, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("active waitlist entry %d: %w", entry.ID, match.ErrNotFound)
	}
	entry.Status = to
	return nil
}

func scanEntry(row match.Scanner) (*match.WaitlistEntry, error) {
	var (
		e                    match.WaitlistEntry
		addedAt              int64
		notifiedAt, deadline sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.MatchID, &e.PlayerID, &e.Position, &e.QueuePosition, &e.Status, &addedAt, &notifiedAt, &deadline); err != nil {
		return nil, err
	}
	e.AddedAt = match.FromMillis(addedAt)
	e.NotifiedAt = match.FromNullMillis(notifiedAt)
	e.ResponseDeadline = match.FromNullMillis(deadline)
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]match.WaitlistEntry, error) {
	entries := []match.WaitlistEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
