package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mauv0809/pickup-roster/internal/aggregate"
	"github.com/mauv0809/pickup-roster/internal/match"
)

const columns = `match_id, player_id, position, status, payment_status, casual, confirmed_at, updated_at`

// Outcome tells how an admission changed the roster.
type Outcome int

const (
	// Unchanged means the player was already confirmed in that position.
	Unchanged Outcome = iota
	Admitted
	Moved
)

// Admit confirms the player in position under the capacity check. New
// confirmations need a SCHEDULED match; a confirmed player may still switch
// position while the match is CONFIRMED.
func Admit(tx *aggregate.Tx, playerID string, position match.Position, casual bool) (*match.RosterEntry, Outcome, error) {
	return admit(tx, playerID, position, casual, false)
}

// Promote confirms a waitlisted player. Unlike Admit it also refills a slot
// freed after the list was closed, as long as the match is still live.
func Promote(tx *aggregate.Tx, playerID string, position match.Position) (*match.RosterEntry, error) {
	entry, _, err := admit(tx, playerID, position, false, true)
	return entry, err
}

func admit(tx *aggregate.Tx, playerID string, position match.Position, casual, promotion bool) (*match.RosterEntry, Outcome, error) {
	existing, err := Get(tx, playerID)
	if err != nil {
		return nil, Unchanged, err
	}

	if existing != nil && existing.Status == match.RosterConfirmed {
		if existing.Position == position {
			return existing, Unchanged, nil
		}
		if !tx.Match.Status.Live() {
			return nil, Unchanged, fmt.Errorf("match %s is %s: %w", tx.Match.ID, tx.Match.Status, match.ErrConfirmationsClosed)
		}
		if err := checkCapacity(tx, position); err != nil {
			return nil, Unchanged, err
		}
		existing.Position = position
		existing.UpdatedAt = tx.Now()
		if _, err := tx.Exec(`UPDATE roster_entries SET position = ?, updated_at = ? WHERE match_id = ? AND player_id = ?`,
			position, match.Millis(existing.UpdatedAt), tx.Match.ID, playerID); err != nil {
			return nil, Unchanged, fmt.Errorf("failed to move %s to %s: %w", playerID, position, err)
		}
		return existing, Moved, nil
	}

	open := tx.Match.Status == match.StatusScheduled || (promotion && tx.Match.Status.Live())
	if !open {
		return nil, Unchanged, fmt.Errorf("match %s is %s: %w", tx.Match.ID, tx.Match.Status, match.ErrConfirmationsClosed)
	}
	if err := checkCapacity(tx, position); err != nil {
		return nil, Unchanged, err
	}

	now := match.FromMillis(match.Millis(tx.Now()))
	entry := &match.RosterEntry{
		MatchID:       tx.Match.ID,
		PlayerID:      playerID,
		Position:      position,
		Status:        match.RosterConfirmed,
		PaymentStatus: match.PaymentPending,
		Casual:        casual,
		ConfirmedAt:   &now,
		UpdatedAt:     now,
	}
	if existing != nil {
		entry.PaymentStatus = existing.PaymentStatus
	}
	if err := upsert(tx, entry); err != nil {
		return nil, Unchanged, err
	}
	return entry, Admitted, nil
}

// Invite creates a PENDING entry. PENDING entries do not hold a slot.
func Invite(tx *aggregate.Tx, playerID string, position match.Position) (*match.RosterEntry, error) {
	now := match.FromMillis(match.Millis(tx.Now()))
	entry := &match.RosterEntry{
		MatchID:       tx.Match.ID,
		PlayerID:      playerID,
		Position:      position,
		Status:        match.RosterPending,
		PaymentStatus: match.PaymentPending,
		UpdatedAt:     now,
	}
	return entry, upsert(tx, entry)
}

// Release marks the player's entry CANCELLED and reports whether it held a
// confirmed slot.
func Release(tx *aggregate.Tx, playerID string) (*match.RosterEntry, bool, error) {
	existing, err := Get(tx, playerID)
	if err != nil || existing == nil || existing.Status == match.RosterCancelled {
		return existing, false, err
	}
	wasConfirmed := existing.Status == match.RosterConfirmed
	existing.Status = match.RosterCancelled
	existing.UpdatedAt = tx.Now()
	if _, err := tx.Exec(`UPDATE roster_entries SET status = ?, updated_at = ? WHERE match_id = ? AND player_id = ?`,
		match.RosterCancelled, match.Millis(existing.UpdatedAt), tx.Match.ID, playerID); err != nil {
		return nil, false, fmt.Errorf("failed to cancel %s: %w", playerID, err)
	}
	return existing, wasConfirmed, nil
}

// Delete removes the player's entry entirely and reports whether it held a confirmed slot.
func Delete(tx *aggregate.Tx, playerID string) (bool, error) {
	existing, err := Get(tx, playerID)
	if err != nil || existing == nil {
		return false, err
	}
	if _, err := tx.Exec(`DELETE FROM roster_entries WHERE match_id = ? AND player_id = ?`, tx.Match.ID, playerID); err != nil {
		return false, fmt.Errorf("failed to delete roster entry for %s: %w", playerID, err)
	}
	return existing.Status == match.RosterConfirmed, nil
}

// Get returns the player's entry in any status, or nil.
func Get(tx *aggregate.Tx, playerID string) (*match.RosterEntry, error) {
	entry, err := scanEntry(tx.QueryRow(`SELECT `+columns+` FROM roster_entries WHERE match_id = ? AND player_id = ?`, tx.Match.ID, playerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read roster entry for %s: %w", playerID, err)
	}
	return entry, nil
}

// CountConfirmed reads the authoritative count, not the denormalized counter.
func CountConfirmed(tx *aggregate.Tx, position match.Position) (int, error) {
	var n int
	err := tx.QueryRow(`SELECT COUNT(*) FROM roster_entries WHERE match_id = ? AND status = ? AND position = ?`,
		tx.Match.ID, match.RosterConfirmed, position).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmed %s players: %w", position, err)
	}
	return n, nil
}

// HasRoom reports whether position has a free confirmed slot.
func HasRoom(tx *aggregate.Tx, position match.Position) (bool, error) {
	n, err := CountConfirmed(tx, position)
	if err != nil {
		return false, err
	}
	return n < tx.Match.Capacity(position), nil
}

// ConfirmedTx lists CONFIRMED entries ordered by confirmation time.
func ConfirmedTx(tx *aggregate.Tx) ([]match.RosterEntry, error) {
	rows, err := tx.Query(`SELECT `+columns+` FROM roster_entries WHERE match_id = ? AND status = ? ORDER BY confirmed_at, player_id`,
		tx.Match.ID, match.RosterConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// List reads all entries of a match outside a transaction.
func List(ctx context.Context, db *sql.DB, matchID string) ([]match.RosterEntry, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+columns+` FROM roster_entries WHERE match_id = ? ORDER BY status, confirmed_at, player_id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster for %s: %w", matchID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func checkCapacity(tx *aggregate.Tx, position match.Position) error {
	ok, err := HasRoom(tx, position)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s slots in match %s: %w", position, tx.Match.ID, match.ErrMatchFull)
	}
	return nil
}

func upsert(tx *aggregate.Tx, e *match.RosterEntry) error {
	_, err := tx.Exec(`
		INSERT INTO roster_entries (match_id, player_id, position, status, payment_status, casual, confirmed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(match_id, player_id) DO UPDATE SET
			position = excluded.position,
			status = excluded.status,
			payment_status = excluded.payment_status,
			casual = excluded.casual,
			confirmed_at = excluded.confirmed_at,
			updated_at = excluded.updated_at`,
		e.MatchID, e.PlayerID, e.Position, e.Status, e.PaymentStatus, e.Casual, match.NullMillis(e.ConfirmedAt), match.Millis(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to write roster entry for %s: %w", e.PlayerID, err)
	}
	return nil
}

func scanEntry(row match.Scanner) (*match.RosterEntry, error) {
	var (
		e           match.RosterEntry
		confirmedAt sql.NullInt64
		updatedAt   int64
	)
	if err := row.Scan(&e.MatchID, &e.PlayerID, &e.Position, &e.Status, &e.PaymentStatus, &e.Casual, &confirmedAt, &updatedAt); err != nil {
		return nil, err
	}
	e.ConfirmedAt = match.FromNullMillis(confirmedAt)
	e.UpdatedAt = match.FromMillis(updatedAt)
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]match.RosterEntry, error) {
	entries := []match.RosterEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
