package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/aggregate"
	"github.com/mauv0809/pickup-roster/internal/auth"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
	"github.com/mauv0809/pickup-roster/internal/waitlist"
)

// Promoter fills a freed slot from the waitlist.
type Promoter interface {
	PromoteNext(ctx context.Context, matchID string) (*match.WaitlistEntry, error)
}

// JoinResult holds exactly one of Roster or Waitlist.
type JoinResult struct {
	Roster   *match.RosterEntry   `json:"roster,omitempty"`
	Waitlist *match.WaitlistEntry `json:"waitlist,omitempty"`
}

// Coordinator admits and releases players. Every mutation runs as one match
// transaction; promotion after a release runs in its own.
type Coordinator struct {
	store    *aggregate.Store
	queue    *waitlist.Queue
	promoter Promoter
	perms    auth.Permissions
	metrics  metrics.Metrics
}

func NewCoordinator(store *aggregate.Store, queue *waitlist.Queue, promoter Promoter, perms auth.Permissions, m metrics.Metrics) *Coordinator {
	return &Coordinator{
		store:    store,
		queue:    queue,
		promoter: promoter,
		perms:    perms,
		metrics:  m,
	}
}

// Confirm takes a slot or fails with match.ErrMatchFull. Confirming an
// already confirmed player in the same position returns the existing entry.
func (c *Coordinator) Confirm(ctx context.Context, matchID, playerID string, position match.Position, casual bool) (*match.RosterEntry, error) {
	if _, err := auth.RequireSelfOrManager(ctx, c.perms, matchID, playerID); err != nil {
		return nil, err
	}

	var entry *match.RosterEntry
	err := c.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		var err error
		entry, err = c.admitTx(tx, playerID, position, casual)
		return err
	})
	if errors.Is(err, match.ErrMatchFull) {
		c.metrics.IncConfirmations(metrics.OutcomeFull)
	}
	return entry, err
}

// Join confirms the player or, when the position is full, enqueues them in
// the same transaction.
func (c *Coordinator) Join(ctx context.Context, matchID, playerID string, position match.Position, casual bool) (*JoinResult, error) {
	if _, err := auth.RequireSelfOrManager(ctx, c.perms, matchID, playerID); err != nil {
		return nil, err
	}

	var result *JoinResult
	err := c.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		result = &JoinResult{}
		entry, err := c.admitTx(tx, playerID, position, casual)
		if err == nil {
			result.Roster = entry
			return nil
		}
		if !errors.Is(err, match.ErrMatchFull) {
			return err
		}
		// A confirmed player switching to a full position keeps their slot.
		current, getErr := Get(tx, playerID)
		if getErr != nil {
			return getErr
		}
		if current != nil && current.Status == match.RosterConfirmed {
			return err
		}

		waiting, err := c.queue.AddTx(tx, playerID, position)
		if err != nil && !errors.Is(err, match.ErrAlreadyWaiting) {
			return err
		}
		result.Waitlist = waiting
		tx.AfterCommit(func() { c.metrics.IncConfirmations(metrics.OutcomeWaitlisted) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Coordinator) admitTx(tx *aggregate.Tx, playerID string, position match.Position, casual bool) (*match.RosterEntry, error) {
	entry, outcome, err := Admit(tx, playerID, position, casual)
	if err != nil {
		return nil, err
	}
	if outcome == Unchanged {
		tx.AfterCommit(func() { c.metrics.IncConfirmations(metrics.OutcomeUnchanged) })
		return entry, nil
	}

	// A confirmed player leaves the waitlist.
	waiting, err := c.queue.ActiveEntryTx(tx, playerID)
	if err != nil {
		return nil, err
	}
	if waiting != nil {
		if err := c.queue.PromoteTx(tx, waiting); err != nil {
			return nil, err
		}
	}

	tx.AfterCommit(func() {
		c.metrics.IncConfirmations(metrics.OutcomeConfirmed)
		log.Info("Player confirmed", "matchID", tx.Match.ID, "playerID", playerID, "position", entry.Position)
	})
	return entry, nil
}

// Cancel releases the caller's confirmed slot and promotes from the waitlist.
// It returns false, without error, when there was no confirmed entry.
func (c *Coordinator) Cancel(ctx context.Context, matchID, playerID string) (bool, error) {
	if _, err := auth.RequireSelfOrManager(ctx, c.perms, matchID, playerID); err != nil {
		return false, err
	}

	var removed bool
	err := c.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		var err error
		_, removed, err = Release(tx, playerID)
		return err
	})
	if err != nil {
		return false, err
	}
	if removed {
		c.metrics.IncCancellations()
		log.Info("Player cancelled", "matchID", matchID, "playerID", playerID)
		c.promoteAfterRelease(ctx, matchID)
	}
	return removed, nil
}

// RemovePlayer is the manager variant of Cancel. It also drops the player's
// waitlist entries.
func (c *Coordinator) RemovePlayer(ctx context.Context, matchID, playerID string) (bool, error) {
	caller, err := auth.RequireManager(ctx, c.perms, matchID)
	if err != nil {
		return false, err
	}

	var removed bool
	err = c.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		var err error
		if removed, err = Delete(tx, playerID); err != nil {
			return err
		}
		_, err = c.queue.RemoveTx(tx, playerID)
		return err
	})
	if err != nil {
		return false, err
	}
	log.Info("Player removed by manager", "matchID", matchID, "playerID", playerID, "managerID", caller, "wasConfirmed", removed)
	if removed {
		c.metrics.IncCancellations()
		c.promoteAfterRelease(ctx, matchID)
	}
	return removed, nil
}

// promoteAfterRelease never fails the release that triggered it.
func (c *Coordinator) promoteAfterRelease(ctx context.Context, matchID string) {
	if c.promoter == nil {
		return
	}
	promoted, err := c.promoter.PromoteNext(ctx, matchID)
	if err != nil {
		log.Error("Failed to promote from waitlist after cancellation", "matchID", matchID, "error", err)
		return
	}
	if promoted != nil {
		log.Info("Promoted waitlisted player", "matchID", matchID, "playerID", promoted.PlayerID)
	}
}

func (c *Coordinator) UpdatePaymentStatus(ctx context.Context, matchID, playerID string, status match.PaymentStatus) (*match.RosterEntry, error) {
	if status != match.PaymentPaid && status != match.PaymentPending {
		return nil, fmt.Errorf("%w: payment status %q", match.ErrInvalidInput, status)
	}
	if _, err := auth.RequireManager(ctx, c.perms, matchID); err != nil {
		return nil, err
	}

	var entry *match.RosterEntry
	err := c.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		var err error
		if entry, err = Get(tx, playerID); err != nil {
			return err
		}
		if entry == nil || entry.Status == match.RosterCancelled {
			return fmt.Errorf("roster entry for %s in match %s: %w", playerID, matchID, match.ErrNotFound)
		}
		entry.PaymentStatus = status
		entry.UpdatedAt = tx.Now()
		_, err = tx.Exec(`UPDATE roster_entries SET payment_status = ?, updated_at = ? WHERE match_id = ? AND player_id = ?`,
			status, match.Millis(entry.UpdatedAt), matchID, playerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// SummonPlayers invites players who have no live entry yet. Confirmed and
// already invited players are left alone.
func (c *Coordinator) SummonPlayers(ctx context.Context, matchID string, playerIDs []string, position match.Position) ([]match.RosterEntry, error) {
	if _, err := auth.RequireManager(ctx, c.perms, matchID); err != nil {
		return nil, err
	}

	var invited []match.RosterEntry
	err := c.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		invited = invited[:0]
		if tx.Match.Status != match.StatusScheduled {
			return fmt.Errorf("match %s is %s: %w", matchID, tx.Match.Status, match.ErrConfirmationsClosed)
		}
		for _, playerID := range playerIDs {
			existing, err := Get(tx, playerID)
			if err != nil {
				return err
			}
			if existing != nil && existing.Status != match.RosterCancelled {
				continue
			}
			entry, err := Invite(tx, playerID, position)
			if err != nil {
				return err
			}
			invited = append(invited, *entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("Summoned players", "matchID", matchID, "invited", len(invited), "requested", len(playerIDs))
	return invited, nil
}

// AcceptInvitation turns a PENDING invitation into a confirmed slot.
func (c *Coordinator) AcceptInvitation(ctx context.Context, matchID, playerID string) (*match.RosterEntry, error) {
	if _, err := auth.RequireSelfOrManager(ctx, c.perms, matchID, playerID); err != nil {
		return nil, err
	}

	var entry *match.RosterEntry
	err := c.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		existing, err := Get(tx, playerID)
		if err != nil {
			return err
		}
		if existing == nil || existing.Status == match.RosterCancelled {
			return fmt.Errorf("invitation for %s in match %s: %w", playerID, matchID, match.ErrNotFound)
		}
		if existing.Status == match.RosterConfirmed {
			entry = existing
			return nil
		}
		entry, err = c.admitTx(tx, playerID, existing.Position, existing.Casual)
		return err
	})
	if errors.Is(err, match.ErrMatchFull) {
		c.metrics.IncConfirmations(metrics.OutcomeFull)
	}
	return entry, err
}

// List returns every roster entry of the match.
func (c *Coordinator) List(ctx context.Context, matchID string) ([]match.RosterEntry, error) {
	return List(ctx, c.store.DB(), matchID)
}
