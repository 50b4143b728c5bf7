package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/aggregate"
	"github.com/mauv0809/pickup-roster/internal/auth"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
	"github.com/mauv0809/pickup-roster/internal/notifier"
	"github.com/mauv0809/pickup-roster/internal/roster"
	"github.com/mauv0809/pickup-roster/internal/waitlist"
	"golang.org/x/sync/errgroup"
)

// Dispatcher delivers notices after the transaction that produced them commits.
type Dispatcher interface {
	Dispatch(ctx context.Context, notice notifier.Notice) error
}

// Engine moves waitlisted players onto the roster, either when a slot frees
// up, when a notified player accepts, or when the sweep expires unanswered
// offers and passes them down the queue.
type Engine struct {
	store       *aggregate.Store
	queue       *waitlist.Queue
	dispatcher  Dispatcher
	perms       auth.Permissions
	metrics     metrics.Metrics
	concurrency int
}

func New(store *aggregate.Store, queue *waitlist.Queue, dispatcher Dispatcher, perms auth.Permissions, m metrics.Metrics, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		store:       store,
		queue:       queue,
		dispatcher:  dispatcher,
		perms:       perms,
		metrics:     m,
		concurrency: concurrency,
	}
}

// PromoteNext fills a freed slot with the first active entry whose declared
// position has room, confirming them on the roster in the same transaction.
// A CONFIRMED match still refills its slots. It returns nil when nobody fits
// or the match is cancelled or finished.
func (e *Engine) PromoteNext(ctx context.Context, matchID string) (*match.WaitlistEntry, error) {
	var promoted *match.WaitlistEntry
	err := e.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		promoted = nil
		if !tx.Match.Status.Live() {
			return nil
		}
		entries, err := e.queue.ActiveEntriesTx(tx)
		if err != nil {
			return err
		}
		for i := range entries {
			room, err := roster.HasRoom(tx, entries[i].Position)
			if err != nil {
				return err
			}
			if !room {
				continue
			}
			if _, err := e.admitTx(tx, &entries[i], metrics.SourceCancellation); err != nil {
				return err
			}
			promoted = &entries[i]
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to promote from waitlist of %s: %w", matchID, err)
	}
	return promoted, nil
}

// NotifyNext offers the slot to the next waiting player using the match's
// own timeout.
func (e *Engine) NotifyNext(ctx context.Context, matchID string) (*match.WaitlistEntry, error) {
	if _, err := auth.RequireManager(ctx, e.perms, matchID); err != nil {
		return nil, err
	}

	var notified *match.WaitlistEntry
	err := e.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		var err error
		notified, err = e.notifyNextTx(tx)
		return err
	})
	return notified, err
}

// Accept lets a NOTIFIED player claim the offered slot up to and including
// the deadline; the sweep only expires offers strictly past it.
// If the slot has been taken meanwhile the entry stays NOTIFIED and
// match.ErrMatchFull is returned.
func (e *Engine) Accept(ctx context.Context, matchID, playerID string) (*match.RosterEntry, error) {
	if _, err := auth.RequireSelfOrManager(ctx, e.perms, matchID, playerID); err != nil {
		return nil, err
	}

	var entry *match.RosterEntry
	err := e.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		waiting, err := e.queue.ActiveEntryTx(tx, playerID)
		if err != nil {
			return err
		}
		if waiting == nil || waiting.Status != match.WaitlistNotified {
			return fmt.Errorf("%s in match %s: %w", playerID, matchID, match.ErrNotNotified)
		}
		if waiting.ResponseDeadline != nil && tx.Now().After(*waiting.ResponseDeadline) {
			return fmt.Errorf("offer to %s in match %s expired: %w", playerID, matchID, match.ErrNotNotified)
		}
		entry, err = e.admitTx(tx, waiting, metrics.SourceAccept)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// admitTx confirms the entry's player in their declared position and closes
// the waitlist entry.
func (e *Engine) admitTx(tx *aggregate.Tx, entry *match.WaitlistEntry, source string) (*match.RosterEntry, error) {
	confirmed, err := roster.Promote(tx, entry.PlayerID, entry.Position)
	if err != nil {
		return nil, err
	}
	if err := e.queue.PromoteTx(tx, entry); err != nil {
		return nil, err
	}

	m := *tx.Match
	promoted := *entry
	tx.AfterCommit(func() {
		e.metrics.IncPromotions(source)
		log.Info("Waitlisted player promoted", "matchID", m.ID, "playerID", promoted.PlayerID, "position", promoted.Position, "source", source)
		e.dispatch(tx.Context(), notifier.NewNotice(notifier.NoticePromoted, &m, &promoted))
	})
	return confirmed, nil
}

func (e *Engine) notifyNextTx(tx *aggregate.Tx) (*match.WaitlistEntry, error) {
	if !tx.Match.Status.Live() {
		return nil, nil
	}
	notified, err := e.queue.NotifyNextTx(tx, tx.Match.AutoPromoteTimeout())
	if err != nil || notified == nil {
		return nil, err
	}

	m := *tx.Match
	offered := *notified
	tx.AfterCommit(func() {
		e.metrics.IncNotifications()
		log.Info("Waitlist slot offered", "matchID", m.ID, "playerID", offered.PlayerID, "deadline", offered.ResponseDeadline)
		e.dispatch(tx.Context(), notifier.NewNotice(notifier.NoticeSlotOffered, &m, &offered))
	})
	return notified, nil
}

// Sweep expires NOTIFIED entries past their deadline and offers the slot to
// the next waiting player of each affected match. Matches are processed
// concurrently, entries of one match in deadline order, each in its own
// transaction. It returns the number of offers passed down to a successor, so
// an expiry with nobody left to notify counts nothing and an immediate second
// run returns 0.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		e.metrics.IncSweepRuns()
		e.metrics.ObserveSweepDuration(time.Since(start).Seconds())
	}()

	due, err := e.queue.DueForExpiry(ctx, e.store.Now())
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		log.Debug("Sweep found no expired offers")
		return 0, nil
	}

	byMatch := make(map[string][]match.WaitlistEntry)
	var order []string
	for _, entry := range due {
		if _, ok := byMatch[entry.MatchID]; !ok {
			order = append(order, entry.MatchID)
		}
		byMatch[entry.MatchID] = append(byMatch[entry.MatchID], entry)
	}

	expiredCounts := make([]int, len(order))
	advancedCounts := make([]int, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, matchID := range order {
		g.Go(func() error {
			for _, entry := range byMatch[matchID] {
				expired, advanced, err := e.expire(gctx, entry)
				if err != nil {
					// One failing entry must not stop the rest of the sweep.
					log.Error("Failed to expire waitlist entry", "matchID", matchID, "entryID", entry.ID, "error", err)
					if gctx.Err() != nil {
						return gctx.Err()
					}
					continue
				}
				if expired {
					expiredCounts[i]++
				}
				if advanced {
					advancedCounts[i]++
				}
			}
			return nil
		})
	}
	err = g.Wait()

	expired, advanced := 0, 0
	for i := range order {
		expired += expiredCounts[i]
		advanced += advancedCounts[i]
	}
	log.Info("Waitlist sweep finished", "due", len(due), "expired", expired, "promoted", advanced, "matches", len(order))
	return advanced, err
}

// expire is idempotent: an entry already moved on by a concurrent sweep,
// accept or cancellation is skipped. advanced reports whether the slot was
// offered to the next waiting player.
func (e *Engine) expire(ctx context.Context, entry match.WaitlistEntry) (expired, advanced bool, err error) {
	err = e.store.RunTransaction(ctx, entry.MatchID, func(tx *aggregate.Tx) error {
		expired, advanced = false, false
		ok, err := e.queue.ExpireTx(tx, entry.ID)
		if err != nil || !ok {
			return err
		}

		m := *tx.Match
		gone := entry
		gone.Status = match.WaitlistExpired
		tx.AfterCommit(func() {
			e.metrics.IncExpirations()
			log.Info("Waitlist offer expired", "matchID", m.ID, "playerID", gone.PlayerID)
			e.dispatch(tx.Context(), notifier.NewNotice(notifier.NoticeExpired, &m, &gone))
		})

		next, err := e.notifyNextTx(tx)
		if err != nil {
			return err
		}
		expired, advanced = true, next != nil
		return nil
	})
	return expired, advanced, err
}

func (e *Engine) dispatch(ctx context.Context, notice notifier.Notice) {
	if e.dispatcher == nil {
		return
	}
	if err := e.dispatcher.Dispatch(ctx, notice); err != nil {
		log.Error("Failed to dispatch waitlist notice", "kind", notice.Kind, "matchID", notice.MatchID, "playerID", notice.PlayerID, "error", err)
	}
}

// Leave takes the caller off the queue. If they held the outstanding offer
// it passes to the next waiting player.
func (e *Engine) Leave(ctx context.Context, matchID, playerID string) (*match.WaitlistEntry, error) {
	if _, err := auth.RequireSelfOrManager(ctx, e.perms, matchID, playerID); err != nil {
		return nil, err
	}

	var left *match.WaitlistEntry
	err := e.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		current, err := e.queue.ActiveEntryTx(tx, playerID)
		if err != nil {
			return err
		}
		wasNotified := current != nil && current.Status == match.WaitlistNotified
		if left, err = e.queue.LeaveTx(tx, playerID); err != nil {
			return err
		}
		if wasNotified {
			_, err = e.notifyNextTx(tx)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return left, nil
}
