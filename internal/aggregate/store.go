package aggregate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-sqlite3"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
	"github.com/sethvargo/go-retry"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = 10 * time.Millisecond
)

var errConflict = errors.New("match version changed during transaction")

// commitQuery advances the version and recomputes the denormalized counters.
// Zero affected rows means another writer committed first.
const commitQuery = `
	UPDATE matches SET
		version = version + 1,
		field_count = (SELECT COUNT(*) FROM roster_entries WHERE match_id = ?1 AND status = 'CONFIRMED' AND position = 'FIELD'),
		goalkeeper_count = (SELECT COUNT(*) FROM roster_entries WHERE match_id = ?1 AND status = 'CONFIRMED' AND position = 'GOALKEEPER'),
		waiting_count = (SELECT COUNT(*) FROM waitlist_entries WHERE match_id = ?1 AND status IN ('WAITING', 'NOTIFIED'))
	WHERE id = ?1 AND version = ?2`

func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.maxRetries = uint64(n)
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(s *Store) { s.baseDelay = d }
}

func WithCommitHook(h CommitHook) Option {
	return func(s *Store) { s.hooks = append(s.hooks, h) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store over db.
func New(db *sql.DB, m metrics.Metrics, opts ...Option) *Store {
	s := &Store{
		db:         db,
		metrics:    m,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// DB exposes the pool for non-transactional reads.
func (s *Store) DB() *sql.DB {
	return s.db
}

// RunTransaction runs fn against a fresh snapshot of the match. Conflicts are
// retried with jittered exponential backoff; once retries are exhausted the
// error wraps match.ErrContention. Errors returned by fn abort without retry.
func (s *Store) RunTransaction(ctx context.Context, matchID string, fn func(tx *Tx) error) error {
	b := retry.NewExponential(s.baseDelay)
	b = retry.WithJitterPercent(25, b)
	b = retry.WithMaxRetries(s.maxRetries, b)

	attempts := 0
	var committed *Tx
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			s.metrics.IncTxRetries()
			log.Debug("Retrying match transaction", "matchID", matchID, "attempt", attempts)
		}
		tx, err := s.attempt(ctx, matchID, fn)
		if isConflict(err) {
			return retry.RetryableError(err)
		}
		committed = tx
		return err
	})
	if isConflict(err) {
		s.metrics.IncContention()
		log.Warn("Match transaction exhausted retries", "matchID", matchID, "attempts", attempts, "error", err)
		return fmt.Errorf("%w: match %s after %d attempts", match.ErrContention, matchID, attempts)
	}
	if err != nil {
		return err
	}

	if committed.wrote {
		for _, h := range s.hooks {
			h(ctx, matchID)
		}
	}
	for _, f := range committed.afterCommit {
		f()
	}
	return nil
}

// BatchWrite applies ops atomically as one match transaction.
func (s *Store) BatchWrite(ctx context.Context, matchID string, ops ...Op) error {
	return s.RunTransaction(ctx, matchID, func(tx *Tx) error {
		for i, op := range ops {
			if _, err := tx.Exec(op.Query, op.Args...); err != nil {
				return fmt.Errorf("failed to apply batch op %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *Store) attempt(ctx context.Context, matchID string, fn func(tx *Tx) error) (*Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	m, err := match.ScanMatch(sqlTx.QueryRowContext(ctx, "SELECT "+match.Columns+" FROM matches WHERE id = ?", matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", matchID, match.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}

	tx := &Tx{ctx: ctx, tx: sqlTx, now: s.now(), Match: m}
	if err := fn(tx); err != nil {
		return nil, err
	}

	if tx.wrote {
		res, err := sqlTx.ExecContext(ctx, commitQuery, matchID, m.Version)
		if err != nil {
			return nil, fmt.Errorf("failed to advance match version: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return nil, errConflict
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit match transaction: %w", err)
	}
	return tx, nil
}

// isConflict reports whether err is worth retrying: a lost version race or a
// locked database.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errConflict) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
