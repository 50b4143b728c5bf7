package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var _ Store = (*store)(nil)

// New creates a new match Store. Zero values in params passed to Create are
// replaced by defaults.
func New(db *sql.DB, defaults Defaults) Store {
	return &store{db: db, now: time.Now, defaults: defaults}
}

func (s *store) Create(ctx context.Context, params CreateParams) (*Match, error) {
	if params.FieldCapacity == 0 {
		params.FieldCapacity = s.defaults.FieldCapacity
	}
	if params.GoalkeeperCapacity == 0 {
		params.GoalkeeperCapacity = s.defaults.GoalkeeperCapacity
	}
	if params.AutoPromoteMinutes == 0 {
		params.AutoPromoteMinutes = s.defaults.AutoPromoteMinutes
	}
	if params.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if params.FieldCapacity < 0 || params.GoalkeeperCapacity < 0 || params.FieldCapacity+params.GoalkeeperCapacity == 0 {
		return nil, fmt.Errorf("%w: capacities must be non-negative and not both zero", ErrInvalidInput)
	}
	if params.AutoPromoteMinutes <= 0 {
		return nil, fmt.Errorf("%w: auto promote minutes must be positive", ErrInvalidInput)
	}
	if params.ID == "" {
		params.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (id, owner_id, title, starts_at, status, field_capacity, goalkeeper_capacity, auto_promote_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.ID, params.OwnerID, params.Title, Millis(params.StartsAt), StatusScheduled,
		params.FieldCapacity, params.GoalkeeperCapacity, params.AutoPromoteMinutes, Millis(createdAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create match %s: %w", params.ID, err)
	}
	log.Info("Created match", "matchID", params.ID, "ownerID", params.OwnerID,
		"fieldCapacity", params.FieldCapacity, "goalkeeperCapacity", params.GoalkeeperCapacity)

	return &Match{
		ID:                 params.ID,
		OwnerID:            params.OwnerID,
		Title:              params.Title,
		StartsAt:           FromMillis(Millis(params.StartsAt)),
		Status:             StatusScheduled,
		FieldCapacity:      params.FieldCapacity,
		GoalkeeperCapacity: params.GoalkeeperCapacity,
		AutoPromoteMinutes: params.AutoPromoteMinutes,
		CreatedAt:          FromMillis(Millis(createdAt)),
	}, nil
}

func (s *store) Get(ctx context.Context, matchID string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, err := ScanMatch(s.db.QueryRowContext(ctx, "SELECT "+Columns+" FROM matches WHERE id = ?", matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", matchID, err)
	}
	return m, nil
}

func (s *store) List(ctx context.Context) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+Columns+" FROM matches ORDER BY starts_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		m, err := ScanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// UpdateStatus bumps the version so in-flight roster transactions re-read the gate.
func (s *store) UpdateStatus(ctx context.Context, matchID string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE matches SET status = ?, version = version + 1 WHERE id = ?", status, matchID)
	if err != nil {
		return fmt.Errorf("failed to update status of match %s: %w", matchID, err)
	}
	if err := checkAffectedRows(res, matchID); err != nil {
		return err
	}
	log.Info("Updated match status", "matchID", matchID, "status", status)
	return nil
}

func (s *store) AddManager(ctx context.Context, matchID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO match_managers (match_id, player_id) VALUES (?, ?)", matchID, playerID)
	if err != nil {
		return fmt.Errorf("failed to add manager %s to match %s: %w", playerID, matchID, err)
	}
	return nil
}

// CanManageRoster is true for the match owner and for listed managers.
func (s *store) CanManageRoster(ctx context.Context, matchID, playerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allowed bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM matches WHERE id = ? AND owner_id = ?)
		    OR EXISTS (SELECT 1 FROM match_managers WHERE match_id = ? AND player_id = ?)`,
		matchID, playerID, matchID, playerID).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("failed to check roster permission: %w", err)
	}
	return allowed, nil
}

func checkAffectedRows(res sql.Result, matchID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	return nil
}
