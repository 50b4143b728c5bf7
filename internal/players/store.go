package players

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/match"
)

var _ Store = (*store)(nil)

// New creates a new player Store.
func New(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

func (s *store) AddPlayer(playerID, name string, level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM players WHERE id = ?)", playerID).Scan(&exists)
	if err != nil {
		log.Error("Failed to check if player exists", "error", err, "playerID", playerID)
		return
	}

	if !exists {
		_, err := s.db.Exec("INSERT INTO players (id, name, level) VALUES (?, ?, ?)", playerID, name, level)
		if err != nil {
			log.Error("Failed to add player", "error", err, "playerID", playerID)
		} else {
			log.Info("Added new player to the store", "playerID", playerID, "name", name, "player_level", level)
		}
	} else {
		_, err := s.db.Exec("UPDATE players SET name = ?, level = ? WHERE id = ?", name, level, playerID)
		if err != nil {
			log.Error("Failed to update player", "error", err, "playerID", playerID)
		} else {
			log.Info("Updated existing player in the store", "playerID", playerID, "name", name, "player_level", level)
		}
	}
}

// UpsertPlayers writes all profiles in one transaction. A nil SlackUserID
// keeps the stored mapping.
func (s *store) UpsertPlayers(players []Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO players (id, name, level, slack_user_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			level = excluded.level,
			slack_user_id = COALESCE(excluded.slack_user_id, players.slack_user_id)`)
	if err != nil {
		return fmt.Errorf("failed to prepare player upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range players {
		if _, err := stmt.Exec(p.ID, p.Name, p.Level, p.SlackUserID); err != nil {
			return fmt.Errorf("failed to upsert player %s: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit player upsert: %w", err)
	}
	log.Info("Upserted players", "count", len(players))
	return nil
}

func (s *store) SetSlackUserID(playerID, slackUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE players SET slack_user_id = ? WHERE id = ?", slackUserID, playerID)
	if err != nil {
		return fmt.Errorf("failed to set slack user for %s: %w", playerID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("player %s: %w", playerID, match.ErrNotFound)
	}
	return nil
}

func (s *store) IsKnownPlayer(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM players WHERE id = ?)", playerID).Scan(&exists)
	if err != nil {
		log.Error("Failed to check if player exists", "error", err, "playerID", playerID)
		return false
	}
	return exists
}

func (s *store) GetPlayer(playerID string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scanPlayer(s.db.QueryRow("SELECT id, name, level, slack_user_id FROM players WHERE id = ?", playerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", playerID, match.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %s: %w", playerID, err)
	}
	return p, nil
}

// GetPlayers returns the known profiles among playerIDs; unknown ids are skipped.
func (s *store) GetPlayers(playerIDs []string) ([]Player, error) {
	if len(playerIDs) == 0 {
		return []Player{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(playerIDs)), ",")
	rows, err := s.db.Query("SELECT id, name, level, slack_user_id FROM players WHERE id IN ("+placeholders+") ORDER BY id", ToAnySlice(playerIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()
	return scanPlayers(rows)
}

func (s *store) GetAllPlayers() ([]Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, name, level, slack_user_id FROM players ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()
	return scanPlayers(rows)
}

func scanPlayer(row match.Scanner) (*Player, error) {
	var (
		p     Player
		slack sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Level, &slack); err != nil {
		return nil, err
	}
	if slack.Valid {
		p.SlackUserID = &slack.String
	}
	return &p, nil
}

func scanPlayers(rows *sql.Rows) ([]Player, error) {
	players := []Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

func ToAnySlice[T any](s []T) []any {
	a := make([]any, len(s))
	for i, v := range s {
		a[i] = v
	}
	return a
}
