package match

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
)

// store handles match-level database operations.
type store struct {
	db       *sql.DB
	mu       sync.RWMutex
	now      func() time.Time
	defaults Defaults
}

// Position is the slot type a player occupies.
type Position string

const (
	PositionField      Position = "FIELD"
	PositionGoalkeeper Position = "GOALKEEPER"
)

// ParsePosition accepts "field", "goalkeeper" or "gk" in any case. Empty means FIELD.
func ParsePosition(s string) (Position, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "FIELD":
		return PositionField, nil
	case "GOALKEEPER", "GK":
		return PositionGoalkeeper, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPosition, s)
}

// Status is the lifecycle state of a match.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusFinished  Status = "FINISHED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled, StatusFinished:
		return true
	}
	return false
}

// Live reports whether the match is still going ahead. Freed slots of a
// live match are refilled from the waitlist.
func (s Status) Live() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

type RosterStatus string

const (
	RosterConfirmed RosterStatus = "CONFIRMED"
	RosterPending   RosterStatus = "PENDING"
	RosterCancelled RosterStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// WaitlistStatus follows WAITING -> NOTIFIED -> PROMOTED|EXPIRED, with
// CANCELLED reachable from either active state.
type WaitlistStatus string

const (
	WaitlistWaiting   WaitlistStatus = "WAITING"
	WaitlistNotified  WaitlistStatus = "NOTIFIED"
	WaitlistPromoted  WaitlistStatus = "PROMOTED"
	WaitlistExpired   WaitlistStatus = "EXPIRED"
	WaitlistCancelled WaitlistStatus = "CANCELLED"
)

// Active reports whether the entry still holds a queue position.
func (s WaitlistStatus) Active() bool {
	return s == WaitlistWaiting || s == WaitlistNotified
}

// Match is the aggregate root. Counters are denormalized and may lag outside a transaction.
type Match struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"owner_id"`
	Title              string    `json:"title"`
	StartsAt           time.Time `json:"starts_at"`
	Status             Status    `json:"status"`
	FieldCapacity      int       `json:"field_capacity"`
	GoalkeeperCapacity int       `json:"goalkeeper_capacity"`
	AutoPromoteMinutes int       `json:"auto_promote_minutes"`
	FieldCount         int       `json:"field_count"`
	GoalkeeperCount    int       `json:"goalkeeper_count"`
	WaitingCount       int       `json:"waiting_count"`
	Team1Name          string    `json:"team1_name,omitempty"`
	Team2Name          string    `json:"team2_name,omitempty"`
	Version            int64     `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
}

// Capacity returns the number of CONFIRMED slots for the position.
func (m *Match) Capacity(p Position) int {
	if p == PositionGoalkeeper {
		return m.GoalkeeperCapacity
	}
	return m.FieldCapacity
}

func (m *Match) AutoPromoteTimeout() time.Duration {
	return time.Duration(m.AutoPromoteMinutes) * time.Minute
}

// CreateParams describes a new match. Zero capacities fall back to the store defaults.
type CreateParams struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"owner_id"`
	Title              string    `json:"title"`
	StartsAt           time.Time `json:"starts_at"`
	FieldCapacity      int       `json:"field_capacity"`
	GoalkeeperCapacity int       `json:"goalkeeper_capacity"`
	AutoPromoteMinutes int       `json:"auto_promote_minutes"`
}

// Defaults are applied to CreateParams fields left at zero.
type Defaults struct {
	FieldCapacity      int
	GoalkeeperCapacity int
	AutoPromoteMinutes int
}

type RosterEntry struct {
	MatchID       string        `json:"match_id"`
	PlayerID      string        `json:"player_id"`
	Position      Position      `json:"position"`
	Status        RosterStatus  `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Casual        bool          `json:"casual"`
	ConfirmedAt   *time.Time    `json:"confirmed_at,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type WaitlistEntry struct {
	ID               int64          `json:"id"`
	MatchID          string         `json:"match_id"`
	PlayerID         string         `json:"player_id"`
	Position         Position       `json:"position"`
	QueuePosition    int            `json:"queue_position"`
	Status           WaitlistStatus `json:"status"`
	AddedAt          time.Time      `json:"added_at"`
	NotifiedAt       *time.Time     `json:"notified_at,omitempty"`
	ResponseDeadline *time.Time     `json:"response_deadline,omitempty"`
}

type Team struct {
	ID        string   `json:"id"`
	MatchID   string   `json:"match_id"`
	Ordinal   int      `json:"ordinal"`
	Name      string   `json:"name"`
	Color     string   `json:"color"`
	PlayerIDs []string `json:"player_ids"`
	Score     int      `json:"score"`
}

// Summary is the read model served to list views.
type Summary struct {
	MatchID            string   `json:"match_id" msgpack:"match_id"`
	Title              string   `json:"title" msgpack:"title"`
	Status             Status   `json:"status" msgpack:"status"`
	StartsAt           int64    `json:"starts_at" msgpack:"starts_at"`
	FieldCount         int      `json:"field_count" msgpack:"field_count"`
	FieldCapacity      int      `json:"field_capacity" msgpack:"field_capacity"`
	GoalkeeperCount    int      `json:"goalkeeper_count" msgpack:"goalkeeper_count"`
	GoalkeeperCapacity int      `json:"goalkeeper_capacity" msgpack:"goalkeeper_capacity"`
	WaitingCount       int      `json:"waiting_count" msgpack:"waiting_count"`
	TeamNames          []string `json:"team_names,omitempty" msgpack:"team_names"`
}

// SummaryOf builds the read model from a match row.
func SummaryOf(m *Match) *Summary {
	s := &Summary{
		MatchID:            m.ID,
		Title:              m.Title,
		Status:             m.Status,
		StartsAt:           Millis(m.StartsAt),
		FieldCount:         m.FieldCount,
		FieldCapacity:      m.FieldCapacity,
		GoalkeeperCount:    m.GoalkeeperCount,
		GoalkeeperCapacity: m.GoalkeeperCapacity,
		WaitingCount:       m.WaitingCount,
	}
	if m.Team1Name != "" && m.Team2Name != "" {
		s.TeamNames = []string{m.Team1Name, m.Team2Name}
	}
	return s
}
