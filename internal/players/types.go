package players

import (
	"database/sql"
	"sync"
)

// store handles all database operations for player profiles.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Player is a profile with the skill rating used for team balancing.
type Player struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Level       float64 `json:"level"`
	SlackUserID *string `json:"slack_user_id,omitempty"`
}
