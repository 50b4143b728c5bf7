package teams

import (
	"github.com/mauv0809/pickup-roster/internal/aggregate"
	"github.com/mauv0809/pickup-roster/internal/auth"
	"github.com/mauv0809/pickup-roster/internal/metrics"
)

// Palette is cycled when a match has more teams than colors.
var Palette = []string{"#E53935", "#1E88E5", "#43A047", "#FDD835", "#FB8C00", "#8E24AA", "#212121", "#FAFAFA"}

// maxAttempts bounds how often generation restarts because the roster moved
// between reading it and writing the teams.
const maxAttempts = 3

type RatedPlayer struct {
	ID    string  `json:"id"`
	Level float64 `json:"level"`
}

// Generator builds and stores the teams of a match.
type Generator struct {
	store    *aggregate.Store
	ratings  RatingSource
	balancer Balancer
	perms    auth.Permissions
	metrics  metrics.Metrics
}
