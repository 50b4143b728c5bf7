package teams

import (
	"context"

	"github.com/mauv0809/pickup-roster/internal/players"
)

// RatingSource provides the skill level of each player. Unknown ids are skipped.
type RatingSource interface {
	GetPlayers(playerIDs []string) ([]players.Player, error)
}

// Balancer splits rated players into n skill-balanced teams, one list of
// player ids per team. Implementations may fail; the generator then falls
// back to a random split.
type Balancer interface {
	Balance(ctx context.Context, pool []RatedPlayer, n int) ([][]string, error)
}
