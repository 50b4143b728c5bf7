package match

import "context"

// Store defines the operations on the match aggregate root that sit outside
// roster and waitlist transactions.
type Store interface {
	Create(ctx context.Context, params CreateParams) (*Match, error)
	Get(ctx context.Context, matchID string) (*Match, error)
	List(ctx context.Context) ([]*Match, error)
	UpdateStatus(ctx context.Context, matchID string, status Status) error
	AddManager(ctx context.Context, matchID, playerID string) error
	CanManageRoster(ctx context.Context, matchID, playerID string) (bool, error)
}
