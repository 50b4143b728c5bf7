package cache

import (
	"context"

	"github.com/mauv0809/pickup-roster/internal/match"
)

// SummaryCache holds match summaries for list views. Get returns nil, nil on
// a miss.
type SummaryCache interface {
	Get(ctx context.Context, matchID string) (*match.Summary, error)
	Set(ctx context.Context, summary *match.Summary) error
	Invalidate(ctx context.Context, matchID string) error
}
