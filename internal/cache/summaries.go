package cache

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/match"
)

// Summaries serves match summaries read-through from the cache. Counters may
// lag a concurrent write by up to the cache TTL unless the write's commit
// hook calls Forget.
type Summaries struct {
	cache   SummaryCache
	matches match.Store
}

func NewSummaries(cache SummaryCache, matches match.Store) *Summaries {
	return &Summaries{cache: cache, matches: matches}
}

func (s *Summaries) Get(ctx context.Context, matchID string) (*match.Summary, error) {
	cached, err := s.cache.Get(ctx, matchID)
	if err != nil {
		log.Warn("Summary cache read failed", "matchID", matchID, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	summary := match.SummaryOf(m)
	if err := s.cache.Set(ctx, summary); err != nil {
		log.Warn("Summary cache write failed", "matchID", matchID, "error", err)
	}
	return summary, nil
}

// Forget drops the cached summary. It matches aggregate.CommitHook.
func (s *Summaries) Forget(ctx context.Context, matchID string) {
	if err := s.cache.Invalidate(ctx, matchID); err != nil {
		log.Warn("Summary cache invalidation failed", "matchID", matchID, "error", err)
	}
}
