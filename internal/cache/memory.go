package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mauv0809/pickup-roster/internal/match"
)

type item struct {
	summary match.Summary
	expires time.Time
}

// memoryCache is used when no Redis address is configured.
type memoryCache struct {
	mu    sync.RWMutex
	items map[string]item
	ttl   time.Duration
	now   func() time.Time
}

func NewMemory(ttl time.Duration) SummaryCache {
	return &memoryCache{items: make(map[string]item), ttl: ttl, now: time.Now}
}

func (c *memoryCache) Get(ctx context.Context, matchID string) (*match.Summary, error) {
	c.mu.RLock()
	it, ok := c.items[matchID]
	c.mu.RUnlock()
	if !ok || !c.now().Before(it.expires) {
		return nil, nil
	}
	s := it.summary
	return &s, nil
}

func (c *memoryCache) Set(ctx context.Context, summary *match.Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[summary.MatchID] = item{summary: *summary, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *memoryCache) Invalidate(ctx context.Context, matchID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, matchID)
	return nil
}
