package teams

import (
	"context"
	"sync"
)

var _ Balancer = (*MockBalancer)(nil)

// MockBalancer is a mock implementation of the Balancer interface for testing.
type MockBalancer struct {
	mu sync.Mutex

	BalanceFunc  func(ctx context.Context, pool []RatedPlayer, n int) ([][]string, error)
	BalanceCalls [][]RatedPlayer
}

func NewMockBalancer() *MockBalancer {
	return &MockBalancer{}
}

func (m *MockBalancer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BalanceCalls = nil
}

func (m *MockBalancer) Balance(ctx context.Context, pool []RatedPlayer, n int) ([][]string, error) {
	m.mu.Lock()
	m.BalanceCalls = append(m.BalanceCalls, pool)
	f := m.BalanceFunc
	m.mu.Unlock()
	if f != nil {
		return f(ctx, pool, n)
	}
	return SnakeDraft{}.Balance(ctx, pool, n)
}
