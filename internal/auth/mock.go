package auth

import (
	"context"
	"sync"
)

var _ Permissions = (*MockPermissions)(nil)

// MockPermissions grants roster management to the players in Managers.
type MockPermissions struct {
	mu       sync.Mutex
	Managers map[string]bool

	CanManageRosterFunc  func(ctx context.Context, matchID, playerID string) (bool, error)
	CanManageRosterCalls []string
}

func NewMockPermissions(managers ...string) *MockPermissions {
	m := &MockPermissions{Managers: make(map[string]bool)}
	for _, id := range managers {
		m.Managers[id] = true
	}
	return m
}

func (m *MockPermissions) CanManageRoster(ctx context.Context, matchID, playerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CanManageRosterCalls = append(m.CanManageRosterCalls, playerID)
	if m.CanManageRosterFunc != nil {
		return m.CanManageRosterFunc(ctx, matchID, playerID)
	}
	return m.Managers[playerID], nil
}
