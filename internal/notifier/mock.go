package notifier

import (
	"context"
	"sync"

	"github.com/mauv0809/pickup-roster/internal/match"
)

var _ Notifier = (*Mock)(nil)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies
	NotifyFunc                func(notice Notice, dryRun bool) error
	SendTeamsFunc             func(m *match.Match, teams []match.Team, dryRun bool) error
	FormatSummaryResponseFunc func(summary *match.Summary, teams []match.Team) (any, error)

	// Call records
	NotifyCalls    []NotifyCall
	SendTeamsCalls []SendTeamsCall
}

type NotifyCall struct {
	Notice Notice
	DryRun bool
}

type SendTeamsCall struct {
	Match  *match.Match
	Teams  []match.Team
	DryRun bool
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyCalls = nil
	m.SendTeamsCalls = nil
}

func (m *Mock) Notify(notice Notice, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyCalls = append(m.NotifyCalls, NotifyCall{Notice: notice, DryRun: dryRun})
	if m.NotifyFunc != nil {
		return m.NotifyFunc(notice, dryRun)
	}
	return nil
}

func (m *Mock) SendTeams(mt *match.Match, teams []match.Team, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendTeamsCalls = append(m.SendTeamsCalls, SendTeamsCall{Match: mt, Teams: teams, DryRun: dryRun})
	if m.SendTeamsFunc != nil {
		return m.SendTeamsFunc(mt, teams, dryRun)
	}
	return nil
}

func (m *Mock) FormatSummaryResponse(summary *match.Summary, teams []match.Team) (any, error) {
	if m.FormatSummaryResponseFunc != nil {
		return m.FormatSummaryResponseFunc(summary, teams)
	}
	return summary, nil
}

// Notices returns a copy of the notices received so far.
func (m *Mock) Notices() []Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notice, len(m.NotifyCalls))
	for i, c := range m.NotifyCalls {
		out[i] = c.Notice
	}
	return out
}

// MockDispatcher records dispatched notices.
type MockDispatcher struct {
	mu           sync.Mutex
	DispatchFunc func(ctx context.Context, notice Notice) error
	Dispatched   []Notice
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (d *MockDispatcher) Dispatch(ctx context.Context, notice Notice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Dispatched = append(d.Dispatched, notice)
	if d.DispatchFunc != nil {
		return d.DispatchFunc(ctx, notice)
	}
	return nil
}

// Notices returns a copy of the dispatched notices.
func (d *MockDispatcher) Notices() []Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Notice(nil), d.Dispatched...)
}
