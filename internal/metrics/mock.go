package metrics

import "sync"

var _ Metrics = (*Mock)(nil)

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                sync.Mutex
	confirmations     map[string]int
	cancellations     int
	waitlistAdds      int
	promotions        map[string]int
	notifications     int
	expirations       int
	sweepRuns         int
	sweepDurations    []float64
	txRetries         int
	contention        int
	balancerFallbacks int
	slackNotifSent    int
	slackNotifFailed  int
	startupTime       float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		confirmations:  make(map[string]int),
		promotions:     make(map[string]int),
		sweepDurations: make([]float64, 0),
	}
}

func (m *Mock) IncConfirmations(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations[outcome]++
}

func (m *Mock) IncCancellations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancellations++
}

func (m *Mock) IncWaitlistAdds() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitlistAdds++
}

func (m *Mock) IncPromotions(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promotions[source]++
}

func (m *Mock) IncNotifications() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications++
}

func (m *Mock) IncExpirations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expirations++
}

func (m *Mock) IncSweepRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepRuns++
}

func (m *Mock) ObserveSweepDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepDurations = append(m.sweepDurations, duration)
}

func (m *Mock) IncTxRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txRetries++
}

func (m *Mock) IncContention() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contention++
}

func (m *Mock) IncBalancerFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balancerFallbacks++
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// Confirmations returns how often IncConfirmations was called with outcome.
func (m *Mock) Confirmations(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmations[outcome]
}

// Cancellations returns the number of times IncCancellations was called.
func (m *Mock) Cancellations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancellations
}

// WaitlistAdds returns the number of times IncWaitlistAdds was called.
func (m *Mock) WaitlistAdds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitlistAdds
}

// Promotions returns how often IncPromotions was called with source.
func (m *Mock) Promotions(source string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.promotions[source]
}

// Notifications returns the number of times IncNotifications was called.
func (m *Mock) Notifications() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifications
}

// Expirations returns the number of times IncExpirations was called.
func (m *Mock) Expirations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expirations
}

// SweepRuns returns the number of times IncSweepRuns was called.
func (m *Mock) SweepRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepRuns
}

// TxRetries returns the number of times IncTxRetries was called.
func (m *Mock) TxRetries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txRetries
}

// Contention returns the number of times IncContention was called.
func (m *Mock) Contention() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contention
}

// BalancerFallbacks returns the number of times IncBalancerFallbacks was called.
func (m *Mock) BalancerFallbacks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balancerFallbacks
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}
