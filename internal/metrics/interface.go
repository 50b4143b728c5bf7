package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the roster engine from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncConfirmations(outcome string)
	IncCancellations()
	IncWaitlistAdds()
	IncPromotions(source string)
	IncNotifications()
	IncExpirations()
	IncSweepRuns()
	ObserveSweepDuration(duration float64)
	IncTxRetries()
	IncContention()
	IncBalancerFallbacks()
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetStartupTime(duration float64)
}

// Confirmation outcomes used as the "outcome" label.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeUnchanged  = "unchanged"
	OutcomeFull       = "full"
	OutcomeWaitlisted = "waitlisted"
)

// Promotion sources used as the "source" label.
const (
	SourceCancellation = "cancellation"
	SourceAccept       = "accept"
	SourceManual       = "manual"
)
