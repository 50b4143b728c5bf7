package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	Confirmations      *prometheus.CounterVec
	Cancellations      prometheus.Counter
	WaitlistAdds       prometheus.Counter
	Promotions         *prometheus.CounterVec
	Notifications      prometheus.Counter
	Expirations        prometheus.Counter
	SweepRuns          prometheus.Counter
	SweepDuration      prometheus.Histogram
	TxRetries          prometheus.Counter
	Contention         prometheus.Counter
	BalancerFallbacks  prometheus.Counter
	SlackNotifSent     prometheus.Counter
	SlackNotifFailed   prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}
