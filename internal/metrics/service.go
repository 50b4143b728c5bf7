package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		Confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_confirmations_total",
			Help: "Confirmation attempts by outcome.",
		}, []string{"outcome"}),
		Cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_cancellations_total",
			Help: "Confirmed roster entries removed by cancellation or administrative removal.",
		}),
		WaitlistAdds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_waitlist_adds_total",
			Help: "Players added to a waitlist.",
		}),
		Promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_promotions_total",
			Help: "Waitlist entries promoted into the roster, by source.",
		}, []string{"source"}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_waitlist_notifications_total",
			Help: "Waitlist entries moved to NOTIFIED.",
		}),
		Expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_waitlist_expirations_total",
			Help: "Notified waitlist entries that expired without a response.",
		}),
		SweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_sweep_runs_total",
			Help: "The total number of promotion sweeps.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_sweep_duration_seconds",
			Help:    "The duration of a promotion sweep.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		TxRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_transaction_retries_total",
			Help: "Match transactions retried after a conflict.",
		}),
		Contention: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_transaction_contention_total",
			Help: "Match transactions that exhausted their retries.",
		}),
		BalancerFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_balancer_fallbacks_total",
			Help: "Team generations that fell back to random distribution.",
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.Confirmations,
		s.Cancellations,
		s.WaitlistAdds,
		s.Promotions,
		s.Notifications,
		s.Expirations,
		s.SweepRuns,
		s.SweepDuration,
		s.TxRetries,
		s.Contention,
		s.BalancerFallbacks,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncConfirmations(outcome string) {
	s.Confirmations.WithLabelValues(outcome).Inc()
}

func (s *Service) IncCancellations() {
	s.Cancellations.Inc()
}

func (s *Service) IncWaitlistAdds() {
	s.WaitlistAdds.Inc()
}

func (s *Service) IncPromotions(source string) {
	s.Promotions.WithLabelValues(source).Inc()
}

func (s *Service) IncNotifications() {
	s.Notifications.Inc()
}

func (s *Service) IncExpirations() {
	s.Expirations.Inc()
}

func (s *Service) IncSweepRuns() {
	s.SweepRuns.Inc()
}

func (s *Service) ObserveSweepDuration(duration float64) {
	s.SweepDuration.Observe(duration)
}

func (s *Service) IncTxRetries() {
	s.TxRetries.Inc()
}

func (s *Service) IncContention() {
	s.Contention.Inc()
}

func (s *Service) IncBalancerFallbacks() {
	s.BalancerFallbacks.Inc()
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
