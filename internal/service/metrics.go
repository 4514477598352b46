package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts review lifecycle events.
type Metrics struct {
	submitted *prometheus.CounterVec
	moderated *prometheus.CounterVec
	helpful   prometheus.Counter
	statsHits *prometheus.CounterVec
}

// NewMetrics creates review metrics and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_submitted_total",
			Help: "Reviews accepted, by initial status",
		}, []string{"status"}),
		moderated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_moderated_total",
			Help: "Moderation transitions, by target status",
		}, []string{"status"}),
		helpful: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reviews_helpful_votes_total",
			Help: "Helpful votes recorded",
		}),
		statsHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_stats_cache_requests_total",
			Help: "Statistics cache lookups, by result",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.submitted, m.moderated, m.helpful, m.statsHits)
	}
	return m
}
