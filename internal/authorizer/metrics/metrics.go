package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for transfer authorization.
type Metrics struct {
	Decisions     *prometheus.CounterVec
	DecideLatency prometheus.Histogram
}

// New creates and registers the authorizer metrics.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "purposepay_authorizer_decisions_total",
			Help: "Transfer authorization decisions by outcome and reason",
		}, []string{"allowed", "reason"}),

		DecideLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "purposepay_authorizer_decide_duration_seconds",
			Help:    "Duration of authorization including whitelist lookups",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

func (m *Metrics) IncrementDecision(allowed bool, reason string) {
	if m != nil {
		label := "false"
		if allowed {
			label = "true"
		}
		m.Decisions.WithLabelValues(label, reason).Inc()
	}
}

func (m *Metrics) ObserveDecideLatency(d time.Duration) {
	if m != nil {
		m.DecideLatency.Observe(d.Seconds())
	}
}
