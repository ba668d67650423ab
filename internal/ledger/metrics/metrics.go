package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the token ledger.
type Metrics struct {
	Transfers        *prometheus.CounterVec
	Issuance         *prometheus.CounterVec
	RecordFailures   prometheus.Counter
	TransferDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Transfers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "purposepay_ledger_transfers_total",
			Help: "Transfer attempts by outcome",
		}, []string{"outcome"}), // outcome: committed|restricted|insufficient|paused|error
		Issuance: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "purposepay_ledger_issuance_total",
			Help: "Successful mints by path",
		}, []string{"path"}), // path: distribute|mint
		RecordFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "purposepay_ledger_record_failures_total",
			Help: "Committed transfers the registry failed to record",
		}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "purposepay_ledger_transfer_duration_seconds",
			Help:    "Duration of Transfer including authorization and recording",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
	}
}

func (m *Metrics) IncrementTransfer(outcome string) {
	if m != nil {
		m.Transfers.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementIssuance(path string) {
	if m != nil {
		m.Issuance.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) IncrementRecordFailure() {
	if m != nil {
		m.RecordFailures.Inc()
	}
}

func (m *Metrics) ObserveTransferDuration(start time.Time) {
	if m != nil {
		m.TransferDuration.Observe(time.Since(start).Seconds())
	}
}
