package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	WhitelistChanges    *prometheus.CounterVec
	ActiveBeneficiaries prometheus.Gauge
	ActiveMerchants     prometheus.Gauge
	TransfersRecorded   *prometheus.CounterVec
	Distributions       *prometheus.CounterVec
	UnauthorizedCalls   *prometheus.CounterVec
	RecordDuration      prometheus.Histogram
}

// New creates a new Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		WhitelistChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "purposepay_registry_whitelist_changes_total",
			Help: "Whitelist additions and removals by kind",
		}, []string{"kind", "change"}), // kind: beneficiary|merchant, change: added|removed
		ActiveBeneficiaries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "purposepay_registry_active_beneficiaries",
			Help: "Active beneficiaries after the last whitelist change",
		}),
		ActiveMerchants: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "purposepay_registry_active_merchants",
			Help: "Active merchants after the last whitelist change",
		}),
		TransfersRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "purposepay_registry_transfer_records_total",
			Help: "RecordTransfer calls by outcome",
		}, []string{"outcome"}), // outcome: appended|skipped
		Distributions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "purposepay_registry_distribution_records_total",
			Help: "RecordDistribution calls by outcome",
		}, []string{"outcome"}),
		UnauthorizedCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "purposepay_registry_unauthorized_calls_total",
			Help: "Privileged registry calls rejected by caller check",
		}, []string{"operation"}),
		RecordDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "purposepay_registry_record_transfer_duration_seconds",
			Help:    "Duration of RecordTransfer including the log append",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

func (m *Metrics) IncrementWhitelistChange(kind, change string) {
	if m != nil {
		m.WhitelistChanges.WithLabelValues(kind, change).Inc()
	}
}

func (m *Metrics) SetActive(beneficiaries, merchants int) {
	if m != nil {
		m.ActiveBeneficiaries.Set(float64(beneficiaries))
		m.ActiveMerchants.Set(float64(merchants))
	}
}

func (m *Metrics) IncrementTransferRecord(appended bool) {
	if m != nil {
		m.TransfersRecorded.WithLabelValues(outcome(appended)).Inc()
	}
}

func (m *Metrics) IncrementDistributionRecord(applied bool) {
	if m != nil {
		m.Distributions.WithLabelValues(outcome(applied)).Inc()
	}
}

func (m *Metrics) IncrementUnauthorized(operation string) {
	if m != nil {
		m.UnauthorizedCalls.WithLabelValues(operation).Inc()
	}
}

// ObserveRecordDuration records time since start.
func (m *Metrics) ObserveRecordDuration(start time.Time) {
	if m != nil {
		m.RecordDuration.Observe(time.Since(start).Seconds())
	}
}

func outcome(applied bool) string {
	if applied {
		return "appended"
	}
	return "skipped"
}
