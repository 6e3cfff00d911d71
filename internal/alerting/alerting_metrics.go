package alerting

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the alerting pipeline.
type Metrics struct {
	SnapshotsTotal        *prometheus.CounterVec
	CandidatesTotal       *prometheus.CounterVec
	GateDecisionsTotal    *prometheus.CounterVec
	AlertsPersistedTotal  *prometheus.CounterVec
	DeliveriesTotal       *prometheus.CounterVec
	DeliveryBatchDuration prometheus.Histogram
	DeliveryBatchSize     prometheus.Histogram
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SnapshotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_snapshots_total",
			Help: "Snapshots processed by outcome.",
		}, []string{"outcome"}),
		CandidatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_candidates_total",
			Help: "Candidate alerts produced by rule evaluation.",
		}, []string{"type", "severity"}),
		GateDecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_gate_decisions_total",
			Help: "Gate admissions and suppressions by reason.",
		}, []string{"decision"}),
		AlertsPersistedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alerts_persisted_total",
			Help: "Alerts admitted and persisted by severity.",
		}, []string{"severity"}),
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_deliveries_total",
			Help: "Delivery attempts by result.",
		}, []string{"result"}),
		DeliveryBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_delivery_batch_duration_seconds",
			Help:    "Duration of delivery coordinator passes.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}),
		DeliveryBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_delivery_batch_size",
			Help:    "Undelivered alerts pulled per coordinator pass.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 .. 512
		}),
	}

	reg.MustRegister(
		m.SnapshotsTotal,
		m.CandidatesTotal,
		m.GateDecisionsTotal,
		m.AlertsPersistedTotal,
		m.DeliveriesTotal,
		m.DeliveryBatchDuration,
		m.DeliveryBatchSize,
	)

	return m
}
