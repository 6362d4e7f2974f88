package scheduler

import "github.com/prometheus/client_golang/prometheus"

// metrics mirrors the in-process per-operation histograms as Prometheus
// vectors labeled by worker index and operation name, so an operator can
// scrape /metrics instead of only polling GetThreadInfo.
type metrics struct {
	opDuration    *prometheus.HistogramVec
	workerState   *prometheus.GaugeVec
	assignedCount *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediaengine",
			Subsystem: "scheduler",
			Name:      "op_duration_seconds",
			Help:      "Per-worker, per-operation tick phase duration.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
		}, []string{"worker", "op"}),
		workerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mediaengine",
			Subsystem: "scheduler",
			Name:      "worker_state",
			Help:      "Worker state: 0=run, 1=energy_saver.",
		}, []string{"worker"}),
		assignedCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mediaengine",
			Subsystem: "scheduler",
			Name:      "assigned_sessions",
			Help:      "Number of sessions currently assigned to a worker.",
		}, []string{"worker"}),
	}
	if reg != nil {
		reg.MustRegister(m.opDuration, m.workerState, m.assignedCount)
	}
	return m
}
