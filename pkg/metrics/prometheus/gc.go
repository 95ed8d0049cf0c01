package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Schwartzmorn/filevault/pkg/metrics"
)

// gcMetrics is the Prometheus implementation of metrics.GCMetrics.
type gcMetrics struct {
	runsTotal      prometheus.Counter
	errorsTotal    prometheus.Counter
	runDuration    prometheus.Histogram
	orphansFound   prometheus.Counter
	blobsReclaimed prometheus.Counter
}

// NewGCMetrics creates a Prometheus-backed GCMetrics instance, or a no-op
// one when metrics are disabled.
func NewGCMetrics() metrics.GCMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopGCMetrics()
	}

	reg := metrics.GetRegistry()

	return &gcMetrics{
		runsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filevault_gc_runs_total",
				Help: "Total number of completed garbage collection cycles",
			},
		),
		errorsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filevault_gc_errors_total",
				Help: "Total number of failed garbage collection cycles",
			},
		),
		runDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "filevault_gc_run_duration_milliseconds",
				Help: "Duration of garbage collection cycles in milliseconds",
				Buckets: []float64{
					10,     // 10ms
					100,    // 100ms
					1000,   // 1s
					10000,  // 10s
					60000,  // 1m
					600000, // 10m
				},
			},
		),
		orphansFound: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filevault_gc_orphans_found_total",
				Help: "Total orphan blobs discovered across all cycles",
			},
		),
		blobsReclaimed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filevault_gc_blobs_reclaimed_total",
				Help: "Total orphan blobs actually deleted",
			},
		),
	}
}

func (m *gcMetrics) RecordRun(duration time.Duration, orphans int, reclaimed int) {
	m.runsTotal.Inc()
	m.runDuration.Observe(duration.Seconds() * 1000)
	m.orphansFound.Add(float64(orphans))
	m.blobsReclaimed.Add(float64(reclaimed))
}

func (m *gcMetrics) RecordError() {
	m.errorsTotal.Inc()
}
