package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// syncsTotal counts sync attempts by result:
	// "ok", "read_error", "write_error", "conflict", "canceled".
	syncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zone5_syncs_total",
		Help: "Sync transactions by result",
	}, []string{"result"})

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zone5_sync_duration_seconds",
		Help:    "Read-merge-write duration",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	samplesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zone5_samples_ingested_total",
		Help: "Heart rate samples received in committed syncs",
	})

	daysChanged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zone5_days_changed_total",
		Help: "Stored days whose minutes increased or appeared",
	})

	sinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zone5_sink_failures_total",
		Help: "Post-commit notification failures by sink",
	}, []string{"sink"})
)
