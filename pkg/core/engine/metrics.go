package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// rowsGenerated counts cells written per strategy.
	rowsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datagen_rows_generated_total",
			Help: "Total number of cells written by generation steps",
		},
		[]string{"strategy"},
	)

	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datagen_step_duration_seconds",
			Help:    "Duration of a single column generation",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"strategy"},
	)

	// runsTotal counts finished runs by outcome (ok, failed, canceled).
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datagen_runs_total",
			Help: "Total number of generation runs by status",
		},
		[]string{"status"},
	)
)
