package emit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_batches_emitted_total",
		Help: "Batches successfully handed to a sink.",
	}, []string{"sink"})

	publishRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_publish_retries_total",
		Help: "Publish attempts repeated after a transient failure.",
	}, []string{"sink"})

	publishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_publish_failures_total",
		Help: "Batches that failed fatally or exhausted retries.",
	}, []string{"sink"})

	circuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "datagen_circuit_state",
		Help: "Circuit breaker state per sink: 0 closed, 1 half-open, 2 open.",
	}, []string{"sink"})
)
