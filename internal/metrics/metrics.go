// Package metrics exposes Prometheus metrics for the decision
// pipeline. Label values are drawn from bounded sets only.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage names (bounded label set).
const (
	StageContext        = "context"
	StageMarketAnalysis = "market_analysis"
	StageStrategies     = "strategies"
	StageRisk           = "risk"
	StageAggregation    = "aggregation"
	StageSynthesis      = "synthesis"
	StageValidation     = "validation"
	StagePipeline       = "pipeline"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decider_decisions_total",
		Help: "Decisions returned, by final action",
	}, []string{"action"})

	stageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decider_stage_failures_total",
		Help: "Pipeline stage failures that degraded to defaults",
	}, []string{"stage"})

	decisionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "decider_decision_duration_seconds",
		Help:    "Wall time of a single decision",
		Buckets: prometheus.DefBuckets,
	})

	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "decider_batch_size",
		Help:    "Number of symbols per batch decision request",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})

	benchmarkCacheFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "decider_benchmark_fetches_total",
		Help: "Benchmark history fetches issued past the cache",
	})
)

// RecordDecision counts a completed decision and its duration.
func RecordDecision(action string, duration time.Duration) {
	decisionsTotal.WithLabelValues(action).Inc()
	decisionDuration.Observe(duration.Seconds())
}

// RecordStageFailure counts a degraded pipeline stage.
func RecordStageFailure(stage string) {
	stageFailures.WithLabelValues(stage).Inc()
}

// RecordBatch counts a batch request of the given size.
func RecordBatch(size int) {
	batchSize.Observe(float64(size))
}

// RecordBenchmarkFetch counts a benchmark cache miss.
func RecordBenchmarkFetch() {
	benchmarkCacheFetches.Inc()
}
