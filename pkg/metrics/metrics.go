// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidence_helper_pages_fetched_total",
			Help: "Pages fetched by the crawl coordinator",
		},
		[]string{"result"}, // result: ok, error
	)

	EvidenceFragments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidence_helper_evidence_fragments_total",
			Help: "Evidence fragments stored after deduplication",
		},
		[]string{"kind"},
	)

	Sessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidence_helper_sessions_total",
			Help: "Research sessions by outcome",
		},
		[]string{"outcome"}, // outcome: done, error, cancelled, rejected
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evidence_helper_stage_duration_seconds",
			Help:    "Duration of research pipeline stages",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)
)

// ObserveStage records the time since start for stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
