// Package metrics exposes Prometheus collectors for the emergency
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TriggersCoalesced prometheus.Counter
	CancelsRejected   prometheus.Counter
	StageDuration     *prometheus.HistogramVec
	StageRetries      *prometheus.CounterVec
	StageFailures     *prometheus.CounterVec
	EvidenceRetained  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		TriggersCoalesced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_emergency_triggers_coalesced_total",
			Help: "Panic triggers folded into an already active run.",
		}),
		CancelsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_emergency_cancels_rejected_total",
			Help: "Cancellation attempts rejected because capture had started.",
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "haven_emergency_stage_duration_seconds",
			Help:    "Wall time per pipeline stage, including retries.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage"}),
		StageRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_emergency_stage_retries_total",
			Help: "Stage attempts beyond the first.",
		}, []string{"stage"}),
		StageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_emergency_stage_failures_total",
			Help: "Stages that exhausted their retry bound.",
		}, []string{"stage"}),
		EvidenceRetained: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_emergency_evidence_retained_total",
			Help: "Runs that failed at upload and kept local evidence.",
		}),
	}
}
