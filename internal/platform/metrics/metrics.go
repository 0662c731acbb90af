package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"haven/pkg/domain"
)

// Metrics holds the process-level Prometheus metrics. Domain packages own
// their finer-grained metrics next to the code that drives them.
type Metrics struct {
	CurrentMode           *prometheus.GaugeVec
	TransitionsCommitted  *prometheus.CounterVec
	TransitionsRejected   *prometheus.CounterVec
	EmergencyRunsStarted  prometheus.Counter
	EmergencyRunsFinished *prometheus.CounterVec
}

// New creates and registers all process-level Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CurrentMode: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "haven_mode",
			Help: "Current mode, 1 for the active mode and 0 for the rest",
		}, []string{"mode"}),
		TransitionsCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_mode_transitions_total",
			Help: "Committed mode transitions by trigger",
		}, []string{"from", "to", "trigger"}),
		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_mode_rejections_total",
			Help: "Rejected transition attempts by trigger and reason",
		}, []string{"trigger", "reason"}),
		EmergencyRunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_emergency_runs_started_total",
			Help: "Emergency pipeline runs armed",
		}),
		EmergencyRunsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_emergency_runs_finished_total",
			Help: "Emergency pipeline runs reaching a terminal state",
		}, []string{"outcome"}),
	}
}

// SetMode flips the mode gauge so exactly the active mode reads 1.
func (m *Metrics) SetMode(mode domain.Mode) {
	for _, known := range []domain.Mode{
		domain.ModeNormal, domain.ModeStealth,
		domain.ModeEmergencyPending, domain.ModeEmergencyActive, domain.ModeEmergencyWinding,
	} {
		v := 0.0
		if known == mode {
			v = 1.0
		}
		m.CurrentMode.WithLabelValues(string(known)).Set(v)
	}
}
