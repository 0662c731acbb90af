package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the stealth session counters.
type Metrics struct {
	Activations    *prometheus.CounterVec
	Deactivations  *prometheus.CounterVec
	UnlockAttempts prometheus.Counter
	UnlockMatches  prometheus.Counter
	IdleDeferrals  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Activations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_stealth_activations_total",
			Help: "Stealth activations by method",
		}, []string{"method"}),
		Deactivations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_stealth_deactivations_total",
			Help: "Stealth deactivations by method",
		}, []string{"method"}),
		UnlockAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_stealth_unlock_inputs_total",
			Help: "Unlock input tokens fed to the matcher",
		}),
		UnlockMatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_stealth_unlock_matches_total",
			Help: "Unlock sequences matched",
		}),
		IdleDeferrals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_stealth_idle_deferrals_total",
			Help: "Idle timeouts deferred because an emergency pipeline was in flight",
		}),
	}
}
