package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomres",
			Name:      "reservation_created_total",
			Help:      "Count of reservations created.",
		},
	)

	reservationTransition = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomres",
			Name:      "reservation_transition_total",
			Help:      "Count of lifecycle transitions by target status.",
		},
		[]string{"to"},
	)

	conflictDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomres",
			Name:      "conflict_detected_total",
			Help:      "Count of rejected booking attempts by conflict code.",
		},
		[]string{"code"},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "roomres",
			Name:      "sweep_duration_seconds",
			Help:      "Time to complete one status sweep.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5},
		},
	)

	sweepAdvanced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomres",
			Name:      "sweep_advanced_total",
			Help:      "Count of reservations advanced by the sweeper, by transition.",
		},
		[]string{"transition"},
	)

	sweepFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomres",
			Name:      "sweep_failures_total",
			Help:      "Count of per-reservation failures during sweeps.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationCreated, reservationTransition, conflictDetected,
			sweepDuration, sweepAdvanced, sweepFailures,
		)
	})
}

func IncReservationCreated() {
	reservationCreated.Inc()
}

func IncTransition(to string) {
	reservationTransition.WithLabelValues(to).Inc()
}

func IncConflict(code string) {
	conflictDetected.WithLabelValues(code).Inc()
}

func ObserveSweepDuration(seconds float64) {
	sweepDuration.Observe(seconds)
}

func IncSweepAdvanced(transition string) {
	sweepAdvanced.WithLabelValues(transition).Inc()
}

func IncSweepFailure() {
	sweepFailures.Inc()
}
