// Package observability holds the Prometheus collectors for the tracker.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "tracker",
		Name:      "workouts_created_total",
		Help:      "Number of workouts created or changed, by type.",
	}, []string{"type"})

	workoutsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "tracker",
		Name:      "workouts_deleted_total",
		Help:      "Number of workouts deleted one at a time.",
	})

	validationRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "tracker",
		Name:      "validation_rejections_total",
		Help:      "Number of form submissions rejected, by first invalid field.",
	}, []string{"field"})

	persistenceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "persistence",
		Name:      "failures_total",
		Help:      "Number of failed persistence operations, by operation.",
	}, []string{"op"})

	workoutsCurrent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "tracker",
		Name:      "workouts",
		Help:      "Number of workouts currently in the collection.",
	})
)

func init() {
	prometheus.MustRegister(workoutsCreated, workoutsDeleted, validationRejections, persistenceFailures, workoutsCurrent)
}

// RecordCreated counts a created workout of the given type.
func RecordCreated(kind string) {
	workoutsCreated.WithLabelValues(kind).Inc()
}

// RecordDeleted counts a deleted workout.
func RecordDeleted() {
	workoutsDeleted.Inc()
}

// RecordRejected counts a submission rejected on field.
func RecordRejected(field string) {
	validationRejections.WithLabelValues(field).Inc()
}

// RecordPersistenceFailure counts a failed save, load or clear.
func RecordPersistenceFailure(op string) {
	persistenceFailures.WithLabelValues(op).Inc()
}

// SetWorkouts updates the collection size gauge.
func SetWorkouts(n int) {
	workoutsCurrent.Set(float64(n))
}
