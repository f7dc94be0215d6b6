package progress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// answersChecked counts quiz checks by outcome.
	answersChecked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lens_answers_checked_total",
		Help: "Quiz answers checked, by outcome",
	}, []string{"outcome"})

	// lessonsCompleted counts first-time completions.
	lessonsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lens_lessons_completed_total",
		Help: "Lessons completed for the first time",
	})

	// storeErrors counts document store failures by operation.
	storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lens_progress_store_errors_total",
		Help: "Progress store failures, by operation",
	}, []string{"op"})
)

// ObserveAnswer records one quiz check outcome.
func ObserveAnswer(outcome string) {
	answersChecked.WithLabelValues(outcome).Inc()
}

// ObserveCompletion records one first-time lesson completion.
func ObserveCompletion() {
	lessonsCompleted.Inc()
}
