package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capsulebuddy_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "capsulebuddy_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	evaluationTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capsulebuddy_evaluation_ticks_total",
		Help: "Count of reminder evaluation ticks by result",
	}, []string{"result"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "capsulebuddy_evaluation_duration_seconds",
		Help:    "Duration of a single reminder evaluation tick",
		Buckets: prometheus.DefBuckets,
	})

	dueReminders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capsulebuddy_due_reminders_total",
		Help: "Count of reminder matches emitted by the evaluator",
	})

	evaluationFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capsulebuddy_evaluation_faults_total",
		Help: "Count of per-reminder faults isolated during evaluation",
	})

	activeReminders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "capsulebuddy_active_reminders",
		Help: "Number of active reminders seen on the last evaluation tick",
	})

	safetyLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capsulebuddy_safety_lookups_total",
		Help: "Count of drug-label safety lookups by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveEvaluation records the duration and result of an evaluation tick.
func ObserveEvaluation(result string, duration time.Duration) {
	evaluationTicks.WithLabelValues(result).Inc()
	evaluationDuration.Observe(duration.Seconds())
}

// ObserveDueReminders adds emitted matches to the due-reminder counter.
func ObserveDueReminders(count int) {
	dueReminders.Add(float64(count))
}

// ObserveEvaluationFaults adds isolated per-reminder faults to the fault counter.
func ObserveEvaluationFaults(count int) {
	evaluationFaults.Add(float64(count))
}

// SetActiveReminders sets the active reminder gauge to a specific count.
func SetActiveReminders(count int) {
	if count < 0 {
		count = 0
	}
	activeReminders.Set(float64(count))
}

// ObserveSafetyLookup increments the safety lookup counter for the given
// result ("ok", "defaulted" or "cache_hit").
func ObserveSafetyLookup(result string) {
	safetyLookups.WithLabelValues(result).Inc()
}
