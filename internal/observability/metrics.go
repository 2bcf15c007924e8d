package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce              sync.Once
	apiRequestsTotal          *prometheus.CounterVec
	apiLatencySeconds         *prometheus.HistogramVec
	apiErrorsTotal            *prometheus.CounterVec
	sweepRunsTotal            *prometheus.CounterVec
	sweepDurationSeconds      *prometheus.HistogramVec
	sweepFailuresTotal        *prometheus.CounterVec
	scheduleTransitionsTotal  *prometheus.CounterVec
	engagementTransitionTotal *prometheus.CounterVec
	courseRecalculationsTotal *prometheus.CounterVec
	remindersSentTotal        prometheus.Counter
	notificationsPublished    *prometheus.CounterVec
	paymentsTotal             *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the reconciler.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		sweepRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciliation_runs_total",
			Help: "Periodic reconciliation job executions.",
		}, []string{"job"})

		sweepDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reconciliation_duration_seconds",
			Help:    "Wall time spent per reconciliation job run.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"job"})

		sweepFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciliation_failures_total",
			Help: "Per-engagement failures caught inside reconciliation jobs.",
		}, []string{"job"})

		scheduleTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_item_transitions_total",
			Help: "Schedule item status changes by target status and cause.",
		}, []string{"status", "cause"})

		engagementTransitionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engagement_transitions_total",
			Help: "Engagement status changes by target status.",
		}, []string{"status"})

		courseRecalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "course_status_recalculations_total",
			Help: "Course status recalculations by resulting status.",
		}, []string{"status"})

		remindersSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engagement_reminders_sent_total",
			Help: "Starting-soon reminders dispatched.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Notifications published by type.",
		}, []string{"type"})

		paymentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment state changes by status.",
		}, []string{"status"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			sweepRunsTotal, sweepDurationSeconds, sweepFailuresTotal,
			scheduleTransitionsTotal, engagementTransitionTotal,
			courseRecalculationsTotal, remindersSentTotal,
			notificationsPublished, paymentsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// SweepRuns counts reconciliation job executions.
func SweepRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return sweepRunsTotal
}

// SweepDuration observes reconciliation job duration.
func SweepDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return sweepDurationSeconds
}

// SweepFailures counts errors swallowed by reconciliation jobs.
func SweepFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return sweepFailuresTotal
}

// ScheduleTransitions counts schedule item status changes.
func ScheduleTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return scheduleTransitionsTotal
}

// EngagementTransitions counts engagement status changes.
func EngagementTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return engagementTransitionTotal
}

// CourseRecalculations counts course status recalculations.
func CourseRecalculations() *prometheus.CounterVec {
	RegisterMetrics()
	return courseRecalculationsTotal
}

// RemindersSent counts dispatched reminders.
func RemindersSent() prometheus.Counter {
	RegisterMetrics()
	return remindersSentTotal
}

// NotificationsPublished counts notifications by type.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// Payments counts payment state changes.
func Payments() *prometheus.CounterVec {
	RegisterMetrics()
	return paymentsTotal
}
