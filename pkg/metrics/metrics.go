// Package metrics exposes the Prometheus instrumentation surface for
// smartdispatch: queue depth, command throughput and duration, PBS job
// submission outcomes, and worker liveness.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Queue metrics
	CommandsPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartdispatch_commands_pending",
			Help: "Number of commands currently pending, by batch",
		},
		[]string{"batch_uid"},
	)

	CommandsRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartdispatch_commands_running",
			Help: "Number of commands currently running, by batch",
		},
		[]string{"batch_uid"},
	)

	CommandsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartdispatch_commands_finished_total",
			Help: "Total number of commands that completed with exit code 0, by batch",
		},
		[]string{"batch_uid"},
	)

	CommandsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartdispatch_commands_failed_total",
			Help: "Total number of commands that completed with a non-zero exit code, by batch",
		},
		[]string{"batch_uid"},
	)

	CommandsRequeuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartdispatch_commands_requeued_total",
			Help: "Total number of commands requeued after an interrupted run, by batch",
		},
		[]string{"batch_uid"},
	)

	// Worker metrics
	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartdispatch_command_duration_seconds",
			Help:    "Wall-clock duration of a single command execution",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16), // 1s .. ~9h
		},
		[]string{"batch_uid"},
	)

	WorkersActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartdispatch_workers_active",
			Help: "Number of worker loops currently claiming commands, by job id",
		},
		[]string{"job_id"},
	)

	LockWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smartdispatch_lock_wait_duration_seconds",
			Help:    "Time spent waiting to acquire the command-state file lock",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PBS / launch metrics
	JobsSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartdispatch_jobs_submitted_total",
			Help: "Total number of PBS jobs submitted, by cluster and outcome",
		},
		[]string{"cluster", "outcome"},
	)

	ScriptsPacked = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartdispatch_scripts_packed",
			Help: "Number of PBS scripts produced by the most recent packing plan, by batch",
		},
		[]string{"batch_uid"},
	)

	// History metrics
	HistoryPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smartdispatch_history_pruned_total",
			Help: "Total number of batch history rows pruned by the retention cleaner",
		},
	)
)

func init() {
	prometheus.MustRegister(CommandsPending)
	prometheus.MustRegister(CommandsRunning)
	prometheus.MustRegister(CommandsFinishedTotal)
	prometheus.MustRegister(CommandsFailedTotal)
	prometheus.MustRegister(CommandsRequeuedTotal)
	prometheus.MustRegister(CommandDuration)
	prometheus.MustRegister(WorkersActive)
	prometheus.MustRegister(LockWaitDuration)
	prometheus.MustRegister(JobsSubmittedTotal)
	prometheus.MustRegister(ScriptsPacked)
	prometheus.MustRegister(HistoryPrunedTotal)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed wall-clock time for an in-flight operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
