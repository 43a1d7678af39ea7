// Package jobmetrics instruments background task handlers.
package jobmetrics

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Task outcomes. A dropped task failed with asynq.SkipRetry and will not run
// again.
const (
	OutcomeSuccess = "success"
	OutcomeRetry   = "retry"
	OutcomeDropped = "dropped"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	queueDelay *prometheus.HistogramVec
	documents  *prometheus.CounterVec
}

// NewMetrics registers the job collectors against registerer. A nil registerer
// keeps them unregistered.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docrender_jobs_total",
			Help: "Task executions by job and outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docrender_job_duration_seconds",
			Help:    "Duration in seconds of task executions.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"job"}),
		queueDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docrender_job_queue_delay_seconds",
			Help:    "Time between a request and the start of its task.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"job"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docrender_job_documents_total",
			Help: "Documents rendered by background jobs.",
		}, []string{"job"}),
	}
	if registerer != nil {
		registerer.MustRegister(m.runs, m.duration, m.queueDelay, m.documents)
	}
	return m
}

// Tracker instruments one task execution.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts a tracker for job. A non-zero requestedAt records how long the
// task waited in the queue.
func (m *Metrics) Track(job string, requestedAt time.Time) *Tracker {
	t := &Tracker{metrics: m, job: job, start: time.Now()}
	if m != nil && !requestedAt.IsZero() && t.start.After(requestedAt) {
		m.queueDelay.WithLabelValues(job).Observe(t.start.Sub(requestedAt).Seconds())
	}
	return t
}

// End records the outcome and duration and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	t.metrics.runs.WithLabelValues(t.job, Outcome(err)).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// Outcome classifies a handler result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, asynq.SkipRetry):
		return OutcomeDropped
	default:
		return OutcomeRetry
	}
}

// AddDocuments counts the documents a job rendered.
func (m *Metrics) AddDocuments(job string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.documents.WithLabelValues(job).Add(float64(count))
}

// Documents returns the rendered documents counter of job.
func (m *Metrics) Documents(job string) prometheus.Counter {
	return m.documents.WithLabelValues(job)
}

// Runs returns the execution counter of job for outcome.
func (m *Metrics) Runs(job, outcome string) prometheus.Counter {
	return m.runs.WithLabelValues(job, outcome)
}
