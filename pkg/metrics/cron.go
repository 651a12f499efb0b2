package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job outcomes as reported on talentbridge_cron_job_runs_total.
const (
	JobOutcomeSuccess = "success"
	JobOutcomeFailure = "failure"
	JobOutcomeTimeout = "timeout"
)

// CronJobMetrics tracks the reconcile and retention jobs. The last-success
// gauge is what drift alerting keys on: a reconcile that stops succeeding
// must page even when nothing fails loudly.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	skipped     prometheus.Counter
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cron_job_runs_total",
			Help:      "Cron job executions by outcome.",
		}, []string{"job", "outcome"}),
		// reconciliation walks every account, so the range runs into minutes
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cron_job_duration_seconds",
			Help:      "Wall time of cron jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cron_job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run per job.",
		}, []string{"job"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cron_cycles_skipped_total",
			Help:      "Cycles skipped because another instance held the lease.",
		}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess, m.skipped)
	return m
}

// ObserveRun records one job execution.
func (c *CronJobMetrics) ObserveRun(job, outcome string, took time.Duration) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.runs.WithLabelValues(job, normalizeLabel(outcome)).Inc()
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if outcome == JobOutcomeSuccess {
		c.lastSuccess.WithLabelValues(job).SetToCurrentTime()
	}
}

func (c *CronJobMetrics) IncSkippedCycle() {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.Inc()
}
