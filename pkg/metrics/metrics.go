// Package metrics exposes Prometheus instrumentation for the job
// orchestration pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the orchestration metrics.
type Collector struct {
	JobsSubmitted  *prometheus.CounterVec
	JobsCompleted  prometheus.Counter
	JobsFailed     prometheus.Counter
	JobsCancelled  prometheus.Counter
	ActiveJobs     prometheus.Gauge
	ProviderErrors *prometheus.CounterVec
	PollDuration   prometheus.Histogram
}

// NewCollector creates the metric set and registers it with reg. Tests
// pass a private registry for isolation; the daemon passes
// prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		JobsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_jobs_submitted_total",
			Help: "Jobs accepted for submission, by provider.",
		}, []string{"provider"}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cortex_jobs_completed_total",
			Help: "Jobs observed reaching the completed state.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cortex_jobs_failed_total",
			Help: "Jobs observed reaching the failed state.",
		}),
		JobsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cortex_jobs_cancelled_total",
			Help: "Jobs cancelled before completion.",
		}),
		ActiveJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cortex_active_jobs",
			Help: "Jobs currently tracked in a non-terminal state.",
		}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_provider_errors_total",
			Help: "Provider operation failures, by provider and operation.",
		}, []string{"provider", "operation"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cortex_poll_pass_duration_seconds",
			Help:    "Duration of full reconciliation passes.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.JobsSubmitted,
		c.JobsCompleted,
		c.JobsFailed,
		c.JobsCancelled,
		c.ActiveJobs,
		c.ProviderErrors,
		c.PollDuration,
	)
	return c
}

// NewNopCollector returns a collector backed by a throwaway registry.
func NewNopCollector() *Collector {
	return NewCollector(prometheus.NewRegistry())
}
