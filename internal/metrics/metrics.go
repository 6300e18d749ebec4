// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	JobRuns      *prometheus.CounterVec
	JobItems     *prometheus.CounterVec
	JobDuration  *prometheus.HistogramVec
	LivePushes   *prometheus.CounterVec
	LiveSessions prometheus.Gauge
	HTTPDuration *prometheus.HistogramVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		JobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unispace", Name: "job_runs_total",
			Help: "Batch job runs by job and result.",
		}, []string{"job", "result"}),
		JobItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unispace", Name: "job_items_total",
			Help: "Rows handled by batch jobs by outcome.",
		}, []string{"job", "outcome"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "unispace", Name: "job_duration_seconds",
			Help:    "Wall time of one batch job run.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"job"}),
		LivePushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unispace", Name: "live_pushes_total",
			Help: "Live notification deliveries by result.",
		}, []string{"result"}),
		LiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "unispace", Name: "live_sessions",
			Help: "Open live sessions on this instance.",
		}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "unispace", Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// NewDiscard returns collectors bound to a private registry, for tests and
// tools that do not serve /metrics.
func NewDiscard() *Metrics { return New(prometheus.NewRegistry()) }
