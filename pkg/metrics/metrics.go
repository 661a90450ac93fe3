// Package metrics exposes Prometheus instrumentation for comparative jobs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	submitted *prometheus.CounterVec
	finished  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	queued    prometheus.Gauge
	running   prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		submitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cgcompare_jobs_submitted_total",
			Help: "Job submissions by kind and outcome (accepted or rejected)",
		}, []string{"kind", "outcome"}),
		finished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cgcompare_jobs_finished_total",
			Help: "Finished jobs by kind and final status",
		}, []string{"kind", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cgcompare_job_duration_seconds",
			Help:    "Time from acceptance to completion",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~45min
		}, []string{"kind"}),
		queued: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cgcompare_jobs_queued",
			Help: "Jobs waiting for a worker",
		}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cgcompare_jobs_running",
			Help: "Jobs being computed",
		}),
	}
}

func (m *Metrics) Submitted(kind, outcome string) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Queued(delta float64) {
	if m == nil {
		return
	}
	m.queued.Add(delta)
}

func (m *Metrics) Running(delta float64) {
	if m == nil {
		return
	}
	m.running.Add(delta)
}

func (m *Metrics) Finished(kind, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.finished.WithLabelValues(kind, status).Inc()
	m.duration.WithLabelValues(kind).Observe(took.Seconds())
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
