// Package metrics exposes Prometheus instrumentation for the scan scheduler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ScanMetrics struct {
	registry *prometheus.Registry

	jobsTotal       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobsInFlight    prometheus.Gauge
	cellsEvaluated  prometheus.Counter
	detectionsTotal *prometheus.CounterVec
}

func NewScanMetrics() *ScanMetrics {
	registry := prometheus.NewRegistry()

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orescout",
			Subsystem: "scheduler",
			Name:      "jobs_total",
			Help:      "Total processed scan jobs by final status.",
		},
		[]string{"status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "orescout",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scan job processing duration in seconds by final status.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"status"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "orescout",
			Subsystem: "scheduler",
			Name:      "jobs_in_flight",
			Help:      "Number of scan jobs currently being processed.",
		},
	)
	cellsEvaluated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "orescout",
			Subsystem: "scheduler",
			Name:      "cells_evaluated_total",
			Help:      "Total ground cells fanned out to the detection evaluator.",
		},
	)
	detectionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orescout",
			Subsystem: "scheduler",
			Name:      "detections_total",
			Help:      "Total accepted detections by confidence tier.",
		},
		[]string{"tier"},
	)

	registry.MustRegister(jobsTotal, jobDuration, jobsInFlight, cellsEvaluated, detectionsTotal)

	return &ScanMetrics{
		registry:        registry,
		jobsTotal:       jobsTotal,
		jobDuration:     jobDuration,
		jobsInFlight:    jobsInFlight,
		cellsEvaluated:  cellsEvaluated,
		detectionsTotal: detectionsTotal,
	}
}

func (m *ScanMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ScanMetrics) StartJob() {
	m.jobsInFlight.Inc()
}

func (m *ScanMetrics) FinishJob(status string, duration time.Duration) {
	m.jobsInFlight.Dec()
	m.jobsTotal.WithLabelValues(status).Inc()
	m.jobDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *ScanMetrics) CellEvaluated() {
	m.cellsEvaluated.Inc()
}

func (m *ScanMetrics) DetectionAccepted(tier string) {
	m.detectionsTotal.WithLabelValues(tier).Inc()
}
