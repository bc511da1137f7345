package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	checkTotal    *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	checkInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	checkTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vat",
			Subsystem: "worker",
			Name:      "check_total",
			Help:      "Total dispatched checks handled by status.",
		},
		[]string{"service", "status"},
	)
	checkDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vat",
			Subsystem: "worker",
			Name:      "check_duration_seconds",
			Help:      "Dispatched check duration in seconds by status.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	checkInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vat",
			Subsystem: "worker",
			Name:      "check_in_flight",
			Help:      "Number of in-flight dispatched checks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(checkTotal, checkDuration, checkInFlight)

	return &WorkerMetrics{
		registry:      registry,
		checkTotal:    checkTotal,
		checkDuration: checkDuration,
		checkInFlight: checkInFlight,
	}
}

func (m *WorkerMetrics) Registerer() prometheus.Registerer {
	return m.registry
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartCheck() {
	m.checkInFlight.Inc()
}

func (m *WorkerMetrics) FinishCheck(service, status string, duration time.Duration) {
	m.checkInFlight.Dec()
	if status == "" {
		status = "unknown"
	}
	m.checkTotal.WithLabelValues(service, status).Inc()
	m.checkDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}
