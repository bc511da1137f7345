package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

// AnalysisMetrics records one observation per model endpoint attempt.
type AnalysisMetrics struct {
	service         string
	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
}

func NewAnalysisMetrics(service string, registerer prometheus.Registerer) *AnalysisMetrics {
	attemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vat",
			Subsystem: "llm",
			Name:      "attempts_total",
			Help:      "Model endpoint attempts by result kind.",
		},
		[]string{"service", "endpoint", "result"},
	)
	attemptDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vat",
			Subsystem: "llm",
			Name:      "attempt_duration_seconds",
			Help:      "Model endpoint attempt duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 120},
		},
		[]string{"service", "endpoint"},
	)
	registerer.MustRegister(attemptsTotal, attemptDuration)

	return &AnalysisMetrics{
		service:         service,
		attemptsTotal:   attemptsTotal,
		attemptDuration: attemptDuration,
	}
}

// ObserveAttempt takes an empty kind as success.
func (m *AnalysisMetrics) ObserveAttempt(endpoint string, kind domain.FailureKind, duration time.Duration) {
	result := "success"
	if kind != "" {
		result = string(kind)
	}
	m.attemptsTotal.WithLabelValues(m.service, endpoint, result).Inc()
	m.attemptDuration.WithLabelValues(m.service, endpoint).Observe(duration.Seconds())
}
