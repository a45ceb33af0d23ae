package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	CarrierErrors     *prometheus.CounterVec
}

// NewMetrics creates and registers metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers metrics on the given registerer. Tests pass a
// fresh registry so repeated setup does not collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labeld_operations_total",
				Help: "Total number of lifecycle operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "labeld_operation_duration_seconds",
				Help:    "Lifecycle operation duration in seconds by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CarrierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labeld_carrier_errors_total",
				Help: "Total carrier API errors by carrier and error code",
			},
			[]string{"carrier", "error_code"},
		),
	}
}

// RecordOperation records a lifecycle operation metric.
func (m *Metrics) RecordOperation(operation, status string, duration float64) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCarrierError records a carrier error metric.
func (m *Metrics) RecordCarrierError(carrier, errorCode string) {
	if errorCode == "" {
		errorCode = "unknown"
	}
	m.CarrierErrors.WithLabelValues(carrier, errorCode).Inc()
}
