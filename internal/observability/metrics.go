package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "vdyp"

// Metrics are the batch driver's counters. Each instance owns its registry so that runs
// and tests do not share state.
type Metrics struct {
	registry *prometheus.Registry

	// polygonsTotal counts processed polygons.
	// Labels: status (prepared, failed)
	polygonsTotal *prometheus.CounterVec

	// polygonDuration measures the time to process one polygon through both stages.
	polygonDuration prometheus.Histogram

	// sizeLimitsReconciled counts species whose size limits were widened.
	sizeLimitsReconciled prometheus.Counter

	// contractViolations counts runs aborted by a contract violation.
	contractViolations prometheus.Counter
}

// NewMetrics creates the batch metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		polygonsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "batch",
			Name:      "polygons_total",
			Help:      "Total polygons processed by outcome",
		}, []string{"status"}),
		polygonDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "batch",
			Name:      "polygon_duration_seconds",
			Help:      "Time to process one polygon through the forward and back stages",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		sizeLimitsReconciled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "prepare",
			Name:      "size_limits_reconciled_total",
			Help:      "Total species whose baseline size limits were widened to the observed values",
		}),
		contractViolations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "batch",
			Name:      "contract_violations_total",
			Help:      "Total runs aborted by a contract violation",
		}),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePolygon records one polygon's outcome and processing time.
func (m *Metrics) ObservePolygon(status string, seconds float64) {
	m.polygonsTotal.WithLabelValues(status).Inc()
	m.polygonDuration.Observe(seconds)
}

// AddReconciled adds n species with widened size limits.
func (m *Metrics) AddReconciled(n int) {
	m.sizeLimitsReconciled.Add(float64(n))
}

// ContractViolation records an aborted run.
func (m *Metrics) ContractViolation() {
	m.contractViolations.Inc()
}

// WriteTextfile writes the current values in the Prometheus text format, for collection
// by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
