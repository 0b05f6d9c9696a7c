package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// ServiceMetrics records repository service activity.
type ServiceMetrics interface {
	// RecordOperation records a completed service operation. Failed
	// operations are also counted by error kind.
	RecordOperation(operation string, duration time.Duration, err error)

	// RecordContentBytes counts content stream bytes by direction ("in"
	// or "out").
	RecordContentBytes(direction string, n int64)

	// SetObjectCount updates the number of stored objects.
	SetObjectCount(n int)
}

type serviceMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	contentBytes      *prometheus.CounterVec
	objects           prometheus.Gauge
}

// NewServiceMetrics registers the service metrics with reg. A nil reg
// yields a no-op implementation.
func NewServiceMetrics(reg prometheus.Registerer) ServiceMetrics {
	if reg == nil {
		return NoopServiceMetrics{}
	}
	return &serviceMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmis_operations_total",
				Help: "Total number of repository operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "cmis_operation_duration_seconds",
				Help: "Duration of repository operations in seconds",
				Buckets: []float64{
					0.00001, // 10µs
					0.0001,  // 100µs
					0.001,   // 1ms
					0.01,    // 10ms
					0.1,     // 100ms
					1.0,     // 1s
				},
			},
			[]string{"operation"},
		),
		errorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmis_operation_errors_total",
				Help: "Total number of failed repository operations by operation and error kind",
			},
			[]string{"operation", "kind"},
		),
		contentBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmis_content_bytes_total",
				Help: "Total content stream bytes read from or written to clients",
			},
			[]string{"direction"},
		),
		objects: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "cmis_objects",
				Help: "Current number of stored objects",
			},
		),
	}
}

func (m *serviceMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		m.errorsTotal.WithLabelValues(operation, cmis.KindOf(err).String()).Inc()
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *serviceMetrics) RecordContentBytes(direction string, n int64) {
	m.contentBytes.WithLabelValues(direction).Add(float64(n))
}

func (m *serviceMetrics) SetObjectCount(n int) {
	m.objects.Set(float64(n))
}

// NoopServiceMetrics discards all measurements.
type NoopServiceMetrics struct{}

func (NoopServiceMetrics) RecordOperation(operation string, duration time.Duration, err error) {}
func (NoopServiceMetrics) RecordContentBytes(direction string, n int64)                        {}
func (NoopServiceMetrics) SetObjectCount(n int)                                                {}
