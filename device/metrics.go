package device

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/smntfs/go-smntfs/ioerr"
)

var (
	deviceOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smntfs",
			Subsystem: "device",
			Name:      "operations_total",
			Help:      "Total number of read, write and flush operations issued against block devices.",
		},
		[]string{"operation"})
	deviceOperationBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smntfs",
			Subsystem: "device",
			Name:      "operation_bytes_total",
			Help:      "Total number of bytes transferred by read and write operations against block devices.",
		},
		[]string{"operation"})
	deviceOperationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smntfs",
			Subsystem: "device",
			Name:      "operation_duration_seconds",
			Help:      "Amount of time spent per operation against block devices, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 12),
		},
		[]string{"operation"})
	deviceOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smntfs",
			Subsystem: "device",
			Name:      "operation_errors_total",
			Help:      "Total number of failed operations against block devices, by error kind.",
		},
		[]string{"operation", "kind"})
)

func init() {
	prometheus.MustRegister(deviceOperationsTotal)
	prometheus.MustRegister(deviceOperationBytesTotal)
	prometheus.MustRegister(deviceOperationDurationSeconds)
	prometheus.MustRegister(deviceOperationErrorsTotal)
}

type operationMetrics struct {
	name     string
	total    prometheus.Counter
	bytes    prometheus.Counter
	duration prometheus.Observer
}

func newOperationMetrics(name string) operationMetrics {
	return operationMetrics{
		name:     name,
		total:    deviceOperationsTotal.WithLabelValues(name),
		bytes:    deviceOperationBytesTotal.WithLabelValues(name),
		duration: deviceOperationDurationSeconds.WithLabelValues(name),
	}
}

func (m operationMetrics) observe(timeStart time.Time, n int) {
	m.total.Inc()
	if n > 0 {
		m.bytes.Add(float64(n))
	}
	m.duration.Observe(time.Since(timeStart).Seconds())
}

func (m operationMetrics) failed(kind ioerr.Kind) {
	deviceOperationErrorsTotal.WithLabelValues(m.name, kind.String()).Inc()
}
