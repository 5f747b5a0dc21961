package media

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for attachment storage operations.
type Observer interface {
	RecordUpload(duration time.Duration, sizeBytes int64, err error)
	RecordDelete(duration time.Duration, err error)
	RecordRejected(reason string)
}

// PrometheusObserver exports attachment metrics to Prometheus.
type PrometheusObserver struct {
	duration    *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	uploadBytes prometheus.Counter
}

// NewPrometheusObserver registers upload/delete metrics.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "media"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	observer := &PrometheusObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency for attachment storage operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Count of attachment storage failures.",
		}, []string{"operation"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_rejected_total",
			Help:      "Uploads rejected before reaching storage.",
		}, []string{"reason"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Cumulative payload size successfully uploaded to object storage.",
		}),
	}
	collectors := []prometheus.Collector{observer.duration, observer.errors, observer.rejected, observer.uploadBytes}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, fmt.Errorf("register media metric: %w", err)
		}
	}
	return observer, nil
}

// RecordUpload tracks upload duration, size, and failures.
func (o *PrometheusObserver) RecordUpload(duration time.Duration, sizeBytes int64, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues("upload").Observe(duration.Seconds())
	if err != nil {
		o.errors.WithLabelValues("upload").Inc()
		return
	}
	if sizeBytes > 0 {
		o.uploadBytes.Add(float64(sizeBytes))
	}
}

func (o *PrometheusObserver) RecordDelete(duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues("delete").Observe(duration.Seconds())
	if err != nil {
		o.errors.WithLabelValues("delete").Inc()
	}
}

func (o *PrometheusObserver) RecordRejected(reason string) {
	if o == nil {
		return
	}
	o.rejected.WithLabelValues(reason).Inc()
}

type nopObserver struct{}

func (nopObserver) RecordUpload(time.Duration, int64, error) {}

func (nopObserver) RecordDelete(time.Duration, error) {}

func (nopObserver) RecordRejected(string) {}
