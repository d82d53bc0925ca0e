package wata

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts vendor API calls. A nil *Metrics is a no-op.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "miniapp",
			Subsystem: "vendor",
			Name:      "requests_total",
			Help:      "Vendor API calls by operation and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "miniapp",
			Subsystem: "vendor",
			Name:      "request_duration_seconds",
			Help:      "Vendor API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	if err := reg.Register(m.requests); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, errors.Wrap(err, "register vendor requests metric")
		}
		m.requests = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(m.duration); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, errors.Wrap(err, "register vendor duration metric")
		}
		m.duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}

	return m, nil
}

func (m *Metrics) observe(operation string, status int, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := strconv.Itoa(status)
	if status == 0 && err != nil {
		label = "transport_error"
	}
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
	m.requests.WithLabelValues(operation, label).Inc()
}
