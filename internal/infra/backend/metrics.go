package backend

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports backend call counters and latencies. A nil *Metrics is a no-op.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "miniapp",
		Subsystem: "backend",
		Name:      "requests_total",
		Help:      "Backend calls by path and outcome.",
	}, []string{"path", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "miniapp",
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Backend call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path"})

	m := &Metrics{requests: requests, duration: duration}

	if err := reg.Register(requests); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, errors.Wrap(err, "register backend requests metric")
		}
		m.requests = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(duration); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, errors.Wrap(err, "register backend duration metric")
		}
		m.duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}

	return m, nil
}

func (m *Metrics) observe(path string, resp *Response, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(path).Observe(elapsed.Seconds())
	m.requests.WithLabelValues(path, outcome(resp, err)).Inc()
}

func outcome(resp *Response, err error) string {
	switch {
	case err != nil:
		return "transport_error"
	case resp.OK():
		return "ok"
	case resp.Status >= 200 && resp.Status <= 299:
		return "rejected"
	default:
		return strconv.Itoa(resp.Status)
	}
}
