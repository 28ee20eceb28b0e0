package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for book_relay_requests_total.
const (
	OutcomeSuccess       = "success"
	OutcomeBadInput      = "bad_input"
	OutcomeNotConfigured = "not_configured"
	OutcomeDeployFailed  = "deploy_failed"
	OutcomeUploadFailed  = "upload_failed"
	OutcomeError         = "error"
)

// Metrics exposes Prometheus collectors for relay activity. A nil *Metrics is a no-op.
type Metrics struct {
	requests        *prometheus.CounterVec
	receivedBytes   prometheus.Counter
	publishDuration *prometheus.HistogramVec
}

// MustNewMetrics registers the relay collectors with reg and panics on conflicts.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "book",
				Subsystem: "relay",
				Name:      "requests_total",
				Help:      "Relay invocations by outcome.",
			},
			[]string{"outcome"},
		),
		receivedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "book",
				Subsystem: "relay",
				Name:      "received_bytes_total",
				Help:      "Bytes of accepted file parts buffered by the relay.",
			},
		),
		publishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "book",
				Subsystem: "relay",
				Name:      "publish_duration_seconds",
				Help:      "Wall time of a relay invocation.",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 25, 60},
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.requests, m.receivedBytes, m.publishDuration)
	return m
}

func (m *Metrics) observe(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.publishDuration.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) received(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.receivedBytes.Add(float64(n))
}
