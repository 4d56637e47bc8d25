package core

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "shardroute"

// PrometheusRecorder exports operation latencies and shard activations as
// Prometheus collectors.
type PrometheusRecorder struct {
	durations   *prometheus.HistogramVec
	activations *prometheus.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	p := &PrometheusRecorder{
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "operation_duration_seconds",
				Help:      "Latency of routed record operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		activations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "shard_activations_total",
				Help:      "Count of shard switches performed by units of work.",
			},
			[]string{"from", "to"},
		),
	}
	for _, c := range []prometheus.Collector{p.durations, p.activations} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return p, nil
}

// Observe implements MetricsRecorder.
func (p *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	p.durations.WithLabelValues(operation, statusLabel(success)).Observe(duration.Seconds())
}

// ObserveActivation implements shard.ActivationObserver.
func (p *PrometheusRecorder) ObserveActivation(from, to string) {
	p.activations.WithLabelValues(from, to).Inc()
}
