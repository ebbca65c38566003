package vault

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type engineMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *engineMetrics
)

func defaultEngineMetrics() *engineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &engineMetrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "autofarm",
				Subsystem: "engine",
				Name:      "endpoint_calls_total",
				Help:      "Total endpoint executions partitioned by endpoint and outcome.",
			}, []string{"endpoint", "outcome"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "autofarm",
				Subsystem: "engine",
				Name:      "endpoint_duration_seconds",
				Help:      "Wall clock duration of endpoint executions.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"endpoint"}),
		}
		prometheus.MustRegister(engineRegistry.calls, engineRegistry.duration)
	})
	return engineRegistry
}

func (m *engineMetrics) observe(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(endpoint, outcome).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
