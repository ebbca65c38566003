package avm

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type keeperMetrics struct {
	runs      *prometheus.CounterVec
	compounds *prometheus.CounterVec
	duration  prometheus.Histogram
}

var (
	keeperMetricsOnce sync.Once
	keeperRegistry    *keeperMetrics
)

func defaultKeeperMetrics() *keeperMetrics {
	keeperMetricsOnce.Do(func() {
		keeperRegistry = &keeperMetrics{
			runs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "autofarm",
				Subsystem: "keeper",
				Name:      "runs_total",
				Help:      "Keeper runs partitioned by outcome.",
			}, []string{"outcome"}),
			compounds: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "autofarm",
				Subsystem: "keeper",
				Name:      "user_compounds_total",
				Help:      "Per user claim and compound calls partitioned by outcome.",
			}, []string{"outcome"}),
			duration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "autofarm",
				Subsystem: "keeper",
				Name:      "run_duration_seconds",
				Help:      "Wall clock duration of a keeper run.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			}),
		}
		prometheus.MustRegister(keeperRegistry.runs, keeperRegistry.compounds, keeperRegistry.duration)
	})
	return keeperRegistry
}
