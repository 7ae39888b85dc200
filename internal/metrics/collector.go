// Package metrics provides Prometheus metrics for cairod.
//
// Everything is aggregate; there are no per-worker label dimensions, so
// cardinality stays flat no matter how large the pool is.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mirovale/cairod/internal/timeseries"
)

// --- Panel 1: Node Overview ---
var (
	cairodInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cairod_info",
			Help: "Information about the node (value always 1)",
		},
		[]string{"version", "chain_id"},
	)

	cairodUptimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cairod_uptime_seconds",
			Help: "Seconds since the node started",
		},
	)
)

// --- Panel 2: Executor Pool ---
var (
	cairodPoolDesiredWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cairod_pool_desired_workers",
			Help: "Configured executor pool size",
		},
	)

	cairodPoolLiveWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cairod_pool_live_workers",
			Help: "Executor workers currently running",
		},
	)

	cairodPoolSpawnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cairod_pool_spawns_total",
			Help: "Total executor worker spawns",
		},
		[]string{"emergency"},
	)

	cairodPoolWorkerExitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cairod_pool_worker_exits_total",
			Help: "Total executor worker exits for any reason",
		},
	)

	cairodPoolWorkerFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cairod_pool_worker_failures_total",
			Help: "Total worker failure reports (launch errors, crashes, unreadable replies)",
		},
	)
)

// --- Panel 3: Calls ---
var (
	cairodCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cairod_calls_total",
			Help: "Total executor calls by reply outcome",
		},
		[]string{"outcome"},
	)

	cairodCallDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "cairod_call_duration_seconds",
			Help: "Executor call duration distribution",
			Buckets: []float64{
				0.005, 0.01, 0.025, 0.05, 0.075,
				0.1, 0.25, 0.5, 0.75,
				1.0, 2.5, 5.0, 10.0,
			},
		},
	)

	// Pre-calculated percentiles (convenience for simple panels)
	cairodCallLatencyP50Seconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cairod_call_latency_p50_seconds",
			Help: "Executor call latency 50th percentile (median)",
		},
	)

	cairodCallLatencyP95Seconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cairod_call_latency_p95_seconds",
			Help: "Executor call latency 95th percentile",
		},
	)

	cairodCallLatencyP99Seconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cairod_call_latency_p99_seconds",
			Help: "Executor call latency 99th percentile",
		},
	)

	cairodCallsPerSecond1s = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cairod_calls_per_second_1s",
			Help: "Call completion rate averaged over the last second",
		},
	)

	cairodCallsPerSecond60s = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cairod_calls_per_second_60s",
			Help: "Call completion rate averaged over the last 60 seconds",
		},
	)
)

// Collector manages all Prometheus metrics for the node.
type Collector struct {
	startTime time.Time
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version        string
	ChainID        string
	DesiredWorkers int
}

// NewCollector creates a collector on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		startTime: time.Now(),
	}

	registry.MustRegister(
		cairodInfo,
		cairodUptimeSeconds,

		cairodPoolDesiredWorkers,
		cairodPoolLiveWorkers,
		cairodPoolSpawnsTotal,
		cairodPoolWorkerExitsTotal,
		cairodPoolWorkerFailuresTotal,

		cairodCallsTotal,
		cairodCallDurationSeconds,
		cairodCallLatencyP50Seconds,
		cairodCallLatencyP95Seconds,
		cairodCallLatencyP99Seconds,
		cairodCallsPerSecond1s,
		cairodCallsPerSecond60s,
	)

	cairodInfo.WithLabelValues(cfg.Version, cfg.ChainID).Set(1)
	cairodPoolDesiredWorkers.Set(float64(cfg.DesiredWorkers))

	return c
}

// RecordCall records one completed executor command.
func (c *Collector) RecordCall(elapsed time.Duration, status string) {
	cairodCallsTotal.WithLabelValues(status).Inc()
	cairodCallDurationSeconds.Observe(elapsed.Seconds())
}

// RecordSpawn records a worker spawn.
func (c *Collector) RecordSpawn(emergency bool) {
	label := "false"
	if emergency {
		label = "true"
	}
	cairodPoolSpawnsTotal.WithLabelValues(label).Inc()
}

// WorkerLaunched records a worker process coming up.
func (c *Collector) WorkerLaunched() {
	cairodPoolLiveWorkers.Inc()
}

// WorkerExited records a worker task finishing.
func (c *Collector) WorkerExited() {
	cairodPoolLiveWorkers.Dec()
	cairodPoolWorkerExitsTotal.Inc()
}

// RecordFailure records a worker failure report.
func (c *Collector) RecordFailure() {
	cairodPoolWorkerFailuresTotal.Inc()
}

// UpdateRates refreshes the rolling call-rate gauges and uptime. Called on
// the node's sampling tick.
func (c *Collector) UpdateRates(stats timeseries.CallRateStats) {
	cairodCallsPerSecond1s.Set(stats.Avg1s)
	cairodCallsPerSecond60s.Set(stats.Avg60s)
	cairodUptimeSeconds.Set(time.Since(c.startTime).Seconds())
}

// UpdateLatency refreshes the percentile gauges from the aggregator's
// digest. Inputs are in milliseconds.
func (c *Collector) UpdateLatency(p50, p95, p99 float64) {
	cairodCallLatencyP50Seconds.Set(p50 / 1000)
	cairodCallLatencyP95Seconds.Set(p95 / 1000)
	cairodCallLatencyP99Seconds.Set(p99 / 1000)
}
