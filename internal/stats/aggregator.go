// Package stats aggregates executor-call and pool-lifecycle statistics.
//
// One Aggregator is fed from the pool's lifecycle callbacks and read by the
// TUI, the metrics gauges, and the exit summary:
// - Call counts per outcome and latency percentiles (T-Digest)
// - Spawn/exit/failure counts and live worker count
package stats

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// Snapshot holds aggregated values at a point in time. Values are computed
// when Snapshot() is called; the returned struct is safe to retain.
type Snapshot struct {
	Timestamp time.Time
	Uptime    time.Duration

	// Calls
	TotalCalls     int64
	CallsByOutcome map[string]int64
	CallRate       float64 // per second, over full uptime

	// Latency percentiles in milliseconds. Zero when no calls yet.
	LatencyP50 float64
	LatencyP95 float64
	LatencyP99 float64

	// Pool lifecycle
	Spawns          int64
	EmergencySpawns int64
	Launches        int64
	Exits           int64
	Failures        int64
	LiveWorkers     int64
}

// Aggregator accumulates pool statistics.
//
// Thread-safe: all methods can be called concurrently.
type Aggregator struct {
	mu        sync.Mutex
	startTime time.Time

	digest   *tdigest.TDigest // call latency, milliseconds
	calls    map[string]int64
	total    int64
	spawns   int64
	emSpawns int64
	launches int64
	exits    int64
	failures int64
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		startTime: time.Now(),
		digest:    tdigest.NewWithCompression(100), // ~100 centroids, ~10KB
		calls:     make(map[string]int64),
	}
}

// RecordCall records one completed executor command and its reply status.
func (a *Aggregator) RecordCall(elapsed time.Duration, status string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.calls[status]++
	a.digest.Add(float64(elapsed.Milliseconds()), 1)
}

// RecordSpawn records a worker spawn.
func (a *Aggregator) RecordSpawn(emergency bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.spawns++
	if emergency {
		a.emSpawns++
	}
}

// RecordLaunch records a worker process coming up.
func (a *Aggregator) RecordLaunch() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.launches++
}

// RecordFailure records a worker failure report (launch error, crash,
// unreadable reply).
func (a *Aggregator) RecordFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.failures++
}

// RecordExit records a worker task finishing.
func (a *Aggregator) RecordExit() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.exits++
}

// TotalCalls returns the number of completed calls so far.
func (a *Aggregator) TotalCalls() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// StartTime returns when the aggregator was created.
func (a *Aggregator) StartTime() time.Time {
	return a.startTime
}

// Snapshot computes a point-in-time view of all aggregated values.
func (a *Aggregator) Snapshot() *Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	uptime := now.Sub(a.startTime)

	s := &Snapshot{
		Timestamp:       now,
		Uptime:          uptime,
		TotalCalls:      a.total,
		CallsByOutcome:  make(map[string]int64, len(a.calls)),
		Spawns:          a.spawns,
		EmergencySpawns: a.emSpawns,
		Launches:        a.launches,
		Exits:           a.exits,
		Failures:        a.failures,
		LiveWorkers:     a.spawns - a.exits,
	}
	for status, n := range a.calls {
		s.CallsByOutcome[status] = n
	}

	if sec := uptime.Seconds(); sec > 0 {
		s.CallRate = float64(a.total) / sec
	}

	if a.total > 0 {
		s.LatencyP50 = a.digest.Quantile(0.50)
		s.LatencyP95 = a.digest.Quantile(0.95)
		s.LatencyP99 = a.digest.Quantile(0.99)
	}

	return s
}
