// Package timeseries provides time-windowed call-rate tracking.
//
// It tracks cumulative completed executor calls and computes rolling
// averages over fixed windows (1s, 30s, 60s, 300s) for the TUI and the
// metrics gauges.
//
// Thread-safe: AddCalls() uses atomic int64, Stats() acquires a read lock.
// Memory: ~10KB for 300 samples (5 minute window at 1 sample/sec).
package timeseries

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// ringBufferSize is the number of samples to retain (5 minutes at 1 sample/sec)
	ringBufferSize = 300

	// Window durations for rolling averages
	window1s   = 1 * time.Second
	window30s  = 30 * time.Second
	window60s  = 60 * time.Second
	window300s = 300 * time.Second
)

// Clock interface for testing with deterministic time.
type Clock interface {
	Now() time.Time
}

// realClock uses time.Now() for production.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// sample is a point-in-time snapshot of the cumulative call count.
type sample struct {
	timestamp time.Time
	calls     int64
}

// CallRateTracker tracks cumulative completed calls and computes rolling
// averages over fixed time windows.
//
// Usage:
//
//	tracker := NewCallRateTracker()
//	tracker.AddCalls(1)  // per completed call (thread-safe, lock-free)
//	// ... periodic sampling (e.g., every 1s via ticker)
//	tracker.RecordSample()
//	// ... get stats for TUI/Prometheus
//	stats := tracker.Stats()
type CallRateTracker struct {
	// totalCalls is the cumulative call count (atomic for lock-free AddCalls)
	totalCalls atomic.Int64

	// Ring buffer of samples for rolling average calculation
	samples  []sample
	writeIdx int // Next write position in ring buffer
	mu       sync.RWMutex

	// Start time for overall average calculation
	startTime time.Time

	// Clock for testability
	clock Clock
}

// CallRateStats contains computed rolling averages at a point in time.
type CallRateStats struct {
	// TotalCalls is the cumulative completed calls since start
	TotalCalls int64

	// Rolling averages (calls per second)
	Avg1s   float64
	Avg30s  float64
	Avg60s  float64
	Avg300s float64

	// AvgOverall is the average rate since tracking started
	AvgOverall float64
}

// NewCallRateTracker creates a tracker with the real clock.
func NewCallRateTracker() *CallRateTracker {
	return NewCallRateTrackerWithClock(realClock{})
}

// NewCallRateTrackerWithClock creates a tracker with a custom clock for
// testing.
func NewCallRateTrackerWithClock(clock Clock) *CallRateTracker {
	now := clock.Now()
	t := &CallRateTracker{
		samples:   make([]sample, 0, ringBufferSize),
		startTime: now,
		clock:     clock,
	}
	// Record initial sample at t=0 with 0 calls
	t.samples = append(t.samples, sample{timestamp: now})
	return t
}

// AddCalls adds completed calls to the cumulative total.
// Thread-safe and lock-free.
func (t *CallRateTracker) AddCalls(n int64) {
	if n > 0 {
		t.totalCalls.Add(n)
	}
}

// RecordSample records the current cumulative count with a timestamp.
// Call this periodically (e.g., every 1 second via ticker).
func (t *CallRateTracker) RecordSample() {
	now := t.clock.Now()
	current := t.totalCalls.Load()

	t.mu.Lock()
	defer t.mu.Unlock()

	newSample := sample{timestamp: now, calls: current}

	if len(t.samples) < ringBufferSize {
		t.samples = append(t.samples, newSample)
	} else {
		// Buffer full - overwrite oldest
		t.samples[t.writeIdx] = newSample
		t.writeIdx = (t.writeIdx + 1) % ringBufferSize
	}
}

// Stats computes and returns current call-rate statistics. Always returns
// valid data - with a short history the windows fall back to whatever
// samples exist.
func (t *CallRateTracker) Stats() CallRateStats {
	now := t.clock.Now()
	current := t.totalCalls.Load()

	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := CallRateStats{
		TotalCalls: current,
	}

	elapsed := now.Sub(t.startTime).Seconds()
	if elapsed > 0 {
		stats.AvgOverall = float64(current) / elapsed
	}

	stats.Avg1s = t.avgOverWindow(now, current, window1s)
	stats.Avg30s = t.avgOverWindow(now, current, window30s)
	stats.Avg60s = t.avgOverWindow(now, current, window60s)
	stats.Avg300s = t.avgOverWindow(now, current, window300s)

	return stats
}

// avgOverWindow calculates calls/sec over the specified window.
// Must be called with mu held (at least RLock).
func (t *CallRateTracker) avgOverWindow(now time.Time, current int64, window time.Duration) float64 {
	if len(t.samples) == 0 {
		return 0
	}

	targetTime := now.Add(-window)

	// Find the sample closest to (but not after) targetTime.
	var bestSample *sample
	var bestDiff time.Duration = -1

	for i := range t.samples {
		s := &t.samples[i]
		if s.timestamp.After(targetTime) {
			continue // Sample is within the window, skip
		}
		diff := targetTime.Sub(s.timestamp)
		if bestDiff < 0 || diff < bestDiff {
			bestSample = s
			bestDiff = diff
		}
	}

	// If no sample before targetTime, use the oldest sample we have
	if bestSample == nil {
		bestSample = t.oldestSample()
	}

	if bestSample == nil {
		return 0
	}

	completed := current - bestSample.calls
	actualElapsed := now.Sub(bestSample.timestamp).Seconds()

	if actualElapsed <= 0 {
		return 0
	}

	return float64(completed) / actualElapsed
}

// oldestSample returns the oldest sample in the ring buffer.
// Must be called with mu held.
func (t *CallRateTracker) oldestSample() *sample {
	if len(t.samples) == 0 {
		return nil
	}

	if len(t.samples) < ringBufferSize {
		return &t.samples[0]
	}

	// Buffer full - oldest is at writeIdx (next to be overwritten)
	return &t.samples[t.writeIdx]
}

// Reset clears all data and restarts tracking.
func (t *CallRateTracker) Reset() {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalCalls.Store(0)
	t.samples = t.samples[:0]
	t.samples = append(t.samples, sample{timestamp: now})
	t.writeIdx = 0
	t.startTime = now
}

// SampleCount returns the number of samples in the ring buffer.
// Useful for testing.
func (t *CallRateTracker) SampleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}
