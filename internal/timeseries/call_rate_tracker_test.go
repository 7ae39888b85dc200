package timeseries

import (
	"sync"
	"testing"
	"time"
)

// fakeClock provides deterministic time for tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewTrackerHasInitialSample(t *testing.T) {
	tracker := NewCallRateTrackerWithClock(newFakeClock())

	if got := tracker.SampleCount(); got != 1 {
		t.Errorf("SampleCount() = %d, want 1", got)
	}
	stats := tracker.Stats()
	if stats.TotalCalls != 0 {
		t.Errorf("TotalCalls = %d, want 0", stats.TotalCalls)
	}
}

func TestAddCalls(t *testing.T) {
	tracker := NewCallRateTrackerWithClock(newFakeClock())

	tracker.AddCalls(3)
	tracker.AddCalls(2)
	tracker.AddCalls(0)  // No-op
	tracker.AddCalls(-5) // Ignored

	if got := tracker.Stats().TotalCalls; got != 5 {
		t.Errorf("TotalCalls = %d, want 5", got)
	}
}

func TestSteadyRate(t *testing.T) {
	clock := newFakeClock()
	tracker := NewCallRateTrackerWithClock(clock)

	// 10 calls/sec for 60 seconds.
	for i := 0; i < 60; i++ {
		clock.Advance(time.Second)
		tracker.AddCalls(10)
		tracker.RecordSample()
	}

	stats := tracker.Stats()
	if stats.TotalCalls != 600 {
		t.Errorf("TotalCalls = %d, want 600", stats.TotalCalls)
	}

	for name, got := range map[string]float64{
		"Avg1s":      stats.Avg1s,
		"Avg30s":     stats.Avg30s,
		"Avg60s":     stats.Avg60s,
		"AvgOverall": stats.AvgOverall,
	} {
		if got < 9.5 || got > 10.5 {
			t.Errorf("%s = %.2f, want around 10", name, got)
		}
	}
}

func TestBurstThenIdle(t *testing.T) {
	clock := newFakeClock()
	tracker := NewCallRateTrackerWithClock(clock)

	// Burst: 100 calls in the first second.
	clock.Advance(time.Second)
	tracker.AddCalls(100)
	tracker.RecordSample()

	// Then idle for 59 seconds.
	for i := 0; i < 59; i++ {
		clock.Advance(time.Second)
		tracker.RecordSample()
	}

	stats := tracker.Stats()

	// Recent window sees no traffic; the long window has absorbed the burst.
	if stats.Avg1s != 0 {
		t.Errorf("Avg1s = %.2f, want 0", stats.Avg1s)
	}
	if stats.Avg60s < 1.5 || stats.Avg60s > 2.0 {
		t.Errorf("Avg60s = %.2f, want around 1.67", stats.Avg60s)
	}
}

func TestRingBufferWraps(t *testing.T) {
	clock := newFakeClock()
	tracker := NewCallRateTrackerWithClock(clock)

	// More samples than the ring holds.
	for i := 0; i < ringBufferSize+100; i++ {
		clock.Advance(time.Second)
		tracker.AddCalls(1)
		tracker.RecordSample()
	}

	if got := tracker.SampleCount(); got != ringBufferSize {
		t.Errorf("SampleCount() = %d, want %d", got, ringBufferSize)
	}

	// Rates still computable after wrap.
	stats := tracker.Stats()
	if stats.Avg300s < 0.9 || stats.Avg300s > 1.1 {
		t.Errorf("Avg300s = %.2f, want around 1", stats.Avg300s)
	}
}

func TestShortHistoryFallsBackToOldestSample(t *testing.T) {
	clock := newFakeClock()
	tracker := NewCallRateTrackerWithClock(clock)

	// Only 5 seconds of history; the 300s window must use what exists.
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		tracker.AddCalls(10)
		tracker.RecordSample()
	}

	stats := tracker.Stats()
	if stats.Avg300s < 9.5 || stats.Avg300s > 10.5 {
		t.Errorf("Avg300s = %.2f, want around 10", stats.Avg300s)
	}
}

func TestReset(t *testing.T) {
	clock := newFakeClock()
	tracker := NewCallRateTrackerWithClock(clock)

	clock.Advance(time.Second)
	tracker.AddCalls(50)
	tracker.RecordSample()

	tracker.Reset()

	stats := tracker.Stats()
	if stats.TotalCalls != 0 {
		t.Errorf("TotalCalls after Reset = %d, want 0", stats.TotalCalls)
	}
	if got := tracker.SampleCount(); got != 1 {
		t.Errorf("SampleCount() after Reset = %d, want 1", got)
	}
}

func TestConcurrentAddAndSample(t *testing.T) {
	tracker := NewCallRateTracker()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				tracker.AddCalls(1)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			tracker.RecordSample()
			tracker.Stats()
		}
	}()
	wg.Wait()

	if got := tracker.Stats().TotalCalls; got != 4000 {
		t.Errorf("TotalCalls = %d, want 4000", got)
	}
}
