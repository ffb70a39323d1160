package obs

import (
	"sync"
	"time"
)

// MonitoringWindow names one of the five admin-surface aggregation
// ranges.
type MonitoringWindow string

const (
	WindowOneHour     MonitoringWindow = "1h"
	WindowSixHours    MonitoringWindow = "6h"
	WindowOneDay      MonitoringWindow = "24h"
	WindowSevenDays   MonitoringWindow = "7d"
	WindowThirtyDays  MonitoringWindow = "30d"
)

var windowDurations = map[MonitoringWindow]time.Duration{
	WindowOneHour:    time.Hour,
	WindowSixHours:   6 * time.Hour,
	WindowOneDay:     24 * time.Hour,
	WindowSevenDays:  7 * 24 * time.Hour,
	WindowThirtyDays: 30 * 24 * time.Hour,
}

// bucket accumulates one minute's worth of step observations.
type bucket struct {
	minute     int64 // unix minute
	count      int64
	errorCount int64
	totalMs    int64
}

// StepSnapshot is one step's aggregate over a requested window.
type StepSnapshot struct {
	Step         string
	Count        int64
	ErrorCount   int64
	AvgLatencyMs float64
	ErrorRate    float64
}

// Snapshot is the full monitoring-endpoint response for one window.
type Snapshot struct {
	Window MonitoringWindow
	Steps  []StepSnapshot
}

// Monitor retains per-minute step counters in a ring long enough to
// satisfy the widest supported window (30 days) and aggregates them on
// request into the {1h,6h,24h,7d,30d} ranges the admin monitoring
// endpoints expose. It is deliberately in-process: a real deployment
// would back this with a time-series store, but the aggregation
// semantics the admin surface depends on live here regardless of
// backing store.
type Monitor struct {
	mu      sync.Mutex
	buckets map[string]map[int64]*bucket // step -> minute -> bucket
	now     func() time.Time
}

// NewMonitor builds an empty Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		buckets: make(map[string]map[int64]*bucket),
		now:     time.Now,
	}
}

// Record adds one step observation. success distinguishes an errored
// stage (apperr-classified) from a clean one for the error-rate metric.
func (m *Monitor) Record(step string, duration time.Duration, success bool) {
	minute := m.now().Unix() / 60

	m.mu.Lock()
	defer m.mu.Unlock()

	perStep, ok := m.buckets[step]
	if !ok {
		perStep = make(map[int64]*bucket)
		m.buckets[step] = perStep
	}
	b, ok := perStep[minute]
	if !ok {
		b = &bucket{minute: minute}
		perStep[minute] = b
	}
	b.count++
	b.totalMs += duration.Milliseconds()
	if !success {
		b.errorCount++
	}

	m.evictLocked(step)
}

// evictLocked drops buckets older than the widest window, bounding
// memory regardless of request volume.
func (m *Monitor) evictLocked(step string) {
	cutoff := m.now().Add(-windowDurations[WindowThirtyDays]).Unix() / 60
	for minute := range m.buckets[step] {
		if minute < cutoff {
			delete(m.buckets[step], minute)
		}
	}
}

// Aggregate computes the admin monitoring snapshot for window across
// every step recorded so far.
func (m *Monitor) Aggregate(window MonitoringWindow) Snapshot {
	dur, ok := windowDurations[window]
	if !ok {
		dur = time.Hour
		window = WindowOneHour
	}
	cutoff := m.now().Add(-dur).Unix() / 60

	m.mu.Lock()
	defer m.mu.Unlock()

	steps := make([]StepSnapshot, 0, len(m.buckets))
	for step, perStep := range m.buckets {
		var count, errCount, totalMs int64
		for minute, b := range perStep {
			if minute < cutoff {
				continue
			}
			count += b.count
			errCount += b.errorCount
			totalMs += b.totalMs
		}
		if count == 0 {
			continue
		}
		steps = append(steps, StepSnapshot{
			Step:         step,
			Count:        count,
			ErrorCount:   errCount,
			AvgLatencyMs: float64(totalMs) / float64(count),
			ErrorRate:    float64(errCount) / float64(count),
		})
	}

	return Snapshot{Window: window, Steps: steps}
}
