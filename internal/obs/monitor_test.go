package obs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_AggregatesWithinWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitor()
	m.now = func() time.Time { return base }

	m.Record("vector_fanout", 50*time.Millisecond, true)
	m.Record("vector_fanout", 150*time.Millisecond, false)

	m.now = func() time.Time { return base.Add(2 * time.Hour) }
	m.Record("vector_fanout", 10*time.Millisecond, true)

	snap := m.Aggregate(WindowOneHour)
	require.Len(t, snap.Steps, 1)
	assert.Equal(t, "vector_fanout", snap.Steps[0].Step)
	assert.Equal(t, int64(1), snap.Steps[0].Count)
	assert.Equal(t, 10.0, snap.Steps[0].AvgLatencyMs)

	snap = m.Aggregate(WindowOneDay)
	require.Len(t, snap.Steps, 1)
	assert.Equal(t, int64(3), snap.Steps[0].Count)
	assert.Equal(t, int64(1), snap.Steps[0].ErrorCount)
	assert.InDelta(t, 1.0/3.0, snap.Steps[0].ErrorRate, 0.001)
}

func TestMonitor_EmptyWindowReturnsNoSteps(t *testing.T) {
	m := NewMonitor()
	snap := m.Aggregate(WindowSevenDays)
	assert.Empty(t, snap.Steps)
}

func TestEmitter_StepFeedsMonitor(t *testing.T) {
	m := NewMonitor()
	e := NewEmitter(nil).WithMonitor(m)

	e.Step(WithTraceID(context.Background(), "t1"), "cache_store", time.Millisecond)

	snap := m.Aggregate(WindowOneHour)
	require.Len(t, snap.Steps, 1)
	assert.Equal(t, int64(0), snap.Steps[0].ErrorCount)
}
