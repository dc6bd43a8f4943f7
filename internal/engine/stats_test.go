package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMStatsSnapshotPercentiles(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(ms)
	}

	snap := stats.Snapshot()
	require.Equal(t, 5, snap.Count)
	assert.Equal(t, int64(100), snap.MinMs)
	assert.Equal(t, int64(500), snap.MaxMs)
	assert.InDelta(t, 300, snap.AvgMs, 1e-9)
	assert.InDelta(t, 300, snap.P50Ms, 1e-9)
	assert.InDelta(t, 480, snap.P95Ms, 1e-9)
	assert.InDelta(t, 496, snap.P99Ms, 1e-9)
	assert.Zero(t, snap.Failures)
}

func TestLLMStatsFailuresDoNotSkewLatency(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(250)
	stats.RecordFailure()
	stats.RecordFailure()

	snap := stats.Snapshot()
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, 2, snap.Failures)
	assert.Equal(t, int64(250), snap.MinMs)
	assert.InDelta(t, 250, snap.AvgMs, 1e-9)
}

func TestLLMStatsOnlyFailures(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.RecordFailure()

	snap := stats.Snapshot()
	assert.Equal(t, StatsSnapshot{Failures: 1}, snap)
}

func TestLLMStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewLLMStats(10 * time.Millisecond)
	stats.Record(100)
	stats.RecordFailure()
	time.Sleep(25 * time.Millisecond)

	assert.Equal(t, StatsSnapshot{}, stats.Snapshot())

	stats.Record(200)
	snap := stats.Snapshot()
	require.Equal(t, 1, snap.Count)
	assert.Equal(t, int64(200), snap.MinMs)
	assert.Equal(t, int64(200), snap.MaxMs)
}

func TestLLMStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(-10)
	snap := stats.Snapshot()
	require.Equal(t, 1, snap.Count)
	assert.Zero(t, snap.MinMs)
	assert.Zero(t, snap.MaxMs)
}
