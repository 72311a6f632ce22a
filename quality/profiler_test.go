package quality

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilerAggregatesRepeatedCalls(t *testing.T) {
	p := NewProfiler()
	p.Record("research", 150*time.Millisecond)
	p.Record("research", 200*time.Millisecond)

	summary := p.Summary()
	require.Equal(t, 1, summary.NodeCount)
	assert.InDelta(t, 350.0, summary.TotalTimeMS, 0.01)
}

func TestProfilerSlowestNode(t *testing.T) {
	p := NewProfiler()
	p.Record("fast", 50*time.Millisecond)
	p.Record("slow", 450*time.Millisecond)

	slowest := p.SlowestNode()
	require.NotNil(t, slowest)
	assert.Equal(t, "slow", slowest.NodeID)
}

func TestProfilerBottlenecksDefaultThreshold(t *testing.T) {
	p := NewProfiler()
	p.Record("fast", 50*time.Millisecond)
	p.Record("slow", 450*time.Millisecond)

	bottlenecks := p.Bottlenecks(50.0)
	require.Len(t, bottlenecks, 1)
	assert.Equal(t, "slow", bottlenecks[0].NodeID)
	assert.InDelta(t, 90.0, bottlenecks[0].PercentOfTotal, 0.01)
}

func TestProfilerNoBottlenecksWhenEvenlySplit(t *testing.T) {
	p := NewProfiler()
	p.Record("a", 100*time.Millisecond)
	p.Record("b", 100*time.Millisecond)

	assert.Empty(t, p.Bottlenecks(50.0))
}

func TestProfilerConcurrentRecordingIsSafe(t *testing.T) {
	p := NewProfiler()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Record("branch", time.Millisecond)
		}()
	}
	wg.Wait()

	summary := p.Summary()
	assert.Equal(t, 1, summary.NodeCount)
	assert.Equal(t, 50, summary.SlowestNode.CallCount)
}
