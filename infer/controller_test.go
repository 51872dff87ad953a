package infer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Defaults(t *testing.T) {
	c := NewController(ControllerConfig{})

	assert.Equal(t, 32, c.CurrentTarget(), "initial target defaults to max batch size")
	assert.Equal(t, 0, c.SampleCount())
	assert.Equal(t, time.Duration(0), c.AverageLatency())
}

func TestController_DeadZone_NoChange(t *testing.T) {
	c := NewController(ControllerConfig{
		MaxBatchSize:  16,
		TargetLatency: 100 * time.Millisecond,
		InitialTarget: 8,
	})

	// 80%–120% of target: inside the hysteresis band, no adjustment.
	for _, latency := range []time.Duration{80 * time.Millisecond, 100 * time.Millisecond, 119 * time.Millisecond} {
		c.RecordBatchLatency(latency, 8)
		assert.Equal(t, 8, c.CurrentTarget(), "latency %s is inside the dead zone", latency)
	}
}

func TestController_StepUp_OnLowLatency(t *testing.T) {
	c := NewController(ControllerConfig{
		MaxBatchSize:  16,
		TargetLatency: 100 * time.Millisecond,
		InitialTarget: 4,
		HistorySize:   1,
	})

	c.RecordBatchLatency(10*time.Millisecond, 4)
	assert.Equal(t, 5, c.CurrentTarget())

	c.RecordBatchLatency(10*time.Millisecond, 5)
	assert.Equal(t, 6, c.CurrentTarget())
}

func TestController_StepDown_OnHighLatency(t *testing.T) {
	c := NewController(ControllerConfig{
		MaxBatchSize:  16,
		TargetLatency: 100 * time.Millisecond,
		InitialTarget: 4,
		HistorySize:   1,
	})

	c.RecordBatchLatency(300*time.Millisecond, 4)
	assert.Equal(t, 3, c.CurrentTarget())
}

func TestController_Bounds(t *testing.T) {
	c := NewController(ControllerConfig{
		MaxBatchSize:  4,
		TargetLatency: 100 * time.Millisecond,
		Step:          10,
		HistorySize:   1,
	})

	// Never above MaxBatchSize even with a large step.
	c.RecordBatchLatency(time.Millisecond, 4)
	assert.Equal(t, 4, c.CurrentTarget())

	// Never below 1.
	for i := 0; i < 5; i++ {
		c.RecordBatchLatency(time.Second, 4)
	}
	assert.Equal(t, 1, c.CurrentTarget())
}

func TestController_IgnoresEmptyBatch(t *testing.T) {
	c := NewController(ControllerConfig{
		MaxBatchSize:  8,
		TargetLatency: 100 * time.Millisecond,
		InitialTarget: 4,
	})

	c.RecordBatchLatency(time.Second, 0)
	assert.Equal(t, 4, c.CurrentTarget())
	assert.Equal(t, 0, c.SampleCount())
}

func TestController_RingBufferEvictsOldest(t *testing.T) {
	c := NewController(ControllerConfig{
		MaxBatchSize:  8,
		TargetLatency: 100 * time.Millisecond,
		InitialTarget: 4,
		HistorySize:   3,
	})

	c.RecordBatchLatency(90*time.Millisecond, 4)
	c.RecordBatchLatency(100*time.Millisecond, 4)
	c.RecordBatchLatency(110*time.Millisecond, 4)
	require.Equal(t, 3, c.SampleCount())
	assert.Equal(t, 100*time.Millisecond, c.AverageLatency())

	// Overwrites the 90ms sample: average becomes (100+110+120)/3 = 110ms.
	c.RecordBatchLatency(120*time.Millisecond, 4)
	assert.Equal(t, 3, c.SampleCount(), "ring buffer is bounded")
	assert.Equal(t, 110*time.Millisecond, c.AverageLatency())
}

// TestController_Convergence drives the controller with a synthetic executor
// whose latency is proportional to batch size (10ms per item). With a 100ms
// latency goal the target must settle inside the 80–120% band and stay there.
func TestController_Convergence(t *testing.T) {
	const perItem = 10 * time.Millisecond
	target := 100 * time.Millisecond

	c := NewController(ControllerConfig{
		MaxBatchSize:  32,
		TargetLatency: target,
		HistorySize:   1, // react to the latest sample only
	})

	prev := c.CurrentTarget()
	stable := 0
	for i := 0; i < 100; i++ {
		size := c.CurrentTarget()
		latency := time.Duration(size) * perItem
		c.RecordBatchLatency(latency, size)

		next := c.CurrentTarget()
		if next == prev {
			stable++
		} else {
			// Once stabilized the target may move at most one step per batch.
			assert.LessOrEqual(t, abs(next-prev), 1)
			stable = 0
		}
		prev = next
	}

	final := time.Duration(c.CurrentTarget()) * perItem
	assert.GreaterOrEqual(t, final, time.Duration(float64(target)*0.8),
		"converged latency below the hysteresis band")
	assert.LessOrEqual(t, final, time.Duration(float64(target)*1.2),
		"converged latency above the hysteresis band")
	assert.Greater(t, stable, 10, "target should stop moving once inside the band")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
