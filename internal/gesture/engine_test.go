package gesture

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/backdrop-sync/internal/frame"
)

func runFrames(loop *frame.Loop, n int) {
	base := time.Unix(0, 0)
	for i := 0; i < n; i++ {
		loop.Tick(base.Add(time.Duration(i) * 16 * time.Millisecond))
	}
}

func TestWheelDeltaMovesAndDecays(t *testing.T) {
	loop := frame.NewLoop()
	e := NewEngine(loop, Options{WheelScale: 0.001, Friction: 0.1, MinVelocity: 0.0001})

	var samples []Sample
	e.OnChange(func(s Sample) { samples = append(samples, s) })

	e.AddWheelDelta(10)
	require.True(t, e.Running())
	assert.InDelta(t, 0.01, e.Velocity(), 1e-12)

	loop.Tick(time.Unix(0, 0))
	require.Len(t, samples, 1)
	assert.InDelta(t, 0.01, samples[0].Value, 1e-12)
	assert.InDelta(t, 0.009, e.Velocity(), 1e-12)

	runFrames(loop, 200)
	assert.False(t, e.Running())
	assert.Zero(t, e.Velocity())
	assert.Zero(t, loop.Pending())
	// geometric series: 0.01 / 0.1 bounded
	assert.Less(t, e.Value(), 0.1)
	assert.Greater(t, e.Value(), 0.09)
}

func TestTinyDeltaDoesNotStartLoop(t *testing.T) {
	loop := frame.NewLoop()
	e := NewEngine(loop, Options{WheelScale: 0.00001, MinVelocity: 0.001})
	e.AddWheelDelta(1)
	assert.False(t, e.Running())
	assert.Zero(t, loop.Pending())
}

func TestValueNeverLeavesUnitRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	loop := frame.NewLoop()
	e := NewEngine(loop, Options{WheelScale: 0.01})
	e.OnChange(func(s Sample) {
		assert.GreaterOrEqual(t, s.Value, 0.0)
		assert.LessOrEqual(t, s.Value, 1.0)
	})

	for i := 0; i < 500; i++ {
		e.AddWheelDelta(rng.NormFloat64() * 400)
		runFrames(loop, 1+rng.Intn(4))
		assert.GreaterOrEqual(t, e.Value(), 0.0)
		assert.LessOrEqual(t, e.Value(), 1.0)
	}
}

func TestVelocityKeepsIntegratingWhilePinned(t *testing.T) {
	loop := frame.NewLoop()
	e := NewEngine(loop, Options{WheelScale: 0.1, Friction: 0.5, MinVelocity: 0.0001, Initial: 1})

	var last Sample
	e.OnChange(func(s Sample) { last = s })

	e.AddWheelDelta(1)
	loop.Tick(time.Unix(0, 0))
	assert.Equal(t, 1.0, last.Value)
	assert.InDelta(t, 0.1, last.Travel, 1e-12)
	assert.InDelta(t, 0.1, last.Overflow(1), 1e-12)
	assert.InDelta(t, 0.05, e.Velocity(), 1e-12)

	// reverse: value leaves the edge on the very next step
	e.AddWheelDelta(-2)
	loop.Tick(time.Unix(0, 1))
	assert.InDelta(t, 0.85, e.Value(), 1e-12)
}

func TestSetValueClampsAndEmits(t *testing.T) {
	loop := frame.NewLoop()
	e := NewEngine(loop, Options{})
	var got []Sample
	e.OnChange(func(s Sample) { got = append(got, s) })

	e.SetValue(1.7, time.Unix(5, 0))
	e.SetValue(-3, time.Unix(6, 0))

	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Value)
	assert.Equal(t, SourceOverride, got[0].Source)
	assert.Equal(t, 0.0, got[1].Value)
	assert.Equal(t, -1.0, got[1].Travel)
}

func TestDisposeDetaches(t *testing.T) {
	loop := frame.NewLoop()
	e := NewEngine(loop, Options{WheelScale: 0.01})
	calls := 0
	e.OnChange(func(Sample) { calls++ })

	e.AddWheelDelta(10)
	e.Dispose()
	runFrames(loop, 5)
	e.AddWheelDelta(10)

	assert.Zero(t, calls)
	assert.False(t, e.Running())
	assert.Zero(t, loop.Pending())
}
