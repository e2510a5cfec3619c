package stage

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/backdrop-sync/internal/gesture"
	"github.com/cybre/backdrop-sync/internal/palette"
)

var t0 = time.Unix(2000, 0)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func newTestController(cfg Config) *Controller {
	cfg.Rand = rand.New(rand.NewSource(42))
	return NewController(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func override(v, from float64) gesture.Sample {
	return gesture.Sample{Value: v, Travel: v - from, Source: gesture.SourceOverride}
}

func moveTo(c *Controller, v float64) {
	c.ObserveProgress(override(v, c.Progress()))
}

func TestInitialGuardReleasesOnFirstMovement(t *testing.T) {
	c := newTestController(Config{})
	assert.Equal(t, palette.Default(), c.Evaluate(at(0)))
	assert.Equal(t, palette.Default(), c.Evaluate(at(100)))

	p := 0.0001
	moveTo(c, p)
	out := c.Evaluate(at(116))

	assert.True(t, c.Moved())
	assert.NotEqual(t, palette.Default(), out)
	assert.Equal(t, palette.Blend(p*6, palette.ModeRotating), out)
}

func TestZeroTravelIsNotMovement(t *testing.T) {
	c := newTestController(Config{})
	moveTo(c, 0)
	assert.False(t, c.Moved())
	assert.Equal(t, palette.Default(), c.Evaluate(at(0)))
}

func TestHoldUntilMovementExceedsEpsilon(t *testing.T) {
	c := newTestController(Config{})
	moveTo(c, 0.3)
	shown := c.Evaluate(at(0))

	require.True(t, c.SelectConfirmed(at(10)))
	assert.Equal(t, shown, c.Evaluate(at(20)))
	moveTo(c, 0.6)
	assert.Equal(t, shown, c.Evaluate(at(30)), "locked output must not follow progress")

	require.True(t, c.EnterStage(Stage3, at(1100)))
	assert.True(t, c.Holding())
	assert.Equal(t, shown, c.Evaluate(at(1116)))

	moveTo(c, 0.601)
	assert.Equal(t, shown, c.Evaluate(at(1132)))
	moveTo(c, 0.6005)
	assert.Equal(t, shown, c.Evaluate(at(1148)))

	p := 0.6015
	moveTo(c, p)
	out := c.Evaluate(at(1164))
	assert.False(t, c.Holding())
	assert.NotEqual(t, shown, out)
	assert.Equal(t, palette.Blend(p*5, palette.ModeCalm), out)
}

func TestEnterStage2BeforeMovement(t *testing.T) {
	c := newTestController(Config{})
	require.True(t, c.EnterStage(Stage2, at(0)))
	assert.Equal(t, palette.Default(), c.Evaluate(at(16)))

	moveTo(c, 0.5)
	out := c.Evaluate(at(32))
	assert.Equal(t, palette.Blend(4.5, palette.ModeRandom), out)
	assert.InDelta(t, 4.5, c.SegmentValue(), 1e-12)
}

func TestStage2DoesNotHold(t *testing.T) {
	c := newTestController(Config{})
	moveTo(c, 0.2)
	c.Evaluate(at(0))
	c.EnterStage(Stage2, at(10))

	assert.False(t, c.Holding())
	assert.Equal(t, palette.Blend(palette.SegmentValue(0.2, c.Phase(), palette.ModeRandom), palette.ModeRandom), c.Evaluate(at(20)))
}

func TestPhaseAccumulatesClampedTravel(t *testing.T) {
	c := newTestController(Config{})
	moveTo(c, 1)
	c.ObserveProgress(gesture.Sample{Value: 1, Travel: 0.1, Source: gesture.SourceIntegration})
	c.ObserveProgress(gesture.Sample{Value: 1, Travel: 0.05, Source: gesture.SourceIntegration})

	assert.InDelta(t, 0.15, c.Phase(), 1e-12)
	assert.InDelta(t, 1.15*6, c.SegmentValue(), 1e-12)

	c.ObserveProgress(gesture.Sample{Value: 0.9, Travel: -0.1, Source: gesture.SourceIntegration})
	assert.InDelta(t, 0.15, c.Phase(), 1e-12)

	c.AddPhase(-0.4)
	assert.InDelta(t, -0.25, c.Phase(), 1e-12)

	c.EnterStage(Stage2, at(0))
	assert.Zero(t, c.Phase())
}

func TestSelectTwiceIsIgnored(t *testing.T) {
	c := newTestController(Config{})
	moveTo(c, 0.4)
	c.Evaluate(at(0))

	assert.True(t, c.SelectConfirmed(at(1)))
	first := c.Held()
	moveTo(c, 0.7)
	c.Evaluate(at(2))
	assert.False(t, c.SelectConfirmed(at(3)))
	assert.Equal(t, first, c.Held())
}

func TestFinalizeTweensThenLocks(t *testing.T) {
	c := newTestController(Config{FinalizeDuration: time.Second})
	moveTo(c, 0.45)
	before := c.Evaluate(at(0))

	require.True(t, c.Finalize(at(0)))
	mid := c.Evaluate(at(500))
	assert.NotEqual(t, before, mid)
	assert.NotEqual(t, palette.Default(), mid)
	assert.False(t, c.HardLocked())

	assert.Equal(t, palette.Default(), c.Evaluate(at(1000)))
	assert.True(t, c.HardLocked())

	moveTo(c, 0.9)
	assert.False(t, c.Randomize(at(1100)))
	assert.False(t, c.EnterStage(Stage3, at(1200)))
	assert.False(t, c.SelectConfirmed(at(1300)))
	c.AddPhase(3)
	assert.Equal(t, palette.Default(), c.Evaluate(at(5000)))
}

func TestFinalizeTwiceIsNoop(t *testing.T) {
	c := newTestController(Config{FinalizeDuration: time.Second})
	moveTo(c, 0.45)
	c.Evaluate(at(0))

	require.True(t, c.Finalize(at(0)))
	c.Evaluate(at(400))
	assert.False(t, c.Finalize(at(400)))

	c.Evaluate(at(1000))
	assert.True(t, c.HardLocked(), "second call must not restart the tween")
}

func TestRandomizeTweensAndHolds(t *testing.T) {
	c := newTestController(Config{RandomizeDuration: time.Second})
	moveTo(c, 0.25)
	start := c.Evaluate(at(0))

	require.True(t, c.Randomize(at(0)))
	assert.True(t, c.Tweening(at(10)))
	mid := c.Evaluate(at(500))
	assert.NotEqual(t, start, mid)

	final := c.Evaluate(at(1000))
	assert.True(t, c.Holding())
	assert.Equal(t, final, c.Evaluate(at(2000)))
	assert.Equal(t, c.Held().Palette, final)

	moveTo(c, 0.26)
	assert.Equal(t, palette.Blend(palette.SegmentValue(0.26, c.Phase(), palette.ModeRotating), palette.ModeRotating), c.Evaluate(at(2016)))
}

func TestRandomizeIgnoredWhileLocked(t *testing.T) {
	c := newTestController(Config{})
	moveTo(c, 0.25)
	c.Evaluate(at(0))
	c.SelectConfirmed(at(1))

	assert.False(t, c.Randomize(at(2)))
	assert.False(t, c.Tweening(at(3)))
}

func TestRandomizeReleasesHold(t *testing.T) {
	c := newTestController(Config{RandomizeDuration: time.Second})
	moveTo(c, 0.25)
	held := c.Evaluate(at(0))
	c.EnterStage(Stage3, at(10))
	require.True(t, c.Holding())

	require.True(t, c.Randomize(at(20)))
	assert.False(t, c.Holding())
	// starts from the held palette, no jump
	assert.Less(t, held.Distance(c.Evaluate(at(21))), 0.01)
}

func TestSelectDuringRandomizeKeepsSnapshot(t *testing.T) {
	c := newTestController(Config{RandomizeDuration: time.Second})
	moveTo(c, 0.25)
	c.Evaluate(at(0))
	c.Randomize(at(0))
	shown := c.Evaluate(at(400))

	c.SelectConfirmed(at(400))
	assert.Equal(t, shown, c.Evaluate(at(2000)))
	assert.Equal(t, shown, c.Held().Palette)
}

func TestParseStage(t *testing.T) {
	s, err := Parse("stage3")
	require.NoError(t, err)
	assert.Equal(t, Stage3, s)

	s, err = Parse(" Base ")
	require.NoError(t, err)
	assert.Equal(t, Base, s)

	_, err = Parse("stage9")
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestStageOrder(t *testing.T) {
	next, ok := Base.Next()
	assert.True(t, ok)
	assert.Equal(t, Stage2, next)
	_, ok = Stage3.Next()
	assert.False(t, ok)
	assert.Equal(t, palette.ModeRandom, Stage2.Mode())
}
