package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoopRunsCallbacksOnce(t *testing.T) {
	l := NewLoop()
	calls := 0
	l.Request(func(time.Time) { calls++ })

	l.Tick(time.Unix(0, 0))
	l.Tick(time.Unix(1, 0))

	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(2), l.Frames())
}

func TestLoopRequestDuringTickDefersToNextFrame(t *testing.T) {
	l := NewLoop()
	var seen []int64
	var step Callback
	step = func(now time.Time) {
		seen = append(seen, now.Unix())
		if len(seen) < 3 {
			l.Request(step)
		}
	}
	l.Request(step)

	for i := int64(1); i <= 5; i++ {
		l.Tick(time.Unix(i, 0))
	}

	assert.Equal(t, []int64{1, 2, 3}, seen)
	assert.Zero(t, l.Pending())
}

func TestLoopCancel(t *testing.T) {
	l := NewLoop()
	called := false
	id := l.Request(func(time.Time) { called = true })
	l.Cancel(id)
	l.Tick(time.Now())

	assert.False(t, called)
}

func TestLoopCancelWithinSameFrame(t *testing.T) {
	l := NewLoop()
	called := false
	var second RequestID
	l.Request(func(time.Time) { l.Cancel(second) })
	second = l.Request(func(time.Time) { called = true })

	l.Tick(time.Now())

	assert.False(t, called)
}
