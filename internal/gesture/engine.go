// Package gesture integrates wheel and touch deltas into a decaying scroll
// progress value in [0, 1].
package gesture

import (
	"math"
	"time"

	"github.com/cybre/backdrop-sync/internal/frame"
	"github.com/cybre/backdrop-sync/internal/utils"
)

// Options tunes the integrator. Zero fields fall back to defaults.
type Options struct {
	WheelScale  float64
	TouchScale  float64
	Friction    float64
	MinVelocity float64
	Initial     float64
}

// DefaultOptions returns the tuning used by the installation.
func DefaultOptions() Options {
	return Options{
		WheelScale:  0.00008,
		TouchScale:  0.00025,
		Friction:    0.08,
		MinVelocity: 0.00005,
	}
}

// Source says what produced a sample.
type Source int

const (
	// SourceIntegration is a momentum step of the frame loop.
	SourceIntegration Source = iota
	// SourceOverride is a forced value, typically a remote progress event.
	SourceOverride
)

// Sample is one emitted progress update. Travel is the signed distance the
// step tried to move, before clamping; Value is where progress ended up.
type Sample struct {
	Value  float64
	Travel float64
	Source Source
	At     time.Time
}

// Overflow is the part of Travel that clamping swallowed.
func (s Sample) Overflow(previous float64) float64 {
	return s.Travel - (s.Value - previous)
}

// Listener receives samples synchronously, in the tick that produced them.
type Listener func(Sample)

// Engine owns the progress value. Not safe for concurrent use.
type Engine struct {
	opts      Options
	frames    frame.Requester
	listeners []Listener

	value    float64
	velocity float64

	running  bool
	request  frame.RequestID
	disposed bool
}

// NewEngine builds an engine that schedules itself on frames.
func NewEngine(frames frame.Requester, opts Options) *Engine {
	def := DefaultOptions()
	if opts.WheelScale <= 0 {
		opts.WheelScale = def.WheelScale
	}
	if opts.TouchScale <= 0 {
		opts.TouchScale = def.TouchScale
	}
	if opts.Friction <= 0 || opts.Friction >= 1 {
		opts.Friction = def.Friction
	}
	if opts.MinVelocity <= 0 {
		opts.MinVelocity = def.MinVelocity
	}

	return &Engine{
		opts:   opts,
		frames: frames,
		value:  utils.Clamp01(opts.Initial),
	}
}

// OnChange registers a listener for every emitted sample.
func (e *Engine) OnChange(l Listener) {
	e.listeners = append(e.listeners, l)
}

// Value returns the current progress.
func (e *Engine) Value() float64 { return e.value }

// Velocity returns the current signed velocity in progress units per frame.
func (e *Engine) Velocity() float64 { return e.velocity }

// Running reports whether the integration loop holds a frame request.
func (e *Engine) Running() bool { return e.running }

// AddWheelDelta feeds a wheel event's vertical delta.
func (e *Engine) AddWheelDelta(dy float64) {
	e.addVelocity(dy * e.opts.WheelScale)
}

// AddTouchDelta feeds a touch-move vertical delta.
func (e *Engine) AddTouchDelta(dy float64) {
	e.addVelocity(dy * e.opts.TouchScale)
}

func (e *Engine) addVelocity(dv float64) {
	if e.disposed || !utils.Finite(dv) {
		return
	}
	e.velocity += dv
	e.ensureRunning()
}

// SetValue forces progress and emits immediately. Momentum is left alone.
func (e *Engine) SetValue(v float64, now time.Time) {
	if e.disposed {
		return
	}
	previous := e.value
	e.value = utils.Clamp01(v)
	e.emit(Sample{
		Value:  e.value,
		Travel: e.value - previous,
		Source: SourceOverride,
		At:     now,
	})
}

// Dispose stops the loop and detaches from the frame driver.
func (e *Engine) Dispose() {
	if e.running {
		e.frames.Cancel(e.request)
	}
	e.running = false
	e.disposed = true
	e.velocity = 0
	e.listeners = nil
}

func (e *Engine) ensureRunning() {
	if e.running || math.Abs(e.velocity) < e.opts.MinVelocity {
		return
	}
	e.running = true
	e.request = e.frames.Request(e.step)
}

func (e *Engine) step(now time.Time) {
	if e.disposed {
		return
	}
	if math.Abs(e.velocity) < e.opts.MinVelocity {
		e.running = false
		return
	}

	travel := e.velocity
	// Velocity survives clamping so a reversal reacts from the edge at once.
	e.value = utils.Clamp01(e.value + travel)
	e.emit(Sample{
		Value:  e.value,
		Travel: travel,
		Source: SourceIntegration,
		At:     now,
	})

	e.velocity *= 1 - e.opts.Friction
	if math.Abs(e.velocity) < e.opts.MinVelocity {
		e.velocity = 0
		e.running = false
		return
	}
	e.request = e.frames.Request(e.step)
}

func (e *Engine) emit(s Sample) {
	for _, l := range e.listeners {
		l(s)
	}
}
