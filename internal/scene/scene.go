// Package scene is the display-side state handle. It owns the gesture
// engine, the stage controller and every tweened render parameter, and
// turns them into one Frame per tick.
package scene

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cybre/backdrop-sync/internal/bus"
	"github.com/cybre/backdrop-sync/internal/control"
	"github.com/cybre/backdrop-sync/internal/frame"
	"github.com/cybre/backdrop-sync/internal/gesture"
	"github.com/cybre/backdrop-sync/internal/palette"
	"github.com/cybre/backdrop-sync/internal/schedule"
	"github.com/cybre/backdrop-sync/internal/stage"
	"github.com/cybre/backdrop-sync/internal/tween"
	"github.com/cybre/backdrop-sync/internal/utils"
)

const (
	paramOpacity = "overlayOpacity"
	paramFlash   = "flash"
	paramCamera  = "camera"
	paramLight   = "light"
)

// Options tunes a Scene. Zero fields fall back to DefaultOptions.
type Options struct {
	Gesture         gesture.Options
	Stage           stage.Config
	SettleDelay     time.Duration
	OverlayCount    int
	OpacityDuration time.Duration
	CameraDuration  time.Duration
	FlashDuration   time.Duration
	// Easing shapes the opacity and camera tweens.
	Easing        tween.Easing
	Waypoints     []Waypoint
	InboxSize     int
	DebugInterval time.Duration
}

// DefaultOptions returns the installation's tuning.
func DefaultOptions() Options {
	return Options{
		Gesture:         gesture.DefaultOptions(),
		Stage:           stage.DefaultConfig(),
		SettleDelay:     1100 * time.Millisecond,
		OverlayCount:    4,
		OpacityDuration: 600 * time.Millisecond,
		CameraDuration:  1800 * time.Millisecond,
		FlashDuration:   450 * time.Millisecond,
		Easing:          tween.EaseInOut,
		Waypoints:       DefaultWaypoints(),
		InboxSize:       256,
		DebugInterval:   2 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Gesture == (gesture.Options{}) {
		o.Gesture = def.Gesture
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = def.SettleDelay
	}
	if o.OverlayCount <= 0 {
		o.OverlayCount = def.OverlayCount
	}
	if o.OpacityDuration <= 0 {
		o.OpacityDuration = def.OpacityDuration
	}
	if o.CameraDuration <= 0 {
		o.CameraDuration = def.CameraDuration
	}
	if o.FlashDuration <= 0 {
		o.FlashDuration = def.FlashDuration
	}
	if o.Easing == nil {
		o.Easing = def.Easing
	}
	if len(o.Waypoints) == 0 {
		o.Waypoints = def.Waypoints
	}
	if o.InboxSize <= 0 {
		o.InboxSize = def.InboxSize
	}
	if o.DebugInterval <= 0 {
		o.DebugInterval = def.DebugInterval
	}
	return o
}

// Frame is everything a renderer needs for one tick.
type Frame struct {
	At       time.Time
	Number   uint64
	Palette  palette.Palette
	Progress float64
	Phase    float64
	Segment  float64

	Stage     stage.Stage
	Locked    bool
	Holding   bool
	Finalized bool
	Tweening  bool

	Step   int
	Camera Vec3
	Light  Vec3

	OverlayIndex   int
	OverlayOpacity float64
	Flash          float64
	HealingText    string

	ControllerPresent bool
}

// Renderer consumes frames. The shader pipeline lives behind it.
type Renderer interface {
	Render(Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Frame)

func (f RendererFunc) Render(fr Frame) { f(fr) }

// Scene is single-owner: Tick, Apply and the input methods must be called
// from one goroutine. Enqueue and HandleEnvelope are safe from any.
type Scene struct {
	opts   Options
	logger *slog.Logger

	loop    *frame.Loop
	gesture *gesture.Engine
	stage   *stage.Controller
	timers  *schedule.Timers
	scalars *tween.Scheduler[float64]
	vectors *tween.Scheduler[Vec3]

	inbox   chan control.Event
	dropped atomic.Uint64

	settle *schedule.Task

	step        int
	camera      Vec3
	light       Vec3
	overlay     int
	opacity     float64
	healingText string
	controller  bool

	last Frame
}

// New builds a scene resting on the first waypoint and the default palette.
func New(opts Options, logger *slog.Logger) *Scene {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()

	loop := frame.NewLoop()
	s := &Scene{
		opts:    opts,
		logger:  logger,
		loop:    loop,
		gesture: gesture.NewEngine(loop, opts.Gesture),
		stage:   stage.NewController(opts.Stage, logger),
		timers:  schedule.NewTimers(),
		scalars: tween.NewScheduler(tween.Float),
		vectors: tween.NewScheduler(LerpVec3),
		inbox:   make(chan control.Event, opts.InboxSize),
		camera:  opts.Waypoints[0].Camera,
		light:   opts.Waypoints[0].Light,
	}
	s.gesture.OnChange(s.stage.ObserveProgress)
	return s
}

// Limits are the bounds remote index events are clamped to.
func (s *Scene) Limits() control.Limits {
	return control.Limits{
		OverlayCount: s.opts.OverlayCount,
		StepCount:    len(s.opts.Waypoints),
	}
}

// Stage exposes the stage controller for inspection.
func (s *Scene) Stage() *stage.Controller {
	return s.stage
}

// Gesture exposes the gesture engine for local input.
func (s *Scene) Gesture() *gesture.Engine {
	return s.gesture
}

// Last returns the most recent frame.
func (s *Scene) Last() Frame {
	return s.last
}

// Dropped counts events discarded because the inbox was full.
func (s *Scene) Dropped() uint64 {
	return s.dropped.Load()
}

// Enqueue queues ev for the next tick. It never blocks; when the inbox is
// full the event is dropped.
func (s *Scene) Enqueue(ev control.Event) bool {
	select {
	case s.inbox <- ev:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// HandleEnvelope decodes a bus envelope and queues it. Malformed payloads
// are ignored.
func (s *Scene) HandleEnvelope(env bus.Envelope) {
	ev, err := control.Decode(env, s.Limits())
	if err != nil {
		s.logger.Debug("ignoring control event",
			slog.String("kind", env.Kind),
			slog.Any("error", err))
		return
	}
	s.Enqueue(ev)
}

// Attach subscribes the scene to every event on b.
func (s *Scene) Attach(b bus.Bus) (detach func()) {
	return b.Subscribe(bus.Wildcard, s.HandleEnvelope)
}

// Tick runs one frame: queued events, gesture integration, due tasks,
// tween completions, then palette evaluation.
func (s *Scene) Tick(now time.Time) Frame {
	s.drain(now)
	s.loop.Tick(now)
	s.timers.Run(now)
	s.scalars.Advance(now)
	s.vectors.Advance(now)

	if v, ok := s.scalars.Sample(paramOpacity, now); ok {
		s.opacity = v
	}
	flash, _ := s.scalars.Sample(paramFlash, now)
	if v, ok := s.vectors.Sample(paramCamera, now); ok {
		s.camera = v
	}
	if v, ok := s.vectors.Sample(paramLight, now); ok {
		s.light = v
	}

	pal := s.stage.Evaluate(now)
	s.last = Frame{
		At:                now,
		Number:            s.loop.Frames(),
		Palette:           pal,
		Progress:          s.stage.Progress(),
		Phase:             s.stage.Phase(),
		Segment:           s.stage.SegmentValue(),
		Stage:             s.stage.Stage(),
		Locked:            s.stage.Locked(),
		Holding:           s.stage.Holding(),
		Finalized:         s.stage.Finalized(),
		Tweening:          s.stage.Tweening(now),
		Step:              s.step,
		Camera:            s.camera,
		Light:             s.light,
		OverlayIndex:      s.overlay,
		OverlayOpacity:    s.opacity,
		Flash:             flash,
		HealingText:       s.healingText,
		ControllerPresent: s.controller,
	}
	return s.last
}

func (s *Scene) drain(now time.Time) {
	for {
		select {
		case ev := <-s.inbox:
			s.Apply(ev, now)
		default:
			return
		}
	}
}

// Apply handles one event immediately.
func (s *Scene) Apply(ev control.Event, now time.Time) {
	switch e := ev.(type) {
	case control.Progress:
		s.gesture.SetValue(e.Value, now)
	case control.Next:
		s.setStep(s.step+1, now)
	case control.Prev:
		s.setStep(s.step-1, now)
	case control.SetStep:
		s.setStep(e.Step, now)
	case control.OverlayIndex:
		s.overlay = utils.ClampIndex(e.Index, s.opts.OverlayCount)
	case control.OverlayOpacity:
		s.scalars.Animate(now, paramOpacity, s.opacity, utils.Clamp01(e.Opacity), s.opts.OpacityDuration, tween.Options[float64]{
			Easing:     s.opts.Easing,
			Completion: tween.Hold,
		})
	case control.HealingText:
		s.healingText = e.Text
	case control.Randomize:
		s.stage.Randomize(now)
	case control.Select:
		s.selectConfirmed(now)
	case control.LandingProceed:
		if !s.controller {
			s.logger.Info("controller present")
		}
		s.controller = true
	case control.Final:
		s.cancelSettle()
		s.stage.Finalize(now)
	case control.EnterStage:
		s.cancelSettle()
		s.stage.EnterStage(e.Stage, now)
	case control.Phase:
		s.stage.AddPhase(e.Delta)
	case control.Flash:
		s.scalars.Clear(paramFlash)
		s.scalars.Animate(now, paramFlash, 1, 0, s.opts.FlashDuration, tween.Options[float64]{
			Easing:     tween.Linear,
			Completion: tween.Release,
		})
	default:
		s.logger.Debug("unhandled control event", slog.String("kind", string(ev.Kind())))
	}
}

// selectConfirmed freezes the palette and schedules the stage advance, or
// the finalize when there is no further stage.
func (s *Scene) selectConfirmed(now time.Time) {
	if !s.stage.SelectConfirmed(now) {
		return
	}
	from := s.stage.Stage()
	s.settle = s.timers.After(now, s.opts.SettleDelay, "settle:"+from.String(), func(at time.Time) {
		s.settle = nil
		if next, ok := from.Next(); ok {
			s.stage.EnterStage(next, at)
			return
		}
		s.stage.Finalize(at)
	})
}

func (s *Scene) cancelSettle() {
	if s.settle != nil {
		s.settle.Cancel()
		s.settle = nil
	}
}

// SettlePending reports whether a select is waiting to advance the stage.
func (s *Scene) SettlePending() bool {
	return s.settle.Pending()
}

func (s *Scene) setStep(step int, now time.Time) {
	step = utils.ClampIndex(step, len(s.opts.Waypoints))
	if step == s.step {
		return
	}
	s.step = step
	wp := s.opts.Waypoints[step]
	opts := tween.Options[Vec3]{Easing: s.opts.Easing, Completion: tween.Hold}
	s.vectors.Animate(now, paramCamera, s.camera, wp.Camera, s.opts.CameraDuration, opts)
	s.vectors.Animate(now, paramLight, s.light, wp.Light, s.opts.CameraDuration, opts)

	s.logger.Debug("step changed", slog.Int("step", step))
}

// Close stops the gesture loop and drops pending tasks.
func (s *Scene) Close() {
	s.gesture.Dispose()
	s.timers.CancelAll()
}

// Run ticks the scene at fps until ctx is done, handing each frame to r.
func (s *Scene) Run(ctx context.Context, fps int, r Renderer) error {
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	debugTicker := time.NewTicker(s.opts.DebugInterval)
	defer debugTicker.Stop()
	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			f := s.Tick(now)
			if r != nil {
				r.Render(f)
			}
		case <-debugTicker.C:
			f := s.last
			s.logger.Debug("scene state",
				slog.String("stage", f.Stage.String()),
				slog.Float64("progress", f.Progress),
				slog.Float64("phase", f.Phase),
				slog.Bool("locked", f.Locked),
				slog.Bool("holding", f.Holding),
				slog.Bool("finalized", f.Finalized),
				slog.Int("step", f.Step),
				slog.Int("overlay", f.OverlayIndex),
				slog.Uint64("dropped", s.dropped.Load()))
		}
	}
}
