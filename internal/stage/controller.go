package stage

import (
	"log/slog"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/cybre/backdrop-sync/internal/gesture"
	"github.com/cybre/backdrop-sync/internal/palette"
	"github.com/cybre/backdrop-sync/internal/tween"
	"github.com/cybre/backdrop-sync/internal/utils"
)

const colorsParam = "colors"

// Config tunes a Controller. Zero fields fall back to defaults.
type Config struct {
	Initial           Stage
	HoldEpsilon       float64
	HoldStages        []Stage
	RandomizeDuration time.Duration
	FinalizeDuration  time.Duration
	// Default is shown before the first movement and after finalize.
	Default *palette.Palette
	Rand    *rand.Rand
}

// DefaultConfig returns the installation's tuning.
func DefaultConfig() Config {
	return Config{
		Initial:           Base,
		HoldEpsilon:       0.002,
		HoldStages:        []Stage{Base, Stage3},
		RandomizeDuration: 1200 * time.Millisecond,
		FinalizeDuration:  2500 * time.Millisecond,
	}
}

// Controller owns the stage, the lock flags, the phase accumulator and the
// palette on screen. Only it writes the displayed colors.
type Controller struct {
	cfg    Config
	logger *slog.Logger
	colors *tween.Scheduler[palette.Palette]
	rng    *rand.Rand

	stage      Stage
	locked     bool
	finalized  bool
	hardLocked bool

	progress float64
	phase    float64
	moved    bool

	holding  bool
	movement float64
	held     Snapshot

	startup Snapshot
	current palette.Palette
}

// NewController builds a controller resting on the default palette.
func NewController(cfg Config, logger *slog.Logger) *Controller {
	def := DefaultConfig()
	if cfg.HoldEpsilon <= 0 {
		cfg.HoldEpsilon = def.HoldEpsilon
	}
	if cfg.HoldStages == nil {
		cfg.HoldStages = def.HoldStages
	}
	if cfg.RandomizeDuration <= 0 {
		cfg.RandomizeDuration = def.RandomizeDuration
	}
	if cfg.FinalizeDuration <= 0 {
		cfg.FinalizeDuration = def.FinalizeDuration
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}

	startup := palette.Default()
	if cfg.Default != nil {
		startup = *cfg.Default
	}

	return &Controller{
		cfg:     cfg,
		logger:  logger,
		colors:  tween.NewScheduler(lerpPalette),
		rng:     cfg.Rand,
		stage:   cfg.Initial,
		startup: Snapshot{Palette: startup, Stage: cfg.Initial},
		current: startup,
	}
}

func lerpPalette(a, b palette.Palette, t float64) palette.Palette {
	return a.Lerp(b, t)
}

// Stage returns the active stage.
func (c *Controller) Stage() Stage { return c.stage }

// Locked reports whether a confirmed selection is frozen on screen.
func (c *Controller) Locked() bool { return c.locked }

// Finalized reports whether the finalize transition has started.
func (c *Controller) Finalized() bool { return c.finalized }

// HardLocked reports whether the controller ignores all further input.
func (c *Controller) HardLocked() bool { return c.hardLocked }

// Holding reports whether output is held until the next movement.
func (c *Controller) Holding() bool { return c.holding }

// Moved reports whether any movement has been observed since startup.
func (c *Controller) Moved() bool { return c.moved }

// Progress returns the last observed progress value.
func (c *Controller) Progress() float64 { return c.progress }

// Phase returns the accumulated phase offset.
func (c *Controller) Phase() float64 { return c.phase }

// Held returns the snapshot captured when the current hold began.
func (c *Controller) Held() Snapshot { return c.held }

// Startup returns the snapshot shown before the first movement.
func (c *Controller) Startup() Snapshot { return c.startup }

// Current returns the palette produced by the last Evaluate.
func (c *Controller) Current() palette.Palette { return c.current }

// SegmentValue is the generator position for the current stage.
func (c *Controller) SegmentValue() float64 {
	return palette.SegmentValue(c.progress, c.phase, c.stage.Mode())
}

// ObserveProgress consumes a gesture sample. Travel swallowed by clamping
// at either end of the progress range accumulates into the phase.
func (c *Controller) ObserveProgress(s gesture.Sample) {
	if !utils.Finite(s.Value) || !utils.Finite(s.Travel) {
		return
	}
	dp := s.Value - c.progress
	overflow := s.Travel - dp
	// an override is a jump, not travel past the edge
	if s.Source == gesture.SourceOverride {
		overflow = 0
	}
	c.progress = s.Value
	c.move(dp, overflow)
}

// AddPhase advances the phase accumulator directly.
func (c *Controller) AddPhase(delta float64) {
	if !utils.Finite(delta) {
		return
	}
	c.move(0, delta)
}

func (c *Controller) move(dp, dphase float64) {
	c.phase += dphase
	step := math.Abs(dp) + math.Abs(dphase)
	if step == 0 {
		return
	}
	if !c.moved {
		c.moved = true
		c.logger.Debug("first movement, releasing startup palette",
			slog.Float64("progress", c.progress))
	}
	if !c.holding {
		return
	}
	c.movement += step
	if c.movement > c.cfg.HoldEpsilon {
		c.holding = false
		c.logger.Debug("hold released",
			slog.String("stage", c.stage.String()),
			slog.Float64("movement", c.movement))
	}
}

// SelectConfirmed freezes the output on what is currently shown. It returns
// false when a selection is already pending or the show is finalized.
func (c *Controller) SelectConfirmed(now time.Time) bool {
	if c.finalized || c.locked {
		return false
	}
	c.colors.Clear(colorsParam)
	c.held = Snapshot{Palette: c.current, Stage: c.stage, CapturedAt: now}
	c.locked = true
	c.holding = false

	c.logger.Info("selection confirmed", slog.String("stage", c.stage.String()))
	return true
}

// EnterStage switches stage, unlocks and resets the phase. Hold stages keep
// showing the last output until movement exceeds the hold epsilon.
func (c *Controller) EnterStage(s Stage, now time.Time) bool {
	if c.finalized {
		return false
	}
	c.colors.Clear(colorsParam)
	c.stage = s
	c.locked = false
	c.phase = 0
	c.movement = 0
	c.held = Snapshot{Palette: c.current, Stage: s, CapturedAt: now}
	c.holding = slices.Contains(c.cfg.HoldStages, s)

	c.logger.Info("entered stage",
		slog.String("stage", s.String()),
		slog.Bool("hold", c.holding))
	return true
}

// Finalize tweens back to the startup palette and locks for good once the
// tween completes. Repeated calls are no-ops.
func (c *Controller) Finalize(now time.Time) bool {
	if c.finalized {
		return false
	}
	c.finalized = true
	c.locked = true
	c.holding = false

	c.colors.Clear(colorsParam)
	c.colors.Animate(now, colorsParam, c.current, c.startup.Palette, c.cfg.FinalizeDuration, tween.Options[palette.Palette]{
		Easing:     tween.EaseInOut,
		Completion: tween.Release,
		OnComplete: func(palette.Palette) {
			c.hardLocked = true
			c.logger.Info("finalize complete, palette locked")
		},
	})

	c.logger.Info("finalizing", slog.Duration("duration", c.cfg.FinalizeDuration))
	return true
}

// Randomize tweens to an unseeded palette and holds it until the next
// movement. Ignored while locked.
func (c *Controller) Randomize(now time.Time) bool {
	if c.locked || c.finalized {
		return false
	}
	c.holding = false
	target := palette.Random(c.rng, c.stage.Mode())
	c.colors.Animate(now, colorsParam, c.current, target, c.cfg.RandomizeDuration, tween.Options[palette.Palette]{
		Easing:     tween.Smoothstep,
		Completion: tween.Release,
		OnComplete: func(final palette.Palette) {
			c.held = Snapshot{Palette: final, Stage: c.stage, CapturedAt: now.Add(c.cfg.RandomizeDuration)}
			c.holding = true
			c.movement = 0
		},
	})

	c.logger.Debug("randomize", slog.String("stage", c.stage.String()))
	return true
}

// Evaluate returns the palette for this frame and records it as current.
func (c *Controller) Evaluate(now time.Time) palette.Palette {
	c.current = c.evaluate(now)
	return c.current
}

func (c *Controller) evaluate(now time.Time) palette.Palette {
	if c.finalized {
		if p, ok := c.colors.Sample(colorsParam, now); ok {
			return p
		}
		return c.startup.Palette
	}
	if !c.moved {
		return c.startup.Palette
	}
	if c.locked || c.holding {
		return c.held.Palette
	}
	if p, ok := c.colors.Sample(colorsParam, now); ok {
		return p
	}
	// the randomize hand-off may have just started a hold
	if c.holding {
		return c.held.Palette
	}
	mode := c.stage.Mode()
	return palette.Blend(palette.SegmentValue(c.progress, c.phase, mode), mode)
}

// Tweening reports whether a color tween is interpolating at now.
func (c *Controller) Tweening(now time.Time) bool {
	return c.colors.Active(colorsParam, now)
}
