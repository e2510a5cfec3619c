// Package tween animates named parameters toward targets over time.
//
// At most one tween is active per parameter id. Starting a new one while
// another is in flight starts from the value currently on screen, so
// retargeting never jumps.
package tween

import (
	"time"

	"github.com/cybre/backdrop-sync/internal/utils"
)

// Lerp interpolates between two values of T.
type Lerp[T any] func(a, b T, t float64) T

// Completion decides what Sample returns once a tween has run its course.
type Completion int

const (
	// Hold keeps returning the target until Clear is called.
	Hold Completion = iota
	// Release drops the tween so the caller's steady-state source takes over.
	Release
)

// Options configures a single Animate call.
type Options[T any] struct {
	Easing     Easing
	Completion Completion
	// OnComplete runs exactly once, from the Sample or Advance call that
	// first observes elapsed >= duration.
	OnComplete func(final T)
}

// Tween is one running interpolation.
type Tween[T any] struct {
	ParamID  string
	From     T
	To       T
	Start    time.Time
	Duration time.Duration

	easing     Easing
	completion Completion
	onComplete func(T)
	done       bool
}

// Progress returns the eased fraction at now.
func (tw *Tween[T]) Progress(now time.Time) float64 {
	if tw.Duration <= 0 {
		return 1
	}
	u := float64(now.Sub(tw.Start)) / float64(tw.Duration)
	return tw.easing(utils.Clamp01(u))
}

// Finished reports whether elapsed >= duration at now.
func (tw *Tween[T]) Finished(now time.Time) bool {
	return !now.Before(tw.Start.Add(tw.Duration))
}

// Scheduler holds the active tweens for one value type.
// Not safe for concurrent use.
type Scheduler[T any] struct {
	lerp   Lerp[T]
	tweens map[string]*Tween[T]
}

// NewScheduler builds a scheduler that interpolates with lerp.
func NewScheduler[T any](lerp Lerp[T]) *Scheduler[T] {
	return &Scheduler[T]{
		lerp:   lerp,
		tweens: make(map[string]*Tween[T]),
	}
}

// Animate starts or replaces the tween for id. If a tween for id exists,
// its value at now becomes the new origin and from is ignored.
func (s *Scheduler[T]) Animate(now time.Time, id string, from, to T, duration time.Duration, opts Options[T]) *Tween[T] {
	if current, ok := s.valueAt(id, now); ok {
		from = current
	}
	if opts.Easing == nil {
		opts.Easing = EaseInOut
	}
	if duration < 0 {
		duration = 0
	}

	tw := &Tween[T]{
		ParamID:    id,
		From:       from,
		To:         to,
		Start:      now,
		Duration:   duration,
		easing:     opts.Easing,
		completion: opts.Completion,
		onComplete: opts.OnComplete,
	}
	s.tweens[id] = tw
	return tw
}

// Sample returns the value for id at now, or false when nothing is active.
func (s *Scheduler[T]) Sample(id string, now time.Time) (T, bool) {
	var zero T
	tw, ok := s.tweens[id]
	if !ok {
		return zero, false
	}
	if !tw.Finished(now) {
		return s.lerp(tw.From, tw.To, tw.Progress(now)), true
	}

	s.complete(tw)
	if tw.completion == Release {
		return zero, false
	}
	return tw.To, true
}

// Advance runs completion for every tween finished at now. Callers that do
// not sample every parameter each frame use it to keep hand-offs on time.
func (s *Scheduler[T]) Advance(now time.Time) {
	for _, tw := range s.tweens {
		if tw.Finished(now) {
			s.complete(tw)
		}
	}
}

// Active reports whether id has a tween that is still interpolating.
func (s *Scheduler[T]) Active(id string, now time.Time) bool {
	tw, ok := s.tweens[id]
	return ok && !tw.Finished(now)
}

// Has reports whether id has any tween, interpolating or holding.
func (s *Scheduler[T]) Has(id string) bool {
	_, ok := s.tweens[id]
	return ok
}

// Target returns the destination of id's tween.
func (s *Scheduler[T]) Target(id string) (T, bool) {
	var zero T
	tw, ok := s.tweens[id]
	if !ok {
		return zero, false
	}
	return tw.To, true
}

// Clear drops id without running its completion.
func (s *Scheduler[T]) Clear(id string) {
	delete(s.tweens, id)
}

// Len returns the number of tracked tweens.
func (s *Scheduler[T]) Len() int {
	return len(s.tweens)
}

func (s *Scheduler[T]) valueAt(id string, now time.Time) (T, bool) {
	var zero T
	tw, ok := s.tweens[id]
	if !ok {
		return zero, false
	}
	if tw.Finished(now) {
		return tw.To, true
	}
	return s.lerp(tw.From, tw.To, tw.Progress(now)), true
}

func (s *Scheduler[T]) complete(tw *Tween[T]) {
	if tw.done {
		return
	}
	tw.done = true
	if tw.completion == Release {
		// the callback may start a new tween under the same id
		if s.tweens[tw.ParamID] == tw {
			delete(s.tweens, tw.ParamID)
		}
	}
	if tw.onComplete != nil {
		tw.onComplete(tw.To)
	}
}

// Float is a Lerp for plain scalars.
func Float(a, b, t float64) float64 {
	return utils.Lerp(a, b, t)
}
