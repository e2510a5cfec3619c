// Package control is the closed set of control events and their boundary
// decoding. Remote and local drivers produce the same events.
package control

import (
	"context"

	"github.com/cybre/backdrop-sync/internal/bus"
	"github.com/cybre/backdrop-sync/internal/stage"
)

// Kind is an event name on the bus.
type Kind string

// Networked kinds.
const (
	KindProgress       Kind = "progress"
	KindNext           Kind = "next"
	KindPrev           Kind = "prev"
	KindSetStep        Kind = "setStep"
	KindOverlayIndex   Kind = "overlayIndex"
	KindOverlayOpacity Kind = "overlayOpacity"
	KindHealingText    Kind = "healingText"
	KindRandomize      Kind = "randomize"
	KindSelect         Kind = "select"
	KindLandingProceed Kind = bus.KindLandingProceed
)

// Local-only kinds.
const (
	KindFinal  Kind = "final"
	KindStage1 Kind = "stage1"
	KindStage2 Kind = "stage2"
	KindStage3 Kind = "stage3"
	KindPhase  Kind = "phase"
	KindFlash  Kind = "flash"
)

// Event is one decoded, already clamped control event.
type Event interface {
	Kind() Kind
	payload() any
}

type (
	// Progress overrides the gesture value. Value is in [0, 1].
	Progress struct{ Value float64 }
	// Next advances the step counter.
	Next struct{}
	// Prev retreats the step counter.
	Prev struct{}
	// SetStep jumps the step counter to a clamped absolute step.
	SetStep struct{ Step int }
	// OverlayIndex selects an overlay, floored and clamped to the overlay count.
	OverlayIndex struct{ Index int }
	// OverlayOpacity is the opacity tween target in [0, 1].
	OverlayOpacity struct{ Opacity float64 }
	// HealingText is free text; empty clears.
	HealingText struct{ Text string }
	Randomize   struct{}
	Select      struct{}
	// LandingProceed signals controller presence; Raw is passed through.
	LandingProceed struct{ Raw []byte }
	Final          struct{}
	// EnterStage is one of the stage1..stage3 events.
	EnterStage struct{ Stage stage.Stage }
	// Phase adds Delta to the phase accumulator.
	Phase struct{ Delta float64 }
	Flash struct{}
)

func (Progress) Kind() Kind       { return KindProgress }
func (Next) Kind() Kind           { return KindNext }
func (Prev) Kind() Kind           { return KindPrev }
func (SetStep) Kind() Kind        { return KindSetStep }
func (OverlayIndex) Kind() Kind   { return KindOverlayIndex }
func (OverlayOpacity) Kind() Kind { return KindOverlayOpacity }
func (HealingText) Kind() Kind    { return KindHealingText }
func (Randomize) Kind() Kind      { return KindRandomize }
func (Select) Kind() Kind         { return KindSelect }
func (LandingProceed) Kind() Kind { return KindLandingProceed }
func (Final) Kind() Kind          { return KindFinal }
func (Phase) Kind() Kind          { return KindPhase }
func (Flash) Kind() Kind          { return KindFlash }

func (e EnterStage) Kind() Kind {
	switch e.Stage {
	case stage.Stage2:
		return KindStage2
	case stage.Stage3:
		return KindStage3
	default:
		return KindStage1
	}
}

func (e Progress) payload() any       { return e.Value }
func (Next) payload() any             { return nil }
func (Prev) payload() any             { return nil }
func (e SetStep) payload() any        { return e.Step }
func (e OverlayIndex) payload() any   { return e.Index }
func (e OverlayOpacity) payload() any { return e.Opacity }
func (e HealingText) payload() any    { return e.Text }
func (Randomize) payload() any        { return nil }
func (Select) payload() any           { return nil }
func (Final) payload() any            { return nil }
func (EnterStage) payload() any       { return nil }
func (e Phase) payload() any          { return e.Delta }
func (Flash) payload() any            { return nil }

func (e LandingProceed) payload() any {
	if len(e.Raw) == 0 {
		return nil
	}
	return rawMessage(e.Raw)
}

// Publish sends ev on b with the same payload shape a remote peer would use.
func Publish(ctx context.Context, b bus.Bus, ev Event) error {
	return b.Publish(ctx, string(ev.Kind()), ev.payload())
}
