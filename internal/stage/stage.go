// Package stage decides, once per frame, which palette the backdrop shows.
package stage

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cybre/backdrop-sync/internal/palette"
)

// Stage is a narrative step of the installation.
type Stage int

const (
	// Base is the opening stage, rotating palettes.
	Base Stage = iota
	// Stage2 cycles random palettes.
	Stage2
	// Stage3 settles into calm palettes and may be finalized.
	Stage3
)

// ErrUnknownStage is returned by Parse for unrecognized names.
var ErrUnknownStage = eris.New("unknown stage")

// String returns the name used in config files and local events.
func (s Stage) String() string {
	switch s {
	case Base:
		return "stage1"
	case Stage2:
		return "stage2"
	case Stage3:
		return "stage3"
	default:
		return "unknown"
	}
}

// Parse accepts "stage1".."stage3", "base", or "1".."3".
func Parse(name string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "stage1", "base", "1":
		return Base, nil
	case "stage2", "2":
		return Stage2, nil
	case "stage3", "3":
		return Stage3, nil
	default:
		return Base, eris.Wrapf(ErrUnknownStage, "%q", name)
	}
}

// Mode is the palette generator mode the stage runs.
func (s Stage) Mode() palette.Mode {
	switch s {
	case Stage2:
		return palette.ModeRandom
	case Stage3:
		return palette.ModeCalm
	default:
		return palette.ModeRotating
	}
}

// Next returns the stage a confirmed selection advances to. Stage3 has none;
// a selection there finalizes instead.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case Base:
		return Stage2, true
	case Stage2:
		return Stage3, true
	default:
		return s, false
	}
}

// Snapshot is a frozen copy of the full color and band state.
type Snapshot struct {
	Palette    palette.Palette
	Stage      Stage
	CapturedAt time.Time
}
