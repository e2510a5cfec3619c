package palette

// Mode selects the hue rule and saturation/lightness bounds.
type Mode int

const (
	// ModeRotating walks a fixed hue order, one hue per segment.
	ModeRotating Mode = iota
	// ModeRandom picks any hue per segment.
	ModeRandom
	// ModeCalm picks any hue with low saturation.
	ModeCalm
)

// String returns a human-friendly name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeRotating:
		return "rotating"
	case ModeRandom:
		return "random"
	case ModeCalm:
		return "calm"
	default:
		return "unknown"
	}
}

// Bounds are the HSL ranges stops are sampled from.
type Bounds struct {
	SatMin, SatMax     float64
	LightMin, LightMax float64
}

type modeParams struct {
	segments    int
	bounds      Bounds
	hueDrift    float64
	accentShift float64
	accentSat   float64
	accentLight float64
}

var rotatingHues = []float64{212, 258, 318, 18, 42, 168}

var modeTable = map[Mode]modeParams{
	ModeRotating: {
		segments:    6,
		bounds:      Bounds{SatMin: 0.45, SatMax: 0.85, LightMin: 0.08, LightMax: 0.78},
		hueDrift:    40,
		accentShift: 160,
		accentSat:   0.8,
		accentLight: 0.62,
	},
	ModeRandom: {
		segments:    9,
		bounds:      Bounds{SatMin: 0.55, SatMax: 0.95, LightMin: 0.06, LightMax: 0.82},
		hueDrift:    70,
		accentShift: 180,
		accentSat:   0.9,
		accentLight: 0.6,
	},
	ModeCalm: {
		segments:    5,
		bounds:      Bounds{SatMin: 0.10, SatMax: 0.35, LightMin: 0.12, LightMax: 0.72},
		hueDrift:    20,
		accentShift: 30,
		accentSat:   0.3,
		accentLight: 0.7,
	},
}

func (m Mode) params() modeParams {
	if s, ok := modeTable[m]; ok {
		return s
	}
	return modeTable[ModeRotating]
}

// Segments is how many segments one 0->1 progress pass spans.
func (m Mode) Segments() int {
	return m.params().segments
}

// Bounds returns the mode's saturation/lightness ranges.
func (m Mode) Bounds() Bounds {
	return m.params().bounds
}
