// Package palette produces the backdrop's color palettes: a deterministic,
// seed-reproducible sequence indexed by segment, continuous blends between
// adjacent segments, and unseeded "surprise" palettes.
package palette

import (
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"

	"github.com/cybre/backdrop-sync/internal/utils"
)

// StopCount is the number of dark-to-light gradient stops.
const StopCount = 6

// ErrInvalidBands is returned when band edges break 0 <= start < end <= 1.
var ErrInvalidBands = eris.New("invalid band edges")

// Palette is an immutable color set consumed by the renderer.
type Palette struct {
	Stops     [StopCount]colorful.Color
	Accent    colorful.Color
	BandStart float64
	BandEnd   float64
}

// Lerp blends per RGB channel toward q; band edges blend as scalars.
func (p Palette) Lerp(q Palette, t float64) Palette {
	var out Palette
	for i := range p.Stops {
		out.Stops[i] = p.Stops[i].BlendRgb(q.Stops[i], t)
	}
	out.Accent = p.Accent.BlendRgb(q.Accent, t)
	out.BandStart = utils.Lerp(p.BandStart, q.BandStart, t)
	out.BandEnd = utils.Lerp(p.BandEnd, q.BandEnd, t)
	return out
}

// Distance is the largest absolute component difference between two palettes.
func (p Palette) Distance(q Palette) float64 {
	d := 0.0
	track := func(a, b float64) {
		if a > b {
			a, b = b, a
		}
		if b-a > d {
			d = b - a
		}
	}
	for i := range p.Stops {
		track(p.Stops[i].R, q.Stops[i].R)
		track(p.Stops[i].G, q.Stops[i].G)
		track(p.Stops[i].B, q.Stops[i].B)
	}
	track(p.Accent.R, q.Accent.R)
	track(p.Accent.G, q.Accent.G)
	track(p.Accent.B, q.Accent.B)
	track(p.BandStart, q.BandStart)
	track(p.BandEnd, q.BandEnd)
	return d
}

// Hex returns the stops followed by the accent as #rrggbb strings.
func (p Palette) Hex() []string {
	out := make([]string, 0, StopCount+1)
	for _, c := range p.Stops {
		out = append(out, c.Clamped().Hex())
	}
	return append(out, p.Accent.Clamped().Hex())
}

// Validate checks the band invariant.
func (p Palette) Validate() error {
	if !(p.BandStart >= 0 && p.BandStart < p.BandEnd && p.BandEnd <= 1) {
		return eris.Wrapf(ErrInvalidBands, "start=%.4f end=%.4f", p.BandStart, p.BandEnd)
	}
	return nil
}

// FromHex builds a palette from hex strings, e.g. for a configured default.
func FromHex(stops []string, accent string, bandStart, bandEnd float64) (Palette, error) {
	var p Palette
	if len(stops) != StopCount {
		return p, eris.Errorf("expected %d stops, got %d", StopCount, len(stops))
	}
	for i, s := range stops {
		c, err := colorful.Hex(s)
		if err != nil {
			return p, eris.Wrapf(err, "parse stop %d %q", i, s)
		}
		p.Stops[i] = c
	}
	c, err := colorful.Hex(accent)
	if err != nil {
		return p, eris.Wrapf(err, "parse accent %q", accent)
	}
	p.Accent = c
	p.BandStart = bandStart
	p.BandEnd = bandEnd

	return p, p.Validate()
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultPalette = Palette{
	Stops: [StopCount]colorful.Color{
		mustHex("#05070f"),
		mustHex("#0b1630"),
		mustHex("#15305a"),
		mustHex("#2f5d8c"),
		mustHex("#7fa7c9"),
		mustHex("#dfe9f2"),
	},
	Accent:    mustHex("#f2b36b"),
	BandStart: 0.32,
	BandEnd:   0.68,
}

// Default is the resting palette shown before any movement and after finalize.
func Default() Palette {
	return defaultPalette
}
