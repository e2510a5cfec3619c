package palette

import (
	"math"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/cybre/backdrop-sync/internal/utils"
)

const hashScale = 43758.5453123

// seedTerms are the (k, offset) pairs feeding the four per-segment floats.
var seedTerms = [4][2]float64{
	{12.9898, 78.233},
	{39.3468, 11.135},
	{73.156, 52.235},
	{93.989, 67.345},
}

// Hash is frac(sin(seed) * C): cheap, seedable, not a general RNG.
func Hash(seed float64) float64 {
	return utils.Fract(math.Sin(seed) * hashScale)
}

func segmentFloats(index int) [4]float64 {
	var r [4]float64
	n := float64(index)
	for i, term := range seedTerms {
		r[i] = Hash(n*term[0] + term[1])
	}
	return r
}

// Generate returns the palette for a segment. Same inputs, same bits.
func Generate(index int, mode Mode) Palette {
	r := segmentFloats(index)
	return build(mode, baseHue(mode, index, r[0]), r)
}

// SegmentValue maps progress and phase onto the mode's continuous segment axis.
func SegmentValue(progress, phase float64, mode Mode) float64 {
	return (progress + phase) * float64(mode.Segments())
}

// Blend interpolates between the palettes of floor(v) and floor(v)+1.
// v may be any finite value, negative included.
func Blend(segmentValue float64, mode Mode) Palette {
	if !utils.Finite(segmentValue) {
		segmentValue = 0
	}
	segA := math.Floor(segmentValue)
	t := segmentValue - segA
	a := int(segA)

	return Generate(a, mode).Lerp(Generate(a+1, mode), t)
}

// Random draws a palette from rng instead of the segment hash.
func Random(rng *rand.Rand, mode Mode) Palette {
	r := [4]float64{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}
	return build(mode, baseHue(mode, rng.Intn(len(rotatingHues)), r[0]), r)
}

func baseHue(mode Mode, index int, r float64) float64 {
	if mode == ModeRotating {
		return rotatingHues[utils.FloorMod(index, len(rotatingHues))] + (r-0.5)*16
	}
	return r * 360
}

func build(mode Mode, hue float64, r [4]float64) Palette {
	mp := mode.params()
	b := mp.bounds

	var p Palette
	last := float64(StopCount - 1)
	for i := range p.Stops {
		t := float64(i) / last
		// saturation eases off toward the light end
		sat := utils.Lerp(b.SatMin, b.SatMax, utils.Lerp(r[1], 1-t, 0.5))
		light := utils.Lerp(b.LightMin, b.LightMax, t) + (r[2]-0.5)*0.06
		h := hue + (r[3]-0.5)*mp.hueDrift*t
		p.Stops[i] = colorful.Hsl(wrapHue(h), utils.Clamp01(sat), utils.Clamp01(light))
	}
	p.Accent = colorful.Hsl(wrapHue(hue+mp.accentShift), mp.accentSat, mp.accentLight)

	p.BandStart = utils.Lerp(0.12, 0.55, r[2])
	spread := utils.Lerp(0.18, 0.45, r[3])
	p.BandEnd = math.Min(0.98, p.BandStart+spread)

	return p
}

func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}
