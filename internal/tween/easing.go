package tween

import "github.com/cybre/backdrop-sync/internal/utils"

// Easing maps normalized time u in [0,1] to progress in [0,1].
type Easing func(u float64) float64

// Linear is the identity easing.
func Linear(u float64) float64 {
	return utils.Clamp01(u)
}

// Smoothstep is the classic 3u^2 - 2u^3.
func Smoothstep(u float64) float64 {
	u = utils.Clamp01(u)
	return u * u * (3 - 2*u)
}

// EaseInOut is smoothstep applied twice, a steeper cubic-style curve.
func EaseInOut(u float64) float64 {
	return Smoothstep(Smoothstep(u))
}

// ByName resolves a configured easing. Unknown names get EaseInOut.
func ByName(name string) Easing {
	switch name {
	case "linear":
		return Linear
	case "smooth", "smoothstep":
		return Smoothstep
	default:
		return EaseInOut
	}
}
