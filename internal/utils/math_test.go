package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1.5, 0.0, 1.0))
	assert.Equal(t, 1.0, Clamp(3.0, 0.0, 1.0))
	assert.Equal(t, 4, Clamp(4, 1, 9))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestFract(t *testing.T) {
	assert.InDelta(t, 0.25, Fract(3.25), 1e-12)
	assert.InDelta(t, 0.75, Fract(-3.25), 1e-12)
	assert.Equal(t, 0.0, Fract(2))
}

func TestFloorMod(t *testing.T) {
	assert.Equal(t, 2, FloorMod(8, 6))
	assert.Equal(t, 4, FloorMod(-2, 6))
	assert.Equal(t, 0, FloorMod(-6, 6))
	assert.Equal(t, 0, FloorMod(5, 0))
}

func TestClampIndex(t *testing.T) {
	assert.Equal(t, 0, ClampIndex(-3, 5))
	assert.Equal(t, 4, ClampIndex(12, 5))
	assert.Equal(t, 0, ClampIndex(2, 0))
}
