package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardinalOf(t *testing.T) {
	tests := []struct {
		bearing float64
		want    Cardinal
	}{
		{0, North},
		{10, North},
		{22.4, North},
		{22.5, NorthEast}, // boundary resolves upward
		{45, NorthEast},
		{90, East},
		{135, SouthEast},
		{180, South},
		{225, SouthWest},
		{270, West},
		{315, NorthWest},
		{337.4, NorthWest},
		{337.5, North}, // wraps to sector 0
		{359.9, North},
		{360, North},
		{-45, NorthWest},
		{-90, West},
		{810, East},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CardinalOf(tt.bearing), "bearing %v", tt.bearing)
	}
}

func TestCardinalOf_PeriodicInFullTurns(t *testing.T) {
	for b := 0.0; b < 360; b += 0.5 {
		want := CardinalOf(b)
		assert.Equal(t, want, CardinalOf(b+360), "bearing %v + 360", b)
		assert.Equal(t, want, CardinalOf(b-360), "bearing %v - 360", b)
		assert.Equal(t, want, CardinalOf(math.Mod(b, 360)), "bearing %v mod 360", b)
	}
}

// Advice is pinned to the reciprocal-bearing convention.
func TestAdvice_IsReciprocalSector(t *testing.T) {
	for b := 0.0; b < 360; b += 0.5 {
		assert.Equal(t, CardinalOf(math.Mod(b+180, 360)), Advice(b), "bearing %v", b)
	}
}

func TestAdvice_AppliedTwiceReturnsToOriginalSector(t *testing.T) {
	for b := 0.0; b < 360; b += 0.5 {
		first := Advice(b)
		require.True(t, first.Valid())
		assert.Equal(t, CardinalOf(b), Advice(first.Bearing()), "bearing %v", b)
	}
}

func TestCardinal_BearingAndOpposite(t *testing.T) {
	assert.Equal(t, 0.0, North.Bearing())
	assert.Equal(t, 315.0, NorthWest.Bearing())
	assert.Equal(t, -1.0, Cardinal("").Bearing())

	assert.Equal(t, South, North.Opposite())
	assert.Equal(t, NorthEast, SouthWest.Opposite())
	assert.Equal(t, Cardinal(""), Cardinal("up").Opposite())
	assert.False(t, Cardinal("up").Valid())
}

func TestNormalizeBearing(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeBearing(360))
	assert.Equal(t, 350.0, NormalizeBearing(-10))
	assert.Equal(t, 90.0, NormalizeBearing(450))
	assert.Equal(t, 0.0, NormalizeBearing(-1e-15))
}

func TestCircularMean(t *testing.T) {
	t.Run("straddles north", func(t *testing.T) {
		mean, ok := CircularMean([]float64{350, 10})
		require.True(t, ok)
		// A naive arithmetic mean would give 180 (south).
		assert.Equal(t, North, CardinalOf(mean))
		assert.Equal(t, South, Advice(mean))
	})

	t.Run("quarter apart", func(t *testing.T) {
		mean, ok := CircularMean([]float64{0, 90})
		require.True(t, ok)
		assert.InDelta(t, 45.0, mean, 1e-9)
	})

	t.Run("single bearing", func(t *testing.T) {
		mean, ok := CircularMean([]float64{-90})
		require.True(t, ok)
		assert.InDelta(t, 270.0, mean, 1e-9)
	})

	t.Run("opposed bearings cancel", func(t *testing.T) {
		_, ok := CircularMean([]float64{90, 270})
		assert.False(t, ok)
	})

	t.Run("empty", func(t *testing.T) {
		_, ok := CircularMean(nil)
		assert.False(t, ok)
	})
}
