package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// syntheticSet builds n samples spaced by step starting at baseTime.
func syntheticSet(n int, step time.Duration) Set {
	out := make(Set, n)
	for i := range out {
		out[i] = Sample{
			Timestamp:      baseTime.Add(time.Duration(i) * step),
			TemperatureC:   float64(10 + i),
			WindSpeedKph:   10,
			WindBearingDeg: BearingDeg(float64(i * 10)),
			Description:    "clear sky",
		}
	}
	return out
}

func TestSelect_ThreeHourStepsSixHourHorizon(t *testing.T) {
	set := syntheticSet(40, 3*time.Hour)
	now := baseTime.Add(-time.Hour)

	got := Select(set, now, WindowOptions{Horizon: 6 * time.Hour, MaxCount: 2})

	require.Len(t, got, 2)
	assert.Equal(t, set[0], got[0])
	assert.Equal(t, set[1], got[1])
}

func TestSelect_HorizonBoundsEvenWithoutCap(t *testing.T) {
	set := syntheticSet(40, 3*time.Hour)
	now := baseTime.Add(-time.Hour)

	got := Select(set, now, WindowOptions{Horizon: 6 * time.Hour})

	// sample[2] lies 7h ahead, outside the horizon.
	require.Len(t, got, 2)
}

func TestSelect_HourlyStepsUpToSix(t *testing.T) {
	set := syntheticSet(48, time.Hour)
	now := baseTime.Add(-30 * time.Minute)

	got := Select(set, now, WindowOptions{Horizon: 6 * time.Hour, MaxCount: 6})

	require.Len(t, got, 6)
	assert.Equal(t, set[5], got[5])
}

func TestSelect_Boundaries(t *testing.T) {
	set := syntheticSet(5, 3*time.Hour)

	// A sample exactly at now is excluded, one exactly at now+horizon included.
	got := Select(set, baseTime, WindowOptions{Horizon: 6 * time.Hour, MaxCount: 10})

	require.Len(t, got, 2)
	assert.Equal(t, set[1].Timestamp, got[0].Timestamp)
	assert.Equal(t, set[2].Timestamp, got[1].Timestamp)
}

func TestSelect_EmptyWindowIsNotAnError(t *testing.T) {
	set := syntheticSet(5, 3*time.Hour)

	got := Select(set, baseTime.Add(48*time.Hour), DefaultWindow)
	assert.Empty(t, got)

	assert.Empty(t, Select(nil, baseTime, DefaultWindow))
}

func TestSelectWindow_FallsBackToFirstNWithoutTimestamps(t *testing.T) {
	set := Set{
		{TemperatureC: 1},
		{TemperatureC: 2},
		{TemperatureC: 3},
	}

	got := SelectWindow(set, baseTime, DefaultWindow)

	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].TemperatureC)
	assert.Equal(t, 2.0, got[1].TemperatureC)
}

func TestFirstN(t *testing.T) {
	set := syntheticSet(3, time.Hour)

	assert.Len(t, FirstN(set, 2), 2)
	assert.Len(t, FirstN(set, 10), 3)
	assert.Len(t, FirstN(set, 0), 3)
	assert.Empty(t, FirstN(nil, 2))

	// The result never aliases the input.
	out := FirstN(set, 2)
	out[0].TemperatureC = 99
	assert.Equal(t, 10.0, set[0].TemperatureC)
}
