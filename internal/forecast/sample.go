// Package forecast turns a raw multi-point weather forecast into a short
// cycling briefing: it selects the near-term window, maps wind bearings to
// compass labels, recommends an outbound heading and renders the report.
//
// Everything in this package is pure. Collaborators fetch forecasts and
// deliver messages; this package only computes.
package forecast

import "time"

// Sample is one forecast point. Samples are immutable once received from
// the weather collaborator.
type Sample struct {
	Timestamp    time.Time
	TemperatureC float64
	WindSpeedKph float64
	// WindBearingDeg is the direction the wind blows from. Nil when the
	// provider reported no direction.
	WindBearingDeg *float64
	RainMm3h       float64
	Description    string
}

// BearingDeg returns a pointer to deg for building samples.
func BearingDeg(deg float64) *float64 { return &deg }

// Bearing returns the wind bearing and whether one was reported.
func (s Sample) Bearing() (float64, bool) {
	if s.WindBearingDeg == nil {
		return 0, false
	}
	return *s.WindBearingDeg, true
}

// Set is an ordered sequence of samples, non-decreasing by Timestamp.
// The first element is treated as current conditions.
type Set []Sample

// Current returns the first sample of the set.
func (s Set) Current() (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}
	return s[0], true
}

// HasTimestamps reports whether every sample carries a timestamp.
func (s Set) HasTimestamps() bool {
	for _, smp := range s {
		if smp.Timestamp.IsZero() {
			return false
		}
	}
	return true
}

// Forecast is a Set together with the place it describes.
type Forecast struct {
	// Place is the provider's resolved name, e.g. "Lyon, FR". May be empty.
	Place string
	// Zone is the local zone of the place, used for time-of-day formatting.
	// Nil means the composer's fallback zone.
	Zone    *time.Location
	Samples Set
}

// MetersPerSecondToKph converts a wind speed reported in m/s.
func MetersPerSecondToKph(ms float64) float64 {
	return ms * 3.6
}
