package forecast

import "time"

// WindowOptions bound the near-term report.
type WindowOptions struct {
	// Horizon is how far past "now" samples are included.
	Horizon time.Duration
	// MaxCount caps the number of samples. Zero or negative means no cap.
	MaxCount int
}

// DefaultWindow is six hours of real time, two 3-hour provider steps.
var DefaultWindow = WindowOptions{Horizon: 6 * time.Hour, MaxCount: 2}

// Select returns the samples with now < Timestamp <= now+horizon, in order,
// stopping once MaxCount samples are collected. An empty result is not an
// error: it means there is nothing to report.
func Select(samples Set, now time.Time, opts WindowOptions) Set {
	end := now.Add(opts.Horizon)

	var out Set
	for _, s := range samples {
		if opts.MaxCount > 0 && len(out) >= opts.MaxCount {
			break
		}
		// Samples are time-ordered, nothing later can qualify.
		if s.Timestamp.After(end) {
			break
		}
		if s.Timestamp.After(now) {
			out = append(out, s)
		}
	}
	return out
}

// FirstN returns the first n samples of the set, ignoring timestamps.
func FirstN(samples Set, n int) Set {
	if n <= 0 || n >= len(samples) {
		return append(Set(nil), samples...)
	}
	return append(Set(nil), samples[:n]...)
}

// SelectWindow applies the time-filtered policy, falling back to FirstN when
// the samples carry no timestamps to filter on.
func SelectWindow(samples Set, now time.Time, opts WindowOptions) Set {
	if !samples.HasTimestamps() {
		return FirstN(samples, opts.MaxCount)
	}
	return Select(samples, now, opts)
}
