package forecast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// AdvicePolicy selects which bearing drives the heading recommendation.
// A Composer applies exactly one policy to every briefing it builds.
type AdvicePolicy string

const (
	// AdviceCircularMean uses the circular mean of every windowed bearing.
	// When the bearings cancel out it falls back to the last windowed sample.
	AdviceCircularMean AdvicePolicy = "circular_mean"
	// AdviceLastSample uses the bearing of the last windowed sample.
	AdviceLastSample AdvicePolicy = "last_sample"
)

// ParseAdvicePolicy validates a configured policy name.
func ParseAdvicePolicy(s string) (AdvicePolicy, error) {
	switch p := AdvicePolicy(s); p {
	case AdviceCircularMean, AdviceLastSample:
		return p, nil
	}
	return "", fmt.Errorf("unknown advice policy %q", s)
}

// Briefing is the derived report for one request. It is never persisted.
type Briefing struct {
	Location       string
	CurrentSummary string
	Lines          []string
	RainDetected   bool
	// AdviceHeading is empty when there was no wind data to base it on.
	AdviceHeading Cardinal
	Horizon       time.Duration
}

// HasAdvice reports whether a heading recommendation is present.
func (b Briefing) HasAdvice() bool {
	return b.AdviceHeading != ""
}

// ComposeOptions carry the per-Composer constants into Compose.
type ComposeOptions struct {
	Policy  AdvicePolicy
	Zone    *time.Location
	Horizon time.Duration
}

// Compose builds a Briefing from the current conditions and the windowed
// samples. It has no side effects.
func Compose(current Sample, window Set, locationLabel string, opts ComposeOptions) Briefing {
	zone := opts.Zone
	if zone == nil {
		zone = time.UTC
	}

	b := Briefing{
		Location: locationLabel,
		CurrentSummary: fmt.Sprintf("%s: %s, %d°C",
			locationLabel, capitalize(current.Description), roundInt(current.TemperatureC)),
		Lines:   make([]string, 0, len(window)),
		Horizon: opts.Horizon,
	}

	for _, s := range window {
		b.Lines = append(b.Lines, sampleLine(s, zone))
		if s.RainMm3h > 0 {
			b.RainDetected = true
		}
	}

	b.AdviceHeading = adviceFor(window, opts.Policy)
	return b
}

// adviceFor applies the policy to the samples that report a bearing. No
// bearing, or bearings that cancel out under the circular mean, means no
// advice.
func adviceFor(window Set, policy AdvicePolicy) Cardinal {
	bearings := make([]float64, 0, len(window))
	for _, s := range window {
		if b, ok := s.Bearing(); ok {
			bearings = append(bearings, b)
		}
	}
	if len(bearings) == 0 {
		return ""
	}

	if policy == AdviceCircularMean {
		mean, ok := CircularMean(bearings)
		if !ok {
			return ""
		}
		return Advice(mean)
	}
	return Advice(bearings[len(bearings)-1])
}

func sampleLine(s Sample, zone *time.Location) string {
	rain := "no rain"
	if s.RainMm3h > 0 {
		rain = "rain " + strconv.FormatFloat(s.RainMm3h, 'f', -1, 64) + " mm"
	}
	direction := "variable"
	if b, ok := s.Bearing(); ok {
		direction = string(CardinalOf(b))
	}
	return fmt.Sprintf("%s: %d°C, wind %d km/h (%s), %s",
		s.Timestamp.In(zone).Format("15:04"),
		roundInt(s.TemperatureC),
		roundInt(s.WindSpeedKph),
		direction,
		rain,
	)
}

// Render produces the outbound message text: current conditions, one line
// per windowed sample, the rain summary and the advice line, in that order.
func (b Briefing) Render() string {
	hours := horizonLabel(b.Horizon)

	var sb strings.Builder
	sb.WriteString("🌦 ")
	sb.WriteString(b.CurrentSummary)
	sb.WriteString("\n\n⏳ Next ")
	sb.WriteString(hours)
	sb.WriteString(":\n")

	if len(b.Lines) == 0 {
		sb.WriteString("No forecast points in this window.\n")
	}
	for _, line := range b.Lines {
		sb.WriteString("- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if b.RainDetected {
		sb.WriteString("\n☔ Rain expected in the next " + hours + ", pack a jacket.")
	} else {
		sb.WriteString("\n✅ No rain expected in the next " + hours + ".")
	}

	if b.HasAdvice() {
		sb.WriteString("\n🚴 Advice: head " + string(b.AdviceHeading) + " first to ride home with a tailwind!")
	}
	return sb.String()
}

// Composer applies one window policy and one advice policy to every forecast.
type Composer struct {
	window   WindowOptions
	policy   AdvicePolicy
	fallback *time.Location
}

// NewComposer builds a Composer. A nil fallback zone means UTC.
func NewComposer(window WindowOptions, policy AdvicePolicy, fallback *time.Location) *Composer {
	if fallback == nil {
		fallback = time.UTC
	}
	return &Composer{window: window, policy: policy, fallback: fallback}
}

// Policy returns the advice policy the Composer applies.
func (c *Composer) Policy() AdvicePolicy {
	return c.policy
}

// Brief windows the forecast relative to now and composes the briefing.
// An empty forecast yields a briefing with no lines, no rain and no advice.
func (c *Composer) Brief(f Forecast, label string, now time.Time) Briefing {
	zone := f.Zone
	if zone == nil {
		zone = c.fallback
	}
	current, ok := f.Samples.Current()
	window := SelectWindow(f.Samples, now, c.window)

	b := Compose(current, window, label, ComposeOptions{
		Policy:  c.policy,
		Zone:    zone,
		Horizon: c.window.Horizon,
	})
	if !ok {
		b.CurrentSummary = label + ": no current conditions available"
	}
	return b
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func horizonLabel(d time.Duration) string {
	if d <= 0 {
		return "hours"
	}
	if d%time.Hour == 0 {
		return strconv.Itoa(int(d/time.Hour)) + "h"
	}
	return d.String()
}
