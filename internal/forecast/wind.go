package forecast

import "math"

// Cardinal is one of the eight coarse compass directions. The zero value
// means "no direction".
type Cardinal string

const (
	North     Cardinal = "north"
	NorthEast Cardinal = "north-east"
	East      Cardinal = "east"
	SouthEast Cardinal = "south-east"
	South     Cardinal = "south"
	SouthWest Cardinal = "south-west"
	West      Cardinal = "west"
	NorthWest Cardinal = "north-west"
)

// sectorWidth is the angular width of one compass sector in degrees.
const sectorWidth = 45.0

// cardinals is indexed by sector; sector i is centered at i*45°.
var cardinals = [8]Cardinal{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

// NormalizeBearing folds any bearing, negative or beyond a full turn, into [0,360).
func NormalizeBearing(deg float64) float64 {
	n := math.Mod(deg, 360)
	if n < 0 {
		n += 360
	}
	// -1e-15 + 360 rounds to exactly 360 in float64.
	if n >= 360 {
		n = 0
	}
	return n
}

// CardinalOf maps a bearing to its compass sector. Sector boundaries
// (22.5°, 67.5°, ...) resolve upward by round-half-away-from-zero, so 22.5°
// is north-east and 337.5° is north.
func CardinalOf(bearingDeg float64) Cardinal {
	b := NormalizeBearing(bearingDeg)
	idx := int(math.Round(b/sectorWidth)) % len(cardinals)
	return cardinals[idx]
}

// Advice returns the recommended outbound heading for a wind bearing: the
// reciprocal sector, CardinalOf(bearing+180). The same rule is applied to a
// single sample's bearing or to a circular mean.
func Advice(bearingDeg float64) Cardinal {
	return CardinalOf(bearingDeg + 180)
}

// Bearing returns the center bearing of the sector, or -1 for the zero Cardinal.
func (c Cardinal) Bearing() float64 {
	for i, cc := range cardinals {
		if cc == c {
			return float64(i) * sectorWidth
		}
	}
	return -1
}

// Opposite returns the diametrically opposed direction.
func (c Cardinal) Opposite() Cardinal {
	b := c.Bearing()
	if b < 0 {
		return ""
	}
	return CardinalOf(b + 180)
}

// Valid reports whether c is one of the eight labels.
func (c Cardinal) Valid() bool {
	return c.Bearing() >= 0
}

// resultantEpsilon is the minimum mean-vector length for a circular mean to
// be considered defined.
const resultantEpsilon = 1e-9

// CircularMean averages bearings as unit vectors. ok is false when there are
// no bearings or when they cancel out (e.g. exactly opposed winds).
func CircularMean(bearingsDeg []float64) (mean float64, ok bool) {
	if len(bearingsDeg) == 0 {
		return 0, false
	}

	var sumSin, sumCos float64
	for _, b := range bearingsDeg {
		rad := NormalizeBearing(b) * math.Pi / 180
		sumSin += math.Sin(rad)
		sumCos += math.Cos(rad)
	}

	n := float64(len(bearingsDeg))
	if math.Hypot(sumSin/n, sumCos/n) < resultantEpsilon {
		return 0, false
	}
	return NormalizeBearing(math.Atan2(sumSin, sumCos) * 180 / math.Pi), true
}
