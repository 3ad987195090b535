// Package confidence provides confidence score math utilities.
package confidence

import "math"

// Aggregate combines multiple confidence scores.
// Uses geometric mean to penalize low-confidence components.
func Aggregate(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	product := 1.0
	for _, s := range scores {
		if s <= 0 {
			return 0
		}
		product *= s
	}

	return math.Pow(product, 1.0/float64(len(scores)))
}

// Decay applies uncertainty decay to a base confidence.
// Each factor reduces confidence by 10%.
func Decay(base float64, factors int) float64 {
	if factors <= 0 {
		return base
	}
	return base * math.Pow(0.9, float64(factors))
}

// Clamp ensures confidence is in valid range [0, 1].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Default confidence levels used by recommendation rules.
const (
	High   = 0.95
	Medium = 0.80
	Low    = 0.60
)
