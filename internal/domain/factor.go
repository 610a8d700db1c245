// Package domain contains pure, dependency-free domain models and types
// for factor analysis jobs: factors, stream events, explanations and the
// per-job aggregator that owns the ordered factor set.
package domain

import (
	"strconv"
	"strings"
)

// Direction describes how a factor influences the analyzed item's outcome.
// Values outside the three named directions are treated as neutral.
type Direction string

// Known factor directions as emitted by the analysis backend.
const (
	// DirectionIncreases marks a factor that strongly improves the outcome.
	DirectionIncreases Direction = "increases"

	// DirectionSlightlyIncreases marks a factor with a small positive effect.
	DirectionSlightlyIncreases Direction = "slightly_increases"

	// DirectionDecreases marks a factor that works against the outcome.
	DirectionDecreases Direction = "decreases"
)

// IsKnown reports whether d is one of the three named directions.
func (d Direction) IsKnown() bool {
	switch d {
	case DirectionIncreases, DirectionSlightlyIncreases, DirectionDecreases:
		return true
	default:
		return false
	}
}

// IsPositive reports whether d increases the outcome, strongly or slightly.
func (d Direction) IsPositive() bool {
	return d == DirectionIncreases || d == DirectionSlightlyIncreases
}

// IsNegative reports whether d decreases the outcome.
func (d Direction) IsNegative() bool { return d == DirectionDecreases }

// Label returns the human-readable pill label for the direction.
func (d Direction) Label() string {
	switch d {
	case DirectionIncreases:
		return "Increases"
	case DirectionSlightlyIncreases:
		return "Slightly Increases"
	case DirectionDecreases:
		return "Decreases"
	default:
		return "Neutral"
	}
}

// Icon returns the arrow glyph shown next to the direction label.
func (d Direction) Icon() string {
	switch d {
	case DirectionIncreases:
		return "⬆️"
	case DirectionSlightlyIncreases:
		return "↗️"
	case DirectionDecreases:
		return "⬇️"
	default:
		return "➖"
	}
}

// MaxRank bounds factor ranks so that rank arithmetic cannot overflow.
const MaxRank = 1_000_000

// Factor is one ranked driver of an analyzed item's outcome.
// Rank 1 is the most important factor. Ranks need not be contiguous.
type Factor struct {
	// Rank orders factors by importance, starting at 1.
	Rank int `json:"rank"`

	// Name is the display label of the factor.
	Name string `json:"name"`

	// EffectShort describes the measurable effect of the factor. It may
	// embed a currency amount used by the price-to-performance metric.
	EffectShort string `json:"effect_short"`

	// Direction describes how the factor influences the outcome.
	Direction Direction `json:"direction"`
}

// Key returns the factor's identity key, name + "_" + rank.
// Two factors with the same key are the same factor.
func (f Factor) Key() string {
	return f.Name + "_" + strconv.Itoa(f.Rank)
}

// Validate checks the invariants every factor entering the aggregator
// must satisfy: a rank in [1, MaxRank] and a non-blank name.
func (f Factor) Validate() error {
	verr := NewValidationError("factor")
	if f.Rank < 1 || f.Rank > MaxRank {
		verr.AddError("rank must be between 1 and " + strconv.Itoa(MaxRank) + ", got " + strconv.Itoa(f.Rank))
	}
	if strings.TrimSpace(f.Name) == "" {
		verr.AddError("name must not be empty")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}
