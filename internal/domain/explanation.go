package domain

import (
	"fmt"
	"strings"
)

// Explanation is a cached natural-language explanation for one factor.
// The zero value is EmptyExplanation: the fetch completed (or failed) but
// produced no text. Whether a factor has been fetched at all is tracked by
// the cache, not by this value.
type Explanation struct {
	// Text is the explanation returned by the backend, trimmed.
	Text string
}

// EmptyExplanation is the sentinel cached when a fetch yields no text.
var EmptyExplanation = Explanation{}

// NewExplanation builds an Explanation from raw backend text.
func NewExplanation(text string) Explanation {
	return Explanation{Text: strings.TrimSpace(text)}
}

// IsEmpty reports whether e carries no usable text.
func (e Explanation) IsEmpty() bool { return e.Text == "" }

// ExplanationText is the three-part explanation shown for an expanded
// factor. It is built locally and always available, even when the backend
// produced nothing.
type ExplanationText struct {
	// Meaning describes what the factor is. It is the fetched explanation
	// when one exists, otherwise a templated sentence.
	Meaning string

	// Rationale says why the factor matters.
	Rationale string

	// Impact is the direction-dependent impact statement.
	Impact string
}

// String renders the explanation with its section headings.
func (t ExplanationText) String() string {
	var b strings.Builder
	b.WriteString("What it means:\n")
	b.WriteString(t.Meaning)
	b.WriteString("\n\nWhy it matters:\n")
	b.WriteString(t.Rationale)
	b.WriteString("\n\nImpact on efficiency:\n")
	b.WriteString(t.Impact)
	return b.String()
}

// BuildExplanation assembles the explanation for f. It is pure: the fetched
// explanation, if non-empty, supplies the meaning and everything else is
// synthesized from the factor itself.
func BuildExplanation(f Factor, fetched Explanation) ExplanationText {
	name := strings.ToLower(f.Name)
	effect := strings.ToLower(f.EffectShort)

	meaning := strings.TrimSpace(fetched.Text)
	if meaning == "" {
		meaning = fmt.Sprintf("%s influences the %s of this item.", f.Name, effect)
	}

	return ExplanationText{
		Meaning:   meaning,
		Rationale: fmt.Sprintf("Higher %s improves %s.", name, effect),
		Impact:    ImpactStatement(f.Direction),
	}
}

// ImpactStatement maps a direction to its impact sentence. Unrecognized
// directions get the neutral statement.
func ImpactStatement(d Direction) string {
	switch d {
	case DirectionIncreases:
		return "Increasing this factor strongly boosts efficiency and performance."
	case DirectionSlightlyIncreases:
		return "Increasing this factor gives a small but noticeable improvement in efficiency."
	case DirectionDecreases:
		return "Increasing this factor reduces efficiency in many cases."
	default:
		return "This factor has a neutral effect on efficiency."
	}
}

// FactorAdvice returns the single-factor recommendation shown under an
// expanded factor.
func FactorAdvice(f Factor) string {
	switch f.Direction {
	case DirectionIncreases:
		return fmt.Sprintf("Boost %s whenever possible to improve %s.", f.Name, f.EffectShort)
	case DirectionSlightlyIncreases:
		return fmt.Sprintf("Improving %s gives small but meaningful benefits in %s.", f.Name, f.EffectShort)
	case DirectionDecreases:
		return fmt.Sprintf("Keep %s low to avoid reducing %s and overall efficiency.", f.Name, f.EffectShort)
	default:
		return fmt.Sprintf("Maintain %s at normal levels; it has a neutral effect on efficiency.", f.Name)
	}
}
