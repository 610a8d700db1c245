package analytics

import (
	"golang.org/x/text/language"

	"github.com/ahrav/go-factorlens/internal/domain"
)

// Report bundles every derived view of one snapshot.
type Report struct {
	// Importance is the normalized importance series in snapshot order.
	Importance []ImportancePoint `json:"importance"`

	// Price is the price-to-performance metric, or nil when absent.
	Price *PriceScore `json:"price,omitempty"`

	// Recommendations holds the action buckets.
	Recommendations Recommendations `json:"recommendations"`
}

// HasData reports whether the report was computed from a non-empty snapshot.
func (r Report) HasData() bool { return len(r.Importance) > 0 }

// Engine computes derived views. The zero value is ready to use and formats
// prices for DefaultLocale.
type Engine struct {
	// Locale controls price grouping. The zero tag selects DefaultLocale.
	Locale language.Tag
}

// NewEngine returns an engine for the given BCP 47 locale. An unparsable
// locale falls back to DefaultLocale.
func NewEngine(locale string) Engine {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = DefaultLocale
	}
	return Engine{Locale: tag}
}

func (e Engine) locale() language.Tag {
	if e.Locale == language.Und {
		return DefaultLocale
	}
	return e.Locale
}

// Analyze computes the full report for factors.
func (e Engine) Analyze(factors []domain.Factor) Report {
	report := Report{
		Importance:      ImportanceSeries(factors),
		Recommendations: Recommend(factors),
	}
	if ps, ok := e.PriceToPerformance(factors); ok {
		report.Price = &ps
	}
	return report
}

// PriceToPerformance relates the total importance of factors to the price
// found in the snapshot. It reports false when no price factor exists, the
// price factor has no digits, the parsed price is zero, or the total
// importance does not fit in an int.
func (e Engine) PriceToPerformance(factors []domain.Factor) (PriceScore, bool) {
	pf, ok := PriceFactor(factors)
	if !ok {
		return PriceScore{}, false
	}

	price, ok := ExtractPrice(pf.EffectShort)
	if !ok || price == 0 {
		return PriceScore{}, false
	}

	total, ok := sumImportance(ImportanceSeries(factors))
	if !ok {
		return PriceScore{}, false
	}
	raw := float64(total) / float64(price) * 1000
	score := roundTenth(min(maxPriceScore, max(0, raw)))

	return PriceScore{
		Price:        price,
		PriceDisplay: FormatPrice(price, e.locale()),
		Score:        score,
		Verdict:      VerdictFor(score),
	}, true
}
