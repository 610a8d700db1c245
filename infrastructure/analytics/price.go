package analytics

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ahrav/go-factorlens/internal/domain"
)

// DefaultLocale is used to group the price for display when no locale is
// configured.
var DefaultLocale = language.MustParse("en-IN")

// currencyMarkers flag an effect description as carrying a price.
var currencyMarkers = []string{"₹", "$", "€", "£", "¥"}

// maxPriceScore is the upper clamp of the price-to-performance score.
const maxPriceScore = 10.0

// Verdict is the tier label of a price-to-performance score.
type Verdict string

// Verdict tiers, best first. Lower bounds are inclusive.
const (
	VerdictExcellent Verdict = "Excellent"
	VerdictGood      Verdict = "Good"
	VerdictAverage   Verdict = "Average"
	VerdictLow       Verdict = "Low"
	VerdictPoor      Verdict = "Poor"
)

// VerdictFor maps a score to its tier.
func VerdictFor(score float64) Verdict {
	switch {
	case score >= 8:
		return VerdictExcellent
	case score >= 6:
		return VerdictGood
	case score >= 4:
		return VerdictAverage
	case score >= 2:
		return VerdictLow
	default:
		return VerdictPoor
	}
}

// Label returns the display label with its icon.
func (v Verdict) Label() string {
	switch v {
	case VerdictExcellent:
		return "🔥 Excellent Value"
	case VerdictGood:
		return "👍 Good Value"
	case VerdictAverage:
		return "🙂 Average"
	case VerdictLow:
		return "⚠️ Low Value"
	default:
		return "❌ Poor Value"
	}
}

// PriceScore is the computed price-to-performance metric.
type PriceScore struct {
	// Price is the parsed price.
	Price int64 `json:"price"`

	// PriceDisplay is Price grouped for the configured locale.
	PriceDisplay string `json:"price_display"`

	// Score is the 0-10 score rounded to one decimal.
	Score float64 `json:"score"`

	// Verdict is the score's tier.
	Verdict Verdict `json:"verdict"`
}

// PriceFactor locates the factor carrying the item's price: the first one
// whose name folds to "price" or whose effect mentions a currency marker.
func PriceFactor(factors []domain.Factor) (domain.Factor, bool) {
	folder := cases.Fold()
	price := folder.String("price")
	for _, f := range factors {
		if folder.String(strings.TrimSpace(f.Name)) == price {
			return f, true
		}
		for _, m := range currencyMarkers {
			if strings.Contains(f.EffectShort, m) {
				return f, true
			}
		}
	}
	return domain.Factor{}, false
}

// ExtractPrice parses the first contiguous run of ASCII digits in s.
// It reports false when there are no digits or the run does not fit in an
// int64.
func ExtractPrice(s string) (int64, bool) {
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && isDigit(rune(s[end])) {
		end++
	}
	v, err := strconv.ParseInt(s[start:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// PriceToPerformance scores factors against their price using DefaultLocale.
func PriceToPerformance(factors []domain.Factor) (PriceScore, bool) {
	return Engine{}.PriceToPerformance(factors)
}

// FormatPrice groups price according to tag's conventions.
func FormatPrice(price int64, tag language.Tag) string {
	return message.NewPrinter(tag).Sprintf("%d", price)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
