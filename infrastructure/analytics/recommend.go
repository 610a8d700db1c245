package analytics

import (
	"slices"

	"github.com/ahrav/go-factorlens/internal/domain"
)

// Bucket sizes for the global recommendations.
const (
	mainFocusSize = 2
	watchNextSize = 2
	avoidSize     = 1
)

// Recommendations partitions factors into action buckets. Buckets are never
// nil; an empty bucket means "none yet" and is still rendered.
type Recommendations struct {
	// MainFocus holds the first two positive factors.
	MainFocus []domain.Factor `json:"main_focus"`

	// WatchNext holds the third and fourth positive factors.
	WatchNext []domain.Factor `json:"watch_next"`

	// Avoid holds the first negative factor.
	Avoid []domain.Factor `json:"avoid"`
}

// Empty reports whether every bucket is empty.
func (r Recommendations) Empty() bool {
	return len(r.MainFocus) == 0 && len(r.WatchNext) == 0 && len(r.Avoid) == 0
}

// Recommend partitions factors, in rank order, by direction. Increasing
// and slightly increasing factors are positives; decreasing factors are
// negatives; neutral factors are skipped.
func Recommend(factors []domain.Factor) Recommendations {
	sorted := slices.Clone(factors)
	slices.SortStableFunc(sorted, func(a, b domain.Factor) int { return a.Rank - b.Rank })

	var positives, negatives []domain.Factor
	for _, f := range sorted {
		switch {
		case f.Direction.IsPositive():
			positives = append(positives, f)
		case f.Direction.IsNegative():
			negatives = append(negatives, f)
		}
	}

	return Recommendations{
		MainFocus: window(positives, 0, mainFocusSize),
		WatchNext: window(positives, mainFocusSize, mainFocusSize+watchNextSize),
		Avoid:     window(negatives, 0, avoidSize),
	}
}

// window returns a fresh copy of fs[lo:hi], clamped to fs's length.
func window(fs []domain.Factor, lo, hi int) []domain.Factor {
	lo = min(lo, len(fs))
	hi = min(hi, len(fs))
	return append([]domain.Factor{}, fs[lo:hi]...)
}
