// Package analytics derives chart and recommendation views from a factor
// snapshot. Every function here is pure: given the same snapshot it returns
// the same result, never mutates its input and never panics. Partial data
// is the normal operating condition, so inapplicable metrics are reported
// as absent rather than as errors.
package analytics

import (
	"math"

	"github.com/ahrav/go-factorlens/internal/domain"
)

// ImportancePoint is one bar of the importance chart.
type ImportancePoint struct {
	// Name is the factor's display label.
	Name string `json:"name"`

	// Rank is the factor's rank.
	Rank int `json:"rank"`

	// Score is the rank-inverted magnitude, at least 1.
	Score int `json:"score"`

	// Value is Score normalized to 0-100 against the largest score.
	Value int `json:"value"`
}

// ImportanceScore inverts rank into a magnitude: max(1, maxRank+1-rank).
// The arithmetic saturates instead of wrapping.
func ImportanceScore(rank, maxRank int) int {
	return max(1, satAdd(satSub(maxRank, rank), 1))
}

// ImportanceSeries computes the importance chart for factors, in the order
// given. An empty snapshot yields an empty series.
func ImportanceSeries(factors []domain.Factor) []ImportancePoint {
	if len(factors) == 0 {
		return []ImportancePoint{}
	}

	maxRank := factors[0].Rank
	for _, f := range factors[1:] {
		maxRank = max(maxRank, f.Rank)
	}

	points := make([]ImportancePoint, len(factors))
	maxScore := 1
	for i, f := range factors {
		score := ImportanceScore(f.Rank, maxRank)
		maxScore = max(maxScore, score)
		points[i] = ImportancePoint{Name: f.Name, Rank: f.Rank, Score: score}
	}

	for i := range points {
		points[i].Value = int(math.Round(float64(points[i].Score) / float64(maxScore) * 100))
	}

	return points
}

// TotalImportance sums the importance scores of a series, saturating at
// math.MaxInt.
func TotalImportance(points []ImportancePoint) int {
	total, _ := sumImportance(points)
	return total
}

// sumImportance reports false when the sum does not fit in an int.
func sumImportance(points []ImportancePoint) (int, bool) {
	total := 0
	for _, p := range points {
		if p.Score > 0 && total > math.MaxInt-p.Score {
			return math.MaxInt, false
		}
		total += p.Score
	}
	return total, true
}

func satAdd(a, b int) int {
	s := a + b
	switch {
	case b > 0 && s < a:
		return math.MaxInt
	case b < 0 && s > a:
		return math.MinInt
	}
	return s
}

func satSub(a, b int) int {
	d := a - b
	switch {
	case b < 0 && d < a:
		return math.MaxInt
	case b > 0 && d > a:
		return math.MinInt
	}
	return d
}
