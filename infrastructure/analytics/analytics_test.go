package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/ahrav/go-factorlens/internal/domain"
)

func f(rank int, name, effect string, dir domain.Direction) domain.Factor {
	return domain.Factor{Rank: rank, Name: name, EffectShort: effect, Direction: dir}
}

func TestImportanceSeries_Normalization(t *testing.T) {
	// Given three consecutive ranks
	factors := []domain.Factor{
		f(1, "A", "", domain.DirectionIncreases),
		f(2, "B", "", domain.DirectionIncreases),
		f(3, "C", "", domain.DirectionIncreases),
	}

	// When computing the importance series
	series := ImportanceSeries(factors)

	// Then scores invert rank and values normalize to 0-100
	require.Len(t, series, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{series[0].Score, series[1].Score, series[2].Score})
	assert.Equal(t, []int{100, 67, 33}, []int{series[0].Value, series[1].Value, series[2].Value})
	assert.Equal(t, "A", series[0].Name)
	assert.Equal(t, 1, series[0].Rank)
}

func TestImportanceSeries_Empty(t *testing.T) {
	series := ImportanceSeries(nil)

	assert.NotNil(t, series)
	assert.Empty(t, series)
}

func TestImportanceSeries_SparseAndInvalidRanks(t *testing.T) {
	tests := []struct {
		name   string
		ranks  []int
		scores []int
		values []int
	}{
		{name: "single factor", ranks: []int{4}, scores: []int{1}, values: []int{100}},
		{name: "gap in ranks", ranks: []int{1, 5}, scores: []int{5, 1}, values: []int{100, 20}},
		{name: "ties", ranks: []int{2, 2}, scores: []int{1, 1}, values: []int{100, 100}},
		{name: "non-positive ranks do not panic", ranks: []int{0, -2}, scores: []int{1, 3}, values: []int{33, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factors := make([]domain.Factor, len(tt.ranks))
			for i, r := range tt.ranks {
				factors[i] = f(r, "x", "", "")
			}

			series := ImportanceSeries(factors)

			require.Len(t, series, len(tt.ranks))
			for i := range series {
				assert.Equal(t, tt.scores[i], series[i].Score, "score %d", i)
				assert.Equal(t, tt.values[i], series[i].Value, "value %d", i)
			}
		})
	}
}

func TestPriceToPerformance_Example(t *testing.T) {
	// Given a price factor and factors whose importance scores total 5
	factors := []domain.Factor{
		f(1, "Battery", "Runtime", domain.DirectionIncreases),
		f(3, "Price", "₹2000", domain.DirectionDecreases),
		f(3, "Weight", "Portability", domain.DirectionDecreases),
	}
	require.Equal(t, 5, TotalImportance(ImportanceSeries(factors)))

	// When scoring price-to-performance
	ps, ok := PriceToPerformance(factors)

	// Then raw = 5/2000*1000 = 2.5 which is a Low verdict
	require.True(t, ok)
	assert.Equal(t, int64(2000), ps.Price)
	assert.Equal(t, 2.5, ps.Score)
	assert.Equal(t, VerdictLow, ps.Verdict)
	assert.Equal(t, "2,000", ps.PriceDisplay)
}

func TestPriceToPerformance_Absent(t *testing.T) {
	tests := []struct {
		name    string
		factors []domain.Factor
	}{
		{name: "empty snapshot", factors: nil},
		{name: "no price factor", factors: []domain.Factor{
			f(1, "Battery", "Runtime 10h", domain.DirectionIncreases),
			f(2, "Display", "120Hz", domain.DirectionIncreases),
		}},
		{name: "price without digits", factors: []domain.Factor{
			f(1, "Price", "Affordable", domain.DirectionDecreases),
		}},
		{name: "zero price", factors: []domain.Factor{
			f(1, "price", "₹0", domain.DirectionDecreases),
		}},
		{name: "digit run overflows", factors: []domain.Factor{
			f(1, "Price", "₹99999999999999999999999", domain.DirectionDecreases),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, ok := PriceToPerformance(tt.factors)

			assert.False(t, ok, "metric must be absent, not zero")
			assert.Equal(t, PriceScore{}, ps)
		})
	}
}

func TestPriceToPerformance_OverflowingRanksAreAbsent(t *testing.T) {
	// Given ranks so large that the importance total cannot fit in an int
	factors := []domain.Factor{
		f(1, "Processor", "Speed", domain.DirectionIncreases),
		f(2, "Price", "₹50000", domain.DirectionDecreases),
		f(math.MaxInt, "Noise", "Fan", domain.DirectionDecreases),
	}

	// When scoring price-to-performance
	var (
		ps PriceScore
		ok bool
	)
	require.NotPanics(t, func() { ps, ok = PriceToPerformance(factors) })

	// Then the metric is absent rather than a wrapped-around zero
	assert.False(t, ok)
	assert.Equal(t, PriceScore{}, ps)
	assert.Equal(t, math.MaxInt, TotalImportance(ImportanceSeries(factors)))
}

func TestImportanceScore_Saturates(t *testing.T) {
	assert.Equal(t, math.MaxInt, ImportanceScore(1, math.MaxInt))
	assert.Equal(t, math.MaxInt, ImportanceScore(math.MinInt, math.MaxInt))
	assert.Equal(t, 1, ImportanceScore(math.MaxInt, math.MaxInt))
}

func TestPriceToPerformance_Clamping(t *testing.T) {
	// A tiny price saturates the score at 10.
	factors := []domain.Factor{
		f(1, "Price", "$1", domain.DirectionDecreases),
		f(2, "Quality", "Build", domain.DirectionIncreases),
	}

	ps, ok := PriceToPerformance(factors)

	require.True(t, ok)
	assert.Equal(t, 10.0, ps.Score)
	assert.Equal(t, VerdictExcellent, ps.Verdict)
}

func TestPriceToPerformance_CurrencyMarkerMatch(t *testing.T) {
	// The factor is found by its currency marker even though it is not named "price".
	factors := []domain.Factor{
		f(1, "Cost of ownership", "About €5000 over 3 years", domain.DirectionDecreases),
	}

	ps, ok := PriceToPerformance(factors)

	require.True(t, ok)
	assert.Equal(t, int64(5000), ps.Price, "first contiguous digit run only")
	assert.Equal(t, 0.2, ps.Score)
	assert.Equal(t, VerdictPoor, ps.Verdict)
}

func TestPriceToPerformance_CaseInsensitiveName(t *testing.T) {
	factors := []domain.Factor{f(1, " PRICE ", "costs 500 rupees", domain.DirectionDecreases)}

	ps, ok := PriceToPerformance(factors)

	require.True(t, ok)
	assert.Equal(t, int64(500), ps.Price)
	assert.Equal(t, 2.0, ps.Score)
	assert.Equal(t, VerdictLow, ps.Verdict)
}

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"₹2000", 2000, true},
		{"₹1,299", 1, true},
		{"between 300 and 400", 300, true},
		{"no digits", 0, false},
		{"", 0, false},
		{"007", 7, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ExtractPrice(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerdictFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Verdict
	}{
		{10, VerdictExcellent},
		{8, VerdictExcellent},
		{7.9, VerdictGood},
		{6, VerdictGood},
		{4, VerdictAverage},
		{3.9, VerdictLow},
		{2, VerdictLow},
		{1.9, VerdictPoor},
		{0, VerdictPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, VerdictFor(tt.score), "score %v", tt.score)
		assert.NotEmpty(t, tt.want.Label())
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1,234,567", FormatPrice(1234567, language.AmericanEnglish))
	assert.Equal(t, "2,000", FormatPrice(2000, DefaultLocale))
}

func TestRecommend_Partition(t *testing.T) {
	// Given five factors with mixed directions in rank order
	factors := []domain.Factor{
		f(1, "Processor", "Speed", domain.DirectionIncreases),
		f(2, "Weight", "Portability", domain.DirectionDecreases),
		f(3, "RAM", "Multitasking", domain.DirectionSlightlyIncreases),
		f(4, "Battery", "Runtime", domain.DirectionIncreases),
		f(5, "Heat", "Comfort", domain.DirectionDecreases),
	}

	// When partitioning
	recs := Recommend(factors)

	// Then buckets hold the expected members in rank order
	assert.Equal(t, []string{"Processor", "RAM"}, names(recs.MainFocus))
	assert.Equal(t, []string{"Battery"}, names(recs.WatchNext))
	assert.Equal(t, []string{"Weight"}, names(recs.Avoid))
}

func TestRecommend_UnsortedInputAndNeutral(t *testing.T) {
	factors := []domain.Factor{
		f(6, "F", "", domain.DirectionIncreases),
		f(2, "B", "", "unknown"),
		f(5, "E", "", domain.DirectionIncreases),
		f(1, "A", "", domain.DirectionIncreases),
		f(4, "D", "", domain.DirectionSlightlyIncreases),
		f(3, "C", "", domain.DirectionIncreases),
	}

	recs := Recommend(factors)

	assert.Equal(t, []string{"A", "C"}, names(recs.MainFocus))
	assert.Equal(t, []string{"D", "E"}, names(recs.WatchNext))
	assert.Empty(t, recs.Avoid)
	assert.Equal(t, "F", factors[0].Name, "input must not be reordered")
}

func TestRecommend_EmptyBucketsAreNotNil(t *testing.T) {
	recs := Recommend(nil)

	assert.NotNil(t, recs.MainFocus)
	assert.NotNil(t, recs.WatchNext)
	assert.NotNil(t, recs.Avoid)
	assert.True(t, recs.Empty())
}

func TestEngine_Analyze(t *testing.T) {
	factors := []domain.Factor{
		f(1, "Processor", "Speed", domain.DirectionIncreases),
		f(2, "Price", "₹50000", domain.DirectionDecreases),
	}

	report := NewEngine("en-US").Analyze(factors)

	assert.True(t, report.HasData())
	assert.Len(t, report.Importance, 2)
	require.NotNil(t, report.Price)
	assert.Equal(t, "50,000", report.Price.PriceDisplay)
	assert.Equal(t, 0.1, report.Price.Score)
	assert.Equal(t, []string{"Processor"}, names(report.Recommendations.MainFocus))
	assert.Equal(t, []string{"Price"}, names(report.Recommendations.Avoid))
}

func TestEngine_AnalyzeEmpty(t *testing.T) {
	report := Engine{}.Analyze(nil)

	assert.False(t, report.HasData())
	assert.Nil(t, report.Price)
	assert.True(t, report.Recommendations.Empty())
}

func TestNewEngine_InvalidLocaleFallsBack(t *testing.T) {
	assert.Equal(t, DefaultLocale, NewEngine("not a locale!!").Locale)
}

func names(fs []domain.Factor) []string {
	out := make([]string, 0, len(fs))
	for _, x := range fs {
		out = append(out, x.Name)
	}
	return out
}
