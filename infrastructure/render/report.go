package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ahrav/go-factorlens/infrastructure/analytics"
	"github.com/ahrav/go-factorlens/internal/domain"
)

// DefaultReportName is the base file name suggested for exported reports.
const DefaultReportName = "AI_Item_Factors_Report"

// Recommendation wording, shared with the interactive view.
const (
	NoMainFocus  = "No strong positive factors detected yet."
	NoneYet      = "none yet"
	MainFocusHdr = "Focus on first:"
	WatchNextHdr = "Also keep an eye on:"
	AvoidHdr     = "Watch out for:"
)

// MainFocusLine is the sentence for a main-focus factor.
func MainFocusLine(f domain.Factor) string {
	return fmt.Sprintf("#%d Boost %s to improve %s.", f.Rank, f.Name, f.EffectShort)
}

// WatchNextLine is the sentence for a watch-next factor.
func WatchNextLine(f domain.Factor) string {
	return fmt.Sprintf("#%d %s adds extra stability to %s.", f.Rank, f.Name, f.EffectShort)
}

// AvoidLine is the sentence for an avoid factor.
func AvoidLine(f domain.Factor) string {
	return fmt.Sprintf("#%d High %s can reduce efficiency. Try to control or optimize it.", f.Rank, f.Name)
}

// RecommendationSection is one titled bucket of sentences.
type RecommendationSection struct {
	Title string
	Lines []string
}

// RecommendationSections renders every bucket, including empty ones, so
// a partial snapshot still shows all three headings.
func RecommendationSections(r analytics.Recommendations) []RecommendationSection {
	return []RecommendationSection{
		{Title: MainFocusHdr, Lines: lines(r.MainFocus, MainFocusLine, NoMainFocus)},
		{Title: WatchNextHdr, Lines: lines(r.WatchNext, WatchNextLine, NoneYet)},
		{Title: AvoidHdr, Lines: lines(r.Avoid, AvoidLine, NoneYet)},
	}
}

func lines(fs []domain.Factor, line func(domain.Factor) string, empty string) []string {
	if len(fs) == 0 {
		return []string{empty}
	}
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = line(f)
	}
	return out
}

// PriceLines renders the price-to-performance block, or nil when the
// metric is absent.
func PriceLines(p *analytics.PriceScore) []string {
	if p == nil {
		return nil
	}
	return []string{
		"💰 Price-to-Performance Score",
		fmt.Sprintf("%.1f / 10", p.Score),
		p.Verdict.Label(),
		"Price considered: " + p.PriceDisplay,
	}
}

// Report writes a markdown report of factors and their derived views.
func Report(w io.Writer, item string, factors []domain.Factor, r analytics.Report) error {
	var b strings.Builder

	title := strings.TrimSpace(item)
	if title == "" {
		title = "Item"
	}
	fmt.Fprintf(&b, "# Factors: %s\n\n", title)

	if len(factors) == 0 {
		b.WriteString("No factors yet.\n")
	} else {
		b.WriteString("| Rank | Factor | Effect | Direction |\n")
		b.WriteString("|---:|---|---|---|\n")
		for _, f := range factors {
			fmt.Fprintf(&b, "| %d | %s | %s | %s %s |\n",
				f.Rank, cell(f.Name), cell(f.EffectShort), f.Direction.Icon(), f.Direction.Label())
		}
	}

	b.WriteString("\n## Importance\n\n")
	b.WriteString("```\n")
	for _, l := range TextBars(r.Importance, 30) {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("```\n")

	b.WriteString("\n## Recommendations\n")
	for _, sec := range RecommendationSections(r.Recommendations) {
		fmt.Fprintf(&b, "\n**%s**\n\n", sec.Title)
		for _, l := range sec.Lines {
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}

	if p := PriceLines(r.Price); p != nil {
		b.WriteString("\n## ")
		b.WriteString(p[0])
		b.WriteString("\n\n")
		for _, l := range p[1:] {
			fmt.Fprintf(&b, "%s  \n", l)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// cell escapes pipes so a value cannot break the table.
func cell(s string) string { return strings.ReplaceAll(s, "|", `\|`) }
