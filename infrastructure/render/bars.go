package render

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-factorlens/infrastructure/analytics"
)

const (
	barFull  = "█"
	barEmpty = "░"
)

// Bar draws value (0-100) as a bar of at most width cells. A positive
// value always gets at least one cell.
func Bar(value, width int) string {
	if width <= 0 {
		return ""
	}
	value = min(100, max(0, value))
	filled := width * value / 100
	if value > 0 {
		filled = max(1, filled)
	}
	return strings.Repeat(barFull, filled) + strings.Repeat(barEmpty, width-filled)
}

// TextBars renders one labeled bar per point, labels padded to a common
// width. An empty series yields EmptyChartMessage.
func TextBars(points []analytics.ImportancePoint, width int) []string {
	if len(points) == 0 {
		return []string{EmptyChartMessage}
	}

	labelWidth := 0
	labels := make([]string, len(points))
	for i, p := range points {
		labels[i] = fmt.Sprintf("#%d %s", p.Rank, p.Name)
		labelWidth = max(labelWidth, len([]rune(labels[i])))
	}

	lines := make([]string, len(points))
	for i, p := range points {
		pad := labelWidth - len([]rune(labels[i]))
		lines[i] = fmt.Sprintf("%s%s  %s %3d", labels[i], strings.Repeat(" ", pad), Bar(p.Value, width), p.Value)
	}
	return lines
}
