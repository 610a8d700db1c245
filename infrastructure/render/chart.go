// Package render turns a factor snapshot and its derived report into
// artifacts: an importance bar chart image, terminal bars and a plain-text
// report.
package render

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ahrav/go-factorlens/infrastructure/analytics"
)

// EmptyChartMessage is shown in place of a chart with no data.
const EmptyChartMessage = "No chart data"

// ErrNoChartData is returned when asked to chart an empty series.
var ErrNoChartData = errors.New("no chart data")

// Format selects the chart image encoding.
type Format string

// Supported chart formats.
const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported chart format %q: use .svg or .png", ext)
	}
}

func (f Format) provider() (chart.RendererProvider, error) {
	switch f {
	case FormatSVG:
		return chart.SVG, nil
	case FormatPNG:
		return chart.PNG, nil
	default:
		return nil, fmt.Errorf("unsupported chart format %q", f)
	}
}

// Bar geometry, in pixels.
const (
	barWidth   = 48
	barSpacing = 24
	minWidth   = 640
	chartHeight = 480
)

var (
	barFill   = drawing.ColorFromHex("2ea7ff")
	barStroke = drawing.ColorFromHex("60f0d8")
)

// ImportanceChart builds the bar chart for an importance series. Bars are
// the normalized 0-100 values in series order.
func ImportanceChart(title string, points []analytics.ImportancePoint) (chart.BarChart, error) {
	if len(points) == 0 {
		return chart.BarChart{}, ErrNoChartData
	}

	bars := make([]chart.Value, 0, len(points))
	for _, p := range points {
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("#%d %s", p.Rank, p.Name),
			Value: float64(p.Value),
			Style: chart.Style{
				FillColor:   barFill,
				StrokeColor: barStroke,
				StrokeWidth: 1,
			},
		})
	}

	xStyle := chart.Style{}
	if len(points) > 5 {
		xStyle.TextRotationDegrees = 45
	}

	return chart.BarChart{
		Title:      title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      max(minWidth, len(points)*(barWidth+barSpacing)+120),
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		XAxis:      xStyle,
		YAxis: chart.YAxis{
			Name:  "Relative importance",
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
			Ticks: []chart.Tick{
				{Value: 0, Label: "0"},
				{Value: 25, Label: "25"},
				{Value: 50, Label: "50"},
				{Value: 75, Label: "75"},
				{Value: 100, Label: "100"},
			},
		},
		Bars: bars,
	}, nil
}

// Chart writes the importance chart for points to w.
func Chart(w io.Writer, title string, points []analytics.ImportancePoint, format Format) error {
	rp, err := format.provider()
	if err != nil {
		return err
	}
	bc, err := ImportanceChart(title, points)
	if err != nil {
		return err
	}
	if err := bc.Render(rp, w); err != nil {
		return fmt.Errorf("render %s chart: %w", format, err)
	}
	return nil
}
