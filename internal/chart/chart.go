package chart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/multierr"

	"ragconsole/internal/telemetry"
)

// ErrEmptySeries is returned when there is nothing to draw.
var ErrEmptySeries = errors.New("series has no points")

var (
	latencyColor    = drawing.ColorFromHex("6366f1")
	comparisonColor = drawing.ColorFromHex("22c55e")
)

const (
	minWidth  = 800
	height    = 400
	barWidth  = 40
	barMargin = 20
)

// Latency renders total latency per experiment as a PNG line chart.
func Latency(w io.Writer, s telemetry.Series) error {
	if s.Len() == 0 {
		return ErrEmptySeries
	}
	// go-chart takes the x range from the ticks, which is zero wide for one point.
	if s.Len() == 1 {
		return bars(w, "Latency Over Experiments", s, latencyColor)
	}
	xs := make([]float64, s.Len())
	ticks := make([]gochart.Tick, s.Len())
	for i, label := range s.Labels {
		xs[i] = float64(i + 1)
		ticks[i] = gochart.Tick{Value: xs[i], Label: label}
	}
	graph := gochart.Chart{
		Title:      "Latency Over Experiments",
		Width:      width(s.Len()),
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		XAxis: gochart.XAxis{
			Ticks: ticks,
			Range: &gochart.ContinuousRange{Min: 0.5, Max: float64(s.Len()) + 0.5},
		},
		YAxis: gochart.YAxis{
			Name:  "Total Latency (s)",
			Range: &gochart.ContinuousRange{Min: 0, Max: yMax(s)},
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Total Latency (s)",
				XValues: xs,
				YValues: s.Values,
				Style:   gochart.Style{StrokeColor: latencyColor, StrokeWidth: 2, DotColor: latencyColor, DotWidth: 3},
			},
		},
	}
	return graph.Render(gochart.PNG, w)
}

// Comparison renders average latency per group as a PNG bar chart.
func Comparison(w io.Writer, s telemetry.Series) error {
	if s.Len() == 0 {
		return ErrEmptySeries
	}
	return bars(w, "Avg Total Latency (s)", s, comparisonColor)
}

func bars(w io.Writer, title string, s telemetry.Series, color drawing.Color) error {
	values := make([]gochart.Value, s.Len())
	for i := range s.Values {
		values[i] = gochart.Value{
			Label: s.Labels[i],
			Value: s.Values[i],
			Style: gochart.Style{FillColor: color, StrokeColor: color},
		}
	}
	graph := gochart.BarChart{
		Title:      title,
		Width:      width(s.Len()),
		Height:     height,
		BarWidth:   barWidth,
		Background: gochart.Style{Padding: gochart.Box{Top: 40}},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: yMax(s)},
		},
		Bars: values,
	}
	return graph.Render(gochart.PNG, w)
}

// Export writes both charts into dir and returns the written paths.
// An empty series is skipped. A chart that fails to render does not stop the other one.
func Export(dir string, latency, comparison telemetry.Series, now time.Time) ([]string, error) {
	if latency.Len() == 0 && comparison.Len() == 0 {
		return nil, ErrEmptySeries
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	stamp := now.Format("20060102-150405")
	var (
		written []string
		errs    error
	)
	jobs := []struct {
		name   string
		series telemetry.Series
		render func(io.Writer, telemetry.Series) error
	}{
		{"latency", latency, Latency},
		{"comparison", comparison, Comparison},
	}
	for _, j := range jobs {
		if j.series.Len() == 0 {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s-%s.png", j.name, stamp))
		if err := writeFile(path, j.series, j.render); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("export %s: %w", j.name, err))
			continue
		}
		written = append(written, path)
	}
	return written, errs
}

func writeFile(path string, s telemetry.Series, render func(io.Writer, telemetry.Series) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func width(n int) int {
	w := n*(barWidth+barMargin) + 120
	if w < minWidth {
		return minWidth
	}
	return w
}

// yMax leaves headroom above the tallest point and never returns a zero range.
func yMax(s telemetry.Series) float64 {
	m := s.Max()
	if m <= 0 {
		return 1
	}
	return m * 1.1
}
