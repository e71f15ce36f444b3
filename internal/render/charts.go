package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/aerodeck/flightdeck-cli/internal/analysis"
)

// View selects one of the dashboard's analysis charts.
type View string

const (
	ViewAirlineDelay      View = "airline-delay"
	ViewMonthlyTrend      View = "monthly-trend"
	ViewBusiestAirports   View = "busiest-airports"
	ViewDelayDistribution View = "delay-distribution"
	ViewDelayScatter      View = "delay-scatter"
)

// Views lists every chart in presentation order.
func Views() []View {
	return []View{
		ViewAirlineDelay,
		ViewMonthlyTrend,
		ViewBusiestAirports,
		ViewDelayDistribution,
		ViewDelayScatter,
	}
}

// ParseView validates a view name from a flag or query parameter.
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Views() {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown view %q (want one of %s)", s, joinViews())
}

func joinViews() string {
	names := make([]string, 0, len(Views()))
	for _, v := range Views() {
		names = append(names, string(v))
	}
	return strings.Join(names, ", ")
}

// ErrNoData marks a chart whose inputs are unavailable for the current
// filter. Callers turn it into a friendly note instead of a failure page.
var ErrNoData = errors.New("insufficient data for chart")

// Options controls the rendered image size.
type Options struct {
	Width  int
	Height int
}

// DefaultOptions returns the dashboard's standard canvas size.
func DefaultOptions() Options {
	return Options{Width: 1024, Height: 480}
}

// Chart renders one analysis view of a metric bundle to PNG bytes.
func Chart(res analysis.Result, view View, opt Options) ([]byte, error) {
	if opt.Width <= 0 || opt.Height <= 0 {
		opt = DefaultOptions()
	}
	switch view {
	case ViewAirlineDelay:
		return airlineDelayChart(res, opt)
	case ViewMonthlyTrend:
		return monthlyTrendChart(res, opt)
	case ViewBusiestAirports:
		return busiestAirportsChart(res, opt)
	case ViewDelayDistribution:
		return delayDistributionChart(res, opt)
	case ViewDelayScatter:
		return delayScatterChart(res, opt)
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}
}

func airlineDelayChart(res analysis.Result, opt Options) ([]byte, error) {
	if len(res.ByAirline) == 0 {
		return nil, fmt.Errorf("airline delay: %w", ErrNoData)
	}
	bars := make([]chart.Value, 0, len(res.ByAirline))
	lo, hi := res.ByAirline[0].Mean, res.ByAirline[0].Mean
	for _, g := range res.ByAirline {
		bars = append(bars, chart.Value{Label: g.Key, Value: g.Mean})
		if g.Mean < lo {
			lo = g.Mean
		}
		if g.Mean > hi {
			hi = g.Mean
		}
	}
	bc := chart.BarChart{
		Title:  "Average arrival delay by airline (min)",
		Width:  opt.Width,
		Height: opt.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16},
		},
		BarWidth: 40,
		YAxis:    chart.YAxis{Range: paddedRange(lo, hi)},
		Bars:     bars,
	}
	return renderPNG(&bc)
}

func monthlyTrendChart(res analysis.Result, opt Options) ([]byte, error) {
	if len(res.ByMonth) == 0 {
		return nil, fmt.Errorf("monthly trend: %w", ErrNoData)
	}
	xs := make([]float64, 0, len(res.ByMonth))
	ys := make([]float64, 0, len(res.ByMonth))
	ticks := make([]chart.Tick, 0, len(res.ByMonth))
	lo, hi := res.ByMonth[0].Mean, res.ByMonth[0].Mean
	for i, g := range res.ByMonth {
		xs = append(xs, float64(i))
		ys = append(ys, g.Mean)
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: g.Key})
		if g.Mean < lo {
			lo = g.Mean
		}
		if g.Mean > hi {
			hi = g.Mean
		}
	}
	// A single month would collapse the x range; repeat the point one slot
	// to the right so the renderer has a non-zero span.
	if len(xs) == 1 {
		xs = append(xs, xs[0]+1)
		ys = append(ys, ys[0])
		ticks = append(ticks, chart.Tick{Value: xs[1], Label: res.ByMonth[0].Key})
	}
	ch := chart.Chart{
		Title:  "Average arrival delay by month (min)",
		Width:  opt.Width,
		Height: opt.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16},
		},
		XAxis: chart.XAxis{Name: "Month", Ticks: ticks},
		YAxis: chart.YAxis{Name: "min", Range: paddedRange(lo, hi)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Arrival delay",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeWidth: 2, StrokeColor: chart.ColorBlue, DotWidth: 4, DotColor: chart.ColorBlue},
			},
		},
	}
	return renderPNG(&ch)
}

func busiestAirportsChart(res analysis.Result, opt Options) ([]byte, error) {
	if len(res.BusiestAirports) == 0 {
		return nil, fmt.Errorf("busiest airports: %w", ErrNoData)
	}
	bars := make([]chart.Value, 0, len(res.BusiestAirports))
	hi := 0.0
	for _, vc := range res.BusiestAirports {
		bars = append(bars, chart.Value{Label: vc.Value, Value: float64(vc.Count)})
		if float64(vc.Count) > hi {
			hi = float64(vc.Count)
		}
	}
	bc := chart.BarChart{
		Title:  "Busiest origin airports (flights)",
		Width:  opt.Width,
		Height: opt.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16},
		},
		BarWidth: 40,
		YAxis:    chart.YAxis{Range: paddedRange(0, hi)},
		Bars:     bars,
	}
	return renderPNG(&bc)
}

func delayDistributionChart(res analysis.Result, opt Options) ([]byte, error) {
	if len(res.Histogram) == 0 {
		return nil, fmt.Errorf("delay distribution: %w", ErrNoData)
	}
	bars := make([]chart.Value, 0, len(res.Histogram))
	hi := 0.0
	for _, bin := range res.Histogram {
		bars = append(bars, chart.Value{Label: fmt.Sprintf("%.0f", bin.Low), Value: float64(bin.Count)})
		if float64(bin.Count) > hi {
			hi = float64(bin.Count)
		}
	}
	bc := chart.BarChart{
		Title:  "Arrival delay distribution (min)",
		Width:  opt.Width,
		Height: opt.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16},
		},
		BarWidth: 18,
		YAxis:    chart.YAxis{Range: paddedRange(0, hi)},
		Bars:     bars,
	}
	return renderPNG(&bc)
}

func delayScatterChart(res analysis.Result, opt Options) ([]byte, error) {
	if len(res.DelaySample) == 0 {
		return nil, fmt.Errorf("delay scatter: %w", ErrNoData)
	}
	xs := make([]float64, 0, len(res.DelaySample))
	ys := make([]float64, 0, len(res.DelaySample))
	xlo, xhi := res.DelaySample[0].Departure, res.DelaySample[0].Departure
	ylo, yhi := res.DelaySample[0].Arrival, res.DelaySample[0].Arrival
	for _, p := range res.DelaySample {
		xs = append(xs, p.Departure)
		ys = append(ys, p.Arrival)
		xlo, xhi = minMax(xlo, xhi, p.Departure)
		ylo, yhi = minMax(ylo, yhi, p.Arrival)
	}
	ch := chart.Chart{
		Title:  "Departure vs arrival delay (min)",
		Width:  opt.Width,
		Height: opt.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16},
		},
		// Explicit ranges: the renderer rejects a zero-span axis, which a
		// single point or identical delays would otherwise produce.
		XAxis: chart.XAxis{Name: "Departure delay", Range: paddedRange(xlo, xhi)},
		YAxis: chart.YAxis{Name: "Arrival delay", Range: paddedRange(ylo, yhi)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Flights",
				XValues: xs,
				YValues: ys,
				Style:   pointStyle(chart.ColorBlue),
			},
		},
	}
	return renderPNG(&ch)
}

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 0,
		DotWidth:    4,
		DotColor:    col,
	}
}

func minMax(lo, hi, v float64) (float64, float64) {
	if v < lo {
		lo = v
	}
	if v > hi {
		hi = v
	}
	return lo, hi
}

// paddedRange pins an axis so flat data still has a drawable span, keeps zero
// in view and leaves headroom above the largest value.
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	if lo > 0 {
		lo = 0
	}
	if hi < 0 {
		hi = 0
	}
	if hi == lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi + (hi-lo)*0.1}
}

type pngRenderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func renderPNG(c pngRenderer) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
