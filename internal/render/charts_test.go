package render

import (
	"errors"
	"reflect"
	"testing"

	"github.com/aerodeck/flightdeck-cli/internal/analysis"
)

const pngMagic = "\x89PNG\r\n\x1a\n"

func sampleResult() analysis.Result {
	return analysis.Result{
		TotalFlights: 42,
		ByAirline: []analysis.GroupMean{
			{Key: "DL", Count: 20, Mean: -1.5},
			{Key: "UA", Count: 22, Mean: 7.25},
		},
		ByMonth: []analysis.GroupMean{
			{Key: "1", Count: 15, Mean: 3.4},
			{Key: "2", Count: 27, Mean: 8.9},
		},
		BusiestAirports: []analysis.ValueCount{
			{Value: "ATL", Count: 20},
			{Value: "ORD", Count: 22},
		},
		Histogram: []analysis.HistogramBin{
			{Low: -10, High: 0, Count: 12},
			{Low: 0, High: 10, Count: 30},
		},
		DelaySample: []analysis.DelayPoint{
			{Departure: 5, Arrival: -3},
			{Departure: 12, Arrival: 20},
			{Departure: -2, Arrival: -8},
		},
	}
}

func checkPNG(t *testing.T, view View, png []byte) {
	t.Helper()
	if len(png) < 8 || string(png[:8]) != pngMagic {
		t.Errorf("Chart(%s) did not produce a PNG (%d bytes)", view, len(png))
	}
}

func TestChartRendersEveryView(t *testing.T) {
	res := sampleResult()
	for _, view := range Views() {
		png, err := Chart(res, view, Options{Width: 400, Height: 240})
		if err != nil {
			t.Fatalf("Chart(%s): %v", view, err)
		}
		checkPNG(t, view, png)
	}
}

func TestChartEmptyResultIsNoData(t *testing.T) {
	empty := analysis.Result{Insights: []string{"No rows match the current filter."}}
	for _, view := range Views() {
		if _, err := Chart(empty, view, Options{}); !errors.Is(err, ErrNoData) {
			t.Errorf("Chart(%s) on empty result: err = %v, want ErrNoData", view, err)
		}
	}
}

// Flat inputs used to trip the renderer's zero-span axis check; the explicit
// padded ranges keep them drawable.
func TestChartFlatDataStillRenders(t *testing.T) {
	res := analysis.Result{
		TotalFlights: 4,
		ByMonth:      []analysis.GroupMean{{Key: "3", Count: 4, Mean: 0}},
		DelaySample:  []analysis.DelayPoint{{Departure: 5, Arrival: 5}},
	}
	for _, view := range []View{ViewMonthlyTrend, ViewDelayScatter} {
		png, err := Chart(res, view, Options{Width: 320, Height: 200})
		if err != nil {
			t.Fatalf("Chart(%s): %v", view, err)
		}
		checkPNG(t, view, png)
	}
}

func TestChartUnknownView(t *testing.T) {
	if _, err := Chart(sampleResult(), View("pie"), Options{}); err == nil {
		t.Fatal("expected error for unknown view")
	}
}

func TestParseView(t *testing.T) {
	v, err := ParseView("  Monthly-Trend ")
	if err != nil {
		t.Fatalf("ParseView: %v", err)
	}
	if v != ViewMonthlyTrend {
		t.Errorf("ParseView = %q, want %q", v, ViewMonthlyTrend)
	}
	if _, err := ParseView("pie"); err == nil {
		t.Fatal("expected error for unknown view name")
	}
}

func TestViewsOrder(t *testing.T) {
	want := []View{
		ViewAirlineDelay,
		ViewMonthlyTrend,
		ViewBusiestAirports,
		ViewDelayDistribution,
		ViewDelayScatter,
	}
	if got := Views(); !reflect.DeepEqual(got, want) {
		t.Errorf("Views() = %v, want %v", got, want)
	}
}

func TestDefaultOptionsAppliedForZeroSize(t *testing.T) {
	png, err := Chart(sampleResult(), ViewAirlineDelay, Options{})
	if err != nil {
		t.Fatalf("Chart: %v", err)
	}
	checkPNG(t, ViewAirlineDelay, png)
}
