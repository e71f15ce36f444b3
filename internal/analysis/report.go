package analysis

import (
	"fmt"
	"strings"
)

// Markdown renders the metric bundle as a compact sectioned report, suitable
// for the terminal or a standalone file.
func (r Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[FLIGHT METRICS]\n")
	b.WriteString(fmt.Sprintf("Total flights: %d\n", r.TotalFlights))
	b.WriteString("Avg departure delay: " + minutesOrNA(r.AvgDepartureDelay) + "\n")
	b.WriteString("Avg arrival delay: " + minutesOrNA(r.AvgArrivalDelay) + "\n")
	b.WriteString("Cancellation rate: " + percentOrNA(r.CancellationRate) + "\n")
	b.WriteString("On-time rate: " + percentOrNA(r.OnTimeRate) + "\n")

	b.WriteString("\n[ARRIVAL DELAY BY AIRLINE]\n")
	writeGroups(&b, r.ByAirline)

	b.WriteString("\n[ARRIVAL DELAY BY MONTH]\n")
	writeGroups(&b, r.ByMonth)

	b.WriteString("\n[BUSIEST ORIGIN AIRPORTS]\n")
	if len(r.BusiestAirports) == 0 {
		b.WriteString("- insufficient data\n")
	}
	for _, vc := range r.BusiestAirports {
		b.WriteString(fmt.Sprintf("- %s: %d flights\n", vc.Value, vc.Count))
	}

	b.WriteString("\n[INSIGHTS]\n")
	for _, line := range r.Insights {
		b.WriteString("- " + line + "\n")
	}
	return b.String()
}

func writeGroups(b *strings.Builder, groups []GroupMean) {
	if len(groups) == 0 {
		b.WriteString("- insufficient data\n")
		return
	}
	for _, g := range groups {
		b.WriteString(fmt.Sprintf("- %s: %.2f min (n=%d)\n", g.Key, g.Mean, g.Count))
	}
}

func minutesOrNA(p *float64) string {
	if p == nil {
		return "insufficient data"
	}
	return fmt.Sprintf("%.2f min", *p)
}

func percentOrNA(p *float64) string {
	if p == nil {
		return "insufficient data"
	}
	return fmt.Sprintf("%.2f%%", *p)
}
