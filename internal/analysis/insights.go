package analysis

import "fmt"

// buildInsights turns the computed metrics into short text findings. Every
// line degrades on its own: a missing input swaps that line for an
// insufficient-data note instead of dropping it.
func buildInsights(res *Result) []string {
	out := make([]string, 0, 4)

	if res.BestAirline != nil {
		out = append(out, fmt.Sprintf("Best performing airline: %s (avg arrival delay %.2f min)", res.BestAirline.Airline, res.BestAirline.Mean))
	} else {
		out = append(out, "Best performing airline: insufficient data")
	}

	if res.WorstAirline != nil {
		out = append(out, fmt.Sprintf("Worst performing airline: %s (avg arrival delay %.2f min)", res.WorstAirline.Airline, res.WorstAirline.Mean))
	} else {
		out = append(out, "Worst performing airline: insufficient data")
	}

	if len(res.BusiestAirports) > 0 {
		top := res.BusiestAirports[0]
		out = append(out, fmt.Sprintf("Busiest origin airport: %s (%d flights)", top.Value, top.Count))
	} else {
		out = append(out, "Busiest origin airport: insufficient data")
	}

	if res.OnTimeRate != nil {
		out = append(out, fmt.Sprintf("On-time arrivals: %.2f%% of flights", *res.OnTimeRate))
	} else {
		out = append(out, "On-time arrivals: insufficient data")
	}

	return out
}
