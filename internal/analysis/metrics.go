package analysis

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/aerodeck/flightdeck-cli/internal/schema"
)

// Options controls metric computation.
type Options struct {
	// TopAirports is the size of the busiest-origin ranking.
	TopAirports int
	// HistogramBins is the number of equal-width arrival-delay buckets.
	HistogramBins int
	// SampleCap caps the departure-vs-arrival sample.
	SampleCap int
	// SampleSeed seeds the sampler; 0 seeds from the clock.
	SampleSeed int64
}

// DefaultOptions returns the rates and sizes the dashboard ships with.
func DefaultOptions() Options {
	return Options{TopAirports: 10, HistogramBins: 40, SampleCap: 2000}
}

// GroupMean is one group key with its mean arrival delay over the rows where
// both the key and the delay are present.
type GroupMean struct {
	Key   string  `json:"key"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
}

// ValueCount is one ranked categorical value.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// HistogramBin is one equal-width arrival-delay bucket, [Low, High).
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// DelayPoint pairs one flight's departure and arrival delay.
type DelayPoint struct {
	Departure float64 `json:"departure"`
	Arrival   float64 `json:"arrival"`
}

// AirlineRating names an airline with its mean arrival delay.
type AirlineRating struct {
	Airline string  `json:"airline"`
	Mean    float64 `json:"mean"`
}

// Result bundles every metric for one filtered view of the table. Optional
// metrics are nil when their role is unbound or no usable value survives the
// filter; each degrades on its own without touching the others.
type Result struct {
	TotalFlights      int            `json:"total_flights"`
	AvgDepartureDelay *float64       `json:"avg_departure_delay,omitempty"`
	AvgArrivalDelay   *float64       `json:"avg_arrival_delay,omitempty"`
	CancellationRate  *float64       `json:"cancellation_rate,omitempty"`
	OnTimeRate        *float64       `json:"on_time_rate,omitempty"`
	ByAirline         []GroupMean    `json:"by_airline,omitempty"`
	ByMonth           []GroupMean    `json:"by_month,omitempty"`
	BusiestAirports   []ValueCount   `json:"busiest_airports,omitempty"`
	BestAirline       *AirlineRating `json:"best_airline,omitempty"`
	WorstAirline      *AirlineRating `json:"worst_airline,omitempty"`
	Histogram         []HistogramBin `json:"delay_histogram,omitempty"`
	DelaySample       []DelayPoint   `json:"delay_sample,omitempty"`
	Insights          []string       `json:"insights"`
}

// Compute derives the full metric bundle from a normalized, filtered frame.
// It is a pure function of its inputs: no retained state, no panic on an
// empty frame, and the rates follow the conventions below.
//
//   - averages are over non-missing values only
//   - cancellation rate = mean of the 0/1 indicator x 100
//   - on-time rate = share of non-missing arrival delays <= 0, x 100
//   - grouped means drop rows missing the key or the delay
//
// The four headline rates are rounded to two decimals; grouped means keep
// full precision for rendering.
func Compute(df dataframe.DataFrame, sm schema.Map, opt Options) Result {
	res := Result{TotalFlights: df.Nrow()}

	dep, depOK := floatColumn(df, sm, schema.RoleDepartureDelay)
	arr, arrOK := floatColumn(df, sm, schema.RoleArrivalDelay)
	cancelled, cancelledOK := floatColumn(df, sm, schema.RoleCancelled)
	airlines, airlinesOK := stringColumn(df, sm, schema.RoleAirline)
	months, monthsOK := stringColumn(df, sm, schema.RoleMonth)
	origins, originsOK := stringColumn(df, sm, schema.RoleOriginAirport)

	if depOK {
		res.AvgDepartureDelay = roundPtr(meanNonMissing(dep))
	}
	if arrOK {
		res.AvgArrivalDelay = roundPtr(meanNonMissing(arr))
	}
	if cancelledOK {
		if m := meanNonMissing(cancelled); m != nil {
			res.CancellationRate = fptr(round2(*m * 100))
		}
	}
	if arrOK {
		res.OnTimeRate = onTimeRate(arr)
	}
	if airlinesOK && arrOK {
		res.ByAirline = groupMeans(airlines, arr, sortKeysLexical)
		res.BestAirline, res.WorstAirline = rateAirlines(res.ByAirline)
	}
	if monthsOK && arrOK {
		res.ByMonth = groupMeans(months, arr, sortKeysNumericAware)
	}
	if originsOK {
		res.BusiestAirports = topValues(origins, opt.TopAirports)
	}
	if arrOK {
		res.Histogram = histogram(arr, opt.HistogramBins)
	}
	if depOK && arrOK {
		res.DelaySample = sampleDelays(dep, arr, opt.SampleCap, opt.SampleSeed)
	}
	res.Insights = buildInsights(&res)
	return res
}

// floatColumn pulls a numeric-role column as floats with NaN for missing.
// ok is false when the role is unbound.
func floatColumn(df dataframe.DataFrame, sm schema.Map, role schema.Role) ([]float64, bool) {
	col, ok := sm.Column(role)
	if !ok {
		return nil, false
	}
	s := df.Col(col)
	if s.Err != nil {
		return nil, false
	}
	return s.Float(), true
}

// stringColumn pulls a categorical-role column with "" for missing.
func stringColumn(df dataframe.DataFrame, sm schema.Map, role schema.Role) ([]string, bool) {
	col, ok := sm.Column(role)
	if !ok {
		return nil, false
	}
	s := df.Col(col)
	if s.Err != nil {
		return nil, false
	}
	recs := s.Records()
	for i, na := range s.IsNaN() {
		if na {
			recs[i] = ""
		}
	}
	return recs, true
}

func meanNonMissing(vals []float64) *float64 {
	clean := dropNaN(vals)
	if len(clean) == 0 {
		return nil
	}
	return fptr(stat.Mean(clean, nil))
}

func onTimeRate(vals []float64) *float64 {
	var onTime, total int
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		total++
		if v <= 0 {
			onTime++
		}
	}
	if total == 0 {
		return nil
	}
	return fptr(round2(float64(onTime) * 100 / float64(total)))
}

// groupMeans accumulates the mean delay per key, dropping rows where the key
// is missing or the delay is NaN. sortKeys fixes the group order.
func groupMeans(keys []string, vals []float64, sortKeys func([]string)) []GroupMean {
	sums := map[string]float64{}
	counts := map[string]int{}
	for i, k := range keys {
		if k == "" || i >= len(vals) || math.IsNaN(vals[i]) {
			continue
		}
		sums[k] += vals[i]
		counts[k]++
	}
	if len(counts) == 0 {
		return nil
	}
	ordered := make([]string, 0, len(counts))
	for k := range counts {
		ordered = append(ordered, k)
	}
	sortKeys(ordered)
	out := make([]GroupMean, 0, len(ordered))
	for _, k := range ordered {
		out = append(out, GroupMean{Key: k, Count: counts[k], Mean: sums[k] / float64(counts[k])})
	}
	return out
}

func sortKeysLexical(keys []string) {
	sort.Strings(keys)
}

// sortKeysNumericAware orders numerically when every key parses as a number
// (month columns usually hold 1..12), lexically otherwise.
func sortKeysNumericAware(keys []string) {
	nums := make(map[string]float64, len(keys))
	for _, k := range keys {
		f, err := strconv.ParseFloat(k, 64)
		if err != nil {
			sort.Strings(keys)
			return
		}
		nums[k] = f
	}
	sort.Slice(keys, func(i, j int) bool { return nums[keys[i]] < nums[keys[j]] })
}

// rateAirlines picks the best and worst airline by mean arrival delay. Ties
// go to the earlier group in key order.
func rateAirlines(groups []GroupMean) (best, worst *AirlineRating) {
	if len(groups) == 0 {
		return nil, nil
	}
	b, w := groups[0], groups[0]
	for _, g := range groups[1:] {
		if g.Mean < b.Mean {
			b = g
		}
		if g.Mean > w.Mean {
			w = g
		}
	}
	return &AirlineRating{Airline: b.Key, Mean: b.Mean}, &AirlineRating{Airline: w.Key, Mean: w.Mean}
}

// topValues ranks values by descending count, truncated to n. Ties keep
// first-seen row order, so the ranking is stable across runs.
func topValues(vals []string, n int) []ValueCount {
	if n <= 0 {
		n = 10
	}
	counts := map[string]int{}
	firstSeen := map[string]int{}
	for i, v := range vals {
		if v == "" {
			continue
		}
		if _, ok := counts[v]; !ok {
			firstSeen[v] = i
		}
		counts[v]++
	}
	if len(counts) == 0 {
		return nil
	}
	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return firstSeen[out[i].Value] < firstSeen[out[j].Value]
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// histogram buckets the non-missing arrival delays into equal-width bins.
// A single distinct value collapses to one bucket.
func histogram(vals []float64, bins int) []HistogramBin {
	if bins <= 0 {
		bins = 40
	}
	clean := dropNaN(vals)
	if len(clean) == 0 {
		return nil
	}
	sort.Float64s(clean)
	lo, hi := clean[0], clean[len(clean)-1]
	if lo == hi {
		return []HistogramBin{{Low: lo, High: hi, Count: len(clean)}}
	}
	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	// The top divider is exclusive; nudge it so the max lands in the last bin.
	dividers[len(dividers)-1] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, clean, nil)
	out := make([]HistogramBin, len(counts))
	for i, c := range counts {
		out[i] = HistogramBin{Low: dividers[i], High: dividers[i+1], Count: int(c)}
	}
	out[len(out)-1].High = hi
	return out
}

// sampleDelays reservoir-samples up to limit rows where both delays are
// present. A zero seed draws from the clock; tests pin it.
func sampleDelays(dep, arr []float64, limit int, seed int64) []DelayPoint {
	if limit <= 0 {
		limit = 2000
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	sample := make([]DelayPoint, 0, limit)
	seen := 0
	n := len(dep)
	if len(arr) < n {
		n = len(arr)
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(dep[i]) || math.IsNaN(arr[i]) {
			continue
		}
		p := DelayPoint{Departure: dep[i], Arrival: arr[i]}
		seen++
		if len(sample) < limit {
			sample = append(sample, p)
			continue
		}
		if j := rng.Intn(seen); j < limit {
			sample[j] = p
		}
	}
	if len(sample) == 0 {
		return nil
	}
	return sample
}

func dropNaN(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return fptr(round2(*p))
}

func fptr(v float64) *float64 { return &v }
