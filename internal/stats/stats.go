// Package stats turns a finalized set of measured latencies into an
// aggregate report: distribution summary, interpolated percentiles and
// threshold-exceedance percentages.
//
// Everything here is a pure function of its input. Computing the same
// report twice yields identical results, and an empty input produces
// explicit "no data" fields rather than zeros.
package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// LatencySummary describes the latency distribution of a run. A nil
// summary means no requests were measured, which is distinct from a run
// whose latencies were all zero.
type LatencySummary struct {
	Avg       time.Duration
	Max       time.Duration
	Min       time.Duration
	Amplitude time.Duration // Max - Min
	StdDev    time.Duration // population standard deviation (divide by N)
}

// PercentileValue is one row of the percentile table.
type PercentileValue struct {
	P     float64
	Value time.Duration
}

// ThresholdValue is one row of the threshold table: the percentage of
// outcomes whose latency was greater than or equal to T.
type ThresholdValue struct {
	T          time.Duration
	Percentage float64
}

// Report is the read-only result of a run, computed once from the
// finalized result set.
type Report struct {
	TotalRequests int
	TotalErrors   int
	Latency       *LatencySummary
	Percentiles   []PercentileValue
	Thresholds    []ThresholdValue
}

// OutOfRangeError reports a percentile outside [0,100].
type OutOfRangeError struct {
	P float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("percentile %v out of range [0,100]", e.P)
}

// Compute builds the report for a run. latencies holds the elapsed time
// of every completed attempt (failed ones included), errs the error
// tally. An empty latency slice yields a report with a nil summary and
// empty tables. The only error condition is a percentile outside
// [0,100].
func Compute(latencies []time.Duration, errs int, percentiles []float64, thresholds []time.Duration) (*Report, error) {
	for _, p := range percentiles {
		if p < 0 || p > 100 {
			return nil, &OutOfRangeError{P: p}
		}
	}

	r := &Report{
		TotalRequests: len(latencies),
		TotalErrors:   errs,
	}
	if len(latencies) == 0 {
		return r, nil
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	r.Latency = summarize(sorted)

	for _, p := range percentiles {
		v, err := Percentile(sorted, p)
		if err != nil {
			return nil, err
		}
		r.Percentiles = append(r.Percentiles, PercentileValue{P: p, Value: v})
	}
	for _, t := range thresholds {
		r.Thresholds = append(r.Thresholds, ThresholdValue{T: t, Percentage: Exceedance(sorted, t)})
	}

	return r, nil
}

// summarize computes the distribution summary of a sorted, non-empty
// latency sequence.
func summarize(sorted []time.Duration) *LatencySummary {
	n := float64(len(sorted))

	var sum float64
	for _, d := range sorted {
		sum += d.Seconds()
	}
	mean := sum / n

	var sqDiff float64
	for _, d := range sorted {
		diff := d.Seconds() - mean
		sqDiff += diff * diff
	}
	stdDev := math.Sqrt(sqDiff / n)

	min := sorted[0]
	max := sorted[len(sorted)-1]

	return &LatencySummary{
		Avg:       time.Duration(mean * float64(time.Second)),
		Max:       max,
		Min:       min,
		Amplitude: max - min,
		StdDev:    time.Duration(stdDev * float64(time.Second)),
	}
}

// Percentile returns the interpolated p-th percentile of a sorted,
// non-empty latency sequence: the value at rank p/100*(N-1), linearly
// interpolated between adjacent ranks.
func Percentile(sorted []time.Duration, p float64) (time.Duration, error) {
	if p < 0 || p > 100 {
		return 0, &OutOfRangeError{P: p}
	}
	if len(sorted) == 0 {
		return 0, fmt.Errorf("percentile of empty sequence")
	}
	if len(sorted) == 1 {
		return sorted[0], nil
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1], nil
	}
	frac := rank - float64(lo)
	lower := float64(sorted[lo])
	upper := float64(sorted[lo+1])
	return time.Duration(lower + frac*(upper-lower)), nil
}

// Exceedance returns the percentage of latencies greater than or equal
// to t. Returns 0 for an empty sequence; callers distinguish "no data"
// by checking the count themselves (Compute omits the table entirely).
func Exceedance(latencies []time.Duration, t time.Duration) float64 {
	if len(latencies) == 0 {
		return 0
	}
	count := 0
	for _, d := range latencies {
		if d >= t {
			count++
		}
	}
	return 100 * float64(count) / float64(len(latencies))
}

// reportJSON is the wire form of Report. Latency values are seconds;
// null marks "no data".
type reportJSON struct {
	TotalRequests int              `json:"total_requests"`
	TotalErrors   int              `json:"total_errors"`
	AvgLatency    *float64         `json:"avg_latency"`
	MaxLatency    *float64         `json:"max_latency"`
	MinLatency    *float64         `json:"min_latency"`
	Amplitude     *float64         `json:"amplitude_latency"`
	StdDev        *float64         `json:"stddev_latency"`
	Percentiles   []percentileJSON `json:"percentiles"`
	Thresholds    []thresholdJSON  `json:"thresholds"`
}

type percentileJSON struct {
	P     float64 `json:"p"`
	Value float64 `json:"value"`
}

type thresholdJSON struct {
	T          float64 `json:"t"`
	Percentage float64 `json:"percentage"`
}

// MarshalJSON implements json.Marshaler using the boundary schema.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		TotalRequests: r.TotalRequests,
		TotalErrors:   r.TotalErrors,
		Percentiles:   []percentileJSON{},
		Thresholds:    []thresholdJSON{},
	}

	if r.Latency != nil {
		avg := r.Latency.Avg.Seconds()
		max := r.Latency.Max.Seconds()
		min := r.Latency.Min.Seconds()
		amp := r.Latency.Amplitude.Seconds()
		std := r.Latency.StdDev.Seconds()
		out.AvgLatency = &avg
		out.MaxLatency = &max
		out.MinLatency = &min
		out.Amplitude = &amp
		out.StdDev = &std
	}
	for _, pv := range r.Percentiles {
		out.Percentiles = append(out.Percentiles, percentileJSON{P: pv.P, Value: pv.Value.Seconds()})
	}
	for _, tv := range r.Thresholds {
		out.Thresholds = append(out.Thresholds, thresholdJSON{T: tv.T.Seconds(), Percentage: tv.Percentage})
	}

	return json.Marshal(out)
}
