// Package stats reduces load samples into per-scenario metrics.
package stats

import (
	"math"
	"sort"
)

// Metrics summarizes one measured scenario run.
// Timing and rate fields are rounded to 2 digits, ErrorRate to 4.
type Metrics struct {
	Total     int     `json:"total"`
	AvgMs     float64 `json:"avgMs"`
	P95Ms     float64 `json:"p95Ms"`
	MinMs     float64 `json:"minMs"`
	MaxMs     float64 `json:"maxMs"`
	RPS       float64 `json:"rps"`
	ErrorRate float64 `json:"errorRate"`
	ElapsedMs float64 `json:"elapsedMs"`
}

// Compute aggregates durations (ms) and an error count over elapsedMs of wall time.
// durations is not modified.
func Compute(durations []float64, errorCount int, elapsedMs float64) Metrics {
	total := len(durations)

	sorted := make([]float64, total)
	copy(sorted, durations)
	sort.Float64s(sorted)

	var sum float64
	for _, d := range sorted {
		sum += d
	}

	var avg, minMs, maxMs float64
	if total > 0 {
		avg = sum / float64(total)
		minMs = sorted[0]
		maxMs = sorted[total-1]
	}

	var rps float64
	if elapsedMs > 0 {
		rps = float64(total) / (elapsedMs / 1000)
	}

	var errorRate float64
	if total > 0 {
		errorRate = float64(errorCount) / float64(total)
	}

	return Metrics{
		Total:     total,
		AvgMs:     Round(avg, 2),
		P95Ms:     Round(NearestRank(sorted, 0.95), 2),
		MinMs:     Round(minMs, 2),
		MaxMs:     Round(maxMs, 2),
		RPS:       Round(rps, 2),
		ErrorRate: Round(errorRate, 4),
		ElapsedMs: Round(elapsedMs, 2),
	}
}

// NearestRank returns the q-quantile (0..1) of an ascending slice, or 0 when empty
func NearestRank(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	index := int(math.Ceil(q*float64(n))) - 1
	if index < 0 {
		index = 0
	}
	if index > n-1 {
		index = n - 1
	}
	return sorted[index]
}

// Round rounds v to the given number of decimal digits
func Round(v float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(v*pow) / pow
}
