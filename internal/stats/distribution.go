package stats

import (
	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds in microseconds
const (
	histogramMinUs   = 1
	histogramMaxUs   = 3_600_000_000
	histogramSigFigs = 3
)

// Distribution is an informational latency summary; it never feeds a verdict
type Distribution struct {
	P50Ms    float64 `json:"p50Ms"`
	P90Ms    float64 `json:"p90Ms"`
	P99Ms    float64 `json:"p99Ms"`
	StdDevMs float64 `json:"stdDevMs"`
}

// Summarize records durations (ms) into an HDR histogram and reads its quantiles
func Summarize(durations []float64) Distribution {
	if len(durations) == 0 {
		return Distribution{}
	}

	h := hdrhistogram.New(histogramMinUs, histogramMaxUs, histogramSigFigs)
	for _, d := range durations {
		us := int64(d * 1e3)
		if us > histogramMaxUs {
			us = histogramMaxUs
		}
		if us < 0 {
			us = 0
		}
		_ = h.RecordValue(us)
	}

	return Distribution{
		P50Ms:    Round(float64(h.ValueAtQuantile(50))/1e3, 2),
		P90Ms:    Round(float64(h.ValueAtQuantile(90))/1e3, 2),
		P99Ms:    Round(float64(h.ValueAtQuantile(99))/1e3, 2),
		StdDevMs: Round(h.StdDev()/1e3, 2),
	}
}
