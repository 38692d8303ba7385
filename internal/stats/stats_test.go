package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_NearestRankP95(t *testing.T) {
	durations := make([]float64, 0, 20)
	for i := 20; i >= 1; i-- {
		durations = append(durations, float64(i))
	}

	m := Compute(durations, 0, 1000)

	assert.Equal(t, 20, m.Total)
	assert.Equal(t, 19.0, m.P95Ms)
	assert.Equal(t, 10.5, m.AvgMs)
	assert.Equal(t, 1.0, m.MinMs)
	assert.Equal(t, 20.0, m.MaxMs)
	assert.Equal(t, 20.0, m.RPS)
	assert.Equal(t, 20.0, durations[0], "input must not be reordered")
}

func TestCompute_Empty(t *testing.T) {
	m := Compute(nil, 0, 0)

	assert.Equal(t, Metrics{}, m)
}

func TestCompute_ErrorRate(t *testing.T) {
	durations := make([]float64, 10)
	for i := range durations {
		durations[i] = 5
	}

	m := Compute(durations, 3, 500)

	assert.Equal(t, 0.3, m.ErrorRate)
	assert.Equal(t, 20.0, m.RPS)
}

func TestCompute_ErrorsWithoutSamples(t *testing.T) {
	m := Compute(nil, 4, 100)

	assert.Equal(t, 0.0, m.ErrorRate)
	assert.Equal(t, 0.0, m.RPS)
}

func TestCompute_Rounding(t *testing.T) {
	m := Compute([]float64{1.234, 2.345, 3.4567}, 1, 3000)

	assert.Equal(t, 2.35, m.AvgMs)
	assert.Equal(t, 3.46, m.MaxMs)
	assert.Equal(t, 1.0, m.RPS)
	assert.Equal(t, 0.3333, m.ErrorRate)
}

func TestNearestRank(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		q      float64
		want   float64
	}{
		{"single", []float64{7}, 0.95, 7},
		{"two", []float64{1, 2}, 0.95, 2},
		{"low quantile clamps", []float64{1, 2, 3}, 0, 1},
		{"median", []float64{1, 2, 3, 4}, 0.5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearestRank(tt.sorted, tt.q))
		})
	}
}

func TestSummarize(t *testing.T) {
	durations := make([]float64, 0, 100)
	for i := 1; i <= 100; i++ {
		durations = append(durations, float64(i))
	}

	d := Summarize(durations)

	assert.InDelta(t, 50, d.P50Ms, 0.1)
	assert.InDelta(t, 90, d.P90Ms, 0.1)
	assert.InDelta(t, 99, d.P99Ms, 0.1)
	assert.Greater(t, d.StdDevMs, 0.0)
	assert.Equal(t, Distribution{}, Summarize(nil))
}
