package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/perfgate/internal/loadgen"
	"github.com/studiowebux/perfgate/internal/scenario"
)

func intPtr(v int) *int { return &v }

func TestPlan(t *testing.T) {
	scenarios := []scenario.Scenario{
		{Name: "home", Iterations: 20, Concurrency: 4, Warmup: 2},
		{Name: "api", Iterations: 5, Concurrency: 3, Warmup: 0},
		{Name: "big", Iterations: 5, Concurrency: 3, Warmup: 10},
	}

	plan := Plan(scenarios)

	require.Len(t, plan, 5)
	assert.Equal(t, Executor{Name: "home__warmup", Phase: PhaseWarmup, VUs: 2, Iterations: 2, Scenario: scenarios[0]}, plan[0])
	assert.Equal(t, Executor{Name: "home", Phase: PhaseMain, VUs: 4, Iterations: 20, Scenario: scenarios[0]}, plan[1])
	assert.Equal(t, "api", plan[2].Name)
	assert.True(t, plan[2].Measured())
	assert.Equal(t, "big__warmup", plan[3].Name)
	assert.Equal(t, 3, plan[3].VUs)
	assert.False(t, plan[3].Measured())
}

func TestExpression(t *testing.T) {
	assert.Equal(t, `"data"."items"[0]`, expression("data.items.0"))
	assert.Equal(t, `[1]."name"`, expression("1.name"))
	assert.Equal(t, `"build-status"`, expression("build-status"))
	assert.Equal(t, "items[?ok]", expression("items[?ok]"))
}

func TestBatch_SignalChecks(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		switch r.URL.Path {
		case "/api/pipelines":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data": {"items": [{"id": 1}, {"id": 2}], "owner": "ops"}}`))
		case "/api/broken":
			w.Write([]byte(`<html>`))
		case "/api/created":
			w.WriteHeader(http.StatusCreated)
		case "/api/gone":
			w.WriteHeader(http.StatusGone)
		default:
			w.Write([]byte("ok"))
		}
	}))
	defer server.Close()

	s := scenario.Scenario{
		Name:   "dashboard",
		Path:   "/",
		Method: "GET",
		Signals: []scenario.Signal{
			{Name: "pipelines", Path: "/api/pipelines", Method: "GET", Status: 200,
				JSONPaths: []string{"data.items", "data.owner", "data.missing"}, ArrayMin: intPtr(3)},
			{Name: "broken", Path: "/api/broken", Method: "GET", Status: 200, JSONPaths: []string{"x"}},
			{Name: "gone", Path: "/api/gone", Method: "GET", Status: 410},
		},
		IncludeSignalsInMetrics: true,
	}

	checks := NewChecks()
	batch := NewBatch(loadgen.NewHTTPRequester(nil), server.URL, s, checks)

	samples := batch.Issue(context.Background(), 0)
	samples = append(samples, batch.Issue(context.Background(), 1)...)

	assert.Len(t, samples, 8)
	assert.Equal(t, int64(8), atomic.LoadInt64(&hits))

	tallies := checks.Snapshot()
	assert.Equal(t, CheckTally{Passes: 2}, tallies["main: status ok"])
	assert.Equal(t, CheckTally{Passes: 2}, tallies["pipelines: status ok"])
	assert.Equal(t, CheckTally{Passes: 2}, tallies["pipelines: json parsed"])
	assert.Equal(t, CheckTally{Fails: 2}, tallies["pipelines: json data.items"])
	assert.Equal(t, CheckTally{Passes: 2}, tallies["pipelines: json data.owner"])
	assert.Equal(t, CheckTally{Fails: 2}, tallies["pipelines: json data.missing"])
	assert.Equal(t, CheckTally{Fails: 2}, tallies["broken: json parsed"])
	assert.Equal(t, CheckTally{Passes: 2}, tallies["gone: status ok"])

	assert.Equal(t, []string{
		"broken: json parsed",
		"pipelines: json data.items",
		"pipelines: json data.missing",
	}, checks.Failed())

	errors := 0
	for _, sample := range samples {
		if !sample.OK {
			errors++
		}
	}
	assert.Equal(t, 2, errors, "the 410 signal still counts as an error sample")
}

func TestBatch_SignalsExcludedFromMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/signal" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := scenario.Scenario{
		Name:    "home",
		Path:    "/",
		Method:  "GET",
		Signals: []scenario.Signal{{Name: "signal", Path: "/signal", Method: "GET", Status: 200}},
	}

	samples := NewBatch(loadgen.NewHTTPRequester(nil), server.URL, s, nil).Issue(context.Background(), 0)

	require.Len(t, samples, 1)
	assert.True(t, samples[0].OK)
}

func TestBatch_RunsUnderGenerator(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer server.Close()

	s := scenario.Scenario{
		Name:                    "home",
		Path:                    "/",
		Method:                  "GET",
		Signals:                 []scenario.Signal{{Name: "a", Path: "/a", Method: "GET"}},
		IncludeSignalsInMetrics: true,
	}
	checks := NewChecks()

	result := (&loadgen.Generator{}).Run(context.Background(), NewBatch(loadgen.NewHTTPRequester(nil), server.URL, s, checks), 6, 2, true)

	assert.Equal(t, int64(12), atomic.LoadInt64(&hits))
	assert.Len(t, result.Durations, 12)
	assert.Equal(t, 6, result.Completed)
	assert.Equal(t, CheckTally{Passes: 6}, checks.Snapshot()["a: status ok"])
}

func TestChecks_Nil(t *testing.T) {
	var c *Checks
	c.Record("x", true)
	assert.Nil(t, c.Snapshot())
	assert.Empty(t, c.Failed())
}
