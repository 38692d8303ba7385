package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DefaultsChain(t *testing.T) {
	doc := `{
		"defaults": {"iterations": 10, "method": "post"},
		"scenarios": [
			{"name": "home", "path": "/"},
			{"name": "api", "path": "/api", "iterations": 0, "concurrency": -3, "warmup": -1, "method": "put"}
		]
	}`

	cfg, err := Parse([]byte(doc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, cfg.Scenarios, 2)

	home := cfg.Scenarios[0]
	assert.Equal(t, 10, home.Iterations)
	assert.Equal(t, DefaultConcurrency, home.Concurrency)
	assert.Equal(t, DefaultWarmup, home.Warmup)
	assert.Equal(t, "POST", home.Method)

	api := cfg.Scenarios[1]
	assert.Equal(t, 1, api.Iterations)
	assert.Equal(t, 1, api.Concurrency)
	assert.Equal(t, 0, api.Warmup)
	assert.Equal(t, "PUT", api.Method)

	assert.Equal(t, Defaults{Iterations: 10, Concurrency: 4, Warmup: 4, Method: "POST"}, cfg.Defaults)
}

func TestParse_Variants(t *testing.T) {
	doc := `{
		"signals": ["/health"],
		"scenarios": [{
			"name": "checkout",
			"path": "/checkout",
			"iterations": 5,
			"signals": [{"url": "/cart", "jsonPaths": ["items"]}],
			"variants": [
				{"iterations": 7},
				{"path": "/checkout?fast=1", "signals": ["/fast"]},
				{"name": "mobile", "headers": {"User-Agent": "mobile"}}
			]
		}]
	}`

	cfg, err := Parse([]byte(doc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, cfg.Scenarios, 3)

	first, second, third := cfg.Scenarios[0], cfg.Scenarios[1], cfg.Scenarios[2]
	assert.Equal(t, "checkout-1", first.Name)
	assert.Equal(t, 7, first.Iterations)
	assert.Equal(t, "/checkout", first.Path)

	assert.Equal(t, "checkout-2", second.Name)
	assert.Equal(t, 5, second.Iterations)
	assert.Equal(t, "/checkout?fast=1", second.Path)

	assert.Equal(t, "checkout-mobile", third.Name)
	assert.Equal(t, map[string]string{"User-Agent": "mobile"}, third.Headers)

	require.Len(t, second.Signals, 3)
	assert.Equal(t, "/health", second.Signals[0].Path)
	assert.Equal(t, "/cart", second.Signals[1].Path)
	assert.Equal(t, "/cart", second.Signals[1].Name)
	assert.Equal(t, []string{"items"}, second.Signals[1].JSONPaths)
	assert.Equal(t, "/fast", second.Signals[2].Path)
	assert.Len(t, first.Signals, 2)
	assert.True(t, first.IncludeSignalsInMetrics)
}

func TestParse_SkipsIncompleteEntries(t *testing.T) {
	doc := `{"scenarios": [{"name": "no-path"}, {"path": "/no-name"}, {"name": "ok", "path": "/"}]}`

	cfg, err := Parse([]byte(doc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, cfg.Scenarios, 1)
	assert.Equal(t, "ok", cfg.Scenarios[0].Name)
}

func TestParse_NoScenarios(t *testing.T) {
	inputs := []string{
		`{"scenarios": []}`,
		`{}`,
		`{"scenarios": [{"name": "x"}]}`,
	}

	for _, input := range inputs {
		_, err := Parse([]byte(input), FormatJSON)
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr), input)
		assert.True(t, errors.Is(err, ErrNoScenarios), input)
	}
}

func TestParse_SchemaRejection(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"iterations string", `{"scenarios": [{"name": "a", "path": "/", "iterations": "many"}]}`},
		{"fractional concurrency", `{"scenarios": [{"name": "a", "path": "/", "concurrency": 2.5}]}`},
		{"scenarios object", `{"scenarios": {"name": "a"}}`},
		{"header number", `{"scenarios": [{"name": "a", "path": "/", "headers": {"X-Id": 1}}]}`},
		{"signal number", `{"scenarios": [{"name": "a", "path": "/", "signals": [42]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatJSON)
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.NotEmpty(t, cfgErr.Problems)
		})
	}
}

func TestParse_DuplicateNames(t *testing.T) {
	doc := `{"scenarios": [
		{"name": "home", "path": "/"},
		{"name": "home", "path": "/index.html"}
	]}`

	_, err := Parse([]byte(doc), FormatJSON)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), `duplicate scenario name "home"`)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"scenarios": [`), FormatJSON)
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestParse_FormatParity(t *testing.T) {
	jsonDoc := `{
		// shared defaults
		"defaults": {"iterations": 8, "sleep": 0.5},
		"scenarios": [
			{"name": "home", "path": "/", "payloads": [{"body": {"a": 1}}], "rateLimit": 50}, /* trailing */
		]
	}`
	yamlDoc := `
defaults:
  iterations: 8
  sleep: 0.5
scenarios:
  - name: home
    path: /
    rateLimit: 50
    payloads:
      - body:
          a: 1
`

	fromJSON, err := Parse([]byte(jsonDoc), FormatJSON)
	require.NoError(t, err)
	fromYAML, err := Parse([]byte(yamlDoc), FormatYAML)
	require.NoError(t, err)

	require.Len(t, fromYAML.Scenarios, 1)
	assert.Equal(t, fromJSON.Defaults, fromYAML.Defaults)
	a, b := fromJSON.Scenarios[0], fromYAML.Scenarios[0]
	assert.Equal(t, a.Iterations, b.Iterations)
	assert.Equal(t, 0.5, b.Sleep)
	assert.Equal(t, 50.0, b.RateLimit)
	require.Len(t, b.Payloads, 1)
	assert.JSONEq(t, string(a.Payloads[0]), string(b.Payloads[0]))
}

func TestParse_SignalExpect(t *testing.T) {
	doc := `{"scenarios": [{
		"name": "dash", "path": "/",
		"includeSignalsInMetrics": false,
		"signals": [
			{"name": "pipelines", "path": "/api/pipelines", "method": "post",
			 "expect": {"status": 201, "jsonPaths": ["data.items"], "arrayMin": 2}},
			{"name": "nopath"}
		]
	}]}`

	cfg, err := Parse([]byte(doc), FormatJSON)
	require.NoError(t, err)

	s := cfg.Scenarios[0]
	assert.False(t, s.IncludeSignalsInMetrics)
	require.Len(t, s.Signals, 1)
	sig := s.Signals[0]
	assert.Equal(t, "POST", sig.Method)
	assert.Equal(t, 201, sig.Status)
	assert.Equal(t, []string{"data.items"}, sig.JSONPaths)
	require.NotNil(t, sig.ArrayMin)
	assert.Equal(t, 2, *sig.ArrayMin)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenarios.yml")
	require.NoError(t, os.WriteFile(path, []byte("baseUrl: http://127.0.0.1:9999\nscenarios:\n  - name: home\n    path: /\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.BaseURL)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"scenarios": 1}`), 0644))
	_, err = Load(broken)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, broken, cfgErr.Path)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestWarmupWorkers(t *testing.T) {
	assert.Equal(t, 2, Scenario{Concurrency: 4, Warmup: 2}.WarmupWorkers())
	assert.Equal(t, 4, Scenario{Concurrency: 4, Warmup: 10}.WarmupWorkers())
	assert.Equal(t, 1, Scenario{Concurrency: 4, Warmup: 0}.WarmupWorkers())
}
