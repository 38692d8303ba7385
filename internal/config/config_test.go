package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	opts, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultConfigPath, opts.ConfigPath)
	assert.Equal(t, DefaultBaselinePath, opts.BaselinePath)
	assert.Equal(t, DefaultResultsPath, opts.ResultsPath)
	assert.Equal(t, 1.5, opts.RegressionLimit)
	assert.Equal(t, 0.01, opts.ErrorBudget)
	assert.Equal(t, ModeSimple, opts.Mode)
	assert.Equal(t, 30*time.Second, opts.RequestTimeout)
	assert.False(t, opts.UpdateBaseline)
	assert.NoError(t, opts.Validate())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PERF_REGRESSION_LIMIT", "2")
	t.Setenv("PERF_ERROR_BUDGET", "0.05")
	t.Setenv("PERF_UPDATE_BASELINE", "1")
	t.Setenv("PERF_SKIP_SERVER", "true")
	t.Setenv("PERF_MODE", "Engine")
	t.Setenv("BASE_URL", "http://127.0.0.1:9000")

	opts, err := Load(nil)
	require.NoError(t, err)
	require.NoError(t, opts.Validate())

	assert.Equal(t, 2.0, opts.RegressionLimit)
	assert.Equal(t, 0.05, opts.ErrorBudget)
	assert.True(t, opts.UpdateBaseline)
	assert.True(t, opts.SkipServer)
	assert.Equal(t, ModeEngine, opts.Mode)
	assert.Equal(t, "http://127.0.0.1:9000", opts.BaseURL)
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("PERF_REGRESSION_LIMIT", "fast")

	_, err := Load(nil)
	assert.Error(t, err)
}

func TestLoadEnv_Files(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PERF_HISTORY_DB=perf.db\n"), FilePermissions))
	t.Setenv("PERF_HISTORY_DB", "")
	os.Unsetenv("PERF_HISTORY_DB")

	n, err := LoadEnv([]string{envFile, filepath.Join(dir, ".env.local")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "perf.db", os.Getenv("PERF_HISTORY_DB"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"defaults", func(*Options) {}, false},
		{"zero limit", func(o *Options) { o.RegressionLimit = 0 }, true},
		{"negative budget", func(o *Options) { o.ErrorBudget = -0.1 }, true},
		{"unknown mode", func(o *Options) { o.Mode = "k6" }, true},
		{"empty mode", func(o *Options) { o.Mode = "" }, false},
		{"no results path", func(o *Options) { o.ResultsPath = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &Options{
				RegressionLimit: 1.5,
				ErrorBudget:     0.01,
				Mode:            ModeSimple,
				ResultsPath:     DefaultResultsPath,
			}
			tt.mutate(opts)
			err := opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServeArgs(t *testing.T) {
	opts := &Options{ServeCommand: "npm run  serve"}
	assert.Equal(t, []string{"npm", "run", "serve"}, opts.ServeArgs())
	assert.Empty(t, (&Options{}).ServeArgs())
}
