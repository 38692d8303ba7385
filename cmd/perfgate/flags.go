package main

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/studiowebux/perfgate/internal/config"
)

func registerLogFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "info", "Log level (debug/info/warn/error)")
	fs.String("log-format", "text", "Log format (text/json)")
	fs.StringP("config", "c", config.DefaultConfigPath, "Scenarios file (JSON, JSONC or YAML)")
}

func registerRunFlags(fs *pflag.FlagSet) {
	fs.String("base-url", "", "Target base URL (default from scenarios file or "+config.DefaultBaseURL+")")
	fs.Float64("regression-limit", 1.5, "Allowed slowdown factor against the baseline")
	fs.Float64("error-budget", 0.01, "Allowed error rate increase against the baseline")
	fs.Bool("update-baseline", false, "Write the fresh metrics as the new baseline")
	fs.Bool("require-baseline", false, "Fail scenarios without a baseline entry")
	fs.Bool("skip-server", false, "Never start a local server")
	fs.String("results", config.DefaultResultsPath, "Results file")
	fs.String("baseline", config.DefaultBaselinePath, "Baseline file")
	fs.String("mode", config.ModeSimple, "Load mode (simple/engine)")
	fs.String("serve-cmd", "", "Command starting the local server")
	fs.Duration("timeout", 30*time.Second, "Per-request timeout")
	fs.Bool("http2", false, "Negotiate HTTP/2 over TLS")
	fs.String("history-db", "", "SQLite file recording every run")
	fs.String("metrics", "", "Prometheus textfile written after the run")
}

func registerHistoryFlags(fs *pflag.FlagSet) {
	fs.String("db", "", "SQLite history file (default PERF_HISTORY_DB)")
}

// applyFlags copies explicitly set flags over the environment options
func applyFlags(fs *pflag.FlagSet, opts *config.Options) error {
	stringFlags := map[string]*string{
		"config":     &opts.ConfigPath,
		"log-level":  &opts.LogLevel,
		"log-format": &opts.LogFormat,
		"base-url":   &opts.BaseURL,
		"results":    &opts.ResultsPath,
		"baseline":   &opts.BaselinePath,
		"mode":       &opts.Mode,
		"serve-cmd":  &opts.ServeCommand,
		"history-db": &opts.HistoryDB,
		"db":         &opts.HistoryDB,
		"metrics":    &opts.MetricsPath,
	}
	for name, dst := range stringFlags {
		if !changed(fs, name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	floats := map[string]*float64{
		"regression-limit": &opts.RegressionLimit,
		"error-budget":     &opts.ErrorBudget,
	}
	for name, dst := range floats {
		if !changed(fs, name) {
			continue
		}
		v, err := fs.GetFloat64(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	bools := map[string]*bool{
		"update-baseline":  &opts.UpdateBaseline,
		"require-baseline": &opts.RequireBaseline,
		"skip-server":      &opts.SkipServer,
		"http2":            &opts.HTTP2,
	}
	for name, dst := range bools {
		if !changed(fs, name) {
			continue
		}
		v, err := fs.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if changed(fs, "timeout") {
		v, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		opts.RequestTimeout = v
	}
	return nil
}

func changed(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed
}
