package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// FilePermissions is the default permission mode for regular files (read/write for owner, read for others)
	FilePermissions = 0644
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755
)

// Run modes
const (
	ModeSimple = "simple"
	ModeEngine = "engine"
)

// Defaults applied when neither the environment nor a flag sets a value
const (
	DefaultConfigPath   = "tests/performance/scenarios.json"
	DefaultBaselinePath = "tests/performance/baseline.json"
	DefaultResultsPath  = "test-results/performance/perf-results.json"
	DefaultBaseURL      = "http://localhost:8080"
)

// EnvFiles are loaded, when present, before the environment is parsed
var EnvFiles = []string{".env", ".env.local"}

// Options holds every run option. Flags override these after Load.
type Options struct {
	ConfigPath      string        `env:"PERF_CONFIG" envDefault:"tests/performance/scenarios.json"`
	BaseURL         string        `env:"BASE_URL"`
	RegressionLimit float64       `env:"PERF_REGRESSION_LIMIT" envDefault:"1.5"`
	ErrorBudget     float64       `env:"PERF_ERROR_BUDGET" envDefault:"0.01"`
	UpdateBaseline  bool          `env:"PERF_UPDATE_BASELINE"`
	RequireBaseline bool          `env:"PERF_REQUIRE_BASELINE"`
	SkipServer      bool          `env:"PERF_SKIP_SERVER"`
	ResultsPath     string        `env:"PERF_RESULTS_PATH" envDefault:"test-results/performance/perf-results.json"`
	BaselinePath    string        `env:"PERF_BASELINE_PATH" envDefault:"tests/performance/baseline.json"`
	Mode            string        `env:"PERF_MODE" envDefault:"simple"`
	ServeCommand    string        `env:"PERF_SERVE_CMD"`
	RequestTimeout  time.Duration `env:"PERF_REQUEST_TIMEOUT" envDefault:"30s"`
	HTTP2           bool          `env:"PERF_HTTP2"`
	HistoryDB       string        `env:"PERF_HISTORY_DB"`
	MetricsPath     string        `env:"PERF_METRICS_PATH"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadEnv loads the env files that exist and returns how many were loaded.
// Variables already set in the process environment win.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return 0, fmt.Errorf("failed to load env files: %w", err)
	}
	return len(existing), nil
}

// Load reads envFiles and parses the environment into Options
func Load(envFiles []string) (*Options, error) {
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, err
	}

	opts := &Options{}
	if err := env.Parse(opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return opts, nil
}

// Validate checks option ranges and normalizes the mode
func (o *Options) Validate() error {
	if o.RegressionLimit <= 0 {
		return fmt.Errorf("regression limit must be positive, got %v", o.RegressionLimit)
	}
	if o.ErrorBudget < 0 {
		return fmt.Errorf("error budget must not be negative, got %v", o.ErrorBudget)
	}

	o.Mode = strings.ToLower(strings.TrimSpace(o.Mode))
	if o.Mode == "" {
		o.Mode = ModeSimple
	}
	if o.Mode != ModeSimple && o.Mode != ModeEngine {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeSimple, ModeEngine, o.Mode)
	}

	if o.ResultsPath == "" {
		return fmt.Errorf("results path is required")
	}
	return nil
}

// ServeArgs splits the serve command into program and arguments
func (o *Options) ServeArgs() []string {
	return strings.Fields(o.ServeCommand)
}
