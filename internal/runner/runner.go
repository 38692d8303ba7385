// Package runner orchestrates a harness run: server bootstrap, warmup and
// measured load per scenario, baseline comparison and persistence.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/studiowebux/perfgate/internal/baseline"
	"github.com/studiowebux/perfgate/internal/config"
	"github.com/studiowebux/perfgate/internal/engine"
	"github.com/studiowebux/perfgate/internal/history"
	"github.com/studiowebux/perfgate/internal/loadgen"
	"github.com/studiowebux/perfgate/internal/scenario"
	"github.com/studiowebux/perfgate/internal/stats"
	"github.com/studiowebux/perfgate/internal/telemetry"
)

// ErrRegression is returned when at least one scenario failed and the baseline
// is not being updated
var ErrRegression = errors.New("performance regression detected")

// Options controls a run
type Options struct {
	BaseURL         string
	RegressionLimit float64
	ErrorBudget     float64
	UpdateBaseline  bool
	RequireBaseline bool
	SkipServer      bool
	ResultsPath     string
	BaselinePath    string
	MetricsPath     string
	Mode            string
	ProbeAttempts   int
	ProbeInterval   time.Duration
}

// Runner executes scenario configs
type Runner struct {
	opts      Options
	requester loadgen.Requester
	launch    LaunchFunc
	history   *history.Store
	log       *logrus.Logger
	now       func() time.Time
}

// Option customizes a Runner
type Option func(*Runner)

// WithLauncher sets how the local server is started when the target is down
func WithLauncher(launch LaunchFunc) Option {
	return func(r *Runner) { r.launch = launch }
}

// WithHistory records every run in store
func WithHistory(store *history.Store) Option {
	return func(r *Runner) { r.history = store }
}

// WithClock overrides the wall clock used for timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a runner issuing requests through requester
func New(opts Options, requester loadgen.Requester, log *logrus.Logger, options ...Option) *Runner {
	if opts.ProbeAttempts <= 0 {
		opts.ProbeAttempts = DefaultProbeAttempts
	}
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = DefaultProbeInterval
	}
	if opts.Mode == "" {
		opts.Mode = config.ModeSimple
	}

	r := &Runner{
		opts:      opts,
		requester: requester,
		log:       log,
		now:       time.Now,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Run holds everything owned by one harness invocation
type Run struct {
	ID           string
	BaseURL      string
	Baseline     *baseline.Baseline
	BaselinePath string
	Recorder     *telemetry.Recorder
	Results      *Results
}

// Run executes every scenario of cfg and persists the results. The returned
// error is ErrRegression when a verdict failed outside baseline-update mode;
// results are returned alongside it.
func (r *Runner) Run(ctx context.Context, cfg *scenario.Config) (*Results, error) {
	if cfg == nil || len(cfg.Scenarios) == 0 {
		return nil, &scenario.ConfigError{Err: scenario.ErrNoScenarios}
	}

	run := r.newRun(cfg)
	log := r.log.WithField("run", run.ID)
	if run.Baseline != nil {
		log.WithField("path", run.BaselinePath).Debug("baseline loaded")
	} else {
		log.Debug("no baseline found")
	}

	stop, err := r.ensureServer(ctx, run.BaseURL, cfg.Scenarios[0].URL(run.BaseURL))
	if err != nil {
		return nil, err
	}
	defer stop()

	if err := r.execute(ctx, run, cfg.Scenarios); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run interrupted: %w", err)
	}
	run.Results.FinishedAt = r.now().UTC()

	if err := WriteResults(r.opts.ResultsPath, run.Results); err != nil {
		return run.Results, err
	}
	log.WithField("path", r.opts.ResultsPath).Info("results written")

	if r.opts.UpdateBaseline {
		updated := baseline.New(run.BaseURL, r.now(), run.Results.Metrics())
		if err := baseline.Write(r.opts.BaselinePath, updated); err != nil {
			return run.Results, err
		}
		log.WithField("path", r.opts.BaselinePath).Info("baseline updated")
	}

	if r.opts.MetricsPath != "" {
		if err := run.Recorder.WriteTextfile(r.opts.MetricsPath); err != nil {
			log.WithError(err).Warn("failed to write metrics textfile")
		}
	}

	r.record(run)

	if !r.opts.UpdateBaseline && len(run.Results.Failed()) > 0 {
		return run.Results, ErrRegression
	}
	return run.Results, nil
}

func (r *Runner) newRun(cfg *scenario.Config) *Run {
	baseURL := r.opts.BaseURL
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}

	base, path := baseline.Resolve(r.opts.BaselinePath, cfg.Dir)
	id := uuid.NewString()

	return &Run{
		ID:           id,
		BaseURL:      baseURL,
		Baseline:     base,
		BaselinePath: path,
		Recorder:     telemetry.NewRecorder(),
		Results: &Results{
			BaseURL:   baseURL,
			RunID:     id,
			StartedAt: r.now().UTC(),
			Config: ConfigSnapshot{
				Defaults:        cfg.Defaults,
				RegressionLimit: r.opts.RegressionLimit,
				ErrorBudget:     r.opts.ErrorBudget,
				Mode:            r.opts.Mode,
			},
			Scenarios: make([]ScenarioResult, 0, len(cfg.Scenarios)),
		},
	}
}

// execute walks the executor plan: warmups are discarded, main phases are
// measured, aggregated and compared.
func (r *Runner) execute(ctx context.Context, run *Run, scenarios []scenario.Scenario) error {
	policy := baseline.Policy{
		RegressionLimit: r.opts.RegressionLimit,
		ErrorBudget:     r.opts.ErrorBudget,
		RequireBaseline: r.opts.RequireBaseline,
	}

	for _, ex := range engine.Plan(scenarios) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted: %w", err)
		}

		sc := ex.Scenario
		log := r.log.WithFields(logrus.Fields{"scenario": sc.Name, "phase": ex.Phase})

		var checks *engine.Checks
		if ex.Measured() && r.opts.Mode == config.ModeEngine {
			checks = engine.NewChecks()
		}

		var failed int64
		observe := run.Recorder.Observer(sc.Name, string(ex.Phase), ex.Measured())
		gen := newGenerator(sc, func(s loadgen.Sample) {
			observe(s)
			if !s.OK {
				atomic.AddInt64(&failed, 1)
			}
		})
		target := r.target(run, sc, checks)

		if !ex.Measured() {
			gen.Run(ctx, target, ex.Iterations, ex.VUs, false)
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("run interrupted: %w", err)
			}
			log.WithField("errors", atomic.LoadInt64(&failed)).Debug("warmup done")
			continue
		}

		start := time.Now()
		result := gen.Run(ctx, target, ex.Iterations, ex.VUs, true)
		elapsed := float64(time.Since(start)) / float64(time.Millisecond)

		// a cancelled batch holds fewer than the configured iterations
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted during %s: %w", sc.Name, err)
		}

		metrics := stats.Compute(result.Durations, result.ErrorCount, elapsed)
		entry := run.Baseline.Lookup(sc.Name)
		verdict := baseline.Compare(metrics, entry, policy)

		run.Results.Scenarios = append(run.Results.Scenarios, ScenarioResult{
			Name:         sc.Name,
			Path:         sc.Path,
			Method:       sc.Method,
			Iterations:   sc.Iterations,
			Concurrency:  sc.Concurrency,
			Warmup:       sc.Warmup,
			Metrics:      metrics,
			Distribution: stats.Summarize(result.Durations),
			Checks:       checks.Snapshot(),
			Baseline:     entry,
			Thresholds:   verdict.Thresholds,
			Status:       verdict.Status,
			Failures:     verdict.Failures,
		})

		log.WithFields(logrus.Fields{
			"avgMs":     metrics.AvgMs,
			"p95Ms":     metrics.P95Ms,
			"rps":       metrics.RPS,
			"errorRate": metrics.ErrorRate,
			"status":    verdict.Status,
		}).Info("scenario measured")
		if failedChecks := checks.Failed(); len(failedChecks) > 0 {
			log.WithField("checks", failedChecks).Warn("checks failed")
		}
	}
	return nil
}

// newGenerator applies the scenario's per-iteration sleep and rate limit
func newGenerator(sc scenario.Scenario, observe func(loadgen.Sample)) *loadgen.Generator {
	gen := &loadgen.Generator{
		Pause:   time.Duration(sc.Sleep * float64(time.Second)),
		Observe: observe,
	}
	if sc.RateLimit > 0 {
		gen.Limiter = rate.NewLimiter(rate.Limit(sc.RateLimit), 1)
	}
	return gen
}

func (r *Runner) target(run *Run, sc scenario.Scenario, checks *engine.Checks) loadgen.Target {
	if r.opts.Mode == config.ModeEngine {
		return engine.NewBatch(r.requester, run.BaseURL, sc, checks)
	}
	return loadgen.Single{
		Requester: r.requester,
		Build: func(iteration int) *loadgen.Request {
			return sc.MainRequest(run.BaseURL, iteration)
		},
	}
}

// record stores the run in the history database when one is configured
func (r *Runner) record(run *Run) {
	if r.history == nil {
		return
	}

	results := run.Results
	failed := len(results.Failed())
	status := string(baseline.StatusPass)
	if failed > 0 {
		status = string(baseline.StatusFail)
	}
	finished := results.FinishedAt

	rows := make([]history.ScenarioResult, 0, len(results.Scenarios))
	for _, s := range results.Scenarios {
		checkFailures := 0
		for _, tally := range s.Checks {
			checkFailures += tally.Fails
		}
		rows = append(rows, history.ScenarioResult{
			Name:          s.Name,
			Method:        s.Method,
			Path:          s.Path,
			Iterations:    s.Iterations,
			Concurrency:   s.Concurrency,
			Total:         s.Metrics.Total,
			AvgMs:         s.Metrics.AvgMs,
			P95Ms:         s.Metrics.P95Ms,
			P99Ms:         s.Distribution.P99Ms,
			MinMs:         s.Metrics.MinMs,
			MaxMs:         s.Metrics.MaxMs,
			RPS:           s.Metrics.RPS,
			ErrorRate:     s.Metrics.ErrorRate,
			ElapsedMs:     s.Metrics.ElapsedMs,
			Status:        string(s.Status),
			Failures:      s.Failures,
			CheckFailures: checkFailures,
		})
	}

	err := r.history.SaveRun(&history.Run{
		ID:              results.RunID,
		BaseURL:         results.BaseURL,
		Mode:            results.Config.Mode,
		StartedAt:       results.StartedAt,
		FinishedAt:      &finished,
		Status:          status,
		ScenarioCount:   len(results.Scenarios),
		FailedCount:     failed,
		UpdateBaseline:  r.opts.UpdateBaseline,
		RegressionLimit: results.Config.RegressionLimit,
		ErrorBudget:     results.Config.ErrorBudget,
	}, rows)
	if err != nil {
		r.log.WithError(err).Warn("failed to record run history")
	}
}
