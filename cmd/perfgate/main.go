package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/studiowebux/perfgate/internal/config"
	"github.com/studiowebux/perfgate/internal/history"
	"github.com/studiowebux/perfgate/internal/loadgen"
	"github.com/studiowebux/perfgate/internal/logging"
	"github.com/studiowebux/perfgate/internal/report"
	"github.com/studiowebux/perfgate/internal/runner"
	"github.com/studiowebux/perfgate/internal/scenario"
	"github.com/studiowebux/perfgate/internal/serve"
)

var (
	version = "0.1.0"
)

// options is loaded from env files and the environment before any command runs
var options *config.Options

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		// failures were already printed per scenario
		if !errors.Is(err, runner.ErrRegression) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "perfgate",
	Short: "perfgate - performance regression gate for web apps",
	Long: `perfgate drives fixed-count HTTP load against a set of scenarios, compares the
results with a stored baseline and exits non-zero on regressions.

Options come from .env, .env.local and the environment (PERF_*, BASE_URL,
LOG_LEVEL, LOG_FORMAT). Flags override them.

Examples:
  perfgate run                                  # Run tests/performance/scenarios.json
  perfgate run scenarios.yaml --mode engine     # Batch signals with every request
  perfgate run --update-baseline                # Record a new baseline
  perfgate serve --dir ui --port 8080           # Serve the built UI locally
  perfgate history                              # List recorded runs
  perfgate history delete <run-id>              # Drop a recorded run
  perfgate validate scenarios.json              # Print the expanded scenarios`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		opts, err := config.Load(config.EnvFiles)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd.Flags(), opts); err != nil {
			return err
		}
		options = opts
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run [scenarios-file]",
	Short: "Run the performance scenarios and compare them with the baseline",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPerf(cmd.Context(), args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a static directory (and optional canned routes) for local runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory(args)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the scenarios of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory(args)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistoryDelete(args[0])
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [scenarios-file]",
	Short: "Load a scenarios file and print the expanded scenarios",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(args)
	},
}

// Flags for serve
var (
	serveDir    string
	servePort   int
	serveHost   string
	serveRoutes string
)

// Flags for history
var (
	historyLimit int
)

func init() {
	registerLogFlags(rootCmd.PersistentFlags())
	registerRunFlags(runCmd.Flags())
	registerHistoryFlags(historyCmd.PersistentFlags())

	serveCmd.Flags().StringVarP(&serveDir, "dir", "d", "ui", "Static directory to serve")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "First port to try")
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Bind host")
	serveCmd.Flags().StringVar(&serveRoutes, "routes", "", "YAML/JSON file with canned routes")

	historyCmd.PersistentFlags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(validateCmd)
}

func newLogger() *logrus.Logger {
	return logging.New(logging.Options{
		Level:  options.LogLevel,
		Format: options.LogFormat,
		Output: os.Stderr,
	})
}

// runPerf executes the scenarios and prints the summary
func runPerf(ctx context.Context, args []string) error {
	if err := options.Validate(); err != nil {
		return err
	}
	log := newLogger()

	configPath := options.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}
	cfg, err := scenario.Load(configPath)
	if err != nil {
		return err
	}

	client, err := loadgen.NewHTTPClient(loadgen.ClientOptions{
		Timeout: options.RequestTimeout,
		HTTP2:   options.HTTP2,
	})
	if err != nil {
		return err
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}

	serveArgs, err := serveCommand(baseURL)
	if err != nil {
		return err
	}
	runOpts := []runner.Option{
		runner.WithLauncher(runner.CommandLauncher(serveArgs, os.Stdout, os.Stderr)),
	}

	if options.HistoryDB != "" {
		store, err := history.Open(options.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		runOpts = append(runOpts, runner.WithHistory(store))
	}

	r := runner.New(runner.Options{
		BaseURL:         baseURL,
		RegressionLimit: options.RegressionLimit,
		ErrorBudget:     options.ErrorBudget,
		UpdateBaseline:  options.UpdateBaseline,
		RequireBaseline: options.RequireBaseline,
		SkipServer:      options.SkipServer,
		ResultsPath:     options.ResultsPath,
		BaselinePath:    options.BaselinePath,
		MetricsPath:     options.MetricsPath,
		Mode:            options.Mode,
	}, loadgen.NewHTTPRequester(client), log, runOpts...)

	results, runErr := r.Run(ctx, cfg)
	if results != nil {
		if err := report.WriteSummary(os.Stdout, results); err != nil {
			return err
		}
		if err := report.WriteChecks(os.Stdout, results); err != nil {
			return err
		}
		if !options.UpdateBaseline {
			report.WriteFailures(os.Stderr, results)
		}
	}
	return runErr
}

// serveCommand returns PERF_SERVE_CMD, or this binary's serve subcommand bound
// to the base URL's host and port
func serveCommand(baseURL string) ([]string, error) {
	if args := options.ServeArgs(); len(args) > 0 {
		return args, nil
	}

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate perfgate binary: %w", err)
	}
	return []string{self, "serve", "--host", hostOf(baseURL), "--port", portOf(baseURL)}, nil
}

func hostOf(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Hostname() == "" {
		return "127.0.0.1"
	}
	return parsed.Hostname()
}

func portOf(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "8080"
	}
	if port := parsed.Port(); port != "" {
		return port
	}
	if parsed.Scheme == "https" {
		return "443"
	}
	return "80"
}

// runServe serves until the context is cancelled
func runServe(ctx context.Context) error {
	log := newLogger()

	cfg := &serve.Config{
		Port:    servePort,
		Host:    serveHost,
		Dir:     serveDir,
		Logging: true,
	}
	if serveRoutes != "" {
		routes, err := serve.LoadRoutes(serveRoutes)
		if err != nil {
			return err
		}
		cfg.Routes = routes
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	srv, err := serve.NewServer(cfg, wd, log)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"address": srv.Address(),
		"dir":     serveDir,
		"routes":  len(cfg.Routes),
	}).Info("serving")
	if srv.Port() != servePort {
		log.WithField("port", net.JoinHostPort(serveHost, strconv.Itoa(servePort))).Warn("requested port busy")
	}

	<-ctx.Done()
	if err := srv.Stop(); err != nil {
		return err
	}

	served := logrus.Fields{}
	for rule, n := range srv.RuleCounts() {
		served[rule] = n
	}
	log.WithFields(served).Info("served requests")
	return nil
}

func openHistory() (*history.Store, error) {
	if options.HistoryDB == "" {
		return nil, errors.New("no history database configured (set PERF_HISTORY_DB or --db)")
	}
	return history.Open(options.HistoryDB)
}

// runHistory lists runs, or shows one when a run id is given
func runHistory(args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 0 {
		runs, err := store.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		return report.WriteRuns(os.Stdout, runs)
	}

	run, err := store.GetRun(args[0])
	if err != nil {
		return err
	}
	rows, err := store.GetScenarioResults(run.ID)
	if err != nil {
		return err
	}
	return report.WriteRunDetail(os.Stdout, run, rows)
}

// runHistoryDelete removes a run and its scenario rows
func runHistoryDelete(id string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteRun(id); err != nil {
		return err
	}
	fmt.Printf("Deleted run %s\n", id)
	return nil
}

// runValidate loads a scenarios file without issuing load
func runValidate(args []string) error {
	configPath := options.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	cfg, err := scenario.Load(configPath)
	if err != nil {
		return err
	}
	if err := report.WriteScenarios(os.Stdout, cfg); err != nil {
		return err
	}
	fmt.Printf("\n%s: %d scenarios\n", configPath, len(cfg.Scenarios))
	return nil
}
