// Package report renders run results, stored history and scenario listings
// as terminal tables.
package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/studiowebux/perfgate/internal/baseline"
	"github.com/studiowebux/perfgate/internal/history"
	"github.com/studiowebux/perfgate/internal/runner"
	"github.com/studiowebux/perfgate/internal/scenario"
)

// SummaryTitle heads the results table
const SummaryTitle = "Performance results"

// Status colors. The status column is always last so escape codes never
// shift tabwriter alignment.
const (
	colorPass = lipgloss.Color("42")
	colorFail = lipgloss.Color("196")
	colorSkip = lipgloss.Color("214")
)

type table struct {
	tw       *tabwriter.Writer
	renderer *lipgloss.Renderer
}

func newTable(w io.Writer) *table {
	return &table{
		tw:       tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		renderer: lipgloss.NewRenderer(w),
	}
}

func (t *table) row(values ...string) {
	fmt.Fprintln(t.tw, strings.Join(values, "\t"))
}

func (t *table) flush() error {
	return t.tw.Flush()
}

func (t *table) status(s string) string {
	var color lipgloss.Color
	switch baseline.Status(s) {
	case baseline.StatusPass:
		color = colorPass
	case baseline.StatusFail:
		color = colorFail
	case baseline.StatusSkip:
		color = colorSkip
	default:
		return s
	}
	return t.renderer.NewStyle().Foreground(color).Bold(true).Render(s)
}

// WriteSummary prints one row per scenario
func WriteSummary(w io.Writer, results *runner.Results) error {
	fmt.Fprintln(w, SummaryTitle)

	t := newTable(w)
	t.row("scenario", "avgMs", "p95Ms", "minMs", "maxMs", "rps", "errorRate", "status")
	for _, s := range results.Scenarios {
		m := s.Metrics
		t.row(s.Name, num(m.AvgMs), num(m.P95Ms), num(m.MinMs), num(m.MaxMs), num(m.RPS), num(m.ErrorRate), t.status(string(s.Status)))
	}
	return t.flush()
}

// WriteFailures prints one line per failed scenario and returns how many were printed
func WriteFailures(w io.Writer, results *runner.Results) int {
	failed := results.Failed()
	for _, s := range failed {
		fmt.Fprintf(w, "Scenario %s failed: %s\n", s.Name, strings.Join(s.Failures, "; "))
	}
	return len(failed)
}

// WriteChecks prints engine-mode check tallies of scenarios that recorded any
func WriteChecks(w io.Writer, results *runner.Results) error {
	t := newTable(w)
	header := false
	for _, s := range results.Scenarios {
		if len(s.Checks) == 0 {
			continue
		}
		if !header {
			t.row("scenario", "check", "passes", "fails")
			header = true
		}
		for _, name := range slices.Sorted(maps.Keys(s.Checks)) {
			tally := s.Checks[name]
			t.row(s.Name, name, strconv.Itoa(tally.Passes), strconv.Itoa(tally.Fails))
		}
	}
	return t.flush()
}

// WriteRuns lists stored runs, newest first
func WriteRuns(w io.Writer, runs []*history.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}

	t := newTable(w)
	t.row("id", "started", "duration", "mode", "scenarios", "failed", "baseUrl", "status")
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		t.row(
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			duration,
			run.Mode,
			strconv.Itoa(run.ScenarioCount),
			strconv.Itoa(run.FailedCount),
			run.BaseURL,
			t.status(run.Status),
		)
	}
	return t.flush()
}

// WriteRunDetail prints one stored run and its scenario rows
func WriteRunDetail(w io.Writer, run *history.Run, rows []history.ScenarioResult) error {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  base url: %s\n", run.BaseURL)
	fmt.Fprintf(w, "  started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "  mode:     %s\n", run.Mode)
	fmt.Fprintf(w, "  limits:   regression x%s, error budget %s\n", num(run.RegressionLimit), num(run.ErrorBudget))
	if run.UpdateBaseline {
		fmt.Fprintln(w, "  baseline updated by this run")
	}
	fmt.Fprintln(w)

	t := newTable(w)
	t.row("scenario", "method", "path", "total", "avgMs", "p95Ms", "p99Ms", "rps", "errorRate", "status")
	for _, r := range rows {
		t.row(r.Name, r.Method, r.Path, strconv.Itoa(r.Total), num(r.AvgMs), num(r.P95Ms), num(r.P99Ms), num(r.RPS), num(r.ErrorRate), t.status(r.Status))
	}
	if err := t.flush(); err != nil {
		return err
	}

	for _, r := range rows {
		if len(r.Failures) > 0 && r.Status == string(baseline.StatusFail) {
			fmt.Fprintf(w, "Scenario %s failed: %s\n", r.Name, strings.Join(r.Failures, "; "))
		}
	}
	return nil
}

// WriteScenarios lists the expanded scenarios of a config
func WriteScenarios(w io.Writer, cfg *scenario.Config) error {
	t := newTable(w)
	t.row("scenario", "method", "path", "iterations", "concurrency", "warmup", "signals", "payloads")
	for _, s := range cfg.Scenarios {
		t.row(
			s.Name,
			s.Method,
			s.Path,
			strconv.Itoa(s.Iterations),
			strconv.Itoa(s.Concurrency),
			strconv.Itoa(s.Warmup),
			strconv.Itoa(len(s.Signals)),
			strconv.Itoa(len(s.Payloads)),
		)
	}
	return t.flush()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
