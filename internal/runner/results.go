package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/studiowebux/perfgate/internal/baseline"
	"github.com/studiowebux/perfgate/internal/config"
	"github.com/studiowebux/perfgate/internal/engine"
	"github.com/studiowebux/perfgate/internal/scenario"
	"github.com/studiowebux/perfgate/internal/stats"
)

// ConfigSnapshot records the settings a run used
type ConfigSnapshot struct {
	Defaults        scenario.Defaults `json:"defaults"`
	RegressionLimit float64           `json:"regressionLimit"`
	ErrorBudget     float64           `json:"errorBudget"`
	Mode            string            `json:"mode"`
}

// ScenarioResult is the verdict of one scenario
type ScenarioResult struct {
	Name         string                       `json:"name"`
	Path         string                       `json:"path"`
	Method       string                       `json:"method"`
	Iterations   int                          `json:"iterations"`
	Concurrency  int                          `json:"concurrency"`
	Warmup       int                          `json:"warmup"`
	Metrics      stats.Metrics                `json:"metrics"`
	Distribution stats.Distribution           `json:"distribution"`
	Checks       map[string]engine.CheckTally `json:"checks,omitempty"`
	Baseline     *baseline.Entry              `json:"baseline"`
	Thresholds   *baseline.Thresholds         `json:"thresholds"`
	Status       baseline.Status              `json:"status"`
	Failures     []string                     `json:"failures"`
}

// Results is the document written after every run
type Results struct {
	BaseURL    string           `json:"baseUrl"`
	RunID      string           `json:"runId"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	Config     ConfigSnapshot   `json:"config"`
	Scenarios  []ScenarioResult `json:"scenarios"`
}

// Failed returns the scenarios whose status is fail
func (r *Results) Failed() []ScenarioResult {
	var failed []ScenarioResult
	for _, s := range r.Scenarios {
		if s.Status == baseline.StatusFail {
			failed = append(failed, s)
		}
	}
	return failed
}

// Metrics maps scenario names to their fresh metrics
func (r *Results) Metrics() map[string]stats.Metrics {
	out := make(map[string]stats.Metrics, len(r.Scenarios))
	for _, s := range r.Scenarios {
		out[s.Name] = s.Metrics
	}
	return out
}

// WriteResults writes the results document, creating parent directories and
// overwriting any existing file
func WriteResults(path string, results *Results) error {
	if err := os.MkdirAll(filepath.Dir(path), config.DirPermissions); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, config.FilePermissions); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

// ReadResults loads a results document
func ReadResults(path string) (*Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	var results Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	return &results, nil
}
