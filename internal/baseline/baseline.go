// Package baseline reads, writes and compares against the persisted baseline file.
package baseline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/studiowebux/perfgate/internal/config"
	"github.com/studiowebux/perfgate/internal/stats"
)

// DefaultFileName is looked up next to the scenario config and in the working directory
const DefaultFileName = "baseline.json"

// Entry holds the reference metrics of one scenario. Extra fields in the file are ignored.
type Entry struct {
	AvgMs     float64 `json:"avgMs"`
	P95Ms     float64 `json:"p95Ms"`
	RPS       float64 `json:"rps"`
	ErrorRate float64 `json:"errorRate"`
}

// Baseline is the on-disk reference for regression checks
type Baseline struct {
	GeneratedAt string           `json:"generatedAt"`
	BaseURL     string           `json:"baseUrl"`
	Scenarios   map[string]Entry `json:"scenarios"`
}

// New builds a baseline from fresh scenario metrics
func New(baseURL string, generatedAt time.Time, metrics map[string]stats.Metrics) *Baseline {
	b := &Baseline{
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
		BaseURL:     baseURL,
		Scenarios:   make(map[string]Entry, len(metrics)),
	}
	for name, m := range metrics {
		b.Scenarios[name] = EntryFrom(m)
	}
	return b
}

// EntryFrom extracts the compared subset of metrics
func EntryFrom(m stats.Metrics) Entry {
	return Entry{
		AvgMs:     m.AvgMs,
		P95Ms:     m.P95Ms,
		RPS:       m.RPS,
		ErrorRate: m.ErrorRate,
	}
}

// Lookup returns the entry for a scenario, or nil. Safe on a nil Baseline.
func (b *Baseline) Lookup(name string) *Entry {
	if b == nil || b.Scenarios == nil {
		return nil
	}
	entry, ok := b.Scenarios[name]
	if !ok {
		return nil
	}
	return &entry
}

// Read loads a baseline file
func Read(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse baseline %s: %w", path, err)
	}
	return &b, nil
}

// Candidates lists the locations tried by Resolve, in order, without duplicates
func Candidates(path, configDir string) []string {
	var list []string
	if path != "" {
		list = append(list, path)
		if configDir != "" && !filepath.IsAbs(path) {
			list = append(list, filepath.Join(configDir, path))
		}
	}
	if configDir != "" {
		list = append(list, filepath.Join(configDir, DefaultFileName))
	}
	list = append(list, DefaultFileName)

	seen := make(map[string]bool, len(list))
	unique := list[:0]
	for _, p := range list {
		clean := filepath.Clean(p)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		unique = append(unique, p)
	}
	return unique
}

// Resolve returns the first readable and parseable baseline among Candidates,
// together with its path. It returns nil when none qualifies.
func Resolve(path, configDir string) (*Baseline, string) {
	for _, candidate := range Candidates(path, configDir) {
		b, err := Read(candidate)
		if err != nil {
			continue
		}
		return b, candidate
	}
	return nil, ""
}

// Write stores the baseline, creating parent directories and overwriting any existing file
func Write(path string, b *Baseline) error {
	if err := os.MkdirAll(filepath.Dir(path), config.DirPermissions); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal baseline: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, config.FilePermissions); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	return nil
}
