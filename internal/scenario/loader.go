package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a scenario document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension. JSON files may carry comments.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// Load reads, validates and expands the scenario document at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario config: %w", err)
	}

	cfg, err := Parse(data, FormatFor(path))
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) && cfgErr.Path == "" {
			cfgErr.Path = path
		}
		return nil, err
	}
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// Parse validates a document against the schema and expands it into scenarios
func Parse(data []byte, format Format) (*Config, error) {
	jsonData, err := toJSON(data, format)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("failed to validate document: %w", err)}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, &ConfigError{Problems: problems}
	}

	var doc rawDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("failed to decode document: %w", err)}
	}

	return expand(doc)
}

// toJSON converts YAML or JSON-with-comments into plain JSON
func toJSON(data []byte, format Format) ([]byte, error) {
	if format == FormatYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert YAML: %w", err)
		}
		return out, nil
	}

	out := jsonc.ToJSON(data)
	if len(bytes.TrimSpace(out)) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(out) {
		return nil, fmt.Errorf("failed to parse JSON: malformed document")
	}
	return out, nil
}

// expand applies defaults, expands variants and merges signals. Entries without
// a name or path are skipped.
func expand(doc rawDocument) (*Config, error) {
	defaults := resolveDefaults(doc.Defaults)

	globalSignals, err := normalizeSignals(doc.Signals)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	var scenarios []Scenario
	for _, raw := range doc.Scenarios {
		if raw.Name == "" || raw.Path == "" {
			continue
		}

		ownSignals, err := normalizeSignals(raw.Signals)
		if err != nil {
			return nil, &ConfigError{Err: fmt.Errorf("scenario %s: %w", raw.Name, err)}
		}
		parentSignals := append(append([]Signal{}, globalSignals...), ownSignals...)

		if len(raw.Variants) == 0 {
			scenarios = append(scenarios, normalize(raw, defaults, parentSignals))
			continue
		}

		for i, variant := range raw.Variants {
			merged := mergeVariant(raw, variant, i)
			variantSignals, err := normalizeSignals(variant.Signals)
			if err != nil {
				return nil, &ConfigError{Err: fmt.Errorf("scenario %s: %w", merged.Name, err)}
			}
			signals := append(append([]Signal{}, parentSignals...), variantSignals...)
			scenarios = append(scenarios, normalize(merged, defaults, signals))
		}
	}

	if len(scenarios) == 0 {
		return nil, &ConfigError{Err: ErrNoScenarios}
	}

	seen := make(map[string]bool, len(scenarios))
	var duplicates []string
	for _, s := range scenarios {
		if seen[s.Name] {
			duplicates = append(duplicates, fmt.Sprintf("duplicate scenario name %q", s.Name))
		}
		seen[s.Name] = true
	}
	if len(duplicates) > 0 {
		return nil, &ConfigError{Problems: duplicates}
	}

	return &Config{
		BaseURL:   doc.BaseURL,
		Defaults:  defaults,
		Scenarios: scenarios,
	}, nil
}

func resolveDefaults(raw *rawDefaults) Defaults {
	d := Defaults{
		Iterations:  DefaultIterations,
		Concurrency: DefaultConcurrency,
		Warmup:      DefaultWarmup,
		Method:      DefaultMethod,
	}
	if raw == nil {
		return d
	}
	d.Iterations = intOr(raw.Iterations, d.Iterations)
	d.Concurrency = intOr(raw.Concurrency, d.Concurrency)
	d.Warmup = intOr(raw.Warmup, d.Warmup)
	if raw.Sleep != nil {
		d.Sleep = *raw.Sleep
	}
	if raw.Method != "" {
		d.Method = strings.ToUpper(raw.Method)
	}
	return d
}

// mergeVariant overlays the fields a variant sets onto its parent
func mergeVariant(parent, variant rawScenario, index int) rawScenario {
	merged := parent
	merged.Variants = nil
	merged.Signals = nil

	if variant.Name != "" {
		merged.Name = parent.Name + "-" + variant.Name
	} else {
		merged.Name = fmt.Sprintf("%s-%d", parent.Name, index+1)
	}
	if variant.Path != "" {
		merged.Path = variant.Path
	}
	if variant.Method != "" {
		merged.Method = variant.Method
	}
	if variant.Iterations != nil {
		merged.Iterations = variant.Iterations
	}
	if variant.Concurrency != nil {
		merged.Concurrency = variant.Concurrency
	}
	if variant.Warmup != nil {
		merged.Warmup = variant.Warmup
	}
	if variant.Sleep != nil {
		merged.Sleep = variant.Sleep
	}
	if variant.RateLimit != nil {
		merged.RateLimit = variant.RateLimit
	}
	if variant.Headers != nil {
		merged.Headers = variant.Headers
	}
	if variant.Payloads != nil {
		merged.Payloads = variant.Payloads
	}
	if variant.IncludeSignalsInMetrics != nil {
		merged.IncludeSignalsInMetrics = variant.IncludeSignalsInMetrics
	}
	return merged
}

func normalize(raw rawScenario, defaults Defaults, signals []Signal) Scenario {
	method := defaults.Method
	if raw.Method != "" {
		method = strings.ToUpper(raw.Method)
	}

	s := Scenario{
		Name:        raw.Name,
		Path:        raw.Path,
		Method:      method,
		Iterations:  max(1, intOr(raw.Iterations, defaults.Iterations)),
		Concurrency: max(1, intOr(raw.Concurrency, defaults.Concurrency)),
		Warmup:      max(0, intOr(raw.Warmup, defaults.Warmup)),
		Sleep:       defaults.Sleep,
		Headers:     raw.Headers,
		Signals:     signals,
		Payloads:    raw.Payloads,
	}
	if raw.Sleep != nil {
		s.Sleep = *raw.Sleep
	}
	if s.Sleep < 0 {
		s.Sleep = 0
	}
	if raw.RateLimit != nil {
		s.RateLimit = *raw.RateLimit
	}
	if len(s.Signals) == 0 {
		s.Signals = nil
	}

	if raw.IncludeSignalsInMetrics != nil {
		s.IncludeSignalsInMetrics = *raw.IncludeSignalsInMetrics
	} else {
		s.IncludeSignalsInMetrics = len(s.Signals) > 0
	}
	return s
}

// normalizeSignals accepts path strings or signal objects. Signals without a
// path are dropped.
func normalizeSignals(raws []json.RawMessage) ([]Signal, error) {
	var signals []Signal
	for _, raw := range raws {
		var path string
		if err := json.Unmarshal(raw, &path); err == nil {
			signals = append(signals, Signal{Name: path, Path: path, Method: DefaultMethod, Status: 200})
			continue
		}

		var rs rawSignal
		if err := json.Unmarshal(raw, &rs); err != nil {
			return nil, fmt.Errorf("invalid signal: %w", err)
		}

		sig := Signal{
			Name:      rs.Name,
			Path:      rs.Path,
			Method:    strings.ToUpper(rs.Method),
			Headers:   rs.Headers,
			Body:      rs.Body,
			Status:    rs.Status,
			JSONPaths: rs.JSONPaths,
			ArrayMin:  rs.ArrayMin,
		}
		if sig.Path == "" {
			sig.Path = rs.URL
		}
		if sig.Path == "" {
			continue
		}
		if sig.Name == "" {
			sig.Name = sig.Path
		}
		if sig.Method == "" {
			sig.Method = DefaultMethod
		}
		if rs.Expect != nil {
			if sig.Status == 0 {
				sig.Status = rs.Expect.Status
			}
			if sig.JSONPaths == nil {
				sig.JSONPaths = rs.Expect.JSONPaths
			}
			if sig.ArrayMin == nil {
				sig.ArrayMin = rs.Expect.ArrayMin
			}
		}
		if sig.Status == 0 {
			sig.Status = 200
		}
		if bytes.Equal(bytes.TrimSpace(sig.Body), []byte("null")) {
			sig.Body = nil
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
