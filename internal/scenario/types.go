package scenario

import "encoding/json"

// Fallbacks used when neither a scenario nor the shared defaults set a value
const (
	DefaultIterations  = 20
	DefaultConcurrency = 4
	DefaultWarmup      = 4
	DefaultMethod      = "GET"
)

// Defaults are the resolved shared defaults of a config document
type Defaults struct {
	Iterations  int     `json:"iterations"`
	Concurrency int     `json:"concurrency"`
	Warmup      int     `json:"warmup"`
	Method      string  `json:"method"`
	Sleep       float64 `json:"sleep"`
}

// Signal is an auxiliary request issued alongside each engine-mode iteration
type Signal struct {
	Name      string            `json:"name"`
	Path      string            `json:"path"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      json.RawMessage   `json:"body,omitempty"`
	Status    int               `json:"status,omitempty"`
	JSONPaths []string          `json:"jsonPaths,omitempty"`
	ArrayMin  *int              `json:"arrayMin,omitempty"`
}

// Scenario is a fully normalized load scenario
type Scenario struct {
	Name                    string            `json:"name"`
	Path                    string            `json:"path"`
	Method                  string            `json:"method"`
	Iterations              int               `json:"iterations"`
	Concurrency             int               `json:"concurrency"`
	Warmup                  int               `json:"warmup"`
	Sleep                   float64           `json:"sleep"`
	RateLimit               float64           `json:"rateLimit,omitempty"`
	Headers                 map[string]string `json:"headers,omitempty"`
	Signals                 []Signal          `json:"signals,omitempty"`
	Payloads                []json.RawMessage `json:"payloads,omitempty"`
	IncludeSignalsInMetrics bool              `json:"includeSignalsInMetrics"`
}

// WarmupWorkers returns the worker count used for warmup
func (s Scenario) WarmupWorkers() int {
	workers := s.Concurrency
	if s.Warmup < workers {
		workers = s.Warmup
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// Config is a loaded and expanded scenario document
type Config struct {
	BaseURL   string     `json:"baseUrl,omitempty"`
	Defaults  Defaults   `json:"defaults"`
	Scenarios []Scenario `json:"scenarios"`
	// Dir is the directory the document was read from
	Dir string `json:"-"`
}

// raw document shapes, decoded after schema validation

type rawDocument struct {
	BaseURL   string            `json:"baseUrl"`
	Defaults  *rawDefaults      `json:"defaults"`
	Signals   []json.RawMessage `json:"signals"`
	Scenarios []rawScenario     `json:"scenarios"`
}

type rawDefaults struct {
	Iterations  *int     `json:"iterations"`
	Concurrency *int     `json:"concurrency"`
	Warmup      *int     `json:"warmup"`
	Method      string   `json:"method"`
	Sleep       *float64 `json:"sleep"`
}

type rawScenario struct {
	Name                    string            `json:"name"`
	Path                    string            `json:"path"`
	Method                  string            `json:"method"`
	Iterations              *int              `json:"iterations"`
	Concurrency             *int              `json:"concurrency"`
	Warmup                  *int              `json:"warmup"`
	Sleep                   *float64          `json:"sleep"`
	RateLimit               *float64          `json:"rateLimit"`
	Headers                 map[string]string `json:"headers"`
	Signals                 []json.RawMessage `json:"signals"`
	Payloads                []json.RawMessage `json:"payloads"`
	IncludeSignalsInMetrics *bool             `json:"includeSignalsInMetrics"`
	Variants                []rawScenario     `json:"variants"`
}

type rawExpect struct {
	Status    int      `json:"status"`
	JSONPaths []string `json:"jsonPaths"`
	ArrayMin  *int     `json:"arrayMin"`
}

type rawSignal struct {
	Name      string            `json:"name"`
	Path      string            `json:"path"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Body      json.RawMessage   `json:"body"`
	Status    int               `json:"status"`
	JSONPaths []string          `json:"jsonPaths"`
	ArrayMin  *int              `json:"arrayMin"`
	Expect    *rawExpect        `json:"expect"`
}
