package serve

import "time"

// Config represents the local server configuration
type Config struct {
	Port    int     `json:"port" yaml:"port"`       // First port to try (default: 8080)
	Host    string  `json:"host" yaml:"host"`       // Bind host (default: 127.0.0.1)
	Dir     string  `json:"dir" yaml:"dir"`         // Static directory served under / (optional)
	Routes  []Route `json:"routes" yaml:"routes"`   // Canned routes, matched before static files
	Logging bool    `json:"logging" yaml:"logging"` // Log each request
}

// Route is a canned response for the dashboard's API endpoints
type Route struct {
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
	Method   string            `json:"method" yaml:"method"`
	Path     string            `json:"path" yaml:"path"`
	PathType string            `json:"pathType,omitempty" yaml:"pathType,omitempty"` // exact, prefix, regex (default: exact)
	Status   int               `json:"status" yaml:"status"`
	Headers  map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body     string            `json:"body,omitempty" yaml:"body,omitempty"`
	BodyFile string            `json:"bodyFile,omitempty" yaml:"bodyFile,omitempty"`
	Delay    int               `json:"delay,omitempty" yaml:"delay,omitempty"` // milliseconds
}

// RequestLog is one served request
type RequestLog struct {
	Timestamp   time.Time     `json:"timestamp"`
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	MatchedRule string        `json:"matchedRule"`
	Status      int           `json:"status"`
	Duration    time.Duration `json:"duration"`
}
