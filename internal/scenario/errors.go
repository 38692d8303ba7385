package scenario

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoScenarios is wrapped by a ConfigError when nothing is left after expansion
var ErrNoScenarios = errors.New("no scenarios defined")

// ConfigError reports an invalid scenario document. It is fatal: no load is issued.
type ConfigError struct {
	Path     string
	Problems []string
	Err      error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid scenario config")
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Problems) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Problems, "; "))
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
