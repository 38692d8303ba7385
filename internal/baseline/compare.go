package baseline

import (
	"fmt"
	"strconv"

	"github.com/studiowebux/perfgate/internal/stats"
)

// Status is the verdict of one scenario
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// MissingFailure is reported when a scenario has no baseline entry
const MissingFailure = "baseline missing"

// Policy holds the tolerances applied by Compare
type Policy struct {
	RegressionLimit float64
	ErrorBudget     float64
	RequireBaseline bool
}

// Thresholds are the limits derived from a baseline entry
type Thresholds struct {
	AllowedAvgMs     float64 `json:"allowedAvgMs"`
	AllowedP95Ms     float64 `json:"allowedP95Ms"`
	MinRPS           float64 `json:"minRps"`
	AllowedErrorRate float64 `json:"allowedErrorRate"`
}

// Verdict is the outcome of comparing fresh metrics against a baseline entry
type Verdict struct {
	Status     Status      `json:"status"`
	Failures   []string    `json:"failures"`
	Thresholds *Thresholds `json:"thresholds"`
}

// Compare checks metrics against base. Every violated limit is reported; comparisons
// are strict so a value exactly at its limit passes.
func Compare(m stats.Metrics, base *Entry, policy Policy) Verdict {
	if base == nil {
		status := StatusSkip
		if policy.RequireBaseline {
			status = StatusFail
		}
		return Verdict{Status: status, Failures: []string{MissingFailure}}
	}

	limit := policy.RegressionLimit
	allowedAvg := base.AvgMs * limit
	allowedP95 := base.P95Ms * limit
	var minRPS float64
	if base.RPS > 0 {
		minRPS = base.RPS / limit
	}
	allowedErr := base.ErrorRate + policy.ErrorBudget

	failures := []string{}
	if m.AvgMs > allowedAvg {
		failures = append(failures, fmt.Sprintf("avg %sms > %sms", num(m.AvgMs), num(stats.Round(allowedAvg, 2))))
	}
	if m.P95Ms > allowedP95 {
		failures = append(failures, fmt.Sprintf("p95 %sms > %sms", num(m.P95Ms), num(stats.Round(allowedP95, 2))))
	}
	if m.RPS < minRPS {
		failures = append(failures, fmt.Sprintf("rps %s < %s", num(m.RPS), num(stats.Round(minRPS, 2))))
	}
	if m.ErrorRate > allowedErr {
		failures = append(failures, fmt.Sprintf("errorRate %s > %s", num(m.ErrorRate), num(stats.Round(allowedErr, 4))))
	}

	status := StatusPass
	if len(failures) > 0 {
		status = StatusFail
	}

	return Verdict{
		Status:   status,
		Failures: failures,
		Thresholds: &Thresholds{
			AllowedAvgMs:     stats.Round(allowedAvg, 2),
			AllowedP95Ms:     stats.Round(allowedP95, 2),
			MinRPS:           stats.Round(minRPS, 2),
			AllowedErrorRate: stats.Round(allowedErr, 4),
		},
	}
}

// num prints a number in its shortest form (200, 150.5)
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
