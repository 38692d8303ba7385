// Package telemetry keeps the prometheus metrics of a single run.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/studiowebux/perfgate/internal/config"
	"github.com/studiowebux/perfgate/internal/loadgen"
)

// Outcome label values
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder owns a registry scoped to one run
type Recorder struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perfgate_requests_total",
			Help: "Requests issued, by scenario, phase and outcome.",
		}, []string{"scenario", "phase", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perfgate_request_duration_seconds",
			Help:    "Measured request duration by scenario.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"scenario"}),
	}
	r.registry.MustRegister(r.requests, r.duration)
	return r
}

// Observer returns a sample callback for one scenario phase. Only measured
// samples feed the duration histogram.
func (r *Recorder) Observer(scenario, phase string, measured bool) func(loadgen.Sample) {
	okCounter := r.requests.WithLabelValues(scenario, phase, OutcomeOK)
	errCounter := r.requests.WithLabelValues(scenario, phase, OutcomeError)
	histogram := r.duration.WithLabelValues(scenario)

	return func(s loadgen.Sample) {
		if s.OK {
			okCounter.Inc()
		} else {
			errCounter.Inc()
		}
		if measured {
			histogram.Observe(s.Duration.Seconds())
		}
	}
}

// WriteTextfile writes the registry in text exposition format
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), config.DirPermissions); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
