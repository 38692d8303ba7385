package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/studiowebux/perfgate/internal/loadgen"
)

// Server probe defaults
const (
	DefaultProbeAttempts = 40
	DefaultProbeInterval = 500 * time.Millisecond
	stopGracePeriod      = 5 * time.Second
)

// ServerStartTimeoutError is returned when a spawned server never answers the probe
type ServerStartTimeoutError struct {
	URL      string
	Attempts int
	Interval time.Duration
}

func (e *ServerStartTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for local server at %s after %d attempts every %s", e.URL, e.Attempts, e.Interval)
}

// Process is a running server that can be stopped
type Process interface {
	Stop() error
}

// LaunchFunc starts the local server
type LaunchFunc func(ctx context.Context) (Process, error)

// IsLoopback reports whether baseURL targets this machine
func IsLoopback(baseURL string) bool {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// CommandLauncher starts args as a child process sharing stdout and stderr
func CommandLauncher(args []string, stdout, stderr io.Writer) LaunchFunc {
	return func(ctx context.Context) (Process, error) {
		if len(args) == 0 {
			return nil, errors.New("serve command is empty")
		}

		cmd := exec.Command(args[0], args[1:]...)
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		cmd.Env = os.Environ()
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start server %q: %w", strings.Join(args, " "), err)
		}

		p := &commandProcess{cmd: cmd, done: make(chan struct{})}
		go func() {
			_ = cmd.Wait()
			close(p.done)
		}()
		return p, nil
	}
}

type commandProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
}

// Stop sends SIGTERM and kills the process if it outlives the grace period
func (p *commandProcess) Stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to stop server: %w", err)
		}
	}

	select {
	case <-p.done:
	case <-time.After(stopGracePeriod):
		_ = p.cmd.Process.Kill()
		<-p.done
	}
	return nil
}

// ensureServer makes sure a loopback target answers before load starts. The
// returned stop func terminates a server spawned here and is a no-op otherwise.
func (r *Runner) ensureServer(ctx context.Context, baseURL, probeURL string) (func(), error) {
	noop := func() {}
	log := r.log.WithField("url", probeURL)

	if r.opts.SkipServer || !IsLoopback(baseURL) {
		return noop, nil
	}
	if r.probe(ctx, probeURL) {
		log.Debug("server already up")
		return noop, nil
	}
	if r.launch == nil {
		return noop, fmt.Errorf("server at %s is not reachable and no serve command is configured", baseURL)
	}

	log.Info("starting local server")
	proc, err := r.launch(ctx)
	if err != nil {
		return noop, err
	}
	stop := func() {
		if err := proc.Stop(); err != nil {
			r.log.WithError(err).Warn("failed to stop local server")
		}
	}

	attempts, interval := r.opts.ProbeAttempts, r.opts.ProbeInterval
	for i := 0; i < attempts; i++ {
		if r.probe(ctx, probeURL) {
			log.WithField("attempts", i+1).Debug("server ready")
			return stop, nil
		}
		select {
		case <-ctx.Done():
			stop()
			return noop, ctx.Err()
		case <-time.After(interval):
		}
	}

	stop()
	return noop, &ServerStartTimeoutError{URL: probeURL, Attempts: attempts, Interval: interval}
}

func (r *Runner) probe(ctx context.Context, target string) bool {
	return r.requester.Do(ctx, &loadgen.Request{Method: http.MethodGet, URL: target}).OK()
}
