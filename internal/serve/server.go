package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PortAttempts is how many consecutive ports Start tries
const PortAttempts = 10

// ShutdownTimeout bounds Stop
const ShutdownTimeout = 5 * time.Second

const maxLogs = 1000

// LogPath serves the request log as JSON. It is not itself logged.
const LogPath = "/_perfgate/requests"

// Server serves a static directory plus canned routes
type Server struct {
	config     *Config
	workdir    string
	log        *logrus.Logger
	patterns   map[int]*regexp.Regexp
	httpServer *http.Server
	port       int
	logs       []RequestLog
	logsMutex  sync.RWMutex
}

// NewServer creates a server. Relative static dirs and body files resolve against workdir.
func NewServer(config *Config, workdir string, log *logrus.Logger) (*Server, error) {
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Host == "" {
		config.Host = "127.0.0.1"
	}
	if err := validateRoutes(config.Routes); err != nil {
		return nil, err
	}

	patterns := make(map[int]*regexp.Regexp)
	for i, route := range config.Routes {
		if route.PathType != "regex" {
			continue
		}
		re, err := regexp.Compile(route.Path)
		if err != nil {
			return nil, fmt.Errorf("route %d: invalid pattern: %w", i, err)
		}
		patterns[i] = re
	}

	return &Server{
		config:   config,
		workdir:  workdir,
		log:      log,
		patterns: patterns,
		logs:     make([]RequestLog, 0),
	}, nil
}

// Handler returns the request handler: routes first, then static files
func (s *Server) Handler() http.Handler {
	var static http.Handler = http.NotFoundHandler()
	if s.config.Dir != "" {
		static = http.FileServer(http.Dir(s.resolve(s.config.Dir)))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == LogPath {
			s.writeLogs(w)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		matchedRule := "static"
		if route := s.findMatchingRoute(r.Method, r.URL.Path); route != nil {
			matchedRule = s.writeRoute(rec, route)
		} else {
			static.ServeHTTP(rec, r)
		}

		if s.config.Logging {
			s.logRequest(RequestLog{
				Timestamp:   start,
				Method:      r.Method,
				Path:        r.URL.Path,
				MatchedRule: matchedRule,
				Status:      rec.status,
				Duration:    time.Since(start),
			})
		}
	})
}

// Start binds the first free port among PortAttempts starting at the configured
// port and serves in the background.
func (s *Server) Start() error {
	listener, port, err := Listen(s.config.Host, s.config.Port, PortAttempts)
	if err != nil {
		return err
	}
	s.port = port

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("serve: server stopped")
		}
	}()

	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Address returns the base URL of a started server
func (s *Server) Address() string {
	return "http://" + net.JoinHostPort(s.config.Host, strconv.Itoa(s.port))
}

// Port returns the bound port, or 0 before Start
func (s *Server) Port() int {
	return s.port
}

// GetLogs returns a copy of the request log
func (s *Server) GetLogs() []RequestLog {
	s.logsMutex.RLock()
	defer s.logsMutex.RUnlock()

	logs := make([]RequestLog, len(s.logs))
	copy(logs, s.logs)
	return logs
}

// RuleCounts returns how many logged requests each route (or "static") served
func (s *Server) RuleCounts() map[string]int {
	s.logsMutex.RLock()
	defer s.logsMutex.RUnlock()

	counts := make(map[string]int)
	for _, entry := range s.logs {
		counts[entry.MatchedRule]++
	}
	return counts
}

func (s *Server) writeLogs(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.GetLogs()); err != nil {
		s.log.WithError(err).Warn("serve: failed to encode request log")
	}
}

// Listen binds host:port, moving to the next port while the current one is taken
func Listen(host string, port, attempts int) (net.Listener, int, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		candidate := port + i
		listener, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(candidate)))
		if err == nil {
			return listener, candidate, nil
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("no free port in %d-%d: %w", port, port+attempts-1, lastErr)
}

func (s *Server) writeRoute(w http.ResponseWriter, route *Route) string {
	if route.Delay > 0 {
		time.Sleep(time.Duration(route.Delay) * time.Millisecond)
	}

	status := route.Status
	if status == 0 {
		status = http.StatusOK
	}
	for key, value := range route.Headers {
		w.Header().Set(key, value)
	}

	body := []byte(route.Body)
	if route.BodyFile != "" {
		data, err := os.ReadFile(s.resolve(route.BodyFile))
		if err != nil {
			status = http.StatusInternalServerError
			data = []byte(fmt.Sprintf("serve: failed to read body file %s: %v", route.BodyFile, err))
		}
		body = data
	}

	w.WriteHeader(status)
	w.Write(body)

	if route.Name != "" {
		return route.Name
	}
	return fmt.Sprintf("%s %s", route.Method, route.Path)
}

// findMatchingRoute returns the first route matching method and path. An empty
// route method matches any method.
func (s *Server) findMatchingRoute(method, path string) *Route {
	for i := range s.config.Routes {
		route := &s.config.Routes[i]
		if route.Method != "" && !strings.EqualFold(route.Method, method) {
			continue
		}

		matched := false
		switch route.PathType {
		case "", "exact":
			matched = route.Path == path
		case "prefix":
			matched = strings.HasPrefix(path, route.Path)
		case "regex":
			matched = s.patterns[i].MatchString(path)
		}

		if matched {
			return route
		}
	}
	return nil
}

func (s *Server) resolve(path string) string {
	if filepath.IsAbs(path) || s.workdir == "" {
		return path
	}
	return filepath.Join(s.workdir, path)
}

func (s *Server) logRequest(entry RequestLog) {
	s.logsMutex.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[len(s.logs)-maxLogs:]
	}
	s.logsMutex.Unlock()

	s.log.WithFields(logrus.Fields{
		"method":   entry.Method,
		"path":     entry.Path,
		"status":   entry.Status,
		"rule":     entry.MatchedRule,
		"duration": entry.Duration,
	}).Debug("serve: request")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
