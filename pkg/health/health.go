// Package health serves the benchmark's admin endpoint: liveness and
// readiness probes plus the Prometheus metrics of the running process.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Provider reports the health of one benchmark role.
type Provider interface {
	// Heartbeat records that the component made progress.
	Heartbeat(component string)
	// ReportHealth sets the component's status; a non-nil err marks it not ready.
	ReportHealth(component string, err error)
}

// Server is the admin HTTP server.
type Server struct {
	handler    healthcheck.Handler
	mux        *http.ServeMux
	log        *zap.Logger
	maxSilence time.Duration

	mu       sync.Mutex
	beats    map[string]time.Time
	statuses map[string]error

	srv *http.Server
	ln  net.Listener
}

var _ Provider = (*Server)(nil)

// NewServer returns a server exposing /live, /ready and /metrics. Metrics are
// gathered from g. A component whose last heartbeat is older than maxSilence
// fails the liveness probe; zero disables that check.
func NewServer(g prometheus.Gatherer, maxSilence time.Duration, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		handler:    healthcheck.NewHandler(),
		mux:        http.NewServeMux(),
		log:        log,
		maxSilence: maxSilence,
		beats:      map[string]time.Time{},
		statuses:   map[string]error{},
	}
	s.handler.AddLivenessCheck("heartbeat", s.checkHeartbeats)
	s.handler.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))
	s.handler.AddReadinessCheck("components", s.checkStatuses)

	s.mux.HandleFunc("/live", s.handler.LiveEndpoint)
	s.mux.HandleFunc("/ready", s.handler.ReadyEndpoint)
	s.mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Heartbeat(component string) {
	s.mu.Lock()
	s.beats[component] = time.Now()
	s.mu.Unlock()
}

func (s *Server) ReportHealth(component string, err error) {
	s.mu.Lock()
	s.statuses[component] = err
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("component not ready", zap.String("component", component), zap.Error(err))
	}
}

func (s *Server) checkHeartbeats() error {
	if s.maxSilence <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for c, at := range s.beats {
		if d := time.Since(at); d > s.maxSilence {
			errs = append(errs, fmt.Errorf("%s silent for %s", c, d.Round(time.Millisecond)))
		}
	}
	return errors.Join(errs...)
}

func (s *Server) checkStatuses() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for c, err := range s.statuses {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c, err))
		}
	}
	return errors.Join(errs...)
}

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr asks for port 0.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("admin listen %s: %w", addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("admin server stopped", zap.Error(err))
		}
	}()
	s.log.Info("admin server listening", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

// Shutdown stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
