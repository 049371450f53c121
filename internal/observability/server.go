// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

// Package observability provides the pipeline metrics and the HTTP endpoints
// that expose them alongside health probes and a status snapshot.
package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker returns whether the pipeline has finished starting up.
type ReadinessChecker func() bool

// StatusFunc returns a JSON-encodable view of pipeline state.
type StatusFunc func() any

// Metrics contains the tick loop's Prometheus metrics.
type Metrics struct {
	FailuresTotal  *prometheus.CounterVec
	RepollsTotal   *prometheus.CounterVec
	TickDuration   prometheus.Histogram
	TicksPerSecond prometheus.Gauge
}

// NewMetrics creates and registers the tick loop metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marionette_pipeline_failures_total",
				Help: "Total number of terminal pipeline failures by stage and error code",
			},
			[]string{"stage", "code"},
		),
		RepollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marionette_pipeline_repolls_total",
				Help: "Total number of messages re-queued because a dependency was not ready",
			},
			[]string{"stage"},
		),
		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marionette_tick_duration_seconds",
				Help:    "Time spent processing one pipeline tick",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .016, .025, .05, .1},
			},
		),
		TicksPerSecond: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "marionette_ticks_per_second",
				Help: "Smoothed pipeline tick rate",
			},
		),
	}

	reg.MustRegister(m.FailuresTotal)
	reg.MustRegister(m.RepollsTotal)
	reg.MustRegister(m.TickDuration)
	reg.MustRegister(m.TicksPerSecond)

	return m
}

// Server provides HTTP endpoints for observability (metrics, health probes
// and the status snapshot).
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	isReady    ReadinessChecker
	status     StatusFunc
	running    atomic.Bool
}

// NewServer creates a new observability server exposing registry.
// addr: listen address in "host:port" format (e.g., "127.0.0.1:9100", ":9100" for all interfaces).
// status may be nil, in which case /characters is not served.
func NewServer(addr string, registry *prometheus.Registry, readinessChecker ReadinessChecker, status StatusFunc) *Server {
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Server{
		addr:     addr,
		registry: registry,
		isReady:  readinessChecker,
		status:   status,
	}
}

// Start begins serving observability endpoints.
// It returns an error channel that will receive any errors from the HTTP server
// after it starts. The channel is closed when the server stops gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)
	if s.status != nil {
		mux.HandleFunc("/characters", s.handleStatus)
	}

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			// Restore running state on failure so the server can be stopped again
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	slog.Info("observability server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// handleReadiness returns 200 once the pipeline is ready, 503 before.
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady == nil || s.isReady() {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("ok\n"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("not ready\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := json.Marshal(s.status())
	if err != nil {
		slog.Error("status snapshot encode failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may disconnect
	w.Write(append(body, '\n'))
}
