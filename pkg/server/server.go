package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"arbiter-hq/arbiter/pkg/audit"
	"arbiter-hq/arbiter/pkg/cache"
	"arbiter-hq/arbiter/pkg/config"
	"arbiter-hq/arbiter/pkg/orchestrator"
	"arbiter-hq/arbiter/pkg/policy/compiled"
	"arbiter-hq/arbiter/pkg/policy/source"
	"arbiter-hq/arbiter/pkg/server/handlers"
	"arbiter-hq/arbiter/pkg/server/middleware"
	"arbiter-hq/arbiter/pkg/telemetry/health"
	"arbiter-hq/arbiter/pkg/telemetry/metrics"
)

// Dependencies are the collaborators the server exposes over HTTP.
type Dependencies struct {
	Orchestrator *orchestrator.Orchestrator
	Engine       *compiled.Engine
	Store        *source.Store
	Cache        *cache.DecisionCache
	AuditSink    audit.Sink
	Health       *health.Checker
	Registry     *prometheus.Registry
}

// Server is the HTTP surface of the evaluation service.
type Server struct {
	config *config.ServerConfig
	mcfg   *config.MetricsConfig
	deps   Dependencies

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server.
func New(cfg *config.ServerConfig, mcfg *config.MetricsConfig, deps Dependencies) *Server {
	return &Server{
		config:       cfg,
		mcfg:         mcfg,
		deps:         deps,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler builds the route table and middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	policies := handlers.NewPoliciesHandler(s.deps.Engine, s.deps.Store)

	// The per-request deadline wraps every route except the NDJSON stream:
	// a streaming connection lives as long as the client keeps sending, and
	// each line is already bounded by the per-tier reasoning timeouts.
	timeout := middleware.Timeout(s.config.RequestTimeout)

	mux.Handle("/v1/evaluate", timeout(handlers.NewEvaluateHandler(s.deps.Orchestrator)))
	mux.Handle("/v1/evaluate/stream", handlers.NewStreamHandler(s.deps.Orchestrator))
	mux.Handle("/v1/policies", timeout(policies))
	mux.Handle("/v1/policies/", timeout(policies))
	mux.Handle("/v1/tiers", timeout(handlers.NewTiersHandler(s.deps.Orchestrator.TierConfigs())))
	mux.Handle("/v1/stats", timeout(handlers.NewStatsHandler(s.deps.Orchestrator, s.deps.Cache)))
	mux.Handle("/v1/audit", timeout(handlers.NewAuditHandler(s.deps.AuditSink)))
	mux.Handle("/health", timeout(handlers.NewHealthHandler(s.deps.Health)))
	mux.Handle("/ready", timeout(handlers.NewReadyHandler(s.deps.Health)))

	if s.mcfg != nil && s.mcfg.Enabled && s.deps.Registry != nil {
		mux.Handle(s.mcfg.Path, timeout(metrics.Handler(s.deps.Registry)))
	}

	var handler http.Handler = mux
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)

	return handler
}
