// Package server exposes the agent dispatcher over HTTP for long-running
// deployments: one event endpoint plus health, readiness, and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kubeorbit/cluster-agent/pkg/dispatcher"
)

const name = "cluster-agent"

// Server serves agent events over HTTP.
type Server struct {
	cfg        *Config
	dispatcher *dispatcher.Dispatcher
	limiter    *rate.Limiter

	mu    sync.RWMutex
	ready bool
}

// New creates an event server around the given dispatcher. A nil config
// uses defaults.
func New(cfg *Config, d *dispatcher.Dispatcher) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Server{
		cfg:        cfg,
		dispatcher: d,
		limiter:    rate.NewLimiter(cfg.RateLimit, cfg.RateLimitBurst),
	}
}

// Run starts the server and blocks until the context is canceled or the
// listener fails. Shutdown is graceful within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Address, s.cfg.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.setReady(true)
	slog.Info("event server listening", slog.String("addr", addr))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.setReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		slog.Info("shutting down event server")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) setReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}
