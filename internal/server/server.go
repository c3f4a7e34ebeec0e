// Package server exposes the module registries and the parser pipeline over
// HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/steveyegge/contentfactory/internal/cache"
	"github.com/steveyegge/contentfactory/internal/config"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/pipeline"
)

// Server is the HTTP front of a pipeline.Service.
type Server struct {
	svc      *pipeline.Service
	cfg      config.ServerConfig
	store    *cache.Store
	cacheCfg config.CacheConfig
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithCachePruning makes Run delete cache entries older than the configured
// retention on the configured interval.
func WithCachePruning(store *cache.Store, cfg config.CacheConfig) Option {
	return func(s *Server) {
		s.store = store
		s.cacheCfg = cfg
	}
}

// New returns a server for svc.
func New(svc *pipeline.Service, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{svc: svc, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/modules", func(r chi.Router) {
			r.Get("/", s.handleListModules)
			r.Get("/{kind}", s.handleListKind)
		})
		r.Route("/parsers/{name}", func(r chi.Router) {
			r.Get("/", s.handleDescribeParser)
			r.Post("/test", s.handleTestParser)
			r.Post("/parse", s.handleParse)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// Run serves on the configured address until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
		BaseContext:  func(net.Listener) context.Context { return logging.WithLogger(context.Background(), s.logger) },
	}

	pruneCtx, stopPrune := context.WithCancel(ctx)
	defer stopPrune()
	if s.store != nil && s.cacheCfg.Enabled {
		go s.pruneLoop(pruneCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) pruneLoop(ctx context.Context) {
	interval := s.cacheCfg.CleanupInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.Prune(ctx, s.cacheCfg.Retention())
			if err != nil {
				s.logger.Warn("cache prune failed", "err", err)
				continue
			}
			if n > 0 {
				s.logger.Info("pruned cache entries", "removed", n)
			}
		}
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
