// Package server exposes actions over HTTP.
//
// Routes:
//
//	GET    /health
//	GET    /metrics
//	GET    /api/collections
//	GET    /api/collections/{name}/records?index=NAME
//	POST   /api/collections/{name}/records          write
//	PUT    /api/collections/{name}/records          update
//	DELETE /api/collections/{name}/records/{key}    delete one key
//	DELETE /api/collections/{name}/records?lower=&upper=&lower_open=&upper_open=
//	POST   /api/collections/{name}/clear
//
// Mutating routes accept ?durability=strict|relaxed. Keys in paths and query
// strings are read as JSON literals when valid, else as strings.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/inovacc/recstore/internal/engine"
	"github.com/inovacc/recstore/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves one database.
type Server struct {
	db         *engine.DB
	logger     *slog.Logger
	metrics    *metrics.Metrics
	durability engine.Durability
	router     chi.Router
}

// Option configures New.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithDurability sets the durability used when a request does not choose one.
func WithDurability(d engine.Durability) Option {
	return func(s *Server) { s.durability = d }
}

func New(db *engine.DB, opts ...Option) *Server {
	s := &Server{
		db:         db,
		logger:     slog.Default(),
		durability: engine.DurabilityRelaxed,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	s.router = s.routes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, APIResponse{Success: true, Message: "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	r.Route("/api/collections", func(r chi.Router) {
		r.Get("/", s.handleListCollections)

		r.Route("/{name}", func(r chi.Router) {
			r.Get("/records", s.handleRead)
			r.Post("/records", s.handleWrite)
			r.Put("/records", s.handleUpdate)
			r.Delete("/records", s.handleDeleteRange)
			r.Delete("/records/{key}", s.handleDeleteKey)
			r.Post("/clear", s.handleClear)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// within the grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("listening", "addr", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("server stopped")

	return nil
}
