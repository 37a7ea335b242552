// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/litkeeper/litkeeper/internal/api/middleware"
	"github.com/litkeeper/litkeeper/internal/health"
	"github.com/litkeeper/litkeeper/internal/log"
)

// ServerConfig carries the HTTP surface configuration.
type ServerConfig struct {
	Listen  string
	EPUBDir string

	// APIRateLimit caps requests per client IP per minute. Zero disables.
	APIRateLimit int
	// SubmitRateLimit caps archive submissions per client IP per minute.
	SubmitRateLimit int

	// TracingService names the tracer for request spans; empty disables.
	TracingService string
}

// Server is the HTTP API server.
type Server struct {
	cfg        ServerConfig
	jobService JobService
	index      StoryIndex
	healthMgr  *health.Manager
	epubDir    string

	router chi.Router
	http   *http.Server
}

// NewServer wires the router with the canonical middleware stack and all
// routes.
func NewServer(cfg ServerConfig, jobService JobService, index StoryIndex, healthMgr *health.Manager) *Server {
	s := &Server{
		cfg:        cfg,
		jobService: jobService,
		index:      index,
		healthMgr:  healthMgr,
		epubDir:    cfg.EPUBDir,
	}

	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:      true,
		TracingService:     cfg.TracingService,
		EnableLogging:      true,
		RateLimitPerMinute: cfg.APIRateLimit,
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/stories", func(r chi.Router) {
			if cfg.SubmitRateLimit > 0 {
				r.With(middleware.SubmitRateLimit(cfg.SubmitRateLimit)).Post("/", s.handleSubmitStory)
			} else {
				r.Post("/", s.handleSubmitStory)
			}
			r.Get("/", s.handleListStories)
			r.Get("/{id}", s.handleGetStory)
			r.Delete("/{id}", s.handleDeleteStory)
		})
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Get("/{id}", s.handleGetJob)
		})
	})

	r.Mount("/files", http.StripPrefix("/files", s.epubFileServer()))

	r.Get("/healthz", s.healthMgr.ServeHealth)
	r.Get("/readyz", s.healthMgr.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server until it fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	logger := log.WithComponent("api")
	logger.Info().Str("listen", s.cfg.Listen).Msg("http server starting")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
