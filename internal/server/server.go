package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/storycard/storycard/internal/core/throttle"
	apperrors "github.com/storycard/storycard/internal/errors"
	"github.com/storycard/storycard/internal/observability"
	"github.com/storycard/storycard/internal/server/handlers"
	servermw "github.com/storycard/storycard/internal/server/middleware"
)

// Policies holds the per-route throttle policies.
type Policies struct {
	Metadata throttle.Policy
	Proxy    throttle.Policy
	Story    throttle.Policy
}

// DefaultPolicies returns the built-in per-route limits.
func DefaultPolicies() Policies {
	return Policies{
		Metadata: throttle.MetadataPolicy,
		Proxy:    throttle.ProxyPolicy,
		Story:    throttle.StoryPolicy,
	}
}

// Options wires the domain services into the HTTP server.
type Options struct {
	Host string
	Port int

	Resolver handlers.MetadataResolver
	Proxy    handlers.ImageFetcher
	Renderer handlers.StoryRenderer

	// Clock overrides the throttle clock; nil uses the wall clock.
	Clock         func() time.Time
	Policies      Policies
	StoryFilename string

	// AdminToken enables POST /admin/signal when set.
	AdminToken string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	opts     Options
	limiters map[string]*throttle.Limiter
}

// New creates a new HTTP server instance
func New(opts Options) *Server {
	if opts.Policies == (Policies{}) {
		opts.Policies = DefaultPolicies()
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// Recovery is innermost so panics still pass through metrics and carry a request ID.
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router:   r,
		opts:     opts,
		limiters: make(map[string]*throttle.Limiter),
	}

	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  durationOr(s.opts.ReadTimeout, 30*time.Second),
		WriteTimeout: durationOr(s.opts.WriteTimeout, 60*time.Second),
		IdleTimeout:  durationOr(s.opts.IdleTimeout, 120*time.Second),
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.opts.Host),
			zap.Int("port", s.opts.Port),
			zap.String("addr", addr))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.opts.Port
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
