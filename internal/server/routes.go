package server

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/storycard/storycard/internal/core/throttle"
	"github.com/storycard/storycard/internal/observability"
	"github.com/storycard/storycard/internal/server/handlers"
	servermw "github.com/storycard/storycard/internal/server/middleware"
)

// providerLister is implemented by resolvers that can report their provider chain.
type providerLister interface {
	ProviderNames() []string
}

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	if lister, ok := s.opts.Resolver.(providerLister); ok {
		handlers.SetMetadataProviders(lister.ProviderNames())
	}
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	s.registerStoryRoutes()
	s.registerAdminEndpoint()
}

// registerStoryRoutes mounts the throttled public API. Each policy counts
// against its own limiter.
func (s *Server) registerStoryRoutes() {
	policies := s.opts.Policies

	s.router.With(s.throttle(policies.Metadata)).
		Method(http.MethodGet, "/metadata", handlers.NewMetadataHandler(s.opts.Resolver))

	s.router.With(s.throttle(policies.Proxy)).
		Method(http.MethodGet, "/proxy-image", handlers.NewProxyImageHandler(s.opts.Proxy))

	s.router.With(s.throttle(policies.Story)).
		Method(http.MethodGet, "/story.png", handlers.NewStoryHandler(s.opts.Resolver, s.opts.Renderer, s.opts.StoryFilename))
}

func (s *Server) throttle(policy throttle.Policy) func(http.Handler) http.Handler {
	limiter, ok := s.limiters[policy.Name]
	if !ok {
		limiter = throttle.New()
		limiter.Clock = s.opts.Clock
		s.limiters[policy.Name] = limiter
	}
	return servermw.Throttle(limiter, policy)
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger

	if s.opts.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no server.admin_token set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: 10,  // 10 requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
