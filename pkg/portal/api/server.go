package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/venue-admin/pkg/portal"
)

// HealthFunc reports whether a dependency is reachable
type HealthFunc func(ctx context.Context) error

type serverOptions struct {
	auth        *jwtauth.JWTAuth
	gatherer    prometheus.Gatherer
	filesPrefix string
	files       http.Handler
	health      map[string]HealthFunc
	timeout     time.Duration
	cors        bool
}

// ServerOption configures the router built by NewRouter
type ServerOption func(*serverOptions)

// WithAuth protects /api/v1 with JWT verification. Without it the service's
// SessionFunc alone decides whether a request is authenticated.
func WithAuth(ja *jwtauth.JWTAuth) ServerOption {
	return func(o *serverOptions) {
		o.auth = ja
	}
}

// WithGatherer exposes the registry on /metrics
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(o *serverOptions) {
		o.gatherer = g
	}
}

// WithFiles mounts a handler serving stored objects under prefix
func WithFiles(prefix string, h http.Handler) ServerOption {
	return func(o *serverOptions) {
		o.filesPrefix = prefix
		o.files = h
	}
}

// WithHealthCheck adds a named dependency check to /health
func WithHealthCheck(name string, fn HealthFunc) ServerOption {
	return func(o *serverOptions) {
		o.health[name] = fn
	}
}

// WithRequestTimeout bounds request handling time
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.timeout = d
	}
}

// WithCORS allows cross-origin requests from any origin
func WithCORS(enabled bool) ServerOption {
	return func(o *serverOptions) {
		o.cors = enabled
	}
}

// NewRouter builds the HTTP surface of the portal
func NewRouter(service *portal.Service, opts ...ServerOption) http.Handler {
	o := &serverOptions{
		health:  make(map[string]HealthFunc),
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(o.timeout))
	if o.cors {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", healthHandler(o.health))
	if o.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{}))
	}
	if o.files != nil {
		r.Handle(o.filesPrefix+"/*", http.StripPrefix(o.filesPrefix, o.files))
	}

	entities := NewEntityHandler(service)
	r.Route("/api/v1", func(r chi.Router) {
		if o.auth != nil {
			r.Use(jwtauth.Verifier(o.auth))
			r.Use(Authenticator)
		}
		entities.Register(r)
	})

	return r
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "healthy"}
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := check(ctx)
			cancel()
			if err != nil {
				slog.Warn("Health check failed", "check", name, "error", err)
				resp.Status = "unhealthy"
				resp.Checks[name] = err.Error()
				continue
			}
			resp.Checks[name] = "ok"
		}

		if resp.Status != "healthy" {
			render.Status(r, http.StatusServiceUnavailable)
		}
		render.JSON(w, r, resp)
	}
}
