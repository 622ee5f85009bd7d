// Package web serves the venue directory API: public reads for the static
// site, review submissions, and the admin moderation routes.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lozio/venues/internal/config"
	"github.com/lozio/venues/internal/core/entities"
	"github.com/lozio/venues/internal/store"
	"github.com/lozio/venues/internal/web/middleware"
)

// Store is the persistence the handlers need. Satisfied by *store.Store.
type Store interface {
	Ping(ctx context.Context) error

	ListVenues(ctx context.Context, f store.VenueFilter) ([]entities.Venue, error)
	GetVenue(ctx context.Context, id string) (entities.Venue, error)
	CreateVenue(ctx context.Context, v entities.Venue) error

	ListReviews(ctx context.Context, venueID string) ([]store.Review, error)
	CreateReview(ctx context.Context, in store.NewReview) (store.Review, error)
	ListReviewsByStatus(ctx context.Context, status string) ([]store.Review, error)
	SetReviewStatus(ctx context.Context, id, status string) (store.Review, error)
	DeleteReview(ctx context.Context, id string) error

	ListArticles(ctx context.Context) ([]entities.Article, error)
}

// Server is the HTTP server for the directory API.
type Server struct {
	store    Store
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer creates a Server with routes and middleware configured from cfg.
func NewServer(st Store, cfg *config.Config) *Server {
	s := &Server{
		store:  st,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)
	s.router.Use(middleware.CORS(s.cfg.Security.AllowedOrigins))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/venues", s.handleListVenues)
		r.Get("/venues/{id}", s.handleGetVenue)
		r.Get("/venues/{id}/reviews", s.handleListReviews)
		r.With(s.reviewLimit()).Post("/venues/{id}/reviews", s.handleCreateReview)

		r.Get("/articles", s.handleListArticles)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(&s.cfg.Security))

			r.Post("/venues", s.handleAdminCreateVenue)
			r.Get("/reviews", s.handleAdminListReviews)
			r.Post("/reviews/{id}/approve", s.handleAdminSetStatus(store.StatusApproved))
			r.Post("/reviews/{id}/reject", s.handleAdminSetStatus(store.StatusRejected))
			r.Delete("/reviews/{id}", s.handleAdminDeleteReview)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found", "NF002")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "REQ001")
	})
}

// reviewLimit applies the stricter per-IP limit on review submissions.
func (s *Server) reviewLimit() func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.newLimiter(s.cfg.Rate.ReviewLimit).middleware
}

func (s *Server) newLimiter(perMinute int) *rateLimiter {
	rl := newRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and the rate limiter sweepers.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses. The API only
// serves JSON, so the content policy forbids everything.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
