package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/internal/service"
	"github.com/JLTC3111/Quyenhair/pkg/health"
	"github.com/JLTC3111/Quyenhair/pkg/middleware"
)

// Services groups the dependencies served by the router.
type Services struct {
	Reviews  *service.ReviewService
	Users    *service.UserService
	Bookings *service.BookingService
	Health   *health.Handler
	Tokens   middleware.TokenValidator
}

// RouterConfig tunes the middleware chain.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig
	PprofCIDRs  []string
	// RateLimiter and Metrics are optional.
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	// PublicMaxAge is the Cache-Control max-age of the public statistics
	// endpoints. Zero disables the header.
	PublicMaxAge   time.Duration
	RequestTimeout time.Duration
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxyHeaders bool
}

// NewRouter creates a chi router with every API route registered.
func NewRouter(svc Services, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(chimw.Compress(5))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	// Health check endpoints
	r.Get("/health/live", svc.Health.LivenessHandler())
	r.Get("/health/ready", svc.Health.ReadinessHandler())
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	authed := middleware.Auth(svc.Tokens)
	optional := middleware.OptionalAuth(svc.Tokens)
	admin := middleware.RequireRole(domain.RoleAdmin)
	scoped := middleware.RequestLogger(logger)
	public := func(next http.Handler) http.Handler { return next }
	if cfg.PublicMaxAge > 0 {
		public = middleware.CacheControl(cfg.PublicMaxAge)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireJSON)
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}

		reviews := NewReviewHandler(svc.Reviews, logger)
		r.Route("/comments", func(r chi.Router) {
			r.Use(optional, scoped)

			r.With(public).Get("/stats", reviews.Stats)
			r.With(public).Get("/featured", reviews.Featured)
			r.With(public).Get("/top-reviewers", reviews.TopReviewers)
			r.Get("/recent", reviews.Recent)
			r.Get("/verified", reviews.Verified)
			r.Get("/by-rating", reviews.ByRating)
			r.Get("/search", reviews.Search)
			r.Get("/", reviews.List)

			r.With(authed, scoped).Get("/user/my-comments", reviews.ListMine)
			r.With(authed, admin, scoped).Get("/admin/pending", reviews.Pending)

			r.Get("/{id}", reviews.Get)
			r.Post("/{id}/helpful", reviews.MarkHelpful)

			r.Group(func(r chi.Router) {
				r.Use(authed, scoped)

				r.Post("/", reviews.Create)
				r.Put("/{id}", reviews.Update)
				r.Delete("/{id}", reviews.Delete)
				r.Post("/{id}/reply", reviews.Reply)
				r.With(admin).Patch("/{id}/moderate", reviews.Moderate)
			})
		})

		auth := NewAuthHandler(svc.Users, logger)
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Post("/register", auth.Register)
			r.Post("/login", auth.Login)
			r.Post("/refresh", auth.Refresh)
			r.Post("/logout", auth.Logout)
			r.With(authed, scoped).Get("/me", auth.Me)
		})

		users := NewUserHandler(svc.Users, logger)
		r.Route("/users", func(r chi.Router) {
			r.Use(authed, scoped, middleware.NoStore)

			r.Get("/profile", users.GetProfile)
			r.Put("/profile", users.UpdateProfile)
			r.Delete("/profile", users.DeleteAccount)
			r.Delete("/account", users.DeleteAccount)
			r.Put("/change-password", users.ChangePassword)
			r.With(admin).Patch("/{id}/verified", users.SetVerified)
		})

		bookings := NewBookingHandler(svc.Bookings, logger)
		r.Route("/bookings", func(r chi.Router) {
			r.With(optional, scoped).Post("/", bookings.Create)

			r.Group(func(r chi.Router) {
				r.Use(authed, scoped)

				r.Get("/my-bookings", bookings.ListMine)
				r.Get("/{id}", bookings.Get)
				r.Patch("/{id}/status", bookings.UpdateStatus)
				r.Patch("/{id}/cancel", bookings.Cancel)
				r.Delete("/{id}", bookings.Cancel)
			})
		})
	})

	return r
}

func isAdmin(r *http.Request) bool {
	return middleware.RoleFromContext(r.Context()) == domain.RoleAdmin
}
