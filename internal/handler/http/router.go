package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/vingo-review/internal/service"
	"github.com/utafrali/vingo-review/pkg/health"
	"github.com/utafrali/vingo-review/pkg/middleware"
)

// RoleAdmin may trigger rating recomputation.
const RoleAdmin = "admin"

// RouterConfig carries the router settings that come from configuration.
type RouterConfig struct {
	ServiceName    string
	CORSOrigins    []string
	PprofCIDRs     []string
	RequestTimeout time.Duration

	// WriteRPS and WriteBurst bound review mutations per caller. Zero RPS
	// disables the limit.
	WriteRPS   float64
	WriteBurst int

	// Auth authenticates the caller; pkg/middleware.Auth or GatewayAuth.
	Auth func(http.Handler) http.Handler
}

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	cfg RouterConfig,
	reviewService *service.ReviewService,
	queryService *service.ReviewQueryService,
	eligibility *service.EligibilityChecker,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSOrigins) > 0 {
		cors.AllowedOrigins = cfg.CORSOrigins
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Global middleware
	r.Use(middleware.CORS(cors))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(timeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	h := NewReviewHandler(reviewService, queryService, eligibility, logger)
	limitWrites := middleware.RateLimit(cfg.WriteRPS, cfg.WriteBurst, logger)
	auth := cfg.Auth
	if auth == nil {
		auth = middleware.GatewayAuth()
	}

	r.Route("/api/v1/items/{itemId}", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(ItemContext)

		r.Get("/reviews", h.ListReviews)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Use(middleware.CacheControl(0))

			r.With(limitWrites).Post("/reviews", h.CreateReview)
			r.Get("/reviews/eligibility", h.CheckEligibility)
			r.With(middleware.RequireRole(RoleAdmin)).Post("/rating/recompute", h.RecomputeRating)
		})
	})

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(auth)

		r.With(limitWrites).Put("/{reviewId}", h.UpdateReview)
		r.With(limitWrites).Delete("/{reviewId}", h.DeleteReview)
	})

	return r
}
