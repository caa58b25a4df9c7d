package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khoitriso/review-service/internal/service"
	"github.com/khoitriso/review-service/pkg/health"
	"github.com/khoitriso/review-service/pkg/middleware"
)

// RouterConfig holds the knobs the router needs beyond its dependencies.
type RouterConfig struct {
	ServiceName    string
	Environment    string
	AllowedOrigins []string
	PprofCIDRs     []string
}

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	cfg RouterConfig,
	reviewService *service.ReviewService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware. Order matters: recovery outermost, then tracing so
	// every later log line carries trace IDs, then identity before the
	// request-scoped logger picks it up.
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Environment:    cfg.Environment,
	}))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Identity)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health and observability endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	reviewHandler := NewReviewHandler(reviewService, logger)

	// Item-scoped review endpoints
	r.Route("/api/v1/items/{itemType}/{itemId}/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", reviewHandler.ListReviews)
		r.Get("/summary", reviewHandler.GetSummary)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Get("/me", reviewHandler.GetMyReview)
			r.Post("/", reviewHandler.CreateReview)
		})
	})

	// Review-scoped endpoints
	r.Route("/api/v1/reviews/{reviewId}", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.RequireUser)

		r.Put("/", reviewHandler.UpdateReview)
		r.Delete("/", reviewHandler.DeleteReview)
		r.Post("/helpful", reviewHandler.MarkHelpful)
	})

	return r
}
