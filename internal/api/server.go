package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/albapepper/scoracle-alerts/internal/alerts"
	"github.com/albapepper/scoracle-alerts/internal/api/handler"
	"github.com/albapepper/scoracle-alerts/internal/config"
	"github.com/albapepper/scoracle-alerts/internal/metrics"
)

// Deps are the collaborators served over HTTP. DB may be nil.
type Deps struct {
	Cycles  handler.Cycler
	Policy  alerts.PollPolicy
	DB      handler.HealthChecker
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps Deps, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TimingMiddleware)

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// --- Handler dependencies ---
	h := handler.New(deps.Cycles, deps.Policy, deps.DB)

	// --- Routes ---
	r.Get("/health", h.HealthCheck)

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	if reg := deps.Metrics.Registry(); reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/interval", h.GetInterval)
		r.Get("/status", h.GetStatus)

		r.Group(func(r chi.Router) {
			if cfg.RateLimitEnabled && cfg.RateLimitRequests > 0 {
				r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
			}
			r.Post("/cycle", h.RunCycle)
		})
	})

	if deps.Logger != nil {
		deps.Logger.Debug("router configured", "metrics", deps.Metrics != nil, "database", deps.DB != nil)
	}
	return r
}
