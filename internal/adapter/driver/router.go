package driver

import (
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alorle/iptv-relay/logging"
)

// RouterConfig collects the handlers and settings mounted by NewRouter.
type RouterConfig struct {
	ProxyBase      string
	RateLimitRPS   float64
	RateLimitBurst int
	Swagger        *openapi3.T
	Interception   *InterceptionHTTPHandler
	Catalog        *CatalogHTTPHandler
	Proxy          *ProxyHTTPHandler
	Health         *HealthHTTPHandler
	Logger         *slog.Logger
}

// NewRouter builds the HTTP routes. /health and /metrics are never rate
// limited; /api requests are validated against the OpenAPI document.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(logging.RequestLogger(cfg.Logger))
	r.Use(corsMiddleware)

	r.Method(http.MethodGet, "/health", cfg.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	limit := rateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r.Route("/api", func(r chi.Router) {
		r.Use(limit)
		if cfg.Swagger != nil {
			r.Use(requestValidator(cfg.Swagger))
			r.Method(http.MethodGet, "/openapi.json", NewDocumentationHandler(cfg.Swagger))
		}
		r.Get("/register", cfg.Interception.HandleRegister)
		r.Post("/register", cfg.Interception.HandleRegister)
		r.Method(http.MethodGet, "/channels", cfg.Catalog)
		r.Method(http.MethodGet, "/proxy", cfg.Proxy)
	})

	r.Route(cfg.ProxyBase, func(r chi.Router) {
		r.Use(limit)
		r.Get("/manifest/{id}", cfg.Interception.HandleManifest)
		r.Get("/segment/{id}", cfg.Interception.HandleSegment)
		r.Get("/key/{id}", cfg.Interception.HandleKey)
	})

	return r
}

