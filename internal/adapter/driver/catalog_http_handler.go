package driver

import (
	"log/slog"
	"net/http"

	"github.com/alorle/iptv-relay/internal/application"
	"github.com/alorle/iptv-relay/logging"
)

// CatalogHTTPHandler serves parsed channel catalogs.
type CatalogHTTPHandler struct {
	service *application.CatalogService
	logger  *slog.Logger
}

// NewCatalogHTTPHandler creates a new HTTP handler for catalogs.
func NewCatalogHTTPHandler(service *application.CatalogService, logger *slog.Logger) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{service: service, logger: logger}
}

// ServeHTTP handles GET /api/channels?profile={name}. Without a profile the
// first configured one is served.
func (h *CatalogHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	profile := r.URL.Query().Get("profile")
	if profile == "" {
		if names := h.service.Profiles(); len(names) > 0 {
			profile = names[0]
		}
	}

	cat, err := h.service.Load(r.Context(), profile)
	if err != nil {
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}
	if cat.Err != nil {
		logging.FromContext(r.Context(), h.logger).Info("serving degraded catalog",
			"profile", cat.Profile, "source", cat.Source, "error", cat.Err)
	}

	setNoCache(w)
	writeJSON(w, http.StatusOK, cat)
}
