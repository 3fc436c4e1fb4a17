package driver

import (
	"net/http"

	"github.com/alorle/iptv-relay/internal/application"
)

// HealthHTTPHandler handles HTTP requests for health checks.
type HealthHTTPHandler struct {
	service *application.HealthService
}

// NewHealthHTTPHandler creates a new HTTP handler for health checks.
func NewHealthHTTPHandler(service *application.HealthService) *HealthHTTPHandler {
	return &HealthHTTPHandler{service: service}
}

// healthResponse represents the JSON response for health check endpoint.
type healthResponse struct {
	Status             string   `json:"status"`
	DB                 string   `json:"db"`
	Cache              string   `json:"cache"`
	RegistrySize       int      `json:"registry_size"`
	SnapshotAgeSeconds *float64 `json:"snapshot_age_seconds,omitempty"`
}

// ServeHTTP handles GET /health
func (h *HealthHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only GET method is allowed
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := h.service.Check(r.Context())

	resp := healthResponse{
		Status:       status.Status,
		DB:           status.DB.Status,
		Cache:        status.Cache.Status,
		RegistrySize: status.RegistrySize,
	}
	if status.SnapshotFound {
		age := status.SnapshotAge.Seconds()
		resp.SnapshotAgeSeconds = &age
	}

	httpStatus := http.StatusOK
	if status.Status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
