package driver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alorle/iptv-relay/internal/application"
	"github.com/alorle/iptv-relay/internal/streaming"
	"github.com/alorle/iptv-relay/logging"
)

const (
	contentTypeManifest = "application/vnd.apple.mpegurl"
	contentTypeSegment  = "video/mp2t"
	contentTypeKey      = "application/octet-stream"
)

// InterceptionHTTPHandler exposes stream registration and the proxy paths
// that rewritten playlists point at.
type InterceptionHTTPHandler struct {
	service      *application.InterceptionService
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewInterceptionHTTPHandler creates the handler. writeTimeout bounds each
// chunk written to a segment or key client; zero disables the guard.
func NewInterceptionHTTPHandler(service *application.InterceptionService, writeTimeout time.Duration, logger *slog.Logger) *InterceptionHTTPHandler {
	return &InterceptionHTTPHandler{
		service:      service,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// registerRequest represents the JSON body for registering a stream.
type registerRequest struct {
	URL string `json:"url"`
}

// HandleRegister handles POST /api/register and GET /api/register?url=
func (h *InterceptionHTTPHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var rawURL string
	switch r.Method {
	case http.MethodGet:
		rawURL = r.URL.Query().Get("url")
	case http.MethodPost:
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rawURL = req.URL
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reg, err := h.service.RegisterStream(rawURL)
	if err != nil {
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// HandleManifest handles GET {proxyBase}/manifest/{id}
func (h *InterceptionHTTPHandler) HandleManifest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := h.service.ResolveManifest(r.Context(), id)
	if err != nil {
		h.fail(w, r, "manifest", id, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeManifest)
	setNoCache(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// HandleSegment handles GET {proxyBase}/segment/{id}
func (h *InterceptionHTTPHandler) HandleSegment(w http.ResponseWriter, r *http.Request) {
	h.serveBinary(w, r, "segment", contentTypeSegment, h.service.ResolveSegment)
}

// HandleKey handles GET {proxyBase}/key/{id}
func (h *InterceptionHTTPHandler) HandleKey(w http.ResponseWriter, r *http.Request) {
	h.serveBinary(w, r, "key", contentTypeKey, h.service.ResolveKey)
}

func (h *InterceptionHTTPHandler) serveBinary(
	w http.ResponseWriter,
	r *http.Request,
	resource, contentType string,
	resolve func(ctx context.Context, id string) ([]byte, error),
) {
	id := chi.URLParam(r, "id")
	body, err := resolve(r.Context(), id)
	if err != nil {
		h.fail(w, r, resource, id, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)

	log := logging.FromContext(r.Context(), h.logger)
	tw := streaming.NewTimeoutWriter(w, h.writeTimeout, log, resource, id)
	if err := tw.WriteChunked(body, streaming.DefaultChunkSize); err != nil {
		// Headers are gone; the client sees a truncated body
		log.Warn("aborted delivery", "resource", resource, "id", id,
			"bytes_written", tw.BytesWritten(), "error", err)
	}
}

func (h *InterceptionHTTPHandler) fail(w http.ResponseWriter, r *http.Request, resource, id string, err error) {
	status, msg := statusFor(err)
	log := logging.FromContext(r.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		log.Warn("resolution failed", "resource", resource, "id", id, "error", err)
	} else {
		log.Debug("resolution failed", "resource", resource, "id", id, "error", err)
	}
	writeError(w, status, msg)
}
