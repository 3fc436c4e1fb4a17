package driver

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alorle/iptv-relay/internal/application"
	"github.com/alorle/iptv-relay/internal/streaming"
	"github.com/alorle/iptv-relay/logging"
	"github.com/alorle/iptv-relay/validator"
)

// ProxyHTTPHandler relays arbitrary URLs through the fetch strategy chain.
type ProxyHTTPHandler struct {
	service      *application.InterceptionService
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewProxyHTTPHandler creates a new HTTP handler for passthrough fetches.
// writeTimeout bounds each chunk written to the client.
func NewProxyHTTPHandler(service *application.InterceptionService, writeTimeout time.Duration, logger *slog.Logger) *ProxyHTTPHandler {
	return &ProxyHTTPHandler{service: service, writeTimeout: writeTimeout, logger: logger}
}

// ServeHTTP handles GET /api/proxy?url={target}
func (h *ProxyHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "missing 'url' query parameter")
		return
	}

	log := logging.FromContext(r.Context(), h.logger)
	body, kind, err := h.service.Passthrough(r.Context(), target)
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Warn("passthrough failed", "error", err)
		}
		writeError(w, status, msg)
		return
	}

	contentType := contentTypeKey
	if kind == validator.TextPlaylist {
		contentType = contentTypeManifest
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	setNoCache(w)
	w.WriteHeader(http.StatusOK)

	tw := streaming.NewTimeoutWriter(w, h.writeTimeout, log, "passthrough", target)
	if err := tw.WriteChunked(body, streaming.DefaultChunkSize); err != nil {
		log.Warn("aborted delivery", "resource", "passthrough",
			"bytes_written", tw.BytesWritten(), "error", err)
	}
}
