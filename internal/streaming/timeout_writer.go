package streaming

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultChunkSize is the slice of a response body each deadline covers
const DefaultChunkSize = 64 * 1024

var (
	// ErrWriteTimeout indicates a write operation timed out.
	ErrWriteTimeout = errors.New("write timeout")
)

// TimeoutWriter wraps an io.Writer and enforces a write timeout per write.
// A client that does not accept a chunk within the timeout is considered
// slow and the write fails with ErrWriteTimeout.
type TimeoutWriter struct {
	dst          io.Writer
	rc           *http.ResponseController
	timeout      time.Duration
	logger       *slog.Logger
	resource     string
	id           string
	bytesWritten int64
}

// NewTimeoutWriter creates a new timeout-aware writer. resource and id
// identify what is being delivered in log records (e.g. "segment", "17").
func NewTimeoutWriter(dst io.Writer, timeout time.Duration, logger *slog.Logger, resource, id string) *TimeoutWriter {
	tw := &TimeoutWriter{
		dst:      dst,
		timeout:  timeout,
		logger:   logger,
		resource: resource,
		id:       id,
	}
	if rw, ok := dst.(http.ResponseWriter); ok {
		tw.rc = http.NewResponseController(rw)
	}
	return tw
}

// Write writes data to the underlying writer with a timeout.
func (tw *TimeoutWriter) Write(p []byte) (n int, err error) {
	if tw.rc != nil && tw.timeout > 0 {
		if err := tw.rc.SetWriteDeadline(time.Now().Add(tw.timeout)); err != nil {
			// Writers without deadline support (e.g. recorders) are written to as is
			tw.logger.Debug("failed to set write deadline",
				"resource", tw.resource,
				"id", tw.id,
				"error", err)
		}
	}

	n, err = tw.dst.Write(p)
	tw.bytesWritten += int64(n)

	if err != nil && isTimeoutError(err) {
		tw.logger.Warn("slow client detected - write timeout",
			"resource", tw.resource,
			"id", tw.id,
			"timeout", tw.timeout,
			"bytes_written", tw.bytesWritten,
			"error", err)
		return n, fmt.Errorf("%w: %v", ErrWriteTimeout, err)
	}

	return n, err
}

// WriteChunked writes body in chunks of at most chunkSize bytes so that
// each chunk gets its own deadline.
func (tw *TimeoutWriter) WriteChunked(body []byte, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	for len(body) > 0 {
		end := min(chunkSize, len(body))
		if _, err := tw.Write(body[:end]); err != nil {
			return err
		}
		body = body[end:]
	}
	return nil
}

// BytesWritten returns the total number of bytes written successfully.
func (tw *TimeoutWriter) BytesWritten() int64 {
	return tw.bytesWritten
}

// isTimeoutError checks if an error is a timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline")
}
