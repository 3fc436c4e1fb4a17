package driver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alorle/iptv-relay/internal/application"
	"github.com/alorle/iptv-relay/registry"
)

type fixedSnapshotAge time.Duration

func (f fixedSnapshotAge) SnapshotAge(ctx context.Context) (time.Duration, error) {
	return time.Duration(f), nil
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestHealthHTTPHandler_ServeHTTP(t *testing.T) {
	t.Run("GET /health reports snapshot age", func(t *testing.T) {
		service := application.NewHealthService(&mockSnapshotRepository{}, nil, registry.New(), fixedSnapshotAge(90*time.Second))
		handler := NewHealthHTTPHandler(service)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}

		var resp healthResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.SnapshotAgeSeconds == nil || *resp.SnapshotAgeSeconds != 90 {
			t.Errorf("expected snapshot_age_seconds 90, got %v", resp.SnapshotAgeSeconds)
		}
	})

	t.Run("GET /health returns 503 when the cache is unavailable", func(t *testing.T) {
		service := application.NewHealthService(&mockSnapshotRepository{}, failingPinger{}, registry.New(), nil)
		handler := NewHealthHTTPHandler(service)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rec.Code)
		}

		var resp healthResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "degraded" || resp.Cache != "error" {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("DELETE /health returns 405 Method Not Allowed", func(t *testing.T) {
		service := application.NewHealthService(&mockSnapshotRepository{}, nil, registry.New(), nil)
		handler := NewHealthHTTPHandler(service)

		req := httptest.NewRequest(http.MethodDelete, "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", rec.Code)
		}

		var resp errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Error != "method not allowed" {
			t.Errorf("expected error 'method not allowed', got '%s'", resp.Error)
		}
	})
}
