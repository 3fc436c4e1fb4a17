package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(promhttp.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}

func TestMetricsEndpoint(t *testing.T) {
	RecordFetchAttempt("init", "success")
	RecordFetchExhausted("text")
	RecordCacheLookup("document", true)
	RecordRegistration("manifest", 1)
	RecordCatalogLoad("sports", "upstream", 10)
	SetCircuitBreakerState("init", "CLOSED")
	RecordCircuitBreakerTrip("init")
	RecordRateLimited()

	output := scrape(t)

	expectedMetrics := []string{
		"iptv_relay_fetch_attempts_total",
		"iptv_relay_fetch_exhausted_total",
		"iptv_relay_cache_lookups_total",
		"iptv_relay_registry_handles",
		"iptv_relay_registry_registrations_total",
		"iptv_relay_catalog_loads_total",
		"iptv_relay_catalog_channels",
		"iptv_relay_circuit_breaker_state",
		"iptv_relay_circuit_breaker_trips_total",
		"iptv_relay_rate_limited_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(output, metric) {
			t.Errorf("Expected metric %s not found in output", metric)
		}
	}
}

func TestMetricsValues(t *testing.T) {
	RecordFetchAttempt("direct", "rejected")
	SetCircuitBreakerState("relay-open", "OPEN")
	SetCircuitBreakerState("relay-half", "HALF-OPEN")
	RecordCacheLookup("catalog", false)
	SetRegistryHandles(42)

	output := scrape(t)

	expectedLines := []string{
		`iptv_relay_fetch_attempts_total{outcome="rejected",strategy="direct"}`,
		`iptv_relay_circuit_breaker_state{strategy="relay-open"} 1`,
		`iptv_relay_circuit_breaker_state{strategy="relay-half"} 2`,
		`iptv_relay_cache_lookups_total{cache="catalog",result="miss"}`,
		`iptv_relay_registry_handles 42`,
	}

	for _, line := range expectedLines {
		if !strings.Contains(output, line) {
			t.Errorf("Expected line %q not found in output", line)
		}
	}
}
