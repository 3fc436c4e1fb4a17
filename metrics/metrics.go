package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttempts tracks single strategy attempts by strategy and outcome
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_relay_fetch_attempts_total",
		Help: "Total number of fetch strategy attempts",
	}, []string{"strategy", "outcome"})

	// FetchExhausted tracks fetches where every strategy failed
	FetchExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_relay_fetch_exhausted_total",
		Help: "Total number of fetches that exhausted all strategies",
	}, []string{"kind"})

	// CacheLookups tracks cache hits and misses per cache
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_relay_cache_lookups_total",
		Help: "Total number of cache lookups",
	}, []string{"cache", "result"})

	// RegistryHandles tracks the number of live resource handles
	RegistryHandles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_relay_registry_handles",
		Help: "Number of live resource handles",
	})

	// RegistryRegistrations tracks registrations by resource kind
	RegistryRegistrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_relay_registry_registrations_total",
		Help: "Total number of resource registrations",
	}, []string{"kind"})

	// CatalogLoads tracks catalog loads by profile and source
	CatalogLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_relay_catalog_loads_total",
		Help: "Total number of catalog loads",
	}, []string{"profile", "source"})

	// CatalogChannels tracks the channel count of the last catalog per profile
	CatalogChannels = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iptv_relay_catalog_channels",
		Help: "Number of channels in the last built catalog",
	}, []string{"profile"})

	// CircuitBreakerState tracks the current state of circuit breakers
	// 0=closed, 1=open, 2=half-open
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iptv_relay_circuit_breaker_state",
		Help: "Current state of circuit breaker (0=closed, 1=open, 2=half-open)",
	}, []string{"strategy"})

	// CircuitBreakerTrips tracks how many times a circuit breaker transitioned to OPEN
	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_relay_circuit_breaker_trips_total",
		Help: "Total number of times circuit breaker transitioned to OPEN state",
	}, []string{"strategy"})

	// RateLimited tracks requests rejected by the rate limiter
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptv_relay_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	})
)

// SetCircuitBreakerState updates the circuit breaker state metric
// state should be one of: "CLOSED" (0), "OPEN" (1), "HALF-OPEN" (2)
func SetCircuitBreakerState(strategy, state string) {
	var value float64
	switch state {
	case "CLOSED":
		value = 0
	case "OPEN":
		value = 1
	case "HALF-OPEN":
		value = 2
	}
	CircuitBreakerState.WithLabelValues(strategy).Set(value)
}

// RecordCircuitBreakerTrip increments the circuit breaker trip counter
func RecordCircuitBreakerTrip(strategy string) {
	CircuitBreakerTrips.WithLabelValues(strategy).Inc()
}

// RecordFetchAttempt counts one strategy attempt
func RecordFetchAttempt(strategy, outcome string) {
	FetchAttempts.WithLabelValues(strategy, outcome).Inc()
}

// RecordFetchExhausted counts a fetch that no strategy could serve
func RecordFetchExhausted(kind string) {
	FetchExhausted.WithLabelValues(kind).Inc()
}

// RecordCacheLookup counts a cache hit or miss
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordRegistration counts a registration and updates the live handle gauge
func RecordRegistration(kind string, live int) {
	RegistryRegistrations.WithLabelValues(kind).Inc()
	RegistryHandles.Set(float64(live))
}

// SetRegistryHandles sets the live handle gauge
func SetRegistryHandles(live int) {
	RegistryHandles.Set(float64(live))
}

// RecordCatalogLoad counts a catalog load and records its size
func RecordCatalogLoad(profile, source string, channels int) {
	CatalogLoads.WithLabelValues(profile, source).Inc()
	CatalogChannels.WithLabelValues(profile).Set(float64(channels))
}

// RecordRateLimited counts a rejected request
func RecordRateLimited() {
	RateLimited.Inc()
}
