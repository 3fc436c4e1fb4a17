package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ResilienceConfig centralizes all resilience-related configuration
type ResilienceConfig struct {
	// Circuit breaker settings (one breaker per relay)
	CBFailureThreshold int           `yaml:"cb_failure_threshold"`  // Number of failures before opening circuit
	CBTimeout          time.Duration `yaml:"cb_timeout"`            // Timeout before attempting to close circuit
	CBHalfOpenRequests int           `yaml:"cb_half_open_requests"` // Number of requests allowed in half-open state

	// Rate limiting shared by /api and the proxy routes
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`   // Sustained requests per second, 0 disables
	RateLimitBurst int     `yaml:"rate_limit_burst"` // Bucket size

	// Logging settings
	LogLevel  string `yaml:"log_level"`  // Log level: DEBUG, INFO, WARN, ERROR
	LogFormat string `yaml:"log_format"` // Log format: JSON, TEXT
}

var validLogLevels = map[string]bool{
	"DEBUG": true,
	"INFO":  true,
	"WARN":  true,
	"ERROR": true,
}

var validLogFormats = map[string]bool{
	"JSON": true,
	"TEXT": true,
}

// DefaultResilienceConfig returns a ResilienceConfig with sensible defaults
func DefaultResilienceConfig() *ResilienceConfig {
	return &ResilienceConfig{
		// Circuit breaker defaults
		CBFailureThreshold: 5,
		CBTimeout:          30 * time.Second,
		CBHalfOpenRequests: 1,

		// Rate limit defaults
		RateLimitRPS:   20,
		RateLimitBurst: 40,

		// Logging defaults
		LogLevel:  "INFO",
		LogFormat: "JSON",
	}
}

// envParser is a helper for parsing environment variables with validation
type envParser struct {
	errors []string
}

func (p *envParser) err() error {
	if len(p.errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(p.errors, "\n  - "))
	}
	return nil
}

// parseString copies a non-empty environment variable
func (p *envParser) parseString(envName string, target *string) {
	if val := os.Getenv(envName); val != "" {
		*target = val
	}
}

// parseHeader sets header on the target map from a non-empty environment variable
func (p *envParser) parseHeader(envName, header string, target *map[string]string) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}
	if *target == nil {
		*target = make(map[string]string)
	}
	(*target)[header] = val
}

// parseDuration parses a duration environment variable, ensuring it's positive
func (p *envParser) parseDuration(envName string, target *time.Duration) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("%s: invalid duration format (use '30s', '1m', etc.)", envName))
		return
	}

	if duration <= 0 {
		p.errors = append(p.errors, fmt.Sprintf("%s must be positive", envName))
		return
	}

	*target = duration
}

// parseOptionalDuration is parseDuration that also accepts zero
func (p *envParser) parseOptionalDuration(envName string, target *time.Duration) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("%s: invalid duration format (use '30s', '1m', etc.)", envName))
		return
	}

	if duration < 0 {
		p.errors = append(p.errors, fmt.Sprintf("%s must not be negative", envName))
		return
	}

	*target = duration
}

// parseInt parses an integer environment variable, ensuring it's positive
func (p *envParser) parseInt(envName string, target *int) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("%s: must be a valid integer", envName))
		return
	}

	if intVal <= 0 {
		p.errors = append(p.errors, fmt.Sprintf("%s must be positive", envName))
		return
	}

	*target = intVal
}

// parseFloat parses a float environment variable, ensuring it's not negative
func (p *envParser) parseFloat(envName string, target *float64) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("%s: must be a valid number", envName))
		return
	}

	if f < 0 {
		p.errors = append(p.errors, fmt.Sprintf("%s must not be negative", envName))
		return
	}

	*target = f
}

// parseEnum parses an enum environment variable from a set of valid values
func (p *envParser) parseEnum(envName string, target *string, validValues map[string]bool) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	normalized := strings.ToUpper(val)
	if !validValues[normalized] {
		// Build list of valid values for error message
		var validList []string
		for k := range validValues {
			validList = append(validList, k)
		}
		p.errors = append(p.errors, fmt.Sprintf("%s must be one of: %s", envName, strings.Join(validList, ", ")))
		return
	}

	*target = normalized
}

func (p *envParser) loadResilience(cfg *ResilienceConfig) {
	p.parseInt("CB_FAILURE_THRESHOLD", &cfg.CBFailureThreshold)
	p.parseDuration("CB_TIMEOUT", &cfg.CBTimeout)
	p.parseInt("CB_HALF_OPEN_REQUESTS", &cfg.CBHalfOpenRequests)
	p.parseFloat("RATE_LIMIT_RPS", &cfg.RateLimitRPS)
	p.parseInt("RATE_LIMIT_BURST", &cfg.RateLimitBurst)
	p.parseEnum("LOG_LEVEL", &cfg.LogLevel, validLogLevels)
	p.parseEnum("LOG_FORMAT", &cfg.LogFormat, validLogFormats)
}

// LoadFromEnv loads resilience configuration from environment variables
// and returns an error if any value is invalid
func LoadFromEnv() (*ResilienceConfig, error) {
	cfg := DefaultResilienceConfig()
	parser := &envParser{}

	parser.loadResilience(cfg)

	if err := parser.err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate performs additional validation on the configuration
func (c *ResilienceConfig) Validate() error {
	var errors []string

	if c.CBFailureThreshold <= 0 {
		errors = append(errors, "CBFailureThreshold must be positive")
	}

	if c.CBTimeout <= 0 {
		errors = append(errors, "CBTimeout must be positive")
	}

	if c.CBHalfOpenRequests <= 0 {
		errors = append(errors, "CBHalfOpenRequests must be positive")
	}

	if c.RateLimitRPS < 0 {
		errors = append(errors, "RateLimitRPS must not be negative")
	}

	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		errors = append(errors, "RateLimitBurst must be positive when rate limiting is enabled")
	}

	if !validLogLevels[strings.ToUpper(c.LogLevel)] {
		errors = append(errors, "LogLevel must be one of: DEBUG, INFO, WARN, ERROR")
	}

	if !validLogFormats[strings.ToUpper(c.LogFormat)] {
		errors = append(errors, "LogFormat must be one of: JSON, TEXT")
	}

	if len(errors) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
