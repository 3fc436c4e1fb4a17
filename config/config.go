package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alorle/iptv-relay/catalog"
	"github.com/alorle/iptv-relay/fetcher"
)

// RelaySource describes one cross-origin relay in fetch priority order
type RelaySource struct {
	Name string `yaml:"name"`
	// URL may contain a {url} placeholder; otherwise the target is passed
	// as the Param query parameter
	URL      string            `yaml:"url"`
	Param    string            `yaml:"param"`
	Envelope string            `yaml:"envelope"`
	Headers  map[string]string `yaml:"headers"`
}

// ProfileConfig describes one catalog variant
type ProfileConfig struct {
	Name        string        `yaml:"name"`
	Language    string        `yaml:"language"`
	Keywords    []string      `yaml:"keywords"`
	Ordering    string        `yaml:"ordering"`
	MaxChannels int           `yaml:"max_channels"`
	PortMarker  string        `yaml:"port_marker"`
	TTL         time.Duration `yaml:"ttl"`
}

// Config holds the complete application configuration
type Config struct {
	// HTTP server settings
	HTTP struct {
		Address             string        `yaml:"address"`
		Port                string        `yaml:"port"`
		ReadTimeout         time.Duration `yaml:"read_timeout"`
		WriteTimeout        time.Duration `yaml:"write_timeout"`
		SegmentWriteTimeout time.Duration `yaml:"segment_write_timeout"`
	} `yaml:"http"`

	// Interception proxy settings
	Proxy struct {
		// BasePath prefixes every rewritten reference, e.g. "/proxy"
		BasePath string `yaml:"base_path"`
	} `yaml:"proxy"`

	// Multi-strategy fetch settings
	Fetch struct {
		TextTimeout   time.Duration     `yaml:"text_timeout"`
		BinaryTimeout time.Duration     `yaml:"binary_timeout"`
		Headers       map[string]string `yaml:"headers"`
		Relays        []RelaySource     `yaml:"relays"`
	} `yaml:"fetch"`

	// Cache settings
	Cache struct {
		DocumentTTL time.Duration `yaml:"document_ttl"`
		// RedisURL enables the shared catalog cache when set
		RedisURL string `yaml:"redis_url"`
	} `yaml:"cache"`

	// Channel catalog settings
	Catalog struct {
		SourceURL string            `yaml:"source_url"`
		Headers   map[string]string `yaml:"headers"`
		Profiles  []ProfileConfig   `yaml:"profiles"`
	} `yaml:"catalog"`

	// Resource registry settings
	Registry struct {
		// MaxAge of zero keeps handles for the whole process lifetime
		MaxAge        time.Duration `yaml:"max_age"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
	} `yaml:"registry"`

	// Persistent storage settings
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	// Tracing settings
	Telemetry struct {
		// OTLPEndpoint enables trace export when set, e.g. "localhost:4318"
		OTLPEndpoint string  `yaml:"otlp_endpoint"`
		ServiceName  string  `yaml:"service_name"`
		SampleRate   float64 `yaml:"sample_rate"`
	} `yaml:"telemetry"`

	// Resilience settings (embedded)
	Resilience ResilienceConfig `yaml:"resilience"`
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTP.Address == "" {
		errors = append(errors, "HTTP address is required")
	}
	if c.HTTP.Port == "" {
		errors = append(errors, "HTTP port is required")
	}
	if c.HTTP.ReadTimeout <= 0 {
		errors = append(errors, "HTTP read timeout must be positive")
	}
	if c.HTTP.SegmentWriteTimeout <= 0 {
		errors = append(errors, "HTTP segment write timeout must be positive")
	}
	if worst := c.WorstCaseFetch(); c.HTTP.WriteTimeout > 0 && worst > c.HTTP.WriteTimeout {
		errors = append(errors, fmt.Sprintf("HTTP write timeout %s is shorter than the worst-case fetch chain %s", c.HTTP.WriteTimeout, worst))
	}

	if !strings.HasPrefix(c.Proxy.BasePath, "/") || strings.HasSuffix(c.Proxy.BasePath, "/") {
		errors = append(errors, "Proxy base path must start with '/' and must not end with '/'")
	}

	if c.Fetch.TextTimeout <= 0 {
		errors = append(errors, "Fetch text timeout must be positive")
	}
	if c.Fetch.BinaryTimeout <= 0 {
		errors = append(errors, "Fetch binary timeout must be positive")
	}
	seenRelays := make(map[string]bool, len(c.Fetch.Relays))
	for i, relay := range c.Fetch.Relays {
		if relay.Name == "" {
			errors = append(errors, fmt.Sprintf("Relay %d: name is required", i))
		} else if seenRelays[relay.Name] {
			errors = append(errors, fmt.Sprintf("Relay %d (%s): duplicate name", i, relay.Name))
		}
		seenRelays[relay.Name] = true
		if !isHTTPURL(strings.ReplaceAll(relay.URL, "{url}", "x")) {
			errors = append(errors, fmt.Sprintf("Relay %d (%s): URL must be an absolute http(s) URL", i, relay.Name))
		}
		if relay.Envelope != "" && !fetcher.Envelope(relay.Envelope).Valid() {
			errors = append(errors, fmt.Sprintf("Relay %d (%s): envelope must be raw or json", i, relay.Name))
		}
	}

	if c.Cache.DocumentTTL <= 0 {
		errors = append(errors, "Cache document TTL must be positive")
	}
	if c.Cache.RedisURL != "" && !strings.HasPrefix(c.Cache.RedisURL, "redis://") && !strings.HasPrefix(c.Cache.RedisURL, "rediss://") {
		errors = append(errors, "Cache redis URL must use the redis:// or rediss:// scheme")
	}

	if c.Catalog.SourceURL != "" && !isHTTPURL(c.Catalog.SourceURL) {
		errors = append(errors, "Catalog source URL must be an absolute http(s) URL")
	}
	if len(c.Catalog.Profiles) == 0 {
		errors = append(errors, "At least one catalog profile is required")
	}
	seenProfiles := make(map[string]bool, len(c.Catalog.Profiles))
	for i, p := range c.Catalog.Profiles {
		if p.Name == "" {
			errors = append(errors, fmt.Sprintf("Profile %d: name is required", i))
		} else if seenProfiles[p.Name] {
			errors = append(errors, fmt.Sprintf("Profile %d (%s): duplicate name", i, p.Name))
		}
		seenProfiles[p.Name] = true
		if !catalog.Ordering(p.Ordering).Valid() {
			errors = append(errors, fmt.Sprintf("Profile %d (%s): ordering must be category or sortkey", i, p.Name))
		}
		if p.MaxChannels < 0 {
			errors = append(errors, fmt.Sprintf("Profile %d (%s): max channels must not be negative", i, p.Name))
		}
		if p.TTL <= 0 {
			errors = append(errors, fmt.Sprintf("Profile %d (%s): TTL must be positive", i, p.Name))
		}
	}

	if c.Registry.MaxAge < 0 {
		errors = append(errors, "Registry max age must not be negative")
	}
	if c.Registry.MaxAge > 0 && c.Registry.SweepInterval <= 0 {
		errors = append(errors, "Registry sweep interval must be positive when max age is set")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errors = append(errors, "Telemetry sample rate must be between 0 and 1")
	}

	if c.Storage.Path == "" {
		errors = append(errors, "Storage path is required")
	}

	if err := c.Resilience.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("Resilience config: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// WorstCaseFetch is how long a request may wait on upstreams when the direct
// attempt and every relay each run into their timeout.
func (c *Config) WorstCaseFetch() time.Duration {
	strategies := time.Duration(1 + len(c.Fetch.Relays))
	return max(c.Fetch.TextTimeout, c.Fetch.BinaryTimeout) * strategies
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Default returns a Config with sensible default values
func Default() *Config {
	cfg := &Config{}

	cfg.HTTP.Address = "127.0.0.1"
	cfg.HTTP.Port = "8080"
	cfg.HTTP.ReadTimeout = 15 * time.Second
	cfg.HTTP.WriteTimeout = 90 * time.Second
	cfg.HTTP.SegmentWriteTimeout = 10 * time.Second

	cfg.Proxy.BasePath = "/proxy"

	cfg.Fetch.TextTimeout = 10 * time.Second
	cfg.Fetch.BinaryTimeout = 20 * time.Second
	cfg.Fetch.Headers = map[string]string{
		"User-Agent": "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	}
	cfg.Fetch.Relays = []RelaySource{
		{Name: "allorigins", URL: "https://api.allorigins.win/get?url={url}", Envelope: "json"},
		{Name: "corsproxy", URL: "https://corsproxy.io/?url={url}", Envelope: "raw"},
		{Name: "codetabs", URL: "https://api.codetabs.com/v1/proxy", Param: "quest", Envelope: "raw"},
	}

	cfg.Cache.DocumentTTL = 4 * time.Second

	cfg.Catalog.Headers = map[string]string{
		"User-Agent": "VLC/3.0.20 LibVLC/3.0.20",
	}
	cfg.Catalog.Profiles = []ProfileConfig{
		{
			Name:        "sports",
			Language:    "tr",
			Keywords:    catalog.SportsKeywords(),
			Ordering:    "category",
			MaxChannels: 50,
			PortMarker:  ":8080",
			TTL:         time.Hour,
		},
		{
			Name:     "all",
			Language: "tr",
			Ordering: "sortkey",
			TTL:      30 * time.Minute,
		},
	}

	cfg.Registry.MaxAge = 0
	cfg.Registry.SweepInterval = 5 * time.Minute

	cfg.Storage.Path = "iptv-relay.db"

	cfg.Telemetry.ServiceName = "iptv-relay"
	cfg.Telemetry.SampleRate = 0.1

	cfg.Resilience = *DefaultResilienceConfig()

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load reads .env (if present), loads the YAML file named by CONFIG_FILE
// (default config.yaml, optional), applies environment overrides and
// validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg = Default()
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) error {
	p := &envParser{}

	p.parseString("HTTP_ADDRESS", &cfg.HTTP.Address)
	p.parseString("HTTP_PORT", &cfg.HTTP.Port)
	p.parseDuration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout)
	p.parseDuration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout)
	p.parseDuration("HTTP_SEGMENT_WRITE_TIMEOUT", &cfg.HTTP.SegmentWriteTimeout)

	p.parseString("PROXY_BASE_PATH", &cfg.Proxy.BasePath)

	p.parseDuration("FETCH_TEXT_TIMEOUT", &cfg.Fetch.TextTimeout)
	p.parseDuration("FETCH_BINARY_TIMEOUT", &cfg.Fetch.BinaryTimeout)
	p.parseHeader("FETCH_USER_AGENT", "User-Agent", &cfg.Fetch.Headers)

	p.parseDuration("CACHE_DOCUMENT_TTL", &cfg.Cache.DocumentTTL)
	p.parseString("REDIS_URL", &cfg.Cache.RedisURL)

	p.parseString("CATALOG_SOURCE_URL", &cfg.Catalog.SourceURL)
	p.parseHeader("CATALOG_USER_AGENT", "User-Agent", &cfg.Catalog.Headers)

	p.parseOptionalDuration("REGISTRY_MAX_AGE", &cfg.Registry.MaxAge)
	p.parseDuration("REGISTRY_SWEEP_INTERVAL", &cfg.Registry.SweepInterval)

	if val := os.Getenv("STORAGE_PATH"); val != "" {
		absPath, err := filepath.Abs(val)
		if err != nil {
			p.errors = append(p.errors, fmt.Sprintf("STORAGE_PATH: %v", err))
		} else {
			cfg.Storage.Path = absPath
		}
	}

	p.parseString("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	p.parseString("OTEL_SERVICE_NAME", &cfg.Telemetry.ServiceName)
	p.parseFloat("OTEL_TRACE_SAMPLE_RATE", &cfg.Telemetry.SampleRate)

	p.loadResilience(&cfg.Resilience)

	return p.err()
}

// CatalogProfiles converts the configured profiles to catalog profiles
func (c *Config) CatalogProfiles() []catalog.Profile {
	profiles := make([]catalog.Profile, 0, len(c.Catalog.Profiles))
	for _, p := range c.Catalog.Profiles {
		profiles = append(profiles, catalog.Profile{
			Name:        p.Name,
			Language:    p.Language,
			Keywords:    append([]string(nil), p.Keywords...),
			Ordering:    catalog.Ordering(p.Ordering),
			MaxChannels: p.MaxChannels,
			PortMarker:  p.PortMarker,
			TTL:         p.TTL,
		})
	}
	return profiles
}

// RelayConfigs converts the configured relays to fetcher relay configs
func (c *Config) RelayConfigs() []fetcher.RelayConfig {
	relays := make([]fetcher.RelayConfig, 0, len(c.Fetch.Relays))
	for _, r := range c.Fetch.Relays {
		relays = append(relays, fetcher.RelayConfig{
			Name:     r.Name,
			URL:      r.URL,
			Param:    r.Param,
			Envelope: fetcher.Envelope(r.Envelope),
			Headers:  r.Headers,
		})
	}
	return relays
}

// Print outputs the configuration to stdout
func (c *Config) Print() {
	fmt.Printf("httpAddress: %v\n", c.HTTP.Address)
	fmt.Printf("httpPort: %v\n", c.HTTP.Port)
	fmt.Printf("proxyBasePath: %v\n", c.Proxy.BasePath)
	fmt.Printf("fetchTextTimeout: %v\n", c.Fetch.TextTimeout)
	fmt.Printf("fetchBinaryTimeout: %v\n", c.Fetch.BinaryTimeout)
	fmt.Printf("relays: %d\n", len(c.Fetch.Relays))
	for _, r := range c.Fetch.Relays {
		fmt.Printf("  - %s (%s): %s\n", r.Name, r.Envelope, r.URL)
	}
	fmt.Printf("documentCacheTTL: %v\n", c.Cache.DocumentTTL)
	fmt.Printf("redisEnabled: %v\n", c.Cache.RedisURL != "")
	fmt.Printf("catalogSourceURL: %v\n", c.Catalog.SourceURL)
	fmt.Printf("profiles: %d\n", len(c.Catalog.Profiles))
	for _, p := range c.Catalog.Profiles {
		fmt.Printf("  - %s: ordering=%s max=%d ttl=%v\n", p.Name, p.Ordering, p.MaxChannels, p.TTL)
	}
	fmt.Printf("registryMaxAge: %v\n", c.Registry.MaxAge)
	fmt.Printf("storagePath: %v\n", c.Storage.Path)
	fmt.Printf("otlpEndpoint: %v\n", c.Telemetry.OTLPEndpoint)
	fmt.Printf("logLevel: %v\n", c.Resilience.LogLevel)
}
