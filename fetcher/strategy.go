package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// MaxBodyBytes bounds how much of a single response is read
const MaxBodyBytes = 64 << 20

// Envelope is the shape of a relay response
type Envelope string

const (
	// EnvelopeRaw relays return the resource bytes as the body
	EnvelopeRaw Envelope = "raw"
	// EnvelopeJSON relays wrap the resource in a JSON object
	EnvelopeJSON Envelope = "json"
)

// Valid reports whether e is a known envelope
func (e Envelope) Valid() bool {
	return e == EnvelopeRaw || e == EnvelopeJSON
}

// ErrUnexpectedStatus is returned for non-2xx upstream responses
var ErrUnexpectedStatus = errors.New("unexpected upstream status")

// StatusError is a non-2xx response. Relayed is set when the code was
// reported inside a relay envelope on behalf of the target.
type StatusError struct {
	Code    int
	Relayed bool
}

func (e *StatusError) Error() string {
	if e.Relayed {
		return fmt.Sprintf("%s: relayed status %d", ErrUnexpectedStatus, e.Code)
	}
	return fmt.Sprintf("%s: %d %s", ErrUnexpectedStatus, e.Code, http.StatusText(e.Code))
}

// Is makes every StatusError match ErrUnexpectedStatus
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// Resource is the body of a URL and the URL it was finally served from,
// which differs from the requested one after a redirect.
type Resource struct {
	Body []byte `json:"body"`
	URL  string `json:"url"`
}

// Strategy is one way of retrieving a URL's bytes
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, target string) (Resource, error)
}

// DirectStrategy fetches the target itself
type DirectStrategy struct {
	client  *http.Client
	headers map[string]string
}

// NewDirectStrategy creates a strategy that requests the target URL with the
// given headers (e.g. a client-identifying User-Agent).
func NewDirectStrategy(client *http.Client, headers map[string]string) *DirectStrategy {
	return &DirectStrategy{client: client, headers: headers}
}

// Name implements Strategy
func (d *DirectStrategy) Name() string {
	return "direct"
}

// Fetch implements Strategy. Redirects are followed and reported in the
// returned URL.
func (d *DirectStrategy) Fetch(ctx context.Context, target string) (Resource, error) {
	body, final, err := get(ctx, d.client, target, d.headers)
	if err != nil {
		return Resource{}, err
	}
	return Resource{Body: body, URL: final}, nil
}

// RelayConfig describes a cross-origin relay endpoint
type RelayConfig struct {
	Name string
	// URL is the relay endpoint. A "{url}" placeholder is replaced with the
	// escaped target; otherwise the target is appended as query parameter
	// Param (default "url").
	URL      string
	Param    string
	Envelope Envelope
	Headers  map[string]string
}

// RelayStrategy fetches the target through a third-party relay
type RelayStrategy struct {
	cfg    RelayConfig
	client *http.Client
}

// NewRelayStrategy creates a relay strategy
func NewRelayStrategy(client *http.Client, cfg RelayConfig) *RelayStrategy {
	if cfg.Param == "" {
		cfg.Param = "url"
	}
	if cfg.Envelope == "" {
		cfg.Envelope = EnvelopeRaw
	}
	return &RelayStrategy{cfg: cfg, client: client}
}

// Name implements Strategy
func (r *RelayStrategy) Name() string {
	return r.cfg.Name
}

// RequestURL returns the relay URL that retrieves target
func (r *RelayStrategy) RequestURL(target string) (string, error) {
	if strings.Contains(r.cfg.URL, "{url}") {
		return strings.ReplaceAll(r.cfg.URL, "{url}", url.QueryEscape(target)), nil
	}
	u, err := url.Parse(r.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid relay URL %q: %w", r.cfg.URL, err)
	}
	q := u.Query()
	q.Set(r.cfg.Param, target)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch implements Strategy. Relays do not expose where the target
// redirected to, so the returned URL is always target.
func (r *RelayStrategy) Fetch(ctx context.Context, target string) (Resource, error) {
	relayURL, err := r.RequestURL(target)
	if err != nil {
		return Resource{}, err
	}
	body, _, err := get(ctx, r.client, relayURL, r.cfg.Headers)
	if err != nil {
		return Resource{}, err
	}
	if r.cfg.Envelope == EnvelopeJSON {
		if body, err = decodeJSONEnvelope(body); err != nil {
			return Resource{}, err
		}
	}
	return Resource{Body: body, URL: target}, nil
}

// get returns the body of target and the URL of the request that produced it
func get(ctx context.Context, client *http.Client, target string, headers map[string]string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{Code: resp.StatusCode}
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return content, final, nil
}
