package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alorle/iptv-relay/cache"
	"github.com/alorle/iptv-relay/circuitbreaker"
	"github.com/alorle/iptv-relay/metrics"
	"github.com/alorle/iptv-relay/validator"
)

const tracerName = "github.com/alorle/iptv-relay/fetcher"

const (
	DefaultTextTimeout   = 10 * time.Second
	DefaultBinaryTimeout = 20 * time.Second
)

// ErrExhaustedStrategies is returned when no strategy produced valid content
var ErrExhaustedStrategies = errors.New("all fetch strategies failed")

// ErrRejected is returned by an attempt whose content the validator refused
var ErrRejected = errors.New("content rejected by validator")

// FetchError is the aggregate failure of one Fetch call. It always matches
// ErrExhaustedStrategies; Cause is set when the caller's context ended early.
type FetchError struct {
	URL      string
	Kind     validator.Kind
	Attempts int
	Cause    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s (%s): %s after %d attempts", e.URL, e.Kind, ErrExhaustedStrategies, e.Attempts)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrExhaustedStrategies}
	}
	return []error{ErrExhaustedStrategies, e.Cause}
}

// Config configures a Fetcher
type Config struct {
	TextTimeout   time.Duration
	BinaryTimeout time.Duration
	// DocumentCache stores successfully fetched text documents by URL (optional)
	DocumentCache cache.Store[Resource]
	// Breaker guards every relay strategy; zero values use breaker defaults.
	// Its Classify is replaced by RelayHealth.
	Breaker circuitbreaker.Config
	Logger  *slog.Logger
}

type guardedStrategy struct {
	strategy Strategy
	breaker  circuitbreaker.CircuitBreaker
}

// Fetcher retrieves resources by trying its strategies in order until one
// yields content the validator accepts.
type Fetcher struct {
	strategies    []guardedStrategy
	documents     cache.Store[Resource]
	textTimeout   time.Duration
	binaryTimeout time.Duration
	logger        *slog.Logger
	tracer        trace.Tracer
}

// New creates a Fetcher. The direct strategy is unguarded; each relay gets
// its own circuit breaker.
func New(cfg Config, direct Strategy, relays ...Strategy) *Fetcher {
	if cfg.TextTimeout <= 0 {
		cfg.TextTimeout = DefaultTextTimeout
	}
	if cfg.BinaryTimeout <= 0 {
		cfg.BinaryTimeout = DefaultBinaryTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	f := &Fetcher{
		documents:     cfg.DocumentCache,
		textTimeout:   cfg.TextTimeout,
		binaryTimeout: cfg.BinaryTimeout,
		logger:        cfg.Logger,
		tracer:        otel.Tracer(tracerName),
	}
	if direct != nil {
		f.strategies = append(f.strategies, guardedStrategy{strategy: direct})
	}
	for _, relay := range relays {
		bc := cfg.Breaker
		bc.Name = relay.Name()
		bc.Logger = cfg.Logger
		bc.Classify = RelayHealth
		bc.OnStateChange = func(name string, _, to circuitbreaker.State) {
			metrics.SetCircuitBreakerState(name, to.String())
			if to == circuitbreaker.StateOpen {
				metrics.RecordCircuitBreakerTrip(name)
			}
		}
		f.strategies = append(f.strategies, guardedStrategy{
			strategy: relay,
			breaker:  circuitbreaker.New(bc),
		})
	}
	return f
}

// Fetch returns the content of url. On failure the returned error wraps
// ErrExhaustedStrategies.
func (f *Fetcher) Fetch(ctx context.Context, url string, kind validator.Kind) ([]byte, error) {
	res, err := f.FetchResource(ctx, url, kind)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// FetchResource is Fetch that also reports the URL the content was served
// from. Text documents are served from the document cache while fresh.
func (f *Fetcher) FetchResource(ctx context.Context, url string, kind validator.Kind) (Resource, error) {
	ctx, span := f.tracer.Start(ctx, "fetcher.Fetch", trace.WithAttributes(
		attribute.String("fetch.url", url),
		attribute.String("fetch.kind", kind.String()),
	))
	defer span.End()

	cacheKey := cache.DeriveKeyFromURL(url)
	if kind == validator.TextPlaylist && f.documents != nil {
		cached, found, err := f.documents.Get(ctx, cacheKey)
		if err != nil {
			f.logger.Warn("document cache lookup failed", "url", url, "error", err)
		}
		metrics.RecordCacheLookup("document", found)
		if found {
			span.SetAttributes(attribute.Bool("fetch.cache_hit", true))
			return cached, nil
		}
	}

	attempts := 0
	for _, gs := range f.strategies {
		if err := ctx.Err(); err != nil {
			return Resource{}, f.fail(span, url, kind, attempts, err)
		}
		attempts++

		res, err := f.attempt(ctx, gs, url, kind)
		if err != nil {
			continue
		}
		if res.URL == "" {
			res.URL = url
		}

		span.SetAttributes(attribute.String("fetch.strategy", gs.strategy.Name()))
		if kind == validator.TextPlaylist && f.documents != nil {
			if setErr := f.documents.Set(ctx, cacheKey, res); setErr != nil {
				f.logger.Warn("failed to update document cache", "url", url, "error", setErr)
			}
		}
		return res, nil
	}

	return Resource{}, f.fail(span, url, kind, attempts, nil)
}

func (f *Fetcher) fail(span trace.Span, url string, kind validator.Kind, attempts int, cause error) error {
	metrics.RecordFetchExhausted(kind.String())
	err := &FetchError{URL: url, Kind: kind, Attempts: attempts, Cause: cause}
	span.RecordError(err)
	span.SetStatus(codes.Error, ErrExhaustedStrategies.Error())
	f.logger.Warn("fetch failed", "url", url, "kind", kind.String(), "attempts", attempts, "cause", cause)
	return err
}

// attempt runs one strategy under its own timeout
func (f *Fetcher) attempt(ctx context.Context, gs guardedStrategy, url string, kind validator.Kind) (Resource, error) {
	name := gs.strategy.Name()
	ctx, span := f.tracer.Start(ctx, "fetcher.attempt", trace.WithAttributes(
		attribute.String("fetch.strategy", name),
	))
	defer span.End()

	timeout := f.textTimeout
	if kind == validator.BinarySegment {
		timeout = f.binaryTimeout
	}

	var res Resource
	run := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		fetched, err := gs.strategy.Fetch(attemptCtx, url)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", errCallerGone, err)
			}
			return err
		}
		if reason := validator.Reason(fetched.Body, kind, url); reason != "" {
			return fmt.Errorf("%w: %s", ErrRejected, reason)
		}
		res = fetched
		return nil
	}

	var err error
	if gs.breaker != nil {
		err = gs.breaker.Execute(run)
	} else {
		err = run()
	}

	outcome := outcomeOf(err)
	metrics.RecordFetchAttempt(name, outcome)
	span.SetAttributes(attribute.String("fetch.outcome", outcome))
	if err != nil {
		span.SetStatus(codes.Error, outcome)
		f.logger.Debug("fetch attempt failed", "strategy", name, "url", url, "outcome", outcome, "error", err)
		return Resource{}, err
	}
	return res, nil
}

// errCallerGone marks an attempt cut short by the caller's own context
var errCallerGone = errors.New("caller gave up")

// RelayHealth classifies attempt errors for the relay breakers. The target's
// 4xx passed through a relay counts as healthy. Validator rejections and
// attempts the caller abandoned are inconclusive. Everything else, including
// 5xx and 429 answers, counts against the relay.
func RelayHealth(err error) circuitbreaker.Verdict {
	var status *StatusError
	switch {
	case err == nil:
		return circuitbreaker.Healthy
	case errors.Is(err, errCallerGone), errors.Is(err, ErrRejected):
		return circuitbreaker.Inconclusive
	case errors.As(err, &status):
		if !status.Relayed && (status.Code >= 500 || status.Code == http.StatusTooManyRequests) {
			return circuitbreaker.Unhealthy
		}
		return circuitbreaker.Healthy
	default:
		return circuitbreaker.Unhealthy
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrHalfOpenLimitReached):
		return "circuit_open"
	case errors.Is(err, errCallerGone):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrUnexpectedStatus):
		return "bad_status"
	default:
		return "error"
	}
}

var _ Interface = (*Fetcher)(nil)
