package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/alorle/iptv-relay/fetcher"
	"github.com/alorle/iptv-relay/internal/port/driven"
	"github.com/alorle/iptv-relay/metrics"
	"github.com/alorle/iptv-relay/registry"
	"github.com/alorle/iptv-relay/rewriter"
	"github.com/alorle/iptv-relay/validator"
)

// ErrInvalidURL is returned when a URL to register is not absolute http(s)
var ErrInvalidURL = errors.New("url must be an absolute http(s) URL")

// Registration is the result of registering a channel's stream URL
type Registration struct {
	ID           string `json:"id"`
	ManifestPath string `json:"manifestPath"`
}

// InterceptionService wires the registry, fetcher and rewriter together:
// real URLs go in once, and from then on only proxy paths come out.
type InterceptionService struct {
	registry driven.ResourceRegistry
	fetcher  fetcher.Interface
	rewriter *rewriter.Rewriter
	logger   *slog.Logger
}

// NewInterceptionService creates the service. Rewritten documents reference
// child resources under proxyBase.
func NewInterceptionService(reg driven.ResourceRegistry, f fetcher.Interface, proxyBase string, logger *slog.Logger) *InterceptionService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &InterceptionService{
		registry: reg,
		fetcher:  f,
		logger:   logger,
	}
	s.rewriter = rewriter.New(s, proxyBase)
	return s
}

// Register implements rewriter.Registrar and records registry metrics
func (s *InterceptionService) Register(realURL string, kind registry.Kind) registry.Handle {
	h := s.registry.Register(realURL, kind)
	metrics.RecordRegistration(kind.String(), s.registry.Len())
	return h
}

// RegisterStream registers a channel's top-level stream URL as a manifest.
func (s *InterceptionService) RegisterStream(rawURL string) (Registration, error) {
	trimmed, err := parseTarget(rawURL)
	if err != nil {
		return Registration{}, err
	}

	h := s.Register(trimmed, registry.Manifest)
	s.logger.Debug("stream registered", "id", h.ID)

	return Registration{
		ID:           h.ID,
		ManifestPath: s.rewriter.ProxyPath(registry.Manifest, h.ID),
	}, nil
}

// ResolveManifest fetches the playlist behind id and returns it rewritten.
// Relative references are resolved against the URL the playlist was served
// from, which after a redirect is not the registered one.
func (s *InterceptionService) ResolveManifest(ctx context.Context, id string) ([]byte, error) {
	h, err := s.resolve(id, registry.Manifest)
	if err != nil {
		return nil, err
	}

	document, err := s.fetcher.FetchResource(ctx, h.RealURL, validator.TextPlaylist)
	if err != nil {
		return nil, err
	}

	base := document.URL
	if base == "" {
		base = h.RealURL
	}
	return s.rewriter.Rewrite(document.Body, base), nil
}

// ResolveSegment fetches the media segment behind id
func (s *InterceptionService) ResolveSegment(ctx context.Context, id string) ([]byte, error) {
	return s.resolveBinary(ctx, id, registry.Segment)
}

// ResolveKey fetches the encryption key behind id
func (s *InterceptionService) ResolveKey(ctx context.Context, id string) ([]byte, error) {
	return s.resolveBinary(ctx, id, registry.Key)
}

// Passthrough fetches rawURL through the strategy chain without registering
// or rewriting anything. URLs whose path ends in .m3u8 or .m3u are validated
// as playlists, everything else as binary.
func (s *InterceptionService) Passthrough(ctx context.Context, rawURL string) ([]byte, validator.Kind, error) {
	target, err := parseTarget(rawURL)
	if err != nil {
		return nil, validator.BinarySegment, err
	}

	kind := kindOf(target)
	body, err := s.fetcher.Fetch(ctx, target, kind)
	if err != nil {
		return nil, kind, err
	}
	return body, kind, nil
}

// RegistrySize returns the number of live registrations
func (s *InterceptionService) RegistrySize() int {
	return s.registry.Len()
}

func (s *InterceptionService) resolveBinary(ctx context.Context, id string, kind registry.Kind) ([]byte, error) {
	h, err := s.resolve(id, kind)
	if err != nil {
		return nil, err
	}
	return s.fetcher.Fetch(ctx, h.RealURL, validator.BinarySegment)
}

// resolve looks id up and requires it to have been registered as kind.
// A handle requested through the path of another kind is not found.
func (s *InterceptionService) resolve(id string, kind registry.Kind) (registry.Handle, error) {
	h, err := s.registry.Resolve(id)
	if err != nil {
		return registry.Handle{}, fmt.Errorf("%s %s: %w", kind, id, err)
	}
	if h.Kind != kind {
		return registry.Handle{}, fmt.Errorf("%s %s is a %s: %w", kind, id, h.Kind, registry.ErrNotFound)
	}
	return h, nil
}

func parseTarget(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return trimmed, nil
}

func kindOf(target string) validator.Kind {
	u, err := url.Parse(target)
	if err != nil {
		return validator.BinarySegment
	}
	p := strings.ToLower(u.Path)
	if strings.HasSuffix(p, ".m3u8") || strings.HasSuffix(p, ".m3u") {
		return validator.TextPlaylist
	}
	return validator.BinarySegment
}
