package rewriter

import (
	"net/url"
	"strings"

	"github.com/alorle/iptv-relay/registry"
)

const (
	playlistHeader   = "#EXTM3U"
	streamInfTag     = "#EXT-X-STREAM-INF"
	segmentInfTag    = "#EXTINF"
	keyTag           = "#EXT-X-KEY"
	directivePrefix  = "#EXT"
	uriAttributeOpen = `URI="`
)

// Registrar hands out identifiers for URLs found while rewriting
type Registrar interface {
	Register(url string, kind registry.Kind) registry.Handle
}

// Rewriter substitutes every external reference of an HLS playlist with a
// proxy path carrying an opaque registry identifier.
type Rewriter struct {
	registrar Registrar
	proxyBase string
}

// New creates a Rewriter that emits references under proxyBase
// (e.g. "/proxy" or "http://127.0.0.1:8080/proxy").
func New(registrar Registrar, proxyBase string) *Rewriter {
	return &Rewriter{
		registrar: registrar,
		proxyBase: strings.TrimRight(proxyBase, "/"),
	}
}

// ProxyPath returns the proxy path for a handle of the given kind
func (r *Rewriter) ProxyPath(kind registry.Kind, id string) string {
	return r.proxyBase + "/" + kind.String() + "/" + id
}

// Rewrite processes the playlist line by line. Relative references are
// resolved against baseURL before registration. The output always starts
// with the #EXTM3U header.
func (r *Rewriter) Rewrite(document []byte, baseURL string) []byte {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		base = nil
	}

	lines := strings.Split(string(document), "\n")
	var result strings.Builder
	result.Grow(len(document) + len(lines)*8)

	if !hasHeader(lines) {
		result.WriteString(playlistHeader)
		result.WriteString("\n")
	}

	// pending is the kind the next reference line is registered under
	pending := registry.Segment
	for i, raw := range lines {
		if i > 0 {
			result.WriteString("\n")
		}
		line := strings.TrimRight(raw, "\r")

		parsed := Classify(line)
		switch parsed.Kind {
		case KeyDirective, URIDirective:
			result.WriteString(r.rewriteAttribute(line, parsed, base))
		case Directive:
			switch parsed.Tag {
			case streamInfTag:
				pending = registry.Manifest
			case segmentInfTag:
				pending = registry.Segment
			}
			result.WriteString(line)
		case Reference:
			resolved := resolve(base, parsed.URI)
			h := r.registrar.Register(resolved, pending)
			result.WriteString(r.ProxyPath(pending, h.ID))
			pending = registry.Segment
		default:
			result.WriteString(line)
		}
	}

	return []byte(result.String())
}

// rewriteAttribute replaces the URI attribute of a directive, leaving the
// rest of the line untouched.
func (r *Rewriter) rewriteAttribute(line string, parsed Line, base *url.URL) string {
	if parsed.URI == "" {
		return line
	}
	resolved := resolve(base, parsed.URI)
	if !isHTTP(resolved) {
		// skd://, data: and similar URIs are not fetchable through the proxy
		return line
	}
	h := r.registrar.Register(resolved, parsed.Target)
	return line[:parsed.uriStart] + r.ProxyPath(parsed.Target, h.ID) + line[parsed.uriEnd:]
}

func hasHeader(lines []string) bool {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		return strings.HasPrefix(trimmed, playlistHeader)
	}
	return false
}

// resolve returns ref resolved against base. Absolute http(s) references
// are returned unchanged.
func resolve(base *url.URL, ref string) string {
	if isHTTP(ref) || base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

func isHTTP(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
