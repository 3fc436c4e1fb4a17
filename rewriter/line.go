package rewriter

import (
	"strings"

	"github.com/alorle/iptv-relay/registry"
)

// LineKind classifies a playlist line
type LineKind int

const (
	// Blank is an empty or whitespace-only line
	Blank LineKind = iota
	// Comment is a "#" line that is not an #EXT directive
	Comment
	// Directive is an #EXT tag other than a key
	Directive
	// KeyDirective is an #EXT-X-KEY or #EXT-X-SESSION-KEY tag
	KeyDirective
	// Reference is a non-comment line naming a playlist or segment
	Reference
	// URIDirective is a non-key tag whose URI attribute names a playlist
	// (#EXT-X-MEDIA, #EXT-X-I-FRAME-STREAM-INF) or an init segment (#EXT-X-MAP)
	URIDirective
)

// uriTags maps tags carrying a URI attribute to what that URI points at
var uriTags = map[string]registry.Kind{
	keyTag:                      registry.Key,
	"#EXT-X-SESSION-KEY":        registry.Key,
	"#EXT-X-MAP":                registry.Segment,
	"#EXT-X-MEDIA":              registry.Manifest,
	"#EXT-X-I-FRAME-STREAM-INF": registry.Manifest,
}

func (k LineKind) String() string {
	switch k {
	case Blank:
		return "blank"
	case Comment:
		return "comment"
	case Directive:
		return "directive"
	case KeyDirective:
		return "key"
	case Reference:
		return "reference"
	case URIDirective:
		return "uri"
	default:
		return "unknown"
	}
}

// Line is the classification of a single playlist line
type Line struct {
	Kind LineKind
	// Tag is the directive name without attributes (e.g. "#EXTINF")
	Tag string
	// URI is the reference line, or the URI attribute of a directive
	URI string
	// Target is what URI is registered as
	Target registry.Kind

	uriStart int
	uriEnd   int
}

// Classify determines what a single playlist line is. Trailing carriage
// returns and surrounding whitespace are ignored.
func Classify(line string) Line {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return Line{Kind: Blank}
	case strings.HasPrefix(trimmed, directivePrefix):
		tag := directiveTag(trimmed)
		if target, ok := uriTags[tag]; ok {
			return classifyURI(line, tag, target)
		}
		return Line{Kind: Directive, Tag: tag}
	case strings.HasPrefix(trimmed, "#"):
		return Line{Kind: Comment}
	default:
		return Line{Kind: Reference, URI: trimmed}
	}
}

func directiveTag(trimmed string) string {
	if i := strings.IndexByte(trimmed, ':'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// classifyURI locates the quoted URI attribute of a directive. A directive
// without a well-formed URI attribute has an empty URI.
func classifyURI(line, tag string, target registry.Kind) Line {
	l := Line{Kind: URIDirective, Tag: tag, Target: target}
	if target == registry.Key {
		l.Kind = KeyDirective
	}

	start := uriAttribute(line)
	if start < 0 {
		return l
	}
	length := strings.IndexByte(line[start:], '"')
	if length <= 0 {
		return l
	}
	l.URI = line[start : start+length]
	l.uriStart = start
	l.uriEnd = start + length
	return l
}

// uriAttribute returns the offset of the URI attribute's value, or -1. The
// attribute must start the attribute list or follow a comma, so names that
// merely end in URI are skipped.
func uriAttribute(line string) int {
	for from := 0; ; {
		i := strings.Index(line[from:], uriAttributeOpen)
		if i < 0 {
			return -1
		}
		at := from + i
		if at > 0 && (line[at-1] == ':' || line[at-1] == ',') {
			return at + len(uriAttributeOpen)
		}
		from = at + len(uriAttributeOpen)
	}
}
