package validator

import (
	"bytes"
	"fmt"
)

// Kind selects which validation rules apply to fetched content.
type Kind int

const (
	// TextPlaylist is an extended-M3U document (catalog or HLS manifest)
	TextPlaylist Kind = iota
	// BinarySegment is opaque media or key bytes
	BinarySegment
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case TextPlaylist:
		return "text"
	case BinarySegment:
		return "binary"
	default:
		return "unknown"
	}
}

const (
	// PlaylistHeader is the marker every extended-M3U document starts with
	PlaylistHeader = "#EXTM3U"

	minTextLength   = 10
	minBinaryLength = 16 // AES-128 keys are exactly 16 bytes

	// binaryScanLimit bounds how much of a segment is searched for markup
	binaryScanLimit = 1024
)

var htmlMarkers = [][]byte{
	[]byte("<!doctype html"),
	[]byte("<html"),
	[]byte("<head>"),
	[]byte("<body"),
	[]byte("<title>"),
}

var deniedPhrases = [][]byte{
	[]byte("rate limit"),
	[]byte("too many requests"),
	[]byte("access denied"),
	[]byte("403 forbidden"),
	[]byte("quota exceeded"),
	[]byte("request blocked"),
	[]byte("attention required"),
}

// IsValid reports whether content looks like genuine playlist or segment
// bytes rather than a disguised failure such as an HTML error page.
func IsValid(content []byte, kind Kind, sourceURL string) bool {
	return Reason(content, kind, sourceURL) == ""
}

// Reason returns why content was rejected, or "" when it is accepted.
// It never panics; an internal failure is reported as a rejection.
func Reason(content []byte, kind Kind, sourceURL string) (reason string) {
	defer func() {
		if r := recover(); r != nil {
			reason = fmt.Sprintf("validator failure: %v", r)
		}
	}()

	size := len(content)
	minLength := minBinaryLength
	if kind == TextPlaylist {
		size = len(bytes.TrimSpace(content))
		minLength = minTextLength
	}
	if size < minLength {
		return fmt.Sprintf("body too short (%d bytes)", size)
	}

	scan := content
	if kind == BinarySegment && len(scan) > binaryScanLimit {
		scan = scan[:binaryScanLimit]
	}
	lowered := bytes.ToLower(scan)

	for _, marker := range htmlMarkers {
		if bytes.Contains(lowered, marker) {
			return "html error page"
		}
	}
	for _, phrase := range deniedPhrases {
		if bytes.Contains(lowered, phrase) {
			return fmt.Sprintf("denied phrase %q", phrase)
		}
	}

	if kind == TextPlaylist && !bytes.Contains(content, []byte(PlaylistHeader)) {
		return "missing " + PlaylistHeader + " header"
	}

	return ""
}
