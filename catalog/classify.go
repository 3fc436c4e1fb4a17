package catalog

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

var playlistExtensions = []string{".m3u8", ".m3u", ".ts", ".mpd"}

var streamingKeywords = []string{"live", "stream", "hls", "playlist", "chunklist", "index"}

// isStreamURL reports whether line is an absolute http(s) URL that looks
// like a stream reference for the profile
func isStreamURL(line string, portMarker string) bool {
	u, err := url.Parse(line)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	lower := strings.ToLower(line)
	for _, ext := range playlistExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	for _, kw := range streamingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return portMarker != "" && strings.Contains(lower, portMarker)
}

// qualityFromName reads resolution tokens from a channel name
func qualityFromName(name string) Quality {
	best := QualitySD
	for _, token := range strings.FieldsFunc(strings.ToUpper(name), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '(' || r == ')' || r == '[' || r == ']' || r == '|'
	}) {
		switch token {
		case "4K", "UHD", "2160P":
			return Quality4K
		case "FHD", "1080", "1080P":
			best = QualityFHD
		case "HD", "720", "720P":
			if best == QualitySD {
				best = QualityHD
			}
		}
	}
	return best
}

type viewerRange struct {
	min, max int
}

var viewerRanges = map[CategoryID]viewerRange{
	CategorySports:      {min: 5000, max: 50000},
	CategoryNews:        {min: 2000, max: 20000},
	CategoryMovies:      {min: 1000, max: 15000},
	CategoryKids:        {min: 800, max: 10000},
	CategoryNational:    {min: 3000, max: 30000},
	CategoryDocumentary: {min: 300, max: 5000},
	CategoryMusic:       {min: 200, max: 4000},
}

var defaultViewerRange = viewerRange{min: 100, max: 3000}

// syntheticViewers returns a display-only viewer count. It hashes the
// channel identity, so parsing the same document twice gives equal counts.
func syntheticViewers(category CategoryID, name, streamURL string) int {
	r, ok := viewerRanges[category]
	if !ok {
		r = defaultViewerRange
	}
	span := uint64(r.max - r.min + 1)
	return r.min + int(xxhash.Sum64String(name+"\x00"+streamURL)%span)
}

// matchesKeywords reports whether any keyword starts a word of the folded
// haystack: "lig" matches "Süper Lig" and "LigTV" but not "Delight".
func matchesKeywords(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && startsWord(haystack, kw) {
			return true
		}
	}
	return false
}

func startsWord(haystack, kw string) bool {
	for from := 0; from < len(haystack); {
		i := strings.Index(haystack[from:], kw)
		if i < 0 {
			return false
		}
		at := from + i
		if at == 0 {
			return true
		}
		if prev, _ := utf8.DecodeLastRuneInString(haystack[:at]); !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[at:])
		from = at + size
	}
	return false
}
