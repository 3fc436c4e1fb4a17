package catalog

import (
	"regexp"
	"strings"
)

const extinfPrefix = "#EXTINF:"

var (
	tvgNameRegex     = regexp.MustCompile(`tvg-name="([^"]*)"`)
	tvgIDRegex       = regexp.MustCompile(`tvg-id="([^"]*)"`)
	tvgLogoRegex     = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	tvgLanguageRegex = regexp.MustCompile(`tvg-language="([^"]*)"`)
	groupTitleRegex  = regexp.MustCompile(`group-title="([^"]*)"`)
)

// attributes holds the fields of one #EXTINF line
type attributes struct {
	name     string
	tvgID    string
	logo     string
	group    string
	language string
}

func parseAttributes(extinf string) attributes {
	a := attributes{
		name:     extractAttribute(tvgNameRegex, extinf),
		tvgID:    extractAttribute(tvgIDRegex, extinf),
		logo:     extractAttribute(tvgLogoRegex, extinf),
		group:    extractAttribute(groupTitleRegex, extinf),
		language: extractAttribute(tvgLanguageRegex, extinf),
	}
	if a.name == "" {
		a.name = extractDisplayName(extinf)
	}
	return a
}

func extractAttribute(re *regexp.Regexp, extinf string) string {
	matches := re.FindStringSubmatch(extinf)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

// extractDisplayName returns the free-text title after the last comma,
// ignoring commas inside quoted attribute values.
func extractDisplayName(extinf string) string {
	inQuotes := false
	last := -1
	for i := 0; i < len(extinf); i++ {
		switch extinf[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				last = i
			}
		}
	}
	if last == -1 {
		return ""
	}
	return strings.TrimSpace(extinf[last+1:])
}
