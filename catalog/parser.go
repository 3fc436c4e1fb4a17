package catalog

import (
	"bufio"
	"fmt"
	"strings"
	"time"
)

const maxLineSize = 1024 * 1024

// Parse builds the catalog of profile from a raw extended-M3U document. It
// never fails: a document without usable channels, or one that makes the
// parser panic, yields an unsucceeded catalog with the fallback channels.
func Parse(raw []byte, profile Profile) Catalog {
	return parseAt(raw, profile, time.Now())
}

func parseAt(raw []byte, profile Profile, now time.Time) (result Catalog) {
	defer func() {
		if r := recover(); r != nil {
			result = fallbackCatalog(profile, now, fmt.Errorf("parse panic: %v", r))
		}
	}()

	channels, err := parseChannels(raw, profile)
	if err != nil {
		return fallbackCatalog(profile, now, err)
	}
	if len(channels) == 0 {
		return fallbackCatalog(profile, now, ErrNoChannels)
	}

	return Catalog{
		Profile:     profile.Name,
		Channels:    channels,
		GeneratedAt: now,
		Succeeded:   true,
		Source:      SourceUpstream,
	}
}

// FallbackCatalog returns the hand-authored catalog of profile, recording
// err as the reason the source list could not be used.
func FallbackCatalog(profile Profile, err error) Catalog {
	return fallbackCatalog(profile, time.Now(), err)
}

func fallbackCatalog(profile Profile, now time.Time, err error) Catalog {
	return Catalog{
		Profile:     profile.Name,
		Channels:    Fallback(profile),
		GeneratedAt: now,
		Succeeded:   false,
		Source:      SourceFallback,
		Err:         err,
	}
}

func parseChannels(raw []byte, profile Profile) ([]Channel, error) {
	lang := profile.Language
	if lang == "" {
		lang = "en"
	}
	cls := newClassifier(lang)
	keywords := make([]string, 0, len(profile.Keywords))
	for _, kw := range profile.Keywords {
		keywords = append(keywords, cls.fold(kw))
	}
	portMarker := strings.ToLower(profile.PortMarker)

	scanner := bufio.NewScanner(strings.NewReader(RepairEncoding(string(raw))))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		channels []Channel
		pending  *attributes
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, extinfPrefix) {
			attrs := parseAttributes(line)
			pending = &attrs
			continue
		}
		if strings.HasPrefix(line, "#") {
			// Any other directive ends the pending entry
			pending = nil
			continue
		}
		if pending == nil {
			continue
		}

		attrs := *pending
		pending = nil
		if attrs.name == "" || !isStreamURL(line, portMarker) {
			continue
		}

		category, categoryID := cls.normalize(attrs.group)
		if len(keywords) > 0 {
			text := attrs.name + " " + attrs.group + " " + category
			haystack := cls.fold(text) + " " + strings.ToLower(text)
			if !matchesKeywords(haystack, keywords) {
				continue
			}
		}

		language := attrs.language
		if language == "" {
			language = lang
		}
		channels = append(channels, Channel{
			ID:        len(channels) + 1,
			TvgID:     attrs.tvgID,
			Name:      attrs.name,
			Category:  category,
			LogoURL:   attrs.logo,
			StreamURL: line,
			Quality:   qualityFromName(attrs.name),
			Language:  language,
			Status:    StatusLive,
			Viewers:   syntheticViewers(categoryID, attrs.name, line),
			SortKey:   sortKey(attrs.name, cls.lower),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan catalog document: %w", err)
	}

	newSorter(lang).order(channels, profile.Ordering)
	if profile.MaxChannels > 0 && len(channels) > profile.MaxChannels {
		channels = channels[:profile.MaxChannels]
	}
	return channels, nil
}
