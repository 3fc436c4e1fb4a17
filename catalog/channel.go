// Package catalog turns a raw extended-M3U channel list into classified,
// ordered channel records.
package catalog

import (
	"errors"
	"time"
)

// ErrNoChannels is recorded when a document yields no usable channel
var ErrNoChannels = errors.New("catalog document contains no usable channels")

// Quality is the advertised picture quality of a channel
type Quality string

const (
	QualitySD  Quality = "SD"
	QualityHD  Quality = "HD"
	QualityFHD Quality = "FHD"
	Quality4K  Quality = "4K"
)

// Status reports whether a channel is expected to be playable
type Status string

const (
	StatusLive    Status = "live"
	StatusOffline Status = "offline"
)

// Source tells where the channels of a Catalog came from
type Source string

const (
	SourceUpstream Source = "upstream"
	SourceSnapshot Source = "snapshot"
	SourceFallback Source = "fallback"
)

// Channel is a single playable entry. Channels are never modified once a
// Catalog has been built.
type Channel struct {
	ID          int     `json:"id"`
	TvgID       string  `json:"tvgId,omitempty"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	LogoURL     string  `json:"logoUrl,omitempty"`
	StreamURL   string  `json:"streamUrl"`
	Quality     Quality `json:"quality"`
	Language    string  `json:"language"`
	Status      Status  `json:"status"`
	Viewers     int     `json:"viewers"`
	Description string  `json:"description,omitempty"`
	SortKey     string  `json:"sortKey"`
}

// Catalog is the parsed channel list for one profile. A catalog that did not
// succeed still carries the profile's fallback channels.
type Catalog struct {
	Profile     string    `json:"profile"`
	Channels    []Channel `json:"channels"`
	GeneratedAt time.Time `json:"generatedAt"`
	Succeeded   bool      `json:"succeeded"`
	Source      Source    `json:"source"`
	// Err is the reason a catalog fell back, for logging only
	Err error `json:"-"`
}
