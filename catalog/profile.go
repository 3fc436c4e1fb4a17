package catalog

import "time"

// Ordering selects how a profile orders its channels
type Ordering string

const (
	// OrderByCategory sorts by category label, then by viewers descending
	OrderByCategory Ordering = "category"
	// OrderBySortKey sorts numbered channels first, then names by collation
	OrderBySortKey Ordering = "sortkey"
)

// Valid reports whether o is a known ordering
func (o Ordering) Valid() bool {
	return o == OrderByCategory || o == OrderBySortKey
}

// Profile describes one catalog variant built from the same source list
type Profile struct {
	Name     string
	Language string
	// Keywords restricts the catalog to channels whose name or category
	// contains one of them. Empty keeps every channel.
	Keywords []string
	Ordering Ordering
	// MaxChannels truncates the ordered catalog. Zero means unbounded.
	MaxChannels int
	// PortMarker accepts stream URLs containing it (e.g. ":8080")
	PortMarker string
	// TTL is how long a parsed catalog is served from cache
	TTL time.Duration
}

const (
	ProfileSports = "sports"
	ProfileAll    = "all"
)

var sportsKeywords = []string{
	"spor", "sport", "futbol", "football", "bein", "ssport", "s sport",
	"eurosport", "tivibu spor", "nba", "uefa", "lig", "exxen", "smart spor",
}

// DefaultProfiles returns the built-in sports and all profiles
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:        ProfileSports,
			Language:    "tr",
			Keywords:    append([]string(nil), sportsKeywords...),
			Ordering:    OrderByCategory,
			MaxChannels: 50,
			PortMarker:  ":8080",
			TTL:         time.Hour,
		},
		{
			Name:     ProfileAll,
			Language: "tr",
			Ordering: OrderBySortKey,
			TTL:      30 * time.Minute,
		},
	}
}

// SportsKeywords returns a copy of the built-in sports keyword list
func SportsKeywords() []string {
	return append([]string(nil), sportsKeywords...)
}
