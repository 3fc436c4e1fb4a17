package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	numericKeyPrefix = "0:"
	aliasKeyPrefix   = "1:"
)

// sortKey derives the ordering key of a channel name. Names starting with a
// number ("24 TV") produce a zero-padded numeric key, which sorts before any
// alias key.
func sortKey(name string, lower cases.Caser) string {
	trimmed := strings.TrimSpace(name)
	end := 0
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}
	if end > 0 && !startsWithLetter(trimmed[end:]) {
		if n, err := strconv.Atoi(trimmed[:end]); err == nil {
			return fmt.Sprintf("%s%010d", numericKeyPrefix, n)
		}
	}
	return aliasKeyPrefix + lower.String(trimmed)
}

func startsWithLetter(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && unicode.IsLetter(r)
}

// sorter orders channels with locale-aware collation. A collator is not
// safe for concurrent use, so each parse creates its own sorter.
type sorter struct {
	collator *collate.Collator
}

func newSorter(lang string) *sorter {
	return &sorter{collator: collate.New(language.Make(lang), collate.IgnoreCase)}
}

func (s *sorter) order(channels []Channel, ordering Ordering) {
	switch ordering {
	case OrderBySortKey:
		sort.SliceStable(channels, func(i, j int) bool {
			return s.lessSortKey(channels[i].SortKey, channels[j].SortKey)
		})
	default:
		sort.SliceStable(channels, func(i, j int) bool {
			a, b := channels[i], channels[j]
			// Channels without a category go last
			if a.Category == "" && b.Category != "" {
				return false
			}
			if a.Category != "" && b.Category == "" {
				return true
			}
			if c := s.collator.CompareString(a.Category, b.Category); c != 0 {
				return c < 0
			}
			return a.Viewers > b.Viewers
		})
	}
}

func (s *sorter) lessSortKey(a, b string) bool {
	aNumeric := strings.HasPrefix(a, numericKeyPrefix)
	bNumeric := strings.HasPrefix(b, numericKeyPrefix)
	switch {
	case aNumeric && bNumeric:
		return a < b
	case aNumeric != bNumeric:
		return aNumeric
	default:
		return s.collator.CompareString(a[len(aliasKeyPrefix):], b[len(aliasKeyPrefix):]) < 0
	}
}
