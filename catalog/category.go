package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CategoryID identifies a canonical category independent of language
type CategoryID string

const (
	CategorySports      CategoryID = "sports"
	CategoryNews        CategoryID = "news"
	CategoryMovies      CategoryID = "movies"
	CategoryDocumentary CategoryID = "documentary"
	CategoryKids        CategoryID = "kids"
	CategoryMusic       CategoryID = "music"
	CategoryNational    CategoryID = "national"
	CategoryGeneral     CategoryID = "general"
)

var categoryLabels = map[CategoryID]map[string]string{
	CategorySports:      {"tr": "Spor", "en": "Sports"},
	CategoryNews:        {"tr": "Haber", "en": "News"},
	CategoryMovies:      {"tr": "Film", "en": "Movies"},
	CategoryDocumentary: {"tr": "Belgesel", "en": "Documentary"},
	CategoryKids:        {"tr": "Çocuk", "en": "Kids"},
	CategoryMusic:       {"tr": "Müzik", "en": "Music"},
	CategoryNational:    {"tr": "Ulusal", "en": "National"},
	CategoryGeneral:     {"tr": "Genel", "en": "General"},
}

// synonyms maps lower-cased group titles (and single words of them) to
// their canonical category
var synonyms = map[string]CategoryID{
	"spor":          CategorySports,
	"sporlar":       CategorySports,
	"sport":         CategorySports,
	"sports":        CategorySports,
	"football":      CategorySports,
	"futbol":        CategorySports,
	"basketbol":     CategorySports,
	"basketball":    CategorySports,
	"haber":         CategoryNews,
	"haberler":      CategoryNews,
	"news":          CategoryNews,
	"film":          CategoryMovies,
	"filmler":       CategoryMovies,
	"sinema":        CategoryMovies,
	"movie":         CategoryMovies,
	"movies":        CategoryMovies,
	"cinema":        CategoryMovies,
	"belgesel":      CategoryDocumentary,
	"documentary":   CategoryDocumentary,
	"documentaries": CategoryDocumentary,
	"çocuk":         CategoryKids,
	"cocuk":         CategoryKids,
	"kids":          CategoryKids,
	"children":      CategoryKids,
	"çizgi film":    CategoryKids,
	"müzik":         CategoryMusic,
	"muzik":         CategoryMusic,
	"music":         CategoryMusic,
	"ulusal":        CategoryNational,
	"national":      CategoryNational,
	"genel":         CategoryGeneral,
	"general":       CategoryGeneral,
	"eğlence":       CategoryGeneral,
	"entertainment": CategoryGeneral,
}

// CategoryLabel returns the display label of a canonical category in lang,
// falling back to English.
func CategoryLabel(id CategoryID, lang string) string {
	labels, ok := categoryLabels[id]
	if !ok {
		return string(id)
	}
	if label, ok := labels[lang]; ok {
		return label
	}
	return labels["en"]
}

// classifier normalizes group titles. It holds a caser and is therefore not
// safe for concurrent use.
type classifier struct {
	lower cases.Caser
	lang  string
}

func newClassifier(lang string) *classifier {
	tag := language.Make(lang)
	return &classifier{
		lower: cases.Lower(tag),
		lang:  lang,
	}
}

func (c *classifier) fold(s string) string {
	return c.lower.String(strings.TrimSpace(s))
}

// categoryID resolves a group title to its canonical category. Unknown
// titles report false.
func (c *classifier) categoryID(group string) (CategoryID, bool) {
	folded := c.fold(group)
	if folded == "" {
		return CategoryGeneral, true
	}
	// English titles lose their dotted i under Turkish folding ("KIDS")
	candidates := []string{folded, strings.ToLower(strings.TrimSpace(group))}
	for _, candidate := range candidates {
		if id, ok := synonyms[candidate]; ok {
			return id, true
		}
	}
	for _, candidate := range candidates {
		words := strings.FieldsFunc(candidate, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if id, ok := synonyms[w]; ok {
				return id, true
			}
		}
	}
	return "", false
}

// normalize returns the canonical label for group, or the trimmed group
// itself when it matches no known category.
func (c *classifier) normalize(group string) (string, CategoryID) {
	id, ok := c.categoryID(group)
	if !ok {
		return strings.TrimSpace(group), ""
	}
	return CategoryLabel(id, c.lang), id
}
