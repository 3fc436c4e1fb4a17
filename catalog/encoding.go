package catalog

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// turkishLetters are the characters the upstream list routinely ships
// double-encoded (UTF-8 bytes re-read as Windows-1252 and encoded again).
const turkishLetters = "çÇğĞıİöÖşŞüÜâÂîÎ"

var mojibakeReplacer = newMojibakeReplacer()

func newMojibakeReplacer() *strings.Replacer {
	decoder := charmap.Windows1252.NewDecoder()
	var pairs []string
	for _, r := range turkishLetters {
		garbled, err := decoder.String(string(r))
		if err != nil || garbled == string(r) {
			continue
		}
		pairs = append(pairs, garbled, string(r))
	}
	return strings.NewReplacer(pairs...)
}

// RepairEncoding reverses double UTF-8 encoding of Turkish letters
func RepairEncoding(document string) string {
	return mojibakeReplacer.Replace(document)
}
