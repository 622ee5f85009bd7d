package entities

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// tagSeparator separates list values inside a single CSV cell.
const tagSeparator = ";"

// stripMarks returns a fresh transformer; a Chain holds state and must not
// be shared between goroutines.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// NormalizeSlug turns a name into a URL slug: accents removed, lowercase,
// runs of anything other than letters and digits collapsed to one hyphen.
//
//	NormalizeSlug("Caffè Rum & Co.") == "caffe-rum-co"
func NormalizeSlug(s string) string {
	plain, _, err := transform.String(stripMarks(), s)
	if err != nil {
		plain = s
	}

	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(plain) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// SplitTags splits a ";"-separated cell into lowercased, de-duplicated tags.
// Returns nil when the cell holds no tags.
func SplitTags(s string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, tagSeparator) {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
