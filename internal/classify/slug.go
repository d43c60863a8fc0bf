package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SlugFallback is returned when slugification strips a name down to nothing
const SlugFallback = "card"

// Slugify converts a card name to a stable filesystem- and URL-safe slug.
// Output contains only [a-z0-9-], never starts or ends with a dash and never
// contains a double dash. The same input always yields the same slug.
func Slugify(name string) string {
	name = norm.NFC.String(name)
	name = strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(name))

	lastDash := true // suppress a leading dash
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '\t' || r == '-' || r == '—' || r == '–' || r == '/' || unicode.IsSpace(r):
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		default:
			// All other punctuation is dropped outright
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return SlugFallback
	}
	return slug
}
