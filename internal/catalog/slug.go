package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug converts text to a stable URL-safe identifier: lowercase, ASCII
// normalized (accents stripped), non-alphanumerics collapsed to single
// dashes, trimmed. Empty input slugs to "unknown".
func Slug(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))

	// Strip diacritics via NFKD decomposition.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if normalized, _, err := transform.String(t, s); err == nil {
		s = normalized
	}

	var b strings.Builder
	b.Grow(len(s))
	lastDash := true // suppress leading dash
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}

// BrandID derives the stable brand identifier from the English brand name.
func BrandID(brandEn string) string { return Slug(brandEn) }

// ModelID derives the stable model identifier from the brand ID and the
// English model name.
func ModelID(brandID, modelEn string) string { return brandID + ":" + Slug(modelEn) }
