// SPDX-License-Identifier: MIT

package fsutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename keeps only alphanumerics, space, dot, underscore and
// hyphen. Accented letters are transliterated to their base form first so
// "Café" becomes "Cafe" instead of vanishing. The fallback is used when
// nothing survives.
func SanitizeFilename(name, fallback string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == ' ' || r == '-':
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return fallback
	}
	return out
}
