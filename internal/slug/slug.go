// Package slug builds URL slugs for articles, categories and tags.
package slug

import (
	"fmt"
	"strings"
	"unicode"
)

// Fallback is returned when a title has no usable characters.
const Fallback = "item"

// maxUniqueAttempts bounds the -N suffix search.
const maxUniqueAttempts = 1000

// Generate lowercases text, keeps ASCII letters, digits, underscores, whitespace and
// hyphens, collapses runs of whitespace, underscores and hyphens into a single hyphen
// and trims hyphens from both ends.
func Generate(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))

	var b strings.Builder
	b.Grow(len(lowered))
	pendingSep := false
	for _, r := range lowered {
		switch {
		case isWord(r) && r != '_':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '_' || r == '-' || unicode.IsSpace(r):
			pendingSep = true
		}
	}

	if b.Len() == 0 {
		return Fallback
	}
	return b.String()
}

// Unique returns base when it is free, otherwise base-1, base-2 and so on.
// exists reports whether a slug is already taken.
func Unique(base string, exists func(candidate string) (bool, error)) (string, error) {
	candidate := base
	for counter := 1; counter <= maxUniqueAttempts; counter++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxUniqueAttempts)
}

func isWord(r rune) bool {
	return r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
}
