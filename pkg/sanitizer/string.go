package sanitizer

import (
	"regexp"
	"strings"
)

var reNonSlug = regexp.MustCompile(`[^0-9\p{L}]+`)

// TrimAndNormalize collapses every whitespace run to a single space.
func TrimAndNormalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeSlug lowercases s and joins its letter and digit runs with "-".
func NormalizeSlug(s string) string {
	return strings.Trim(reNonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func NormalizeLanguage(lang string) string {
	return strings.ToLower(TrimAndNormalize(lang))
}
