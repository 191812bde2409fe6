package sanitizer

// normalizeEach applies fn to items, dropping blanks and repeats. The result
// is never nil.
func normalizeEach(items []string, fn func(string) string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		v := fn(item)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func NormalizeSlugs(slugs []string) []string {
	return normalizeEach(slugs, NormalizeSlug)
}

func NormalizeLanguages(langs []string) []string {
	return normalizeEach(langs, NormalizeLanguage)
}
