package model

import (
	"sort"
	"strings"
)

// ChooseLocale picks the best entry of m for the preferred locales. For every preferred
// locale it tries the exact tag, then language and country, then the language alone. It
// then falls back to en-US, en and finally the first available locale.
func ChooseLocale[V any](m map[string]V, locales ...string) V {
	var zero V
	if len(m) == 0 {
		return zero
	}
	for _, tag := range locales {
		tag = normalizeTag(tag)
		if tag == "" {
			continue
		}
		if v, ok := m[tag]; ok {
			return v
		}
		lang, country := splitTag(tag)
		if country != "" {
			if v, ok := m[lang+"-"+country]; ok {
				return v
			}
		}
		if v, ok := m[lang]; ok {
			return v
		}
	}
	if v, ok := m[DefaultLocale]; ok {
		return v
	}
	if v, ok := m["en"]; ok {
		return v
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return m[keys[0]]
}

func normalizeTag(tag string) string {
	return strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
}

// splitTag returns the language and the region subtag of a BCP 47 tag, skipping a script
// subtag such as "Hant" in "zh-Hant-TW".
func splitTag(tag string) (string, string) {
	parts := strings.Split(tag, "-")
	lang := parts[0]
	for _, p := range parts[1:] {
		if len(p) == 2 || (len(p) == 3 && p[0] >= '0' && p[0] <= '9') {
			return lang, strings.ToUpper(p)
		}
	}
	return lang, ""
}
