// Package slug normalizes identifiers and dates used across the catalog.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	disallowedRe = regexp.MustCompile(`[^a-z0-9\s-]`)
	hyphenRunRe  = regexp.MustCompile(`-+`)

	fullDateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	yearMonthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
	yearRe      = regexp.MustCompile(`^\d{4}$`)
)

// stripAccents decomposes the string and drops combining marks, so
// "Canción" folds to "Cancion".
func stripAccents(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Make builds a slug: accents stripped, lowercased, non-alphanumerics
// removed, whitespace collapsed to single hyphens.
func Make(value string) string {
	s := strings.ToLower(strings.TrimSpace(stripAccents(value)))
	s = disallowedRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), "-")
	return hyphenRunRe.ReplaceAllString(s, "-")
}

// NormalizeName is the lighter id normalizer applied to stored ids:
// lowercase, trimmed, whitespace collapsed to hyphens. Accents are
// kept so that legacy ids round-trip unchanged.
func NormalizeName(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	return whitespaceRe.ReplaceAllString(s, "-")
}

// EnsureUnique disambiguates baseID against existing ids by appending
// -2, -3, ... until unique. currentID is treated as available so an
// entity keeps its own id across edits.
func EnsureUnique(baseID string, existing map[string]bool, currentID string) string {
	if baseID == "" {
		return ""
	}
	if !existing[baseID] || baseID == currentID {
		return baseID
	}
	for attempt := 2; ; attempt++ {
		candidate := fmt.Sprintf("%s-%d", baseID, attempt)
		if !existing[candidate] || candidate == currentID {
			return candidate
		}
	}
}

// NormalizeReleaseDate pads the partial precision dates Spotify
// reports ("2024", "2024-03") out to YYYY-MM-DD. Anything else that
// is not already a full date normalizes to "".
func NormalizeReleaseDate(value string) string {
	raw := strings.TrimSpace(value)
	switch {
	case raw == "":
		return ""
	case fullDateRe.MatchString(raw):
		return raw
	case yearMonthRe.MatchString(raw):
		return raw + "-01"
	case yearRe.MatchString(raw):
		return raw + "-01-01"
	}
	return ""
}

// ComparableDate reduces any parseable date to YYYY-MM-DD for
// equality checks. Unparseable input yields "".
func ComparableDate(value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}
	if fullDateRe.MatchString(raw) {
		return raw
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return ""
	}
	return parsed.Format("2006-01-02")
}

var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate parses the date formats the catalog accepts, most precise
// first.
func ParseDate(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}
