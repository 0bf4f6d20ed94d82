package engine

import (
	"regexp"
	"strings"
)

// Imported slugs carry a numeric timestamp prefix like "1718035200-".
var slugTimestampPrefix = regexp.MustCompile(`^\d+-`)

// normalizeSlug derives a slug from the title when none is given, and
// strips a leftover import timestamp prefix otherwise.
func normalizeSlug(slug, title string) string {
	if slug == "" {
		return strings.Join(strings.Fields(strings.ToLower(title)), "-")
	}
	return slugTimestampPrefix.ReplaceAllString(slug, "")
}
