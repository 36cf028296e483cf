package util

import (
	"regexp"
	"strings"
)

var nonRepoChar = regexp.MustCompile(`[^a-z0-9._-]`)

// SanitizeID converts a string into a valid image repository component:
// lowercase alphanumerics with dots, hyphens and underscores.
func SanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = nonRepoChar.ReplaceAllString(s, "")
	s = strings.Trim(s, "._-")
	if s == "" {
		return "unknown"
	}
	return s
}

// CacheKey joins parts into an answer cache key like "image_web".
func CacheKey(parts ...string) string {
	return strings.Join(parts, "_")
}
