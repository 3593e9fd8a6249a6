package utils

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	slugInvalid = regexp.MustCompile("[^a-z0-9 -]+")
	slugDashes  = regexp.MustCompile("-+")
)

// GenerateSlug converts a string into a URL-friendly slug.
// e.g. "Men's T-Shirt!" -> "mens-t-shirt"
func GenerateSlug(input string) string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(input), "")
	s = strings.ReplaceAll(s, " ", "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SafeFileName slugs the base name of an uploaded file and keeps its extension.
// "My Photo (1).PNG" -> "my-photo-1.png"
func SafeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	slug := GenerateSlug(strings.TrimSuffix(base, filepath.Ext(base)))
	if slug == "" {
		slug = "file"
	}
	return slug + ext
}

// ParseInt parses a string to int with a fallback default value
func ParseInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}
