package util

import (
	"regexp"
	"strings"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug creates a URL-friendly slug from a title or category name.
func GenerateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	// Limit length
	if len(slug) > 50 {
		slug = slug[:50]
		slug = strings.Trim(slug, "-")
	}

	return slug
}

// ParseTags parses a comma-separated tag string into a clean slice.
func ParseTags(tagStr string) []string {
	if tagStr == "" {
		return []string{}
	}

	// Remove brackets if present
	tagStr = strings.Trim(tagStr, "[]")

	tags := strings.Split(tagStr, ",")
	var cleanTags []string

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		tag = strings.Trim(tag, "\"'")
		if tag != "" {
			cleanTags = append(cleanTags, tag)
		}
	}

	return cleanTags
}
