package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildSearchURL composes the job board search URL for a title, location and
// 1-based page number. Seek-style path layout: /<title>-jobs/in-<location>.
func BuildSearchURL(baseURL, title, location string, page int) string {
	base := strings.TrimRight(baseURL, "/")

	titleSlug := slugify(title)
	locationSlug := slugify(location)

	searchURL := fmt.Sprintf("%s/%s-jobs", base, titleSlug)
	if locationSlug != "" {
		searchURL += "/in-" + locationSlug
	}
	if page > 1 {
		searchURL += fmt.Sprintf("?page=%d", page)
	}
	return searchURL
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	fields := strings.Fields(s)
	return strings.Join(fields, "-")
}

// NormalizeJobURL canonicalizes a posting URL for deduplication: resolves it
// against the base, then strips query parameters and fragments, which carry
// only tracking state on the target site.
func NormalizeJobURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		// Fall back to the raw split the site tolerates
		if idx := strings.IndexByte(href, '?'); idx >= 0 {
			return href[:idx]
		}
		return href
	}

	if !parsed.IsAbs() && baseURL != "" {
		base, err := url.Parse(baseURL)
		if err == nil {
			parsed = base.ResolveReference(parsed)
		}
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

// blockedURLMarkers signal the site served a bot challenge instead of results
var blockedURLMarkers = []string{"captcha", "blocked", "challenge", "denied"}

// IsBlockedURL reports whether a landing URL indicates a bot challenge
func IsBlockedURL(landedURL string) bool {
	lowered := strings.ToLower(landedURL)
	for _, marker := range blockedURLMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
