package enrichment

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	schemePrefix = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*://`)
	wwwPrefix    = regexp.MustCompile(`(?i)^www\.`)
)

// NormalizeURL reduces a URL to host (without "www.") plus path without
// trailing slashes, for comparing model citations with candidate links.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host := wwwPrefix.ReplaceAllString(strings.ToLower(u.Hostname()), "")
		return host + strings.TrimRight(u.Path, "/")
	}

	s := schemePrefix.ReplaceAllString(raw, "")
	s = wwwPrefix.ReplaceAllString(s, "")
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimRight(s, "/"))
}

// IsGrounded reports whether sourceURL matches one of the grounding URLs,
// either containing the other after normalization. With no grounding URLs
// every source counts as grounded.
func IsGrounded(sourceURL string, groundingURLs []string) bool {
	if len(groundingURLs) == 0 {
		return true
	}
	src := NormalizeURL(sourceURL)
	if src == "" {
		return false
	}
	for _, g := range groundingURLs {
		norm := NormalizeURL(g)
		if norm == "" {
			continue
		}
		if strings.Contains(src, norm) || strings.Contains(norm, src) {
			return true
		}
	}
	return false
}
