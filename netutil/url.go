// Package netutil holds URL helpers shared by the web-facing commands.
package netutil

import (
	"net/url"
	"strings"
)

// StripCredentials removes user:password@ from a URL for safe logging.
// Returns the original string if the URL cannot be parsed.
func StripCredentials(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.User = nil
	return parsed.String()
}

// HasCredentials returns true if the URL contains credentials.
func HasCredentials(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.User != nil
}

// WebURL parses rawURL and accepts it only if it is an absolute http or
// https URL with a host and no embedded credentials.
func WebURL(rawURL string) (*url.URL, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return nil, false
	}
	if parsed.Host == "" || parsed.User != nil {
		return nil, false
	}
	return parsed, true
}
