package app

import (
	"net/url"
	"strings"
)

// extractOriginHost reduces an Origin header value to host[:port] so it
// can be matched against configured patterns. Unparseable values are
// matched as-is.
func extractOriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

// matchOriginPattern matches host against one allowed_origins entry.
// Supported forms: an exact host, "*.example.com" for any subdomain,
// and "localhost:*" for any port.
func matchOriginPattern(pattern, host string) bool {
	switch {
	case pattern == host:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(host, pattern[1:])
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(host, pattern[:len(pattern)-1])
	}
	return false
}
