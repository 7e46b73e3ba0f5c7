package auth

import (
	"net/url"
	"strings"
)

// OriginPolicy decides whether credentials may be attached to a request.
// Only the page origin and the API origin are trusted; third-party storage
// origins never receive the token.
type OriginPolicy struct {
	trusted map[string]struct{}
}

// NewOriginPolicy builds a policy trusting the origins of the given URLs.
// Empty or unparsable entries are ignored.
func NewOriginPolicy(urls ...string) OriginPolicy {
	p := OriginPolicy{trusted: make(map[string]struct{})}
	for _, raw := range urls {
		if origin, ok := Origin(raw); ok {
			p.trusted[origin] = struct{}{}
		}
	}
	return p
}

// Allows reports whether target's origin is trusted.
func (p OriginPolicy) Allows(target string) bool {
	origin, ok := Origin(target)
	if !ok {
		return false
	}
	_, trusted := p.trusted[origin]
	return trusted
}

// Origin returns the normalized scheme://host[:port] of raw. Default ports
// are dropped so "https://a:443" and "https://a" compare equal.
func Origin(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host, true
}
