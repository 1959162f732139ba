package search

import (
	"net"
	"net/url"
	"strings"
)

// Query parameters that only carry click tracking and never change the
// page a URL points at.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"ref":     true,
	"ref_src": true,
}

func isTrackingParam(name string) bool {
	return strings.HasPrefix(name, "utm_") || trackingParams[name]
}

// NormalizeURL canonicalizes a URL for deduplication:
//
//  1. lowercase scheme and host
//  2. drop default ports (http:80, https:443)
//  3. strip a trailing slash from non-root paths
//  4. drop the fragment
//  5. drop tracking query parameters (utm_*, fbclid, gclid, ref, ref_src)
//  6. sort remaining parameters by name, stable within duplicates
//
// The function is pure and idempotent.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	if h, p, splitErr := net.SplitHostPort(host); splitErr == nil {
		if (u.Scheme == "http" && p == "80") || (u.Scheme == "https" && p == "443") {
			host = h
		}
	}
	u.Host = host

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
		if u.RawPath != "" {
			u.RawPath = strings.TrimSuffix(u.RawPath, "/")
		}
	}

	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		params := u.Query()
		for name := range params {
			if isTrackingParam(name) {
				delete(params, name)
			}
		}
		// Encode sorts keys and keeps per-key value order.
		u.RawQuery = params.Encode()
	}

	return u.String(), nil
}
