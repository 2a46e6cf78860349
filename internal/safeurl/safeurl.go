// Package safeurl validates and sanitizes provider URLs. Xtream URLs carry
// the account password in the query string, so anything logged goes through
// Redact first.
package safeurl

import "net/url"

// IsHTTPOrHTTPS reports whether u parses as an absolute http(s) URL with a
// host. Rejects file://, ftp://, and other schemes a panel URL must never use.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	s := parsed.Scheme
	return (s == "http" || s == "https") && parsed.Host != ""
}

// redactedParams are query keys whose values never reach a log line.
var redactedParams = []string{"password", "username"}

// Redact masks credential query parameters in rawURL. An unparseable URL comes
// back whole rather than half-masked.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for _, key := range redactedParams {
		if q.Has(key) {
			q.Set(key, "***")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
