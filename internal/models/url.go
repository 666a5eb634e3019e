package models

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters stripped during URL canonicalization.
// They identify marketing campaigns, not content.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"gclid":        true,
	"fbclid":       true,
	"igshid":       true,
	"mc_cid":       true,
	"mc_eid":       true,
	"ref":          true,
	"ref_src":      true,
}

// CanonicalizeURL normalizes a URL into a stable dedup key: lowercased
// scheme and host, default port dropped, fragment removed, tracking query
// parameters stripped, and the trailing slash removed from non-root paths.
// Unparseable input is returned trimmed and lowercased so it still keys
// consistently.
func CanonicalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for param := range q {
			if trackingParams[strings.ToLower(param)] {
				q.Del(param)
			}
		}
		u.RawQuery = q.Encode()
	}

	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String()
}

// Domain extracts the hostname (without port) from a URL, lowercased.
// Returns "" for unparseable input.
func Domain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
