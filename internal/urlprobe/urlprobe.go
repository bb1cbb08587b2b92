// Package urlprobe builds ordered fallback URL candidates for sources whose
// hosting flips between www/non-www or http/https without redirects.
package urlprobe

import (
	"net/url"
	"strings"
)

// Variants returns an ordered, deduplicated list of candidate base URLs:
// the normalized original, the host-toggled form (www added or removed), the
// protocol-toggled form, and the form with both toggled. Trailing slashes are
// stripped before comparison. Input that does not parse as an http(s) URL
// yields just the normalized original; whether the string was ever a URL is
// the caller's problem.
func Variants(base string) []string {
	normalized := strings.TrimRight(strings.TrimSpace(base), "/")

	u, err := url.Parse(normalized)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return []string{normalized}
	}

	hostToggled := *u
	hostToggled.Host = toggleWWW(u.Host)

	schemeToggled := *u
	schemeToggled.Scheme = toggleScheme(u.Scheme)

	bothToggled := *u
	bothToggled.Host = hostToggled.Host
	bothToggled.Scheme = schemeToggled.Scheme

	candidates := []string{
		normalized,
		strings.TrimRight(hostToggled.String(), "/"),
		strings.TrimRight(schemeToggled.String(), "/"),
		strings.TrimRight(bothToggled.String(), "/"),
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func toggleWWW(host string) string {
	if strings.HasPrefix(host, "www.") {
		return strings.TrimPrefix(host, "www.")
	}
	return "www." + host
}

func toggleScheme(scheme string) string {
	if scheme == "https" {
		return "http"
	}
	return "https"
}
