// Package netguard rejects source URLs that would make the scraper reach
// into private address space. Source URLs are operator-supplied but flow in
// from shared kennel directories, so they get the same treatment as user
// input.
package netguard

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/harrierhub/hareline/internal/detect"
)

var privateBlocks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("netguard: bad builtin CIDR %s: %v", cidr, err))
		}
		privateBlocks = append(privateBlocks, block)
	}
}

// Exempt reports whether a source kind never fetches its configured URL
// directly. Those kinds build their own URLs against a fixed provider host
// from an opaque id, so the stored URL is metadata, not a fetch target.
func Exempt(kind detect.Kind) bool {
	switch kind {
	case detect.KindSpreadsheet, detect.KindGCal, detect.KindHashRego:
		return true
	}
	return false
}

// Check validates that a URL is safe to fetch: http or https, a real host,
// and not a name or literal that points into loopback, private, or link-local
// space. Hostnames are checked literally, not resolved; DNS rebinding is out
// of scope for a read-only scraper.
func Check(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("unparseable URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("URL has no host")
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return fmt.Errorf("host %q not allowed", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		for _, block := range privateBlocks {
			if block.Contains(ip) {
				return fmt.Errorf("address %s is in blocked range %s", ip, block)
			}
		}
		if ip.IsUnspecified() {
			return fmt.Errorf("address %s not allowed", ip)
		}
	}
	return nil
}
