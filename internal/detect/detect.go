// Package detect classifies a source URL into a source kind and extracts the
// kind-specific configuration (spreadsheet id, calendar id, group path) from
// it. Classification is a fixed ordered rule list; the first match wins.
package detect

import (
	"net/url"
	"regexp"
	"strings"
)

// Kind identifies the adapter responsible for a source.
type Kind string

const (
	KindHarrier     Kind = "harrier"     // hash-registry JSON API, probed across URL variants
	KindSpreadsheet Kind = "spreadsheet" // spreadsheet CSV export
	KindGCal        Kind = "gcal"        // Google Calendar public feed
	KindHashRego    Kind = "hashrego"    // registration platform, opaque provider id
	KindMeetup      Kind = "meetup"      // meetup event page scrape
	KindICal        Kind = "ical"        // raw .ics feed
	KindRSS         Kind = "rss"         // RSS 2.0 feed
)

// Result is a positive classification: the kind plus whatever id the URL
// itself carries.
type Result struct {
	Kind        Kind
	ExtractedID string
}

var (
	sheetPathRe = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	gcalICalRe  = regexp.MustCompile(`/calendar/ical/([^/]+)/public/`)
)

// Detect classifies a raw URL string. A "scheme://" prefix is accepted as an
// alias for "https://" (it shows up in hand-entered source configs). Returns
// ok=false when no rule matches; the caller decides what an unclassifiable
// URL means.
func Detect(raw string) (Result, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "scheme://") {
		raw = "https://" + strings.TrimPrefix(raw, "scheme://")
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Result{}, false
	}

	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	path := u.Path
	query := u.Query()

	// Spreadsheet export: host plus /spreadsheets/d/<id>.
	if host == "docs.google.com" {
		if m := sheetPathRe.FindStringSubmatch(path); m != nil {
			return Result{Kind: KindSpreadsheet, ExtractedID: m[1]}, true
		}
	}

	// Calendar host: id lives in src=/cid= or an /ical/<id>/public/ path.
	if host == "calendar.google.com" {
		if id := query.Get("src"); id != "" {
			return Result{Kind: KindGCal, ExtractedID: id}, true
		}
		if id := query.Get("cid"); id != "" {
			return Result{Kind: KindGCal, ExtractedID: id}, true
		}
		if m := gcalICalRe.FindStringSubmatch(path); m != nil {
			return Result{Kind: KindGCal, ExtractedID: m[1]}, true
		}
	}

	// Registration platform: the "url" is an opaque provider-side handle,
	// carried in the final path segment.
	if host == "hashrego.com" {
		return Result{Kind: KindHashRego, ExtractedID: lastPathSegment(path)}, true
	}

	// Social events host: group name is the first path segment.
	if host == "meetup.com" {
		if seg := firstPathSegment(path); seg != "" {
			return Result{Kind: KindMeetup, ExtractedID: seg}, true
		}
	}

	// Raw iCal feeds.
	if strings.HasSuffix(strings.ToLower(path), ".ics") ||
		query.Get("format") == "ical" || query.Has("ical") {
		return Result{Kind: KindICal}, true
	}

	// RSS feeds.
	lower := strings.ToLower(strings.TrimRight(path, "/"))
	if strings.HasSuffix(lower, "/feed") || strings.HasSuffix(lower, "/rss") ||
		strings.HasSuffix(lower, "/rss.xml") ||
		query.Get("feed") == "rss2" || query.Get("format") == "rss" {
		return Result{Kind: KindRSS}, true
	}

	return Result{}, false
}

func firstPathSegment(path string) string {
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			return seg
		}
	}
	return ""
}

func lastPathSegment(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}
