// Package adapter fetches raw schedule data from one kind of external source
// and normalizes it into RawEvents. Adapters collect expected upstream
// failures (HTTP errors, malformed payloads) into the result instead of
// returning them, so a batch over many sources survives any one bad source.
package adapter

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/event"
	"github.com/harrierhub/hareline/internal/store"
)

const (
	userAgent      = "hareline/1.0 (github.com/harrierhub/hareline)"
	requestTimeout = 30 * time.Second

	// maxBodySize caps reads from untrusted sources.
	maxBodySize = 4 << 20
)

// Window is the day range a scrape covers, starting at Start.
type Window struct {
	Start time.Time
	Days  int
}

// Result is what an adapter hands back. SampleRows is populated only by
// spreadsheet-shaped sources, for operator-assisted column mapping.
type Result struct {
	Events     []event.RawEvent
	Errors     []string
	SampleRows [][]string
}

// Adapter is the seam every source kind implements.
type Adapter interface {
	Kind() detect.Kind
	Fetch(ctx context.Context, src *store.Source, window Window) Result
}

// Deps is what adapters share: one HTTP client and a logger.
type Deps struct {
	Client *http.Client
	Log    zerolog.Logger
}

// New selects the adapter for a source kind. The switch is deliberately
// exhaustive over the known kinds: adding a kind means adding a case here,
// checked at review time, not registering into a runtime map.
func New(kind detect.Kind, deps Deps) (Adapter, error) {
	if deps.Client == nil {
		deps.Client = &http.Client{Timeout: requestTimeout}
	}
	switch kind {
	case detect.KindHarrier:
		return &HarrierAdapter{deps: deps}, nil
	case detect.KindSpreadsheet:
		return &SpreadsheetAdapter{deps: deps}, nil
	case detect.KindGCal:
		return &GCalAdapter{deps: deps}, nil
	case detect.KindICal:
		return &ICalAdapter{deps: deps}, nil
	case detect.KindRSS:
		return &RSSAdapter{deps: deps}, nil
	case detect.KindMeetup:
		return &MeetupAdapter{deps: deps}, nil
	case detect.KindHashRego:
		return &HashRegoAdapter{deps: deps}, nil
	default:
		return nil, fmt.Errorf("unknown source kind: %s", kind)
	}
}

// get performs one GET with the pipeline user agent. Non-nil error means the
// request never produced a response (network failure, timeout).
func get(ctx context.Context, client *http.Client, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading body from %s: %w", url, err)
	}
	return resp.StatusCode, body, nil
}

// decodeTitle undoes the HTML entity encoding sources love to emit
// (&#8211; en dashes, &#8217; curly quotes) and squeezes whitespace.
func decodeTitle(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

// tagOrDefault falls back to the source's configured kennel tag when the
// feed row carries none of its own.
func tagOrDefault(tag string, src *store.Source) string {
	tag = strings.TrimSpace(tag)
	if tag != "" {
		return tag
	}
	return src.Config.DefaultGroupTag
}
