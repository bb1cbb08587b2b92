package adapter

import (
	"context"
	"fmt"
	"net/url"

	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/event"
	"github.com/harrierhub/hareline/internal/store"
)

// ICalAdapter fetches a raw .ics feed at the source URL.
type ICalAdapter struct {
	deps Deps
}

func (a *ICalAdapter) Kind() detect.Kind { return detect.KindICal }

func (a *ICalAdapter) Fetch(ctx context.Context, src *store.Source, window Window) Result {
	return fetchICS(ctx, a.deps, src, src.URL, window)
}

// GCalAdapter fetches a Google Calendar's public ICS feed by calendar id.
type GCalAdapter struct {
	deps Deps
}

func (a *GCalAdapter) Kind() detect.Kind { return detect.KindGCal }

func (a *GCalAdapter) Fetch(ctx context.Context, src *store.Source, window Window) Result {
	calendarID := src.Config.CalendarID
	if calendarID == "" {
		if res, ok := detect.Detect(src.URL); ok && res.ExtractedID != "" {
			calendarID = res.ExtractedID
		}
	}
	if calendarID == "" {
		return Result{Errors: []string{"no calendar id configured or extractable from URL"}}
	}
	feedURL := fmt.Sprintf("https://calendar.google.com/calendar/ical/%s/public/basic.ics",
		url.PathEscape(calendarID))
	return fetchICS(ctx, a.deps, src, feedURL, window)
}

// fetchICS is the shared fetch-parse-filter path for both calendar kinds.
// Events outside the scrape window are dropped here, not in the merge
// engine, because calendar feeds return their entire history.
func fetchICS(ctx context.Context, deps Deps, src *store.Source, feedURL string, window Window) Result {
	status, body, err := get(ctx, deps.Client, feedURL)
	if err != nil {
		return Result{Errors: []string{err.Error()}}
	}
	if status != 200 {
		return Result{Errors: []string{fmt.Sprintf("HTTP %d from %s", status, feedURL)}}
	}

	parsed := parseICS(body)
	if len(parsed) == 0 {
		return Result{Errors: []string{fmt.Sprintf("no calendar events parsed from %s", feedURL)}}
	}

	all := icsToRawEvents(parsed, src, feedURL)
	var out Result
	for _, raw := range all {
		if event.WithinWindow(raw.Date, window.Start, window.Days) {
			out.Events = append(out.Events, raw)
		}
	}
	deps.Log.Debug().
		Str("source_id", src.ID).
		Int("parsed", len(all)).
		Int("in_window", len(out.Events)).
		Msg("calendar feed fetched")
	return out
}
