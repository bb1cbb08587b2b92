package adapter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/event"
	"github.com/harrierhub/hareline/internal/store"
)

// MeetupAdapter scrapes a kennel's public meetup events page. There is no
// stable API without OAuth, so this parses the rendered event cards and
// stays deliberately tolerant about which bits are present.
type MeetupAdapter struct {
	deps Deps
}

func (a *MeetupAdapter) Kind() detect.Kind { return detect.KindMeetup }

func (a *MeetupAdapter) Fetch(ctx context.Context, src *store.Source, window Window) Result {
	group := src.Config.GroupPath
	if group == "" {
		if res, ok := detect.Detect(src.URL); ok {
			group = res.ExtractedID
		}
	}
	if group == "" {
		return Result{Errors: []string{"no meetup group path configured or extractable from URL"}}
	}

	pageURL := fmt.Sprintf("https://www.meetup.com/%s/events/", group)
	status, body, err := get(ctx, a.deps.Client, pageURL)
	if err != nil {
		return Result{Errors: []string{err.Error()}}
	}
	if status != 200 {
		return Result{Errors: []string{fmt.Sprintf("HTTP %d from %s", status, pageURL)}}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("parsing HTML from %s: %v", pageURL, err)}}
	}

	var out Result
	seen := map[string]bool{}
	doc.Find("[data-event-id]").Each(func(i int, sel *goquery.Selection) {
		id, _ := sel.Attr("data-event-id")
		if id == "" || seen[id] {
			return
		}
		seen[id] = true

		datetime, _ := sel.Find("time[datetime]").First().Attr("datetime")
		date, startTime := splitMeetupDatetime(datetime)
		if date == "" {
			out.Errors = append(out.Errors, fmt.Sprintf("event %s: no parseable date", id))
			return
		}
		if !event.WithinWindow(date, window.Start, window.Days) {
			return
		}

		title := decodeTitle(sel.Find(".event-title, h3").First().Text())
		venue := strings.TrimSpace(sel.Find(".venue, .event-venue").First().Text())
		link, _ := sel.Find("a").First().Attr("href")
		if link == "" {
			link = pageURL
		}

		out.Events = append(out.Events, event.RawEvent{
			Date:      date,
			GroupTag:  tagOrDefault("", src),
			Title:     title,
			Location:  venue,
			StartTime: startTime,
			SourceURL: link,
		})
	})

	if len(out.Events) == 0 && len(out.Errors) == 0 {
		out.Errors = append(out.Errors, fmt.Sprintf("no event cards found on %s", pageURL))
	}
	return out
}

// splitMeetupDatetime handles "2026-03-14T14:00:00-07:00" and bare dates.
func splitMeetupDatetime(datetime string) (date, startTime string) {
	datetime = strings.TrimSpace(datetime)
	if len(datetime) < 10 {
		return "", ""
	}
	d, ok := event.NormalizeDate(datetime[:10])
	if !ok {
		return "", ""
	}
	if len(datetime) >= 16 && datetime[10] == 'T' {
		startTime = event.NormalizeStartTime(datetime[11:16])
	}
	return d, startTime
}
