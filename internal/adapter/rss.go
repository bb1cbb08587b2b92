package adapter

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/event"
	"github.com/harrierhub/hareline/internal/store"
)

// RSSAdapter reads an RSS 2.0 feed of upcoming runs. Kennel sites that run
// on stock blog software tend to expose nothing better than this.
type RSSAdapter struct {
	deps Deps
}

func (a *RSSAdapter) Kind() detect.Kind { return detect.KindRSS }

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
}

func (a *RSSAdapter) Fetch(ctx context.Context, src *store.Source, window Window) Result {
	status, body, err := get(ctx, a.deps.Client, src.URL)
	if err != nil {
		return Result{Errors: []string{err.Error()}}
	}
	if status != 200 {
		return Result{Errors: []string{fmt.Sprintf("HTTP %d from %s", status, src.URL)}}
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return Result{Errors: []string{fmt.Sprintf("parsing feed from %s: %v", src.URL, err)}}
	}

	var out Result
	for i, item := range feed.Channel.Items {
		date, ok := rssItemDate(item)
		if !ok {
			out.Errors = append(out.Errors, fmt.Sprintf("item %d (%q): no usable date", i, item.Title))
			continue
		}
		if !event.WithinWindow(date, window.Start, window.Days) {
			continue
		}
		tag := ""
		if len(item.Categories) > 0 {
			tag = item.Categories[0]
		}
		out.Events = append(out.Events, event.RawEvent{
			Date:        date,
			GroupTag:    tagOrDefault(tag, src),
			Title:       decodeTitle(item.Title),
			Description: strings.TrimSpace(item.Description),
			SourceURL:   item.Link,
		})
	}
	return out
}

// rssItemDate prefers an event date embedded in the title ("Run #1203 -
// 2026-03-14"), falling back to the item's publication date.
func rssItemDate(item rssItem) (string, bool) {
	for _, part := range strings.Split(item.Title, " - ") {
		if d, ok := event.NormalizeDate(part); ok {
			return d, true
		}
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if t, err := time.Parse(layout, strings.TrimSpace(item.PubDate)); err == nil {
			return t.UTC().Format(event.ISODate), true
		}
	}
	return "", false
}
