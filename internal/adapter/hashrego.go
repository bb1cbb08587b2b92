package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/event"
	"github.com/harrierhub/hareline/internal/store"
)

// HashRegoAdapter pulls a kennel's upcoming events from the registration
// platform by its provider-side id. The id is opaque to us; nothing about
// the source "URL" is fetched directly, which is why this kind is exempt
// from the SSRF boundary check.
type HashRegoAdapter struct {
	deps Deps
}

func (a *HashRegoAdapter) Kind() detect.Kind { return detect.KindHashRego }

type hashRegoEvent struct {
	Date      string   `json:"date"`
	Kennel    string   `json:"kennel"`
	Name      string   `json:"name"`
	Details   string   `json:"details"`
	Hares     []string `json:"hares"`
	Venue     string   `json:"venue"`
	StartTime string   `json:"start_time"`
	RunNumber int      `json:"run_number"`
	EventURL  string   `json:"event_url"`
}

func (a *HashRegoAdapter) Fetch(ctx context.Context, src *store.Source, window Window) Result {
	regoID := src.Config.RegoID
	if regoID == "" {
		if res, ok := detect.Detect(src.URL); ok {
			regoID = res.ExtractedID
		}
	}
	if regoID == "" {
		return Result{Errors: []string{"no hashrego id configured or extractable from URL"}}
	}

	apiURL := fmt.Sprintf("https://hashrego.com/api/kennels/%s/events.json?days=%d", regoID, window.Days)
	status, body, err := get(ctx, a.deps.Client, apiURL)
	if err != nil {
		return Result{Errors: []string{err.Error()}}
	}
	if status != 200 {
		return Result{Errors: []string{fmt.Sprintf("HTTP %d from hashrego for %s", status, regoID)}}
	}

	var records []hashRegoEvent
	if err := json.Unmarshal(body, &records); err != nil {
		return Result{Errors: []string{fmt.Sprintf("decoding hashrego payload: %v", err)}}
	}

	var out Result
	for i, rec := range records {
		date, ok := event.NormalizeDate(rec.Date)
		if !ok {
			out.Errors = append(out.Errors, fmt.Sprintf("record %d: unparseable date %q", i, rec.Date))
			continue
		}
		if !event.WithinWindow(date, window.Start, window.Days) {
			continue
		}
		out.Events = append(out.Events, event.RawEvent{
			Date:        date,
			GroupTag:    tagOrDefault(rec.Kennel, src),
			Title:       decodeTitle(rec.Name),
			Description: strings.TrimSpace(rec.Details),
			Hares:       trimAll(rec.Hares),
			Location:    strings.TrimSpace(rec.Venue),
			StartTime:   event.NormalizeStartTime(rec.StartTime),
			RunNumber:   rec.RunNumber,
			SourceURL:   rec.EventURL,
		})
	}
	return out
}
