package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/event"
	"github.com/harrierhub/hareline/internal/store"
	"github.com/harrierhub/hareline/internal/urlprobe"
)

// Endpoint shapes a harrier-registry site may expose, in preference order.
// Older installs only answer the flat JSON path.
const (
	harrierPrimaryShape  = "%s/wp-json/hareline/v1/events?days=%d&per_page=%d"
	harrierFallbackShape = "%s/hareline/events.json?days=%d&limit=%d"

	defaultPageSize = 100
)

// HarrierAdapter probes a hash-registry JSON API across every combination of
// endpoint shape and URL variant, in order, stopping at the first response
// that is HTTP 200 with a JSON array body. These sites are notorious for
// answering on only one of www/non-www or http/https without redirecting,
// which is what the variant probing exists for.
type HarrierAdapter struct {
	deps Deps
}

func (a *HarrierAdapter) Kind() detect.Kind { return detect.KindHarrier }

// attempt is one (url variant, endpoint shape) probe. Attempts are built
// eagerly as an ordered list so the fallback walk is a flat loop with early
// termination rather than nested branching.
type attempt struct {
	url     string
	variant int
}

func buildAttempts(baseURL string, days, pageSize int) []attempt {
	variants := urlprobe.Variants(baseURL)
	attempts := make([]attempt, 0, len(variants)*2)
	for vi, v := range variants {
		for _, shape := range []string{harrierPrimaryShape, harrierFallbackShape} {
			attempts = append(attempts, attempt{
				url:     fmt.Sprintf(shape, v, days, pageSize),
				variant: vi,
			})
		}
	}
	return attempts
}

func (a *HarrierAdapter) Fetch(ctx context.Context, src *store.Source, window Window) Result {
	pageSize := src.Config.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	days := window.Days
	if days <= 0 {
		days = 1
	}

	attempts := buildAttempts(src.URL, days, pageSize)

	var (
		lastFailure string
		tried       int
		deadVariant = -1
	)
	for _, at := range attempts {
		if at.variant == deadVariant {
			// A 5xx on this variant is fatal for its remaining endpoint
			// shapes; only the next variant gets another chance.
			continue
		}
		tried++

		status, body, err := get(ctx, a.deps.Client, at.url)
		if err != nil {
			lastFailure = err.Error()
			continue
		}
		if status >= 500 {
			lastFailure = fmt.Sprintf("HTTP %d from %s", status, at.url)
			deadVariant = at.variant
			continue
		}
		if status != 200 {
			lastFailure = fmt.Sprintf("HTTP %d from %s", status, at.url)
			continue
		}

		var records []harrierRecord
		if err := json.Unmarshal(body, &records); err != nil {
			lastFailure = fmt.Sprintf("non-array JSON from %s: %v", at.url, err)
			continue
		}

		a.deps.Log.Debug().
			Str("source_id", src.ID).
			Str("url", at.url).
			Int("attempts", tried).
			Int("records", len(records)).
			Msg("harrier probe succeeded")
		return a.normalize(records, src, at.url)
	}

	return Result{
		Errors: []string{fmt.Sprintf("all %d probe attempts failed, last: %s", tried, lastFailure)},
	}
}

type harrierRecord struct {
	Date        string          `json:"date"`
	Kennel      string          `json:"kennel"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Hares       json.RawMessage `json:"hares"`
	Location    string          `json:"location"`
	StartTime   string          `json:"start_time"`
	RunNumber   int             `json:"run_number"`
	URL         string          `json:"url"`
}

func (a *HarrierAdapter) normalize(records []harrierRecord, src *store.Source, fetchedFrom string) Result {
	var out Result
	for i, rec := range records {
		date, ok := event.NormalizeDate(rec.Date)
		if !ok {
			out.Errors = append(out.Errors, fmt.Sprintf("record %d: unparseable date %q", i, rec.Date))
			continue
		}
		sourceURL := rec.URL
		if sourceURL == "" {
			sourceURL = fetchedFrom
		}
		out.Events = append(out.Events, event.RawEvent{
			Date:        date,
			GroupTag:    tagOrDefault(rec.Kennel, src),
			Title:       decodeTitle(rec.Title),
			Description: strings.TrimSpace(rec.Description),
			Hares:       parseHares(rec.Hares),
			Location:    strings.TrimSpace(rec.Location),
			StartTime:   event.NormalizeStartTime(rec.StartTime),
			RunNumber:   rec.RunNumber,
			SourceURL:   sourceURL,
		})
	}
	return out
}

// parseHares accepts the two spellings in the wild: a JSON array of names or
// a single comma-separated string.
func parseHares(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return trimAll(list)
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil && joined != "" {
		return trimAll(strings.Split(joined, ","))
	}
	return nil
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
