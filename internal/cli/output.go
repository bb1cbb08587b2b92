package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/fuzzy"
	"github.com/harrierhub/hareline/internal/pipeline"
	"github.com/harrierhub/hareline/internal/store"
)

// OutputFormat specifies the output format.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeOutcome(w io.Writer, format OutputFormat, o *pipeline.Outcome) error {
	if format == FormatJSON {
		return writeJSON(w, o)
	}
	fmt.Fprintf(w, "source %s: %s (%s)\n", o.SourceID, o.Status, o.Health)
	fmt.Fprintf(w, "  found %d, created %d, updated %d, skipped %d, blocked %d, cancelled %d\n",
		o.EventsFound, o.Merge.Created, o.Merge.Updated, o.Merge.Skipped, o.Merge.Blocked, o.Merge.Cancelled)
	if len(o.Merge.Unmatched) > 0 {
		fmt.Fprintf(w, "  unmatched tags: %v\n", o.Merge.Unmatched)
	}
	if len(o.Merge.BlockedTags) > 0 {
		fmt.Fprintf(w, "  blocked tags: %v\n", o.Merge.BlockedTags)
	}
	for _, e := range o.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	if o.AlertCount > 0 {
		fmt.Fprintf(w, "  %d alert(s) raised\n", o.AlertCount)
	}
	return nil
}

func writeBatch(w io.Writer, format OutputFormat, b *pipeline.BatchOutcome) error {
	if format == FormatJSON {
		return writeJSON(w, b)
	}
	fmt.Fprintf(w, "batch: %d succeeded, %d failed, %d skipped\n", b.Succeeded, b.Failed, b.Skipped)
	for _, o := range b.Outcomes {
		fmt.Fprintf(w, "  %s: %s (%s), found %d, created %d\n",
			o.SourceID, o.Status, o.Health, o.EventsFound, o.Merge.Created)
	}
	return nil
}

func writeDetection(w io.Writer, format OutputFormat, url string, res detect.Result) error {
	if format == FormatJSON {
		return writeJSON(w, map[string]string{
			"url":          url,
			"kind":         string(res.Kind),
			"extracted_id": res.ExtractedID,
		})
	}
	fmt.Fprintf(w, "kind: %s\n", res.Kind)
	if res.ExtractedID != "" {
		fmt.Fprintf(w, "extracted id: %s\n", res.ExtractedID)
	}
	return nil
}

func writeSuggestions(w io.Writer, format OutputFormat, tag string, matches []fuzzy.Match) error {
	if format == FormatJSON {
		type suggestion struct {
			GroupID   string  `json:"group_id"`
			ShortName string  `json:"short_name"`
			FullName  string  `json:"full_name,omitempty"`
			Score     float64 `json:"score"`
		}
		out := make([]suggestion, 0, len(matches))
		for _, m := range matches {
			out = append(out, suggestion{
				GroupID:   m.Group.ID,
				ShortName: m.Group.ShortName,
				FullName:  m.Group.FullName,
				Score:     m.Score,
			})
		}
		return writeJSON(w, map[string]any{"tag": tag, "suggestions": out})
	}
	if len(matches) == 0 {
		fmt.Fprintf(w, "no suggestions for %q\n", tag)
		return nil
	}
	fmt.Fprintf(w, "suggestions for %q:\n", tag)
	for _, m := range matches {
		fmt.Fprintf(w, "  %.2f  %s (%s)\n", m.Score, m.Group.ShortName, m.Group.FullName)
	}
	return nil
}

func writeSources(w io.Writer, format OutputFormat, sources []*store.Source) error {
	if format == FormatJSON {
		return writeJSON(w, sources)
	}
	if len(sources) == 0 {
		fmt.Fprintln(w, "no sources configured")
		return nil
	}
	for _, s := range sources {
		health := s.HealthStatus
		if health == "" {
			health = store.HealthUnknown
		}
		last := "never"
		if s.LastScrapeAt != nil {
			last = s.LastScrapeAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%-12s %-12s %-10s last %s  %s\n", s.ID, s.Kind, health, last, s.URL)
	}
	return nil
}

func writeAlerts(w io.Writer, format OutputFormat, alerts []*store.Alert) error {
	if format == FormatJSON {
		return writeJSON(w, alerts)
	}
	if len(alerts) == 0 {
		fmt.Fprintln(w, "no open alerts")
		return nil
	}
	for _, a := range alerts {
		fmt.Fprintf(w, "%s  %-24s %-8s %s\n",
			a.CreatedAt.Format("2006-01-02 15:04"), a.Type, a.Severity, a.Title)
	}
	return nil
}
