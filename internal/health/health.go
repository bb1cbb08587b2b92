// Package health judges one scrape's outcome against the source's own
// rolling baseline and raises typed operator alerts. It reads log history
// and produces OPEN alerts; persisting them is the caller's job.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harrierhub/hareline/internal/fillrate"
	"github.com/harrierhub/hareline/internal/store"
)

// Calibrated constants. The thresholds are observed behavior the operators
// rely on, not values to re-derive.
const (
	baselineWindow  = 10  // successful runs forming the comparison baseline
	recentWindow    = 20  // any-status runs kept for trend context
	anomalyRatio    = 0.5 // eventsFound below ratio*baseline mean is anomalous
	minBaselineRuns = 3   // ratio rule needs this much history
)

// Input is everything the analyzer knows about the run under judgment.
type Input struct {
	EventsFound   int
	ScrapeFailed  bool
	Errors        []string
	UnmatchedTags []string
	FillRates     fillrate.Rates
	BlockedTags   []string
}

// Output is the health verdict plus the alerts that fired. Rules evaluate
// independently; several alerts may fire for one run.
type Output struct {
	Status store.HealthStatus
	Alerts []*store.Alert
}

// FailureContext is the SCRAPE_FAILURE alert payload.
type FailureContext struct {
	LogID  string   `json:"log_id"`
	Errors []string `json:"errors,omitempty"`
}

// CountAnomalyContext is the EVENT_COUNT_ANOMALY alert payload.
type CountAnomalyContext struct {
	EventsFound     int     `json:"events_found"`
	BaselineAverage float64 `json:"baseline_average"`
	BaselineRuns    int     `json:"baseline_runs"`
}

// UnmatchedTagsContext is the UNMATCHED_TAGS alert payload. Only tags never
// seen in the baseline window appear here.
type UnmatchedTagsContext struct {
	LogID     string   `json:"log_id"`
	NovelTags []string `json:"novel_tags"`
}

// KennelMismatchContext is the SOURCE_KENNEL_MISMATCH alert payload.
type KennelMismatchContext struct {
	BlockedTags []string `json:"blocked_tags"`
}

// Analyzer evaluates scrape outcomes.
type Analyzer struct {
	logs store.LogStore
	log  zerolog.Logger
	now  func() time.Time
}

// New builds an analyzer over the scrape log history.
func New(logs store.LogStore, log zerolog.Logger) *Analyzer {
	return &Analyzer{logs: logs, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Analyze compares a run against the source's baseline. logID identifies the
// scrape log entry being judged (it is referenced from alert contexts, and
// its own entry is expected not to be in the history yet when this runs).
func (a *Analyzer) Analyze(ctx context.Context, sourceID, logID string, in Input) (Output, error) {
	baseline, err := a.logs.RecentSuccessfulLogs(ctx, sourceID, baselineWindow)
	if err != nil {
		return Output{}, fmt.Errorf("loading baseline logs: %w", err)
	}
	// Trend context: all recent runs regardless of status. Not consulted by
	// any rule yet, but fetched so a rule change never needs a new read path.
	if _, err := a.logs.RecentLogs(ctx, sourceID, recentWindow); err != nil {
		return Output{}, fmt.Errorf("loading recent logs: %w", err)
	}

	out := Output{Status: store.HealthHealthy}

	if in.ScrapeFailed {
		out.Alerts = append(out.Alerts, a.newAlert(sourceID, store.AlertScrapeFailure, store.SeverityCritical,
			"Scrape failed", FailureContext{LogID: logID, Errors: in.Errors}))
	}

	if alert := a.checkEventCount(sourceID, in, baseline); alert != nil {
		out.Alerts = append(out.Alerts, alert)
	}
	if alert := a.checkUnmatchedTags(sourceID, logID, in, baseline); alert != nil {
		out.Alerts = append(out.Alerts, alert)
	}
	if alert := a.checkBlockedTags(sourceID, in); alert != nil {
		out.Alerts = append(out.Alerts, alert)
	}

	for _, alert := range out.Alerts {
		switch {
		case alert.Severity == store.SeverityCritical:
			out.Status = store.HealthFailing
		case alert.Severity == store.SeverityWarning && out.Status != store.HealthFailing:
			out.Status = store.HealthDegraded
		}
		a.log.Warn().
			Str("source_id", sourceID).
			Str("type", string(alert.Type)).
			Str("severity", string(alert.Severity)).
			Msg(alert.Title)
	}

	return out, nil
}

// checkEventCount fires when the run found far fewer events than the
// baseline mean, including the found-nothing case against any non-empty
// baseline.
func (a *Analyzer) checkEventCount(sourceID string, in Input, baseline []*store.ScrapeLogEntry) *store.Alert {
	if in.ScrapeFailed || len(baseline) == 0 {
		return nil
	}
	mean := baselineMean(baseline)

	zeroAgainstHistory := in.EventsFound == 0 && mean > 0
	farBelow := len(baseline) >= minBaselineRuns && float64(in.EventsFound) < mean*anomalyRatio
	if !zeroAgainstHistory && !farBelow {
		return nil
	}

	title := fmt.Sprintf("Found %d events, baseline average is %.1f", in.EventsFound, mean)
	return a.newAlert(sourceID, store.AlertEventCountAnomaly, store.SeverityWarning, title,
		CountAnomalyContext{EventsFound: in.EventsFound, BaselineAverage: mean, BaselineRuns: len(baseline)})
}

// checkUnmatchedTags fires only for tags the baseline window has never
// reported; recurring unmatched tags are known issues, not news.
func (a *Analyzer) checkUnmatchedTags(sourceID, logID string, in Input, baseline []*store.ScrapeLogEntry) *store.Alert {
	if len(in.UnmatchedTags) == 0 {
		return nil
	}

	known := map[string]bool{}
	for _, entry := range baseline {
		for _, tag := range entry.UnmatchedTags {
			known[tag] = true
		}
	}

	var novel []string
	for _, tag := range in.UnmatchedTags {
		if !known[tag] {
			novel = append(novel, tag)
		}
	}
	if len(novel) == 0 {
		return nil
	}

	title := fmt.Sprintf("%d new unmatched kennel %s", len(novel), pluralize(len(novel), "tag", "tags"))
	return a.newAlert(sourceID, store.AlertUnmatchedTags, store.SeverityWarning, title,
		UnmatchedTagsContext{LogID: logID, NovelTags: novel})
}

// checkBlockedTags fires whenever a source emitted events for kennels it is
// excluded from, history or not.
func (a *Analyzer) checkBlockedTags(sourceID string, in Input) *store.Alert {
	if len(in.BlockedTags) == 0 {
		return nil
	}
	title := fmt.Sprintf("%d kennel %s blocked", len(in.BlockedTags), pluralize(len(in.BlockedTags), "tag", "tags"))
	return a.newAlert(sourceID, store.AlertSourceKennelMismatch, store.SeverityWarning, title,
		KennelMismatchContext{BlockedTags: in.BlockedTags})
}

func (a *Analyzer) newAlert(sourceID string, typ store.AlertType, sev store.Severity, title string, context any) *store.Alert {
	return &store.Alert{
		ID:        uuid.NewString(),
		SourceID:  sourceID,
		Type:      typ,
		Severity:  sev,
		Title:     title,
		Context:   context,
		Status:    store.AlertOpen,
		CreatedAt: a.now(),
	}
}

func baselineMean(entries []*store.ScrapeLogEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0
	for _, e := range entries {
		sum += e.EventsFound
	}
	return float64(sum) / float64(len(entries))
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
