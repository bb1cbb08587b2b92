// Package pipeline runs the end-to-end scrape for a source: guard the URL,
// fetch through the source's adapter, reconcile into the canonical store,
// score data quality, judge health, and persist the run record and alerts.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harrierhub/hareline/internal/adapter"
	"github.com/harrierhub/hareline/internal/event"
	"github.com/harrierhub/hareline/internal/fillrate"
	"github.com/harrierhub/hareline/internal/health"
	"github.com/harrierhub/hareline/internal/merge"
	"github.com/harrierhub/hareline/internal/metrics"
	"github.com/harrierhub/hareline/internal/netguard"
	"github.com/harrierhub/hareline/internal/resolver"
	"github.com/harrierhub/hareline/internal/schedule"
	"github.com/harrierhub/hareline/internal/store"
)

// defaultWindowDays is used when neither the request nor the source
// configures a scrape window.
const defaultWindowDays = 14

// Options tune one scrape invocation.
type Options struct {
	// Days overrides the source's configured scrape window when positive.
	Days int `json:"days,omitempty"`
	// Force clears the source's canonical events before scraping, turning
	// the run into a full rebuild instead of an incremental reconcile.
	Force bool `json:"force,omitempty"`
}

// Outcome is the JSON-serializable record of one scrape run, returned to
// callers and logged by the worker.
type Outcome struct {
	SourceID    string             `json:"source_id"`
	LogID       string             `json:"log_id"`
	Status      store.ScrapeStatus `json:"status"`
	Health      store.HealthStatus `json:"health"`
	EventsFound int                `json:"events_found"`
	Merge       merge.Result       `json:"merge"`
	FillRates   fillrate.Rates     `json:"fill_rates"`
	AlertCount  int                `json:"alert_count"`
	Errors      []string           `json:"errors,omitempty"`
	Duration    time.Duration      `json:"duration_ns"`
}

// BatchOutcome summarizes one scheduler pass over every source.
type BatchOutcome struct {
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Skipped   int        `json:"skipped"`
	Outcomes  []*Outcome `json:"outcomes,omitempty"`
}

// Orchestrator wires the pipeline stages over one store.
type Orchestrator struct {
	store    store.Store
	deps     adapter.Deps
	merger   *merge.Engine
	analyzer *health.Analyzer
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

// New builds an orchestrator. met may be nil for paths that never serve a
// metrics endpoint.
func New(st store.Store, deps adapter.Deps, met *metrics.Metrics, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    st,
		deps:     deps,
		merger:   merge.New(st, log),
		analyzer: health.New(st, log),
		metrics:  met,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ScrapeSource runs the full pipeline for one source. Upstream trouble is
// recorded in the outcome; only store and configuration failures return an
// error.
func (o *Orchestrator) ScrapeSource(ctx context.Context, sourceID string, opts Options) (*Outcome, error) {
	src, err := o.store.GetSource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("loading source %s: %w", sourceID, err)
	}

	days := opts.Days
	if days <= 0 {
		days = src.ScrapeWindowDays
	}
	if days <= 0 {
		days = defaultWindowDays
	}

	startedAt := o.now()
	window := adapter.Window{Start: startedAt, Days: days}

	o.log.Info().
		Str("source_id", src.ID).
		Str("kind", string(src.Kind)).
		Str("window", event.FormatWindow(window.Start, window.Days)).
		Bool("force", opts.Force).
		Msg("scrape starting")

	if !netguard.Exempt(src.Kind) {
		if err := netguard.Check(src.URL); err != nil {
			return o.finish(ctx, src, startedAt, runResult{
				errors: []string{fmt.Sprintf("source URL rejected: %v", err)},
				failed: true,
			})
		}
	}

	if opts.Force {
		if err := o.store.DeleteEventsBySource(ctx, src.ID); err != nil {
			return nil, fmt.Errorf("clearing events for forced scrape: %w", err)
		}
	}

	groups, err := o.store.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading groups: %w", err)
	}

	res := o.fetchAndReconcile(ctx, src, window, resolver.New(groups))
	return o.finish(ctx, src, startedAt, res)
}

// runResult is the internal carry between the fetch/reconcile stage and
// outcome persistence.
type runResult struct {
	eventsFound int
	merge       merge.Result
	fillRates   fillrate.Rates
	errors      []string
	failed      bool
}

// fetchAndReconcile is the panic boundary. Adapters parse hostile input and
// the merge walks adapter output; a panic in either becomes a failed run for
// this source, never a dead batch.
func (o *Orchestrator) fetchAndReconcile(ctx context.Context, src *store.Source, window adapter.Window, res *resolver.Resolver) (out runResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().
				Str("source_id", src.ID).
				Interface("panic", r).
				Msg("scrape panicked")
			out = runResult{
				errors: append(out.errors, fmt.Sprintf("internal error: %v", r)),
				failed: true,
			}
		}
	}()

	ad, err := adapter.New(src.Kind, o.deps)
	if err != nil {
		return runResult{errors: []string{err.Error()}, failed: true}
	}

	fetched := ad.Fetch(ctx, src, window)
	out.eventsFound = len(fetched.Events)
	out.errors = fetched.Errors
	out.fillRates = fillrate.Compute(fetched.Events)

	if out.eventsFound == 0 && len(out.errors) > 0 {
		out.failed = true
		return out
	}

	merged, err := o.merger.Reconcile(ctx, src, window.Start, window.Days, fetched.Events, res)
	out.merge = merged
	if err != nil {
		out.errors = append(out.errors, err.Error())
		out.failed = true
	}
	return out
}

// finish judges health, persists the log entry and alerts, updates the source
// row, and assembles the outcome.
func (o *Orchestrator) finish(ctx context.Context, src *store.Source, startedAt time.Time, res runResult) (*Outcome, error) {
	completedAt := o.now()

	status := store.ScrapeSuccess
	switch {
	case res.failed:
		status = store.ScrapeFailed
	case len(res.errors) > 0:
		status = store.ScrapePartial
	}

	logID := uuid.NewString()
	verdict, err := o.analyzer.Analyze(ctx, src.ID, logID, health.Input{
		EventsFound:   res.eventsFound,
		ScrapeFailed:  status == store.ScrapeFailed,
		Errors:        res.errors,
		UnmatchedTags: res.merge.Unmatched,
		FillRates:     res.fillRates,
		BlockedTags:   res.merge.BlockedTags,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing run health: %w", err)
	}

	entry := &store.ScrapeLogEntry{
		ID:            logID,
		SourceID:      src.ID,
		StartedAt:     startedAt,
		CompletedAt:   completedAt,
		Status:        status,
		EventsFound:   res.eventsFound,
		Created:       res.merge.Created,
		Updated:       res.merge.Updated,
		Skipped:       res.merge.Skipped,
		Blocked:       res.merge.Blocked,
		Cancelled:     res.merge.Cancelled,
		UnmatchedTags: res.merge.Unmatched,
		FillRates:     res.fillRates,
		Errors:        res.errors,
	}
	if err := o.store.AppendLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("recording scrape log: %w", err)
	}

	for _, alert := range verdict.Alerts {
		if err := o.store.AppendAlert(ctx, alert); err != nil {
			return nil, fmt.Errorf("recording alert: %w", err)
		}
		o.metrics.CountAlert(alert.Type)
	}

	lastSuccess := src.LastSuccessAt
	if status != store.ScrapeFailed {
		lastSuccess = &completedAt
	}
	if err := o.store.UpdateSourceRun(ctx, src.ID, verdict.Status, &completedAt, lastSuccess); err != nil {
		return nil, fmt.Errorf("updating source run state: %w", err)
	}

	duration := completedAt.Sub(startedAt)
	o.metrics.ObserveScrape(status, duration)
	o.metrics.ObserveMerge(res.merge.Created, res.merge.Updated, res.merge.Cancelled)

	o.log.Info().
		Str("source_id", src.ID).
		Str("status", string(status)).
		Str("health", string(verdict.Status)).
		Int("events_found", res.eventsFound).
		Int("created", res.merge.Created).
		Int("updated", res.merge.Updated).
		Int("cancelled", res.merge.Cancelled).
		Int("alerts", len(verdict.Alerts)).
		Dur("duration", duration).
		Msg("scrape finished")

	return &Outcome{
		SourceID:    src.ID,
		LogID:       logID,
		Status:      status,
		Health:      verdict.Status,
		EventsFound: res.eventsFound,
		Merge:       res.merge,
		FillRates:   res.fillRates,
		AlertCount:  len(verdict.Alerts),
		Errors:      res.errors,
		Duration:    duration,
	}, nil
}

// RunDue scrapes every source whose schedule makes it due, sequentially.
// One source's failure never stops the batch.
func (o *Orchestrator) RunDue(ctx context.Context, opts Options) (*BatchOutcome, error) {
	sources, err := o.store.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	batch := &BatchOutcome{}
	now := o.now()
	for _, src := range sources {
		if !schedule.IsDue(src.ScrapeFrequency, src.LastScrapeAt, now) {
			batch.Skipped++
			continue
		}

		outcome, err := o.ScrapeSource(ctx, src.ID, opts)
		if err != nil {
			batch.Failed++
			o.log.Error().Err(err).Str("source_id", src.ID).Msg("scrape aborted")
			continue
		}
		batch.Outcomes = append(batch.Outcomes, outcome)
		if outcome.Status == store.ScrapeFailed {
			batch.Failed++
		} else {
			batch.Succeeded++
		}
	}

	o.log.Info().
		Int("succeeded", batch.Succeeded).
		Int("failed", batch.Failed).
		Int("skipped", batch.Skipped).
		Msg("batch finished")
	return batch, nil
}
