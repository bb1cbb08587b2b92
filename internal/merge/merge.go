// Package merge reconciles a scrape's raw events against the canonical event
// set. It upserts by the (group, date) natural key, which is what makes a
// whole scrape run idempotent and safely redeliverable.
package merge

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/harrierhub/hareline/internal/event"
	"github.com/harrierhub/hareline/internal/resolver"
	"github.com/harrierhub/hareline/internal/store"
)

// Result carries the cumulative counts of one reconcile pass.
type Result struct {
	Created     int      `json:"created"`
	Updated     int      `json:"updated"`
	Skipped     int      `json:"skipped"`
	Blocked     int      `json:"blocked"`
	Cancelled   int      `json:"cancelled"`
	Unmatched   []string `json:"unmatched,omitempty"`
	BlockedTags []string `json:"blocked_tags,omitempty"`
}

// Engine reconciles raw events into the canonical store.
type Engine struct {
	events store.EventStore
	log    zerolog.Logger
	now    func() time.Time
}

// New builds a merge engine over the given event store.
func New(events store.EventStore, log zerolog.Logger) *Engine {
	return &Engine{events: events, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Reconcile applies one scrape's raw events for one source. Unresolved tags
// are skipped and reported, tags resolving to a group the source is excluded
// from are blocked, everything else is upserted by (group, date). Canonical
// events previously sourced from this source, dated inside the scrape
// window, that did not reappear are marked cancelled — that is how a
// source-side deletion propagates.
//
// Only store failures return an error; data-quality problems are counts.
func (e *Engine) Reconcile(ctx context.Context, src *store.Source, windowStart time.Time, windowDays int, raws []event.RawEvent, res *resolver.Resolver) (Result, error) {
	var (
		result    Result
		unmatched = map[string]bool{}
		blocked   = map[string]bool{}
		upserted  = map[string]bool{}
		now       = e.now()
	)

	for _, raw := range raws {
		if raw.Date == "" {
			// Adapters normalize dates; a blank one here means the row is
			// unusable, not that the tag failed to resolve.
			result.Skipped++
			continue
		}

		resolution := res.Resolve(raw.GroupTag)
		if !resolution.Matched {
			result.Skipped++
			if !unmatched[raw.GroupTag] {
				unmatched[raw.GroupTag] = true
				result.Unmatched = append(result.Unmatched, raw.GroupTag)
			}
			continue
		}

		if src.ExcludesGroup(resolution.GroupID) {
			result.Blocked++
			if !blocked[raw.GroupTag] {
				blocked[raw.GroupTag] = true
				result.BlockedTags = append(result.BlockedTags, raw.GroupTag)
			}
			e.log.Warn().
				Str("source_id", src.ID).
				Str("tag", raw.GroupTag).
				Str("group_id", resolution.GroupID).
				Msg("blocked event for excluded kennel")
			continue
		}

		created, err := e.upsert(ctx, raw, resolution.GroupID, src.ID, now)
		if err != nil {
			return result, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		upserted[event.Key(resolution.GroupID, raw.Date)] = true
	}

	cancelled, err := e.sweepCancelled(ctx, src.ID, windowStart, windowDays, upserted, now)
	if err != nil {
		return result, err
	}
	result.Cancelled = cancelled

	return result, nil
}

// upsert writes one canonical event, reporting whether it was newly created.
// Re-seen events are revived to CONFIRMED even if previously cancelled.
func (e *Engine) upsert(ctx context.Context, raw event.RawEvent, groupID, sourceID string, now time.Time) (bool, error) {
	existing, err := e.events.GetEvent(ctx, groupID, raw.Date)
	if err == store.ErrNotFound {
		if err := e.events.PutEvent(ctx, event.FromRaw(raw, groupID, sourceID, now)); err != nil {
			return false, fmt.Errorf("creating event %s: %w", event.Key(groupID, raw.Date), err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading event %s: %w", event.Key(groupID, raw.Date), err)
	}

	next := event.FromRaw(raw, groupID, sourceID, now)
	next.FirstSeen = existing.FirstSeen
	if err := e.events.PutEvent(ctx, next); err != nil {
		return false, fmt.Errorf("updating event %s: %w", next.Key(), err)
	}
	return false, nil
}

// sweepCancelled marks this source's window events that vanished from the
// current batch. Counting happens on the transition only, so replaying the
// same batch does not inflate the cancelled count.
func (e *Engine) sweepCancelled(ctx context.Context, sourceID string, windowStart time.Time, windowDays int, upserted map[string]bool, now time.Time) (int, error) {
	if windowDays <= 0 {
		windowDays = 1
	}
	dates := event.WindowDates(windowStart, windowDays)
	fromDate, toDate := dates[0], dates[len(dates)-1]

	existing, err := e.events.EventsBySource(ctx, sourceID, fromDate, toDate)
	if err != nil {
		return 0, fmt.Errorf("listing window events: %w", err)
	}

	cancelled := 0
	for _, ev := range existing {
		if upserted[ev.Key()] || ev.Status == event.StatusCancelled {
			continue
		}
		ev.Status = event.StatusCancelled
		ev.UpdatedAt = now
		if err := e.events.PutEvent(ctx, ev); err != nil {
			return cancelled, fmt.Errorf("cancelling event %s: %w", ev.Key(), err)
		}
		cancelled++
		e.log.Info().
			Str("source_id", sourceID).
			Str("event", ev.Key()).
			Msg("event no longer present at source, marked cancelled")
	}
	return cancelled, nil
}
