// Package store defines the persisted shapes the ingestion core reads and
// writes — sources, groups, canonical events, scrape logs, alerts — and the
// narrow interfaces its consumers depend on. Two implementations ship: a
// JSON-file store for local/CLI use and tests, and a Postgres store for the
// worker. Schema migration and query tuning live outside this core.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/harrierhub/hareline/internal/event"
)

// ErrNotFound is returned for lookups of absent records.
var ErrNotFound = errors.New("not found")

// SourceStore reads and updates scrape source records.
type SourceStore interface {
	GetSource(ctx context.Context, id string) (*Source, error)
	ListSources(ctx context.Context) ([]*Source, error)
	// UpdateSourceRun records the outcome of one scrape run on the source row.
	UpdateSourceRun(ctx context.Context, id string, health HealthStatus, lastScrape, lastSuccess *time.Time) error
}

// GroupStore supplies the registered kennel groups. Read-only to this core.
type GroupStore interface {
	ListGroups(ctx context.Context) ([]event.Group, error)
}

// EventStore holds canonical events keyed by (group, date).
type EventStore interface {
	GetEvent(ctx context.Context, groupID, date string) (*event.CanonicalEvent, error)
	PutEvent(ctx context.Context, e *event.CanonicalEvent) error
	// EventsBySource lists events last touched by a source with dates in
	// [fromDate, toDate], inclusive, ISO form.
	EventsBySource(ctx context.Context, sourceID, fromDate, toDate string) ([]*event.CanonicalEvent, error)
	// DeleteEventsBySource clears a source's events ahead of a forced re-scrape.
	DeleteEventsBySource(ctx context.Context, sourceID string) error
}

// LogStore appends and reads scrape log entries, newest first.
type LogStore interface {
	AppendLog(ctx context.Context, entry *ScrapeLogEntry) error
	RecentLogs(ctx context.Context, sourceID string, limit int) ([]*ScrapeLogEntry, error)
	RecentSuccessfulLogs(ctx context.Context, sourceID string, limit int) ([]*ScrapeLogEntry, error)
}

// AlertStore appends alerts and lists the open ones.
type AlertStore interface {
	AppendAlert(ctx context.Context, a *Alert) error
	OpenAlerts(ctx context.Context) ([]*Alert, error)
}

// Store is the full persistence surface the orchestrator composes.
type Store interface {
	SourceStore
	GroupStore
	EventStore
	LogStore
	AlertStore
}
