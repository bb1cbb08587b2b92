package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/event"
)

// PGStore is the Postgres-backed store used by the worker. Schema management
// (migrations) is handled outside this module; the tables consumed here are
// sources, groups, events, scrape_logs, and alerts.
type PGStore struct {
	Pool *pgxpool.Pool
}

// NewPGStore connects a pool and verifies it with a short ping.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PGStore{Pool: pool}, nil
}

// Close releases the pool.
func (s *PGStore) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func (s *PGStore) GetSource(ctx context.Context, id string) (*Source, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, name, kind, url, config, trust_level, scrape_frequency, scrape_window_days,
		       health_status, last_scrape_at, last_success_at
		FROM sources WHERE id=$1`, id)
	return scanSource(row)
}

func (s *PGStore) ListSources(ctx context.Context) ([]*Source, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, kind, url, config, trust_level, scrape_frequency, scrape_window_days,
		       health_status, last_scrape_at, last_success_at
		FROM sources ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	var (
		src       Source
		kind      string
		configRaw []byte
	)
	err := row.Scan(&src.ID, &src.Name, &kind, &src.URL, &configRaw, &src.TrustLevel,
		&src.ScrapeFrequency, &src.ScrapeWindowDays, &src.HealthStatus,
		&src.LastScrapeAt, &src.LastSuccessAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	src.Kind = detect.Kind(kind)
	if len(configRaw) > 0 {
		if err := json.Unmarshal(configRaw, &src.Config); err != nil {
			return nil, fmt.Errorf("decoding source config: %w", err)
		}
	}
	return &src, nil
}

func (s *PGStore) UpdateSourceRun(ctx context.Context, id string, health HealthStatus, lastScrape, lastSuccess *time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE sources
		SET health_status=$1,
		    last_scrape_at=COALESCE($2, last_scrape_at),
		    last_success_at=COALESCE($3, last_success_at)
		WHERE id=$4`,
		health, lastScrape, lastSuccess, id)
	return err
}

func (s *PGStore) ListGroups(ctx context.Context) ([]event.Group, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, short_name, full_name, aliases FROM groups ORDER BY short_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []event.Group
	for rows.Next() {
		var g event.Group
		if err := rows.Scan(&g.ID, &g.ShortName, &g.FullName, &g.Aliases); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PGStore) GetEvent(ctx context.Context, groupID, date string) (*event.CanonicalEvent, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT group_id, date, status, title, description, hares, location, start_time,
		       run_number, source_url, source_id, first_seen, updated_at
		FROM events WHERE group_id=$1 AND date=$2`, groupID, date)
	return scanEvent(row)
}

func scanEvent(row rowScanner) (*event.CanonicalEvent, error) {
	var e event.CanonicalEvent
	err := row.Scan(&e.GroupID, &e.Date, &e.Status, &e.Title, &e.Description, &e.Hares,
		&e.Location, &e.StartTime, &e.RunNumber, &e.SourceURL, &e.SourceID,
		&e.FirstSeen, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PutEvent upserts on the natural key, which is what makes redelivered scrape
// jobs safe to replay.
func (s *PGStore) PutEvent(ctx context.Context, e *event.CanonicalEvent) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO events (group_id, date, status, title, description, hares, location,
		                    start_time, run_number, source_url, source_id, first_seen, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (group_id, date) DO UPDATE SET
		    status=EXCLUDED.status, title=EXCLUDED.title, description=EXCLUDED.description,
		    hares=EXCLUDED.hares, location=EXCLUDED.location, start_time=EXCLUDED.start_time,
		    run_number=EXCLUDED.run_number, source_url=EXCLUDED.source_url,
		    source_id=EXCLUDED.source_id, updated_at=EXCLUDED.updated_at`,
		e.GroupID, e.Date, e.Status, e.Title, e.Description, e.Hares, e.Location,
		e.StartTime, e.RunNumber, e.SourceURL, e.SourceID, e.FirstSeen, e.UpdatedAt)
	return err
}

func (s *PGStore) EventsBySource(ctx context.Context, sourceID, fromDate, toDate string) ([]*event.CanonicalEvent, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT group_id, date, status, title, description, hares, location, start_time,
		       run_number, source_url, source_id, first_seen, updated_at
		FROM events WHERE source_id=$1 AND date BETWEEN $2 AND $3
		ORDER BY date, group_id`, sourceID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*event.CanonicalEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PGStore) DeleteEventsBySource(ctx context.Context, sourceID string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM events WHERE source_id=$1`, sourceID)
	return err
}

func (s *PGStore) AppendLog(ctx context.Context, entry *ScrapeLogEntry) error {
	fillRates, err := json.Marshal(entry.FillRates)
	if err != nil {
		return fmt.Errorf("encoding fill rates: %w", err)
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO scrape_logs (id, source_id, started_at, completed_at, status, events_found,
		                         created, updated, skipped, blocked, cancelled, unmatched_tags,
		                         fill_rates, errors)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		entry.ID, entry.SourceID, entry.StartedAt, entry.CompletedAt, entry.Status,
		entry.EventsFound, entry.Created, entry.Updated, entry.Skipped, entry.Blocked,
		entry.Cancelled, entry.UnmatchedTags, fillRates, entry.Errors)
	return err
}

func (s *PGStore) RecentLogs(ctx context.Context, sourceID string, limit int) ([]*ScrapeLogEntry, error) {
	return s.queryLogs(ctx, `
		SELECT id, source_id, started_at, completed_at, status, events_found, created, updated,
		       skipped, blocked, cancelled, unmatched_tags, fill_rates, errors
		FROM scrape_logs WHERE source_id=$1 ORDER BY started_at DESC LIMIT $2`, sourceID, limit)
}

func (s *PGStore) RecentSuccessfulLogs(ctx context.Context, sourceID string, limit int) ([]*ScrapeLogEntry, error) {
	return s.queryLogs(ctx, `
		SELECT id, source_id, started_at, completed_at, status, events_found, created, updated,
		       skipped, blocked, cancelled, unmatched_tags, fill_rates, errors
		FROM scrape_logs WHERE source_id=$1 AND status IN ('SUCCESS','PARTIAL')
		ORDER BY started_at DESC LIMIT $2`, sourceID, limit)
}

func (s *PGStore) queryLogs(ctx context.Context, query, sourceID string, limit int) ([]*ScrapeLogEntry, error) {
	rows, err := s.Pool.Query(ctx, query, sourceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ScrapeLogEntry
	for rows.Next() {
		var (
			entry    ScrapeLogEntry
			ratesRaw []byte
		)
		if err := rows.Scan(&entry.ID, &entry.SourceID, &entry.StartedAt, &entry.CompletedAt,
			&entry.Status, &entry.EventsFound, &entry.Created, &entry.Updated, &entry.Skipped,
			&entry.Blocked, &entry.Cancelled, &entry.UnmatchedTags, &ratesRaw, &entry.Errors); err != nil {
			return nil, err
		}
		if len(ratesRaw) > 0 {
			if err := json.Unmarshal(ratesRaw, &entry.FillRates); err != nil {
				return nil, fmt.Errorf("decoding fill rates: %w", err)
			}
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

func (s *PGStore) AppendAlert(ctx context.Context, a *Alert) error {
	contextRaw, err := json.Marshal(a.Context)
	if err != nil {
		return fmt.Errorf("encoding alert context: %w", err)
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO alerts (id, source_id, type, severity, title, context, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.SourceID, a.Type, a.Severity, a.Title, contextRaw, a.Status, a.CreatedAt)
	return err
}

func (s *PGStore) OpenAlerts(ctx context.Context) ([]*Alert, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, source_id, type, severity, title, context, status, created_at
		FROM alerts WHERE status='OPEN' ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Alert
	for rows.Next() {
		var (
			a          Alert
			contextRaw []byte
		)
		if err := rows.Scan(&a.ID, &a.SourceID, &a.Type, &a.Severity, &a.Title,
			&contextRaw, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		if len(contextRaw) > 0 {
			var ctx map[string]any
			if err := json.Unmarshal(contextRaw, &ctx); err == nil {
				a.Context = ctx
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

var _ Store = (*PGStore)(nil)
