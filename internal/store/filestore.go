package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harrierhub/hareline/internal/event"
)

// FileStore persists everything as JSON documents in a data directory. It
// backs the CLI's local mode and the package tests; the worker uses Postgres.
type FileStore struct {
	dataDir string

	mu      sync.Mutex
	sources map[string]*Source
	groups  []event.Group
	events  map[string]*event.CanonicalEvent // keyed by event.Key
	logs    []*ScrapeLogEntry                // newest first
	alerts  []*Alert
}

// NewFileStore opens (or initializes) a file store rooted at dataDir.
// "~/" prefixes expand to the user's home directory.
func NewFileStore(dataDir string) (*FileStore, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	fs := &FileStore{
		dataDir: dataDir,
		sources: make(map[string]*Source),
		events:  make(map[string]*event.CanonicalEvent),
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) path(name string) string {
	return filepath.Join(fs.dataDir, name+".json")
}

func (fs *FileStore) load() error {
	var sources []*Source
	if err := fs.readDoc("sources", &sources); err != nil {
		return err
	}
	for _, s := range sources {
		fs.sources[s.ID] = s
	}
	if err := fs.readDoc("groups", &fs.groups); err != nil {
		return err
	}
	var events []*event.CanonicalEvent
	if err := fs.readDoc("events", &events); err != nil {
		return err
	}
	for _, e := range events {
		fs.events[e.Key()] = e
	}
	if err := fs.readDoc("scrape_logs", &fs.logs); err != nil {
		return err
	}
	return fs.readDoc("alerts", &fs.alerts)
}

func (fs *FileStore) readDoc(name string, out any) error {
	data, err := os.ReadFile(fs.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

func (fs *FileStore) writeDoc(name string, in any) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := os.WriteFile(fs.path(name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// SeedGroups replaces the registered group set. Groups are read-only to the
// pipeline; this exists for local setups and tests.
func (fs *FileStore) SeedGroups(groups []event.Group) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.groups = groups
	return fs.writeDoc("groups", fs.groups)
}

// SeedSource registers or replaces a source record.
func (fs *FileStore) SeedSource(s *Source) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.sources[s.ID] = s
	return fs.writeDoc("sources", fs.sourceList())
}

func (fs *FileStore) sourceList() []*Source {
	out := make([]*Source, 0, len(fs.sources))
	for _, s := range fs.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (fs *FileStore) GetSource(_ context.Context, id string) (*Source, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	s, ok := fs.sources[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (fs *FileStore) ListSources(_ context.Context) ([]*Source, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.sourceList(), nil
}

func (fs *FileStore) UpdateSourceRun(_ context.Context, id string, health HealthStatus, lastScrape, lastSuccess *time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	s, ok := fs.sources[id]
	if !ok {
		return ErrNotFound
	}
	s.HealthStatus = health
	if lastScrape != nil {
		s.LastScrapeAt = lastScrape
	}
	if lastSuccess != nil {
		s.LastSuccessAt = lastSuccess
	}
	return fs.writeDoc("sources", fs.sourceList())
}

func (fs *FileStore) ListGroups(_ context.Context) ([]event.Group, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]event.Group, len(fs.groups))
	copy(out, fs.groups)
	return out, nil
}

func (fs *FileStore) GetEvent(_ context.Context, groupID, date string) (*event.CanonicalEvent, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, ok := fs.events[event.Key(groupID, date)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (fs *FileStore) PutEvent(_ context.Context, e *event.CanonicalEvent) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	cp := *e
	fs.events[e.Key()] = &cp
	return fs.writeDoc("events", fs.eventList())
}

func (fs *FileStore) eventList() []*event.CanonicalEvent {
	out := make([]*event.CanonicalEvent, 0, len(fs.events))
	for _, e := range fs.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func (fs *FileStore) EventsBySource(_ context.Context, sourceID, fromDate, toDate string) ([]*event.CanonicalEvent, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []*event.CanonicalEvent
	for _, e := range fs.eventList() {
		if e.SourceID != sourceID {
			continue
		}
		if e.Date < fromDate || e.Date > toDate {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (fs *FileStore) DeleteEventsBySource(_ context.Context, sourceID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for k, e := range fs.events {
		if e.SourceID == sourceID {
			delete(fs.events, k)
		}
	}
	return fs.writeDoc("events", fs.eventList())
}

func (fs *FileStore) AppendLog(_ context.Context, entry *ScrapeLogEntry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	cp := *entry
	fs.logs = append([]*ScrapeLogEntry{&cp}, fs.logs...)
	return fs.writeDoc("scrape_logs", fs.logs)
}

func (fs *FileStore) RecentLogs(_ context.Context, sourceID string, limit int) ([]*ScrapeLogEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.filterLogs(sourceID, limit, func(*ScrapeLogEntry) bool { return true }), nil
}

func (fs *FileStore) RecentSuccessfulLogs(_ context.Context, sourceID string, limit int) ([]*ScrapeLogEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.filterLogs(sourceID, limit, func(e *ScrapeLogEntry) bool {
		return e.Status == ScrapeSuccess || e.Status == ScrapePartial
	}), nil
}

func (fs *FileStore) filterLogs(sourceID string, limit int, keep func(*ScrapeLogEntry) bool) []*ScrapeLogEntry {
	var out []*ScrapeLogEntry
	for _, e := range fs.logs {
		if e.SourceID != sourceID || !keep(e) {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (fs *FileStore) AppendAlert(_ context.Context, a *Alert) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	cp := *a
	fs.alerts = append(fs.alerts, &cp)
	return fs.writeDoc("alerts", fs.alerts)
}

func (fs *FileStore) OpenAlerts(_ context.Context) ([]*Alert, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []*Alert
	for _, a := range fs.alerts {
		if a.Status == AlertOpen {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ Store = (*FileStore)(nil)
