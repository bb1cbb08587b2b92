package store

import (
	"context"
	"testing"
	"time"

	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/event"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return fs
}

func TestFileStoreSourcesRoundTrip(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	src := &Source{
		ID:               "s1",
		Name:             "Larrikin hareline",
		Kind:             detect.KindHarrier,
		URL:              "https://larrikinh3.org",
		ScrapeFrequency:  "daily",
		ScrapeWindowDays: 14,
		HealthStatus:     HealthUnknown,
	}
	if err := fs.SeedSource(src); err != nil {
		t.Fatalf("SeedSource: %v", err)
	}

	got, err := fs.GetSource(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got.Name != src.Name || got.Kind != src.Kind {
		t.Errorf("round-tripped source mismatch: %+v", got)
	}

	if _, err := fs.GetSource(ctx, "missing"); err != ErrNotFound {
		t.Errorf("missing source error = %v, want ErrNotFound", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := fs.UpdateSourceRun(ctx, "s1", HealthHealthy, &now, &now); err != nil {
		t.Fatalf("UpdateSourceRun: %v", err)
	}

	// Reopen from disk: the update must have persisted.
	fs2, err := NewFileStore(fs.dataDir)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	got, err = fs2.GetSource(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSource after reopen: %v", err)
	}
	if got.HealthStatus != HealthHealthy || got.LastScrapeAt == nil {
		t.Errorf("persisted update lost: %+v", got)
	}
}

func TestFileStoreEvents(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	e := &event.CanonicalEvent{
		GroupID: "g1", Date: "2026-03-14", Status: event.StatusConfirmed,
		Title: "Run #1203", SourceID: "s1", FirstSeen: now, UpdatedAt: now,
	}
	if err := fs.PutEvent(ctx, e); err != nil {
		t.Fatalf("PutEvent: %v", err)
	}

	got, err := fs.GetEvent(ctx, "g1", "2026-03-14")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Title != "Run #1203" {
		t.Errorf("GetEvent title = %q", got.Title)
	}

	// Mutating the returned copy must not leak into the store.
	got.Title = "tampered"
	again, _ := fs.GetEvent(ctx, "g1", "2026-03-14")
	if again.Title != "Run #1203" {
		t.Error("store handed out a shared pointer")
	}

	others := &event.CanonicalEvent{GroupID: "g2", Date: "2026-03-20", SourceID: "s2", Status: event.StatusConfirmed}
	if err := fs.PutEvent(ctx, others); err != nil {
		t.Fatalf("PutEvent: %v", err)
	}

	within, err := fs.EventsBySource(ctx, "s1", "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("EventsBySource: %v", err)
	}
	if len(within) != 1 || within[0].GroupID != "g1" {
		t.Errorf("EventsBySource = %+v", within)
	}

	if err := fs.DeleteEventsBySource(ctx, "s1"); err != nil {
		t.Fatalf("DeleteEventsBySource: %v", err)
	}
	if _, err := fs.GetEvent(ctx, "g1", "2026-03-14"); err != ErrNotFound {
		t.Errorf("deleted event still present: %v", err)
	}
	if _, err := fs.GetEvent(ctx, "g2", "2026-03-20"); err != nil {
		t.Errorf("unrelated source's event was deleted: %v", err)
	}
}

func TestFileStoreLogsNewestFirst(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	statuses := []ScrapeStatus{ScrapeSuccess, ScrapeFailed, ScrapeSuccess, ScrapePartial}
	for i, st := range statuses {
		entry := &ScrapeLogEntry{
			ID: string(rune('a' + i)), SourceID: "s1",
			StartedAt: base.AddDate(0, 0, i), Status: st, EventsFound: i,
		}
		if err := fs.AppendLog(ctx, entry); err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
	}

	recent, err := fs.RecentLogs(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("RecentLogs: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "d" || recent[1].ID != "c" {
		t.Errorf("RecentLogs order wrong: %+v", recent)
	}

	ok, err := fs.RecentSuccessfulLogs(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentSuccessfulLogs: %v", err)
	}
	if len(ok) != 3 {
		t.Errorf("successful logs = %d, want 3 (PARTIAL counts)", len(ok))
	}
	for _, e := range ok {
		if e.Status == ScrapeFailed {
			t.Error("failed entry in successful baseline")
		}
	}
}

func TestFileStoreAlerts(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	open := &Alert{ID: "a1", SourceID: "s1", Type: AlertUnmatchedTags, Severity: SeverityWarning, Status: AlertOpen}
	resolved := &Alert{ID: "a2", SourceID: "s1", Type: AlertScrapeFailure, Severity: SeverityCritical, Status: AlertResolved}
	for _, a := range []*Alert{open, resolved} {
		if err := fs.AppendAlert(ctx, a); err != nil {
			t.Fatalf("AppendAlert: %v", err)
		}
	}

	got, err := fs.OpenAlerts(ctx)
	if err != nil {
		t.Fatalf("OpenAlerts: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("OpenAlerts = %+v", got)
	}
}
