package pipeline

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/harrierhub/hareline/internal/adapter"
	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/event"
	"github.com/harrierhub/hareline/internal/store"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func fakeResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

var fixedNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

// Five rows, three distinct tags, two of them resolvable.
const harrierPayload = `[
	{"date":"2026-03-11","kennel":"BH3","title":"Run #1201","location":"North Gate","start_time":"14:00","run_number":1201},
	{"date":"2026-03-12","kennel":"BH3","title":"Run #1202"},
	{"date":"2026-03-13","kennel":"LH3","title":"Larrikin #890","hares":["GPS"]},
	{"date":"2026-03-14","kennel":"LH3","title":"Larrikin #891"},
	{"date":"2026-03-15","kennel":"UnknownTag","title":"Mystery run"}
]`

func newTestOrchestrator(t *testing.T, rt roundTripFunc) (*Orchestrator, *store.FileStore) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.SeedGroups([]event.Group{
		{ID: "grp-bh3", ShortName: "BH3", FullName: "Brisbane Hash House Harriers"},
		{ID: "grp-lh3", ShortName: "LH3", FullName: "Larrikin Hash House Harriers"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := fs.SeedSource(&store.Source{
		ID:               "src-1",
		Name:             "Hash Example",
		Kind:             detect.KindHarrier,
		URL:              "https://hashexample.org",
		ScrapeFrequency:  "daily",
		ScrapeWindowDays: 14,
	}); err != nil {
		t.Fatal(err)
	}

	deps := adapter.Deps{Client: &http.Client{Transport: rt}, Log: zerolog.Nop()}
	o := New(fs, deps, nil, zerolog.Nop())
	o.now = func() time.Time { return fixedNow }
	return o, fs
}

func TestScrapeSourceEndToEnd(t *testing.T) {
	o, fs := newTestOrchestrator(t, func(req *http.Request) *http.Response {
		return fakeResponse(200, harrierPayload)
	})
	ctx := context.Background()

	out, err := o.ScrapeSource(ctx, "src-1", Options{})
	if err != nil {
		t.Fatal(err)
	}

	if out.Status != store.ScrapeSuccess {
		t.Errorf("status = %s, want SUCCESS", out.Status)
	}
	if out.EventsFound != 5 {
		t.Errorf("events found = %d, want 5", out.EventsFound)
	}
	if out.Merge.Created != 4 || out.Merge.Skipped != 1 {
		t.Errorf("merge = created %d skipped %d, want 4/1", out.Merge.Created, out.Merge.Skipped)
	}
	if len(out.Merge.Unmatched) != 1 || out.Merge.Unmatched[0] != "UnknownTag" {
		t.Errorf("unmatched = %v, want [UnknownTag]", out.Merge.Unmatched)
	}
	if out.Health != store.HealthDegraded {
		t.Errorf("health = %s, want DEGRADED (novel unmatched tag)", out.Health)
	}
	if out.AlertCount != 1 {
		t.Errorf("alert count = %d, want 1", out.AlertCount)
	}

	alerts, err := fs.OpenAlerts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 || alerts[0].Type != store.AlertUnmatchedTags {
		t.Fatalf("persisted alerts = %v", alerts)
	}

	logs, err := fs.RecentLogs(ctx, "src-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].ID != out.LogID || logs[0].Created != 4 {
		t.Fatalf("persisted log entry mismatch: %+v", logs)
	}

	src, err := fs.GetSource(ctx, "src-1")
	if err != nil {
		t.Fatal(err)
	}
	if src.HealthStatus != store.HealthDegraded {
		t.Errorf("source health = %s, want DEGRADED", src.HealthStatus)
	}
	if src.LastScrapeAt == nil || src.LastSuccessAt == nil {
		t.Error("source run timestamps not updated")
	}

	if ev, err := fs.GetEvent(ctx, "grp-bh3", "2026-03-11"); err != nil {
		t.Fatal(err)
	} else if ev.Title != "Run #1201" || ev.Status != event.StatusConfirmed {
		t.Errorf("canonical event: %+v", ev)
	}
}

// Rerunning the same payload must not create duplicates or re-alert on the
// now-known unmatched tag.
func TestScrapeSourceIdempotent(t *testing.T) {
	o, fs := newTestOrchestrator(t, func(req *http.Request) *http.Response {
		return fakeResponse(200, harrierPayload)
	})
	ctx := context.Background()

	if _, err := o.ScrapeSource(ctx, "src-1", Options{}); err != nil {
		t.Fatal(err)
	}
	second, err := o.ScrapeSource(ctx, "src-1", Options{})
	if err != nil {
		t.Fatal(err)
	}

	if second.Merge.Created != 0 || second.Merge.Updated != 4 {
		t.Errorf("second run merge = created %d updated %d, want 0/4", second.Merge.Created, second.Merge.Updated)
	}
	if second.Merge.Cancelled != 0 {
		t.Errorf("second run cancelled = %d, want 0", second.Merge.Cancelled)
	}
	if second.Health != store.HealthHealthy {
		t.Errorf("second run health = %s, want HEALTHY (tag no longer novel)", second.Health)
	}
	if second.AlertCount != 0 {
		t.Errorf("second run alerts = %d, want 0", second.AlertCount)
	}

	alerts, _ := fs.OpenAlerts(ctx)
	if len(alerts) != 1 {
		t.Errorf("total alerts after rerun = %d, want 1", len(alerts))
	}
}

func TestScrapeSourceFailure(t *testing.T) {
	o, fs := newTestOrchestrator(t, func(req *http.Request) *http.Response {
		return fakeResponse(403, "forbidden")
	})
	ctx := context.Background()

	out, err := o.ScrapeSource(ctx, "src-1", Options{})
	if err != nil {
		t.Fatal(err)
	}

	if out.Status != store.ScrapeFailed {
		t.Errorf("status = %s, want FAILED", out.Status)
	}
	if out.Health != store.HealthFailing {
		t.Errorf("health = %s, want FAILING", out.Health)
	}
	if out.EventsFound != 0 || len(out.Errors) == 0 {
		t.Errorf("failed run should carry errors and no events: %+v", out)
	}

	alerts, _ := fs.OpenAlerts(ctx)
	if len(alerts) != 1 || alerts[0].Type != store.AlertScrapeFailure || alerts[0].Severity != store.SeverityCritical {
		t.Fatalf("expected one critical SCRAPE_FAILURE alert, got %v", alerts)
	}

	src, _ := fs.GetSource(ctx, "src-1")
	if src.LastSuccessAt != nil {
		t.Error("failed run must not advance last success time")
	}
	if src.LastScrapeAt == nil {
		t.Error("failed run must still advance last scrape time")
	}
}

func TestScrapeSourceRejectsPrivateURL(t *testing.T) {
	o, fs := newTestOrchestrator(t, func(req *http.Request) *http.Response {
		t.Errorf("no request should be made to %s", req.URL)
		return fakeResponse(500, "")
	})
	ctx := context.Background()

	if err := fs.SeedSource(&store.Source{
		ID:              "src-internal",
		Kind:            detect.KindHarrier,
		URL:             "http://169.254.169.254/latest/meta-data/",
		ScrapeFrequency: "daily",
	}); err != nil {
		t.Fatal(err)
	}

	out, err := o.ScrapeSource(ctx, "src-internal", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != store.ScrapeFailed {
		t.Errorf("status = %s, want FAILED", out.Status)
	}
	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0], "source URL rejected") {
		t.Errorf("errors = %v", out.Errors)
	}
}

func TestScrapeSourceForceRebuild(t *testing.T) {
	o, fs := newTestOrchestrator(t, func(req *http.Request) *http.Response {
		return fakeResponse(200, harrierPayload)
	})
	ctx := context.Background()

	// A stale event inside the window that the payload no longer carries.
	stale := &event.CanonicalEvent{
		GroupID: "grp-bh3", Date: "2026-03-20", SourceID: "src-1",
		Title: "Ghost run", Status: event.StatusConfirmed,
	}
	if err := fs.PutEvent(ctx, stale); err != nil {
		t.Fatal(err)
	}

	out, err := o.ScrapeSource(ctx, "src-1", Options{Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.Merge.Cancelled != 0 {
		t.Errorf("forced rebuild should delete, not cancel: cancelled = %d", out.Merge.Cancelled)
	}
	if _, err := fs.GetEvent(ctx, "grp-bh3", "2026-03-20"); err != store.ErrNotFound {
		t.Errorf("stale event should be gone after forced scrape, got %v", err)
	}
	if out.Merge.Created != 4 {
		t.Errorf("created = %d, want 4", out.Merge.Created)
	}
}

func TestRunDue(t *testing.T) {
	o, fs := newTestOrchestrator(t, func(req *http.Request) *http.Response {
		return fakeResponse(200, harrierPayload)
	})
	ctx := context.Background()

	recent := fixedNow.Add(-30 * time.Minute)
	if err := fs.SeedSource(&store.Source{
		ID:               "src-fresh",
		Kind:             detect.KindHarrier,
		URL:              "https://other.example.org",
		ScrapeFrequency:  "daily",
		ScrapeWindowDays: 14,
		LastScrapeAt:     &recent,
	}); err != nil {
		t.Fatal(err)
	}

	batch, err := o.RunDue(ctx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if batch.Succeeded != 1 || batch.Skipped != 1 || batch.Failed != 0 {
		t.Fatalf("batch = %+v, want 1 succeeded / 1 skipped", batch)
	}
	if len(batch.Outcomes) != 1 || batch.Outcomes[0].SourceID != "src-1" {
		t.Fatalf("outcomes = %+v", batch.Outcomes)
	}
}
