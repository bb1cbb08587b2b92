package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/store"
)

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"PRODID:-//Test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:Run #1203 &#8211; Pub Cra\r\n" +
	" wl Special\r\n" +
	"DTSTART;VALUE=DATE:20260314\r\n" +
	"LOCATION:The Royal Oak\\, Back Bar\r\n" +
	"CATEGORIES:BH3,Social\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:Rained Out\r\n" +
	"STATUS:CANCELLED\r\n" +
	"DTSTART:20260315T140000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:AGM next year\r\n" +
	"DTSTART:20270101\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS(t *testing.T) {
	events := parseICS([]byte(sampleICS))
	if len(events) != 3 {
		t.Fatalf("expected 3 VEVENTs, got %d", len(events))
	}

	first := events[0]
	if first.Summary != "Run #1203 &#8211; Pub Crawl Special" {
		t.Errorf("folded line not joined: %q", first.Summary)
	}
	if first.Date != "2026-03-14" {
		t.Errorf("date: %q", first.Date)
	}
	if first.StartTime != "" {
		t.Errorf("all-day event should carry no start time, got %q", first.StartTime)
	}
	if first.Location != "The Royal Oak, Back Bar" {
		t.Errorf("escaped comma: %q", first.Location)
	}
	if len(first.Categories) != 2 || first.Categories[0] != "BH3" {
		t.Errorf("categories: %v", first.Categories)
	}

	second := events[1]
	if second.Status != "CANCELLED" {
		t.Errorf("status: %q", second.Status)
	}
	if second.Date != "2026-03-15" || second.StartTime != "14:00" {
		t.Errorf("timed DTSTART: date=%q start=%q", second.Date, second.StartTime)
	}
}

func TestICSToRawEventsDropsCancelled(t *testing.T) {
	src := &store.Source{Config: store.SourceConfig{DefaultGroupTag: "MH3"}}
	raws := icsToRawEvents(parseICS([]byte(sampleICS)), src, "https://example.org/cal.ics")

	if len(raws) != 2 {
		t.Fatalf("expected cancelled VEVENT dropped, got %d events", len(raws))
	}
	if raws[0].GroupTag != "BH3" {
		t.Errorf("first CATEGORIES value should win over default tag, got %q", raws[0].GroupTag)
	}
	if raws[0].Title != "Run #1203 – Pub Crawl Special" {
		t.Errorf("entities not decoded: %q", raws[0].Title)
	}
	if raws[1].GroupTag != "MH3" {
		t.Errorf("no categories should fall back to default tag, got %q", raws[1].GroupTag)
	}
}

func TestICalAdapterFiltersToWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleICS))
	}))
	defer srv.Close()

	src := &store.Source{ID: "src-cal", URL: srv.URL, Config: store.SourceConfig{DefaultGroupTag: "BH3"}}
	a, err := New(detect.KindICal, Deps{Client: srv.Client(), Log: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}

	res := a.Fetch(context.Background(), src, testWindow())
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Events) != 1 {
		t.Fatalf("expected only the in-window event, got %d", len(res.Events))
	}
	if res.Events[0].Date != "2026-03-14" {
		t.Errorf("wrong event survived the window filter: %s", res.Events[0].Date)
	}
}

func TestGCalAdapterBuildsFeedURL(t *testing.T) {
	var requested string
	a := &GCalAdapter{deps: testDeps(func(req *http.Request) *http.Response {
		requested = req.URL.String()
		return fakeResponse(200, sampleICS)
	})}

	src := &store.Source{
		ID:     "src-gcal",
		URL:    "https://calendar.google.com/calendar/embed?src=kennel@gmail.com",
		Config: store.SourceConfig{DefaultGroupTag: "BH3"},
	}
	res := a.Fetch(context.Background(), src, testWindow())

	if !strings.Contains(requested, "/calendar/ical/kennel%40gmail.com/public/basic.ics") {
		t.Errorf("feed URL not built from extracted calendar id: %s", requested)
	}
	if len(res.Events) != 1 {
		t.Fatalf("expected 1 in-window event, got %d (errors: %v)", len(res.Events), res.Errors)
	}
}
