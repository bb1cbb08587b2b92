package adapter

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/harrierhub/hareline/internal/store"
)

func TestHashRegoAdapter(t *testing.T) {
	payload := `[
		{"date":"2026-03-14","kennel":"LH3","name":"Larrikin Run #890","details":"BYO torch",
		 "hares":["GPS","Compass"],"venue":"North Gate","start_time":"18:30","run_number":890,
		 "event_url":"https://hashrego.com/e/890"},
		{"date":"2026-10-01","kennel":"LH3","name":"Too far out"}
	]`
	var requested string
	a := &HashRegoAdapter{deps: testDeps(func(req *http.Request) *http.Response {
		requested = req.URL.String()
		return fakeResponse(200, payload)
	})}

	src := &store.Source{
		ID:     "src-rego",
		URL:    "https://hashrego.com/kennels/larrikin-h3",
		Config: store.SourceConfig{DefaultGroupTag: "LH3"},
	}
	res := a.Fetch(context.Background(), src, testWindow())

	if !strings.Contains(requested, "/api/kennels/larrikin-h3/events.json") {
		t.Errorf("API URL not built from extracted kennel id: %s", requested)
	}
	if len(res.Events) != 1 {
		t.Fatalf("expected 1 in-window event, got %d (errors: %v)", len(res.Events), res.Errors)
	}

	got := res.Events[0]
	if got.RunNumber != 890 || got.StartTime != "18:30" {
		t.Errorf("fields: run=%d start=%q", got.RunNumber, got.StartTime)
	}
	if len(got.Hares) != 2 || got.Hares[0] != "GPS" {
		t.Errorf("hares: %v", got.Hares)
	}
	if got.SourceURL != "https://hashrego.com/e/890" {
		t.Errorf("event url: %q", got.SourceURL)
	}
}

func TestHashRegoAdapterConfiguredID(t *testing.T) {
	var requested string
	a := &HashRegoAdapter{deps: testDeps(func(req *http.Request) *http.Response {
		requested = req.URL.String()
		return fakeResponse(200, "[]")
	})}

	src := &store.Source{
		ID:     "src-rego",
		URL:    "https://example.org/whatever",
		Config: store.SourceConfig{RegoID: "override-h3"},
	}
	res := a.Fetch(context.Background(), src, testWindow())

	if !strings.Contains(requested, "/api/kennels/override-h3/") {
		t.Errorf("configured id should win over URL extraction: %s", requested)
	}
	if len(res.Errors) != 0 {
		t.Errorf("empty list is valid: %v", res.Errors)
	}
}
