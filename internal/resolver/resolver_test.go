package resolver

import (
	"testing"

	"github.com/harrierhub/hareline/internal/event"
)

func testGroups() []event.Group {
	return []event.Group{
		{ID: "g1", ShortName: "LH3", FullName: "Larrikin Hash House Harriers", Aliases: []string{"Larrikin H3"}},
		{ID: "g2", ShortName: "BH3", FullName: "Bayside Hash House Harriers"},
	}
}

func TestResolveExact(t *testing.T) {
	r := New(testGroups())

	tests := []struct {
		tag     string
		matched bool
		groupID string
	}{
		{"LH3", true, "g1"},
		{"lh3", true, "g1"},
		{"Larrikin H3", true, "g1"},
		{"bh3", true, "g2"},
		{"Larrikin Hash House Harriers", false, ""}, // full name never auto-resolves
		{"Unknown Kennel", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		got := r.Resolve(tt.tag)
		if got.Matched != tt.matched || got.GroupID != tt.groupID {
			t.Errorf("Resolve(%q) = %+v, want matched=%v group=%q", tt.tag, got, tt.matched, tt.groupID)
		}
	}
}

func TestResolveCaches(t *testing.T) {
	r := New(testGroups())

	first := r.Resolve("LH3")
	if _, ok := r.cache["lh3"]; !ok {
		t.Fatal("resolution was not cached under the normalized tag")
	}

	// Mutating the group set does not change cached answers until Reset.
	r.groups = nil
	if got := r.Resolve("lh3"); got != first {
		t.Errorf("cached resolution changed: %+v vs %+v", got, first)
	}

	r.Reset()
	if got := r.Resolve("LH3"); got.Matched {
		t.Error("Reset should have cleared the cache")
	}
}

func TestSuggestDoesNotResolve(t *testing.T) {
	r := New(testGroups())

	matches := r.Suggest("Larrikin", 3)
	if len(matches) == 0 {
		t.Fatal("expected fuzzy suggestions for a near-miss tag")
	}
	if matches[0].Group.ID != "g1" {
		t.Errorf("best suggestion = %s, want g1", matches[0].Group.ID)
	}

	// The suggestion path must leave automatic resolution unmatched.
	if got := r.Resolve("Larrikin"); got.Matched {
		t.Error("a suggestion-only tag must not auto-resolve")
	}
}
