package event

import (
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if got := Key("g1", "2026-03-14"); got != "g1|2026-03-14" {
		t.Errorf("Key = %q", got)
	}

	e := &CanonicalEvent{GroupID: "g1", Date: "2026-03-14"}
	if e.Key() != Key("g1", "2026-03-14") {
		t.Error("method and function keys should agree")
	}
}

func TestContentEquals(t *testing.T) {
	now := time.Now().UTC()
	raw := RawEvent{
		Date:      "2026-03-14",
		GroupTag:  "LH3",
		Title:     "Run #1203",
		Hares:     []string{"Just Dave"},
		StartTime: "14:00",
		RunNumber: 1203,
	}

	a := FromRaw(raw, "g1", "s1", now)
	b := FromRaw(raw, "g1", "s2", now.Add(time.Hour))
	if !a.ContentEquals(b) {
		t.Error("payload-identical events should be content-equal regardless of bookkeeping fields")
	}

	b.Hares = []string{"Just Dave", "Mudflap"}
	if a.ContentEquals(b) {
		t.Error("differing hare lists should not be content-equal")
	}

	c := FromRaw(raw, "g1", "s1", now)
	c.Title = "Run #1204"
	if a.ContentEquals(c) {
		t.Error("differing titles should not be content-equal")
	}
}

func TestGroupMatchesTag(t *testing.T) {
	g := &Group{
		ID:        "g1",
		ShortName: "LH3",
		FullName:  "Larrikin Hash House Harriers",
		Aliases:   []string{"Larrikin H3", "LarrikinHHH"},
	}

	tests := []struct {
		tag  string
		want bool
	}{
		{"LH3", true},
		{"lh3", true},
		{" lh3 ", true},
		{"larrikin h3", true},
		{"Larrikin Hash House Harriers", false}, // full name is suggestion-only
		{"XH3", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := g.MatchesTag(tt.tag); got != tt.want {
			t.Errorf("MatchesTag(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}
