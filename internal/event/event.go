package event

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a canonical event.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusTentative Status = "TENTATIVE"
	StatusCancelled Status = "CANCELLED"
)

// RawEvent is one schedule row as an adapter saw it. It exists only within a
// single scrape run and is never persisted.
type RawEvent struct {
	Date        string   `json:"date"` // ISO calendar date, no time zone
	GroupTag    string   `json:"group_tag"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Hares       []string `json:"hares,omitempty"`
	Location    string   `json:"location,omitempty"`
	StartTime   string   `json:"start_time,omitempty"` // "HH:MM"
	RunNumber   int      `json:"run_number,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
}

// CanonicalEvent is the deduplicated record of a single real-world run.
// Identity is (GroupID, Date); the merge engine never creates two canonical
// events for the same key.
type CanonicalEvent struct {
	GroupID     string    `json:"group_id"`
	Date        string    `json:"date"`
	Status      Status    `json:"status"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Hares       []string  `json:"hares,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartTime   string    `json:"start_time,omitempty"`
	RunNumber   int       `json:"run_number,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	SourceID    string    `json:"source_id,omitempty"` // source that last touched this record
	FirstSeen   time.Time `json:"first_seen"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Key returns the natural identity key for a (group, date) pair.
func Key(groupID, date string) string {
	return groupID + "|" + date
}

// Key returns the event's natural identity key.
func (e *CanonicalEvent) Key() string {
	return Key(e.GroupID, e.Date)
}

// ContentEquals reports whether two canonical events carry the same payload,
// ignoring bookkeeping fields (timestamps, source attribution, status).
func (e *CanonicalEvent) ContentEquals(o *CanonicalEvent) bool {
	if e.Title != o.Title || e.Description != o.Description ||
		e.Location != o.Location || e.StartTime != o.StartTime ||
		e.RunNumber != o.RunNumber {
		return false
	}
	if len(e.Hares) != len(o.Hares) {
		return false
	}
	for i := range e.Hares {
		if e.Hares[i] != o.Hares[i] {
			return false
		}
	}
	return true
}

// FromRaw builds a canonical event from a resolved raw event.
func FromRaw(raw RawEvent, groupID, sourceID string, now time.Time) *CanonicalEvent {
	return &CanonicalEvent{
		GroupID:     groupID,
		Date:        raw.Date,
		Status:      StatusConfirmed,
		Title:       raw.Title,
		Description: raw.Description,
		Hares:       raw.Hares,
		Location:    raw.Location,
		StartTime:   raw.StartTime,
		RunNumber:   raw.RunNumber,
		SourceURL:   raw.SourceURL,
		SourceID:    sourceID,
		FirstSeen:   now,
		UpdatedAt:   now,
	}
}

// Group is a registered kennel. Read-only to the ingestion core.
type Group struct {
	ID        string   `json:"id"`
	ShortName string   `json:"short_name"`
	FullName  string   `json:"full_name"`
	Aliases   []string `json:"aliases,omitempty"`
}

// Names returns every name the group answers to: short name, full name, aliases.
func (g *Group) Names() []string {
	names := make([]string, 0, len(g.Aliases)+2)
	if g.ShortName != "" {
		names = append(names, g.ShortName)
	}
	if g.FullName != "" {
		names = append(names, g.FullName)
	}
	names = append(names, g.Aliases...)
	return names
}

// MatchesTag reports whether tag matches the group's short name or any alias,
// case-insensitively. Full names are deliberately excluded from automatic
// resolution; they participate only in fuzzy suggestions.
func (g *Group) MatchesTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if strings.EqualFold(tag, g.ShortName) {
		return true
	}
	for _, a := range g.Aliases {
		if strings.EqualFold(tag, a) {
			return true
		}
	}
	return false
}
