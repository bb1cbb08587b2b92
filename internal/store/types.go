package store

import (
	"time"

	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/fillrate"
)

// HealthStatus summarizes a source's recent scrape record.
type HealthStatus string

const (
	HealthUnknown  HealthStatus = "UNKNOWN"
	HealthHealthy  HealthStatus = "HEALTHY"
	HealthDegraded HealthStatus = "DEGRADED"
	HealthFailing  HealthStatus = "FAILING"
)

// ScrapeStatus is the terminal state of one scrape run.
type ScrapeStatus string

const (
	ScrapeSuccess ScrapeStatus = "SUCCESS"
	ScrapePartial ScrapeStatus = "PARTIAL" // events landed but the adapter reported errors
	ScrapeFailed  ScrapeStatus = "FAILED"
)

// AlertType enumerates the operator-facing alert conditions this core raises.
type AlertType string

const (
	AlertScrapeFailure        AlertType = "SCRAPE_FAILURE"
	AlertEventCountAnomaly    AlertType = "EVENT_COUNT_ANOMALY"
	AlertUnmatchedTags        AlertType = "UNMATCHED_TAGS"
	AlertSourceKennelMismatch AlertType = "SOURCE_KENNEL_MISMATCH"
)

// Severity of an alert.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// AlertStatus is the alert lifecycle state. This core only ever creates OPEN
// alerts; acknowledgement and resolution are operator actions elsewhere.
type AlertStatus string

const (
	AlertOpen         AlertStatus = "OPEN"
	AlertAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertSnoozed      AlertStatus = "SNOOZED"
	AlertResolved     AlertStatus = "RESOLVED"
)

// SourceConfig carries the kind-specific knobs extracted at registration
// time or entered by an operator.
type SourceConfig struct {
	SpreadsheetID    string         `json:"spreadsheet_id,omitempty"`
	CalendarID       string         `json:"calendar_id,omitempty"`
	GroupPath        string         `json:"group_path,omitempty"` // meetup group slug
	RegoID           string         `json:"rego_id,omitempty"`    // hashrego provider-side id
	PageSize         int            `json:"page_size,omitempty"`
	Columns          map[string]int `json:"columns,omitempty"` // spreadsheet field -> column index
	DefaultGroupTag  string         `json:"default_group_tag,omitempty"`
	ExcludedGroupIDs []string       `json:"excluded_group_ids,omitempty"`
}

// Source is one external feed configured to be scraped on a schedule.
type Source struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Kind             detect.Kind  `json:"kind"`
	URL              string       `json:"url"`
	Config           SourceConfig `json:"config"`
	TrustLevel       string       `json:"trust_level,omitempty"`
	ScrapeFrequency  string       `json:"scrape_frequency"`
	ScrapeWindowDays int          `json:"scrape_window_days"`
	HealthStatus     HealthStatus `json:"health_status"`
	LastScrapeAt     *time.Time   `json:"last_scrape_at,omitempty"`
	LastSuccessAt    *time.Time   `json:"last_success_at,omitempty"`
}

// ExcludesGroup reports whether the source is barred from emitting events
// for the given group.
func (s *Source) ExcludesGroup(groupID string) bool {
	for _, id := range s.Config.ExcludedGroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}

// ScrapeLogEntry records one scrape run. Entries are append-only and form the
// rolling baseline the health analyzer compares new runs against.
type ScrapeLogEntry struct {
	ID            string         `json:"id"`
	SourceID      string         `json:"source_id"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   time.Time      `json:"completed_at"`
	Status        ScrapeStatus   `json:"status"`
	EventsFound   int            `json:"events_found"`
	Created       int            `json:"created"`
	Updated       int            `json:"updated"`
	Skipped       int            `json:"skipped"`
	Blocked       int            `json:"blocked"`
	Cancelled     int            `json:"cancelled"`
	UnmatchedTags []string       `json:"unmatched_tags,omitempty"`
	FillRates     fillrate.Rates `json:"fill_rates"`
	Errors        []string       `json:"errors,omitempty"`
}

// Alert is an operator-facing signal about one source.
type Alert struct {
	ID        string      `json:"id"`
	SourceID  string      `json:"source_id"`
	Type      AlertType   `json:"type"`
	Severity  Severity    `json:"severity"`
	Title     string      `json:"title"`
	Context   any         `json:"context,omitempty"` // typed payload per alert type
	Status    AlertStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}
