package event

import (
	"fmt"
	"strings"
	"time"
)

// ISODate is the canonical calendar-date layout used throughout the pipeline.
const ISODate = "2006-01-02"

// dateLayouts are the formats hash sites actually publish, tried in order.
var dateLayouts = []string{
	ISODate,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"Jan 2 2006",
	"Jan 02 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"1.2.06",
	"01.02.06",
	"20060102",
}

// NormalizeDate parses free-form date text into ISO form. Returns false if
// nothing matched; callers treat such rows as unusable rather than guessing.
func NormalizeDate(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format(ISODate), true
		}
	}
	// "Jan 24" with no year: assume the nearest future occurrence.
	for _, layout := range []string{"Jan 2", "Jan 02"} {
		if t, err := time.Parse(layout, text); err == nil {
			now := time.Now().UTC()
			d := time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			if d.Before(now.AddDate(0, 0, -1)) {
				d = d.AddDate(1, 0, 0)
			}
			return d.Format(ISODate), true
		}
	}
	return "", false
}

// NormalizeStartTime coerces common start-time spellings into "HH:MM".
// Unparseable input yields the empty string.
func NormalizeStartTime(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	for _, layout := range []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "3PM", "3 PM", "15.04"} {
		if t, err := time.Parse(layout, strings.ToUpper(text)); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}

// WithinWindow reports whether an ISO date falls inside [start, start+days).
func WithinWindow(date string, start time.Time, days int) bool {
	t, err := time.Parse(ISODate, date)
	if err != nil {
		return false
	}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end := day.AddDate(0, 0, days)
	return !t.Before(day) && t.Before(end)
}

// WindowDates enumerates the ISO dates covered by a scrape window.
func WindowDates(start time.Time, days int) []string {
	if days <= 0 {
		days = 1
	}
	dates := make([]string, 0, days)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		dates = append(dates, day.AddDate(0, 0, i).Format(ISODate))
	}
	return dates
}

// FormatWindow renders a scrape window for logs.
func FormatWindow(start time.Time, days int) string {
	return fmt.Sprintf("%s+%dd", start.Format(ISODate), days)
}
