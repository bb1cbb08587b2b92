// Package schedule decides when a source is due for its next scrape.
package schedule

import (
	"strconv"
	"strings"
	"time"
)

// dueBuffer is subtracted from the nominal interval so a source comes due
// slightly early and a jittery scheduler tick never skips a whole period.
// Calibrated; do not tune without adjusting the operator-facing docs.
const dueBuffer = 9*time.Minute + 30*time.Second

// Frequencies understood by Interval. Anything else falls back to daily.
const (
	FreqHourly = "hourly"
	FreqDaily  = "daily"
	FreqWeekly = "weekly"
)

// Interval maps a scrape frequency string to its nominal interval.
// "every_Nh" forms (every_6h, every_12h, ...) are parsed; unrecognized
// frequencies default to the daily interval.
func Interval(frequency string) time.Duration {
	switch strings.ToLower(strings.TrimSpace(frequency)) {
	case FreqHourly:
		return time.Hour
	case FreqDaily:
		return 24 * time.Hour
	case FreqWeekly:
		return 7 * 24 * time.Hour
	}
	if h, ok := parseEveryN(frequency); ok {
		return time.Duration(h) * time.Hour
	}
	return 24 * time.Hour
}

// IsDue reports whether a source should be scraped now. A source never
// scraped is always due.
func IsDue(frequency string, lastScrapeAt *time.Time, now time.Time) bool {
	if lastScrapeAt == nil {
		return true
	}
	return now.Sub(*lastScrapeAt) >= Interval(frequency)-dueBuffer
}

func parseEveryN(frequency string) (int, bool) {
	f := strings.ToLower(strings.TrimSpace(frequency))
	if !strings.HasPrefix(f, "every_") || !strings.HasSuffix(f, "h") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f, "every_"), "h"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
