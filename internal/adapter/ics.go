package adapter

import (
	"bufio"
	"strings"

	"github.com/harrierhub/hareline/internal/event"
	"github.com/harrierhub/hareline/internal/store"
)

// icsEvent is one VEVENT block, fields we care about only.
type icsEvent struct {
	Summary     string
	Description string
	Location    string
	Categories  []string
	Status      string
	Date        string // ISO
	StartTime   string // "HH:MM", empty for all-day entries
}

// parseICS walks an iCalendar payload and extracts VEVENT blocks. The parser
// is deliberately small: unfold continuation lines, split NAME;PARAMS:VALUE,
// keep the handful of properties the pipeline consumes. Hash kennel
// calendars are hand-maintained and violate RFC 5545 in creative ways, so
// unknown lines are skipped, never fatal.
func parseICS(data []byte) []icsEvent {
	lines := unfoldICS(data)

	var (
		events  []icsEvent
		current *icsEvent
	)
	for _, line := range lines {
		name, value := splitICSLine(line)
		switch name {
		case "BEGIN":
			if strings.EqualFold(value, "VEVENT") {
				current = &icsEvent{}
			}
		case "END":
			if strings.EqualFold(value, "VEVENT") && current != nil {
				if current.Date != "" {
					events = append(events, *current)
				}
				current = nil
			}
		}
		if current == nil {
			continue
		}
		switch name {
		case "SUMMARY":
			current.Summary = unescapeICS(value)
		case "DESCRIPTION":
			current.Description = unescapeICS(value)
		case "LOCATION":
			current.Location = unescapeICS(value)
		case "STATUS":
			current.Status = strings.ToUpper(strings.TrimSpace(value))
		case "CATEGORIES":
			for _, c := range strings.Split(value, ",") {
				if c = strings.TrimSpace(unescapeICS(c)); c != "" {
					current.Categories = append(current.Categories, c)
				}
			}
		case "DTSTART":
			current.Date, current.StartTime = parseICSDateTime(value)
		}
	}
	return events
}

// unfoldICS joins RFC 5545 folded lines: a line starting with a space or tab
// continues the previous one.
func unfoldICS(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// splitICSLine separates "NAME;PARAM=X:VALUE" into the bare property name
// and its value. Parameters are dropped; DTSTART's date carries everything
// the pipeline needs without time zone handling.
func splitICSLine(line string) (string, string) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return strings.ToUpper(line), ""
	}
	name := line[:colon]
	if semi := strings.Index(name, ";"); semi >= 0 {
		name = name[:semi]
	}
	return strings.ToUpper(strings.TrimSpace(name)), line[colon+1:]
}

// parseICSDateTime handles "20260314", "20260314T140000", "20260314T140000Z".
func parseICSDateTime(value string) (date, startTime string) {
	value = strings.TrimSpace(value)
	if len(value) < 8 {
		return "", ""
	}
	d, ok := event.NormalizeDate(value[:8])
	if !ok {
		return "", ""
	}
	if len(value) >= 13 && value[8] == 'T' {
		hh, mm := value[9:11], value[11:13]
		startTime = event.NormalizeStartTime(hh + ":" + mm)
	}
	return d, startTime
}

func unescapeICS(s string) string {
	r := strings.NewReplacer(`\\`, `\`, `\,`, ",", `\;`, ";", `\n`, "\n", `\N`, "\n")
	return strings.TrimSpace(r.Replace(s))
}

// icsToRawEvents converts parsed VEVENTs into RawEvents. The kennel tag
// comes from the first CATEGORIES value when present, otherwise the source's
// configured default tag.
func icsToRawEvents(events []icsEvent, src *store.Source, sourceURL string) []event.RawEvent {
	var out []event.RawEvent
	for _, ev := range events {
		if ev.Status == "CANCELLED" {
			// Cancellation propagates by absence; a CANCELLED VEVENT is
			// treated the same as a deleted one.
			continue
		}
		tag := ""
		if len(ev.Categories) > 0 {
			tag = ev.Categories[0]
		}
		out = append(out, event.RawEvent{
			Date:        ev.Date,
			GroupTag:    tagOrDefault(tag, src),
			Title:       decodeTitle(ev.Summary),
			Description: ev.Description,
			Location:    ev.Location,
			StartTime:   ev.StartTime,
			SourceURL:   sourceURL,
		})
	}
	return out
}
