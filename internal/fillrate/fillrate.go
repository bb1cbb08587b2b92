// Package fillrate computes per-field completeness over a batch of scraped
// events. The percentages are a data-quality signal recorded with every
// scrape log entry and compared across runs by the health analyzer.
package fillrate

import "github.com/harrierhub/hareline/internal/event"

// Rates holds the percentage (0-100) of events carrying each optional field.
type Rates struct {
	Title     float64 `json:"title"`
	Location  float64 `json:"location"`
	Hares     float64 `json:"hares"`
	StartTime float64 `json:"start_time"`
	RunNumber float64 `json:"run_number"`
}

// Compute returns fill rates for a batch. An empty batch yields zeros.
func Compute(events []event.RawEvent) Rates {
	if len(events) == 0 {
		return Rates{}
	}

	var title, location, hares, startTime, runNumber int
	for _, e := range events {
		if e.Title != "" {
			title++
		}
		if e.Location != "" {
			location++
		}
		if len(e.Hares) > 0 {
			hares++
		}
		if e.StartTime != "" {
			startTime++
		}
		if e.RunNumber > 0 {
			runNumber++
		}
	}

	pct := func(n int) float64 {
		return float64(n) / float64(len(events)) * 100
	}
	return Rates{
		Title:     pct(title),
		Location:  pct(location),
		Hares:     pct(hares),
		StartTime: pct(startTime),
		RunNumber: pct(runNumber),
	}
}
