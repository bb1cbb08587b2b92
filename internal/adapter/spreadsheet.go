package adapter

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/event"
	"github.com/harrierhub/hareline/internal/store"
)

// Default column layout for kennel spreadsheets that never configured a
// mapping: date, kennel tag, title, hares, location, start time, run number.
var defaultColumns = map[string]int{
	"date":       0,
	"tag":        1,
	"title":      2,
	"hares":      3,
	"location":   4,
	"start_time": 5,
	"run_number": 6,
}

// sampleRowCount rows are returned raw for operator-assisted column mapping.
const sampleRowCount = 5

// SpreadsheetAdapter pulls a spreadsheet's CSV export. Column meaning comes
// from the source's configured mapping; rows that fail to produce a date are
// reported, not fatal — trailing notes rows are a fact of life in shared
// kennel sheets.
type SpreadsheetAdapter struct {
	deps Deps
}

func (a *SpreadsheetAdapter) Kind() detect.Kind { return detect.KindSpreadsheet }

func (a *SpreadsheetAdapter) Fetch(ctx context.Context, src *store.Source, window Window) Result {
	sheetID := src.Config.SpreadsheetID
	if sheetID == "" {
		if res, ok := detect.Detect(src.URL); ok {
			sheetID = res.ExtractedID
		}
	}
	if sheetID == "" {
		return Result{Errors: []string{"no spreadsheet id configured or extractable from URL"}}
	}

	exportURL := fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", sheetID)
	status, body, err := get(ctx, a.deps.Client, exportURL)
	if err != nil {
		return Result{Errors: []string{err.Error()}}
	}
	if status != 200 {
		return Result{Errors: []string{fmt.Sprintf("HTTP %d exporting spreadsheet %s", status, sheetID)}}
	}

	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1 // ragged rows happen
	rows, err := reader.ReadAll()
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("parsing CSV export: %v", err)}}
	}

	columns := src.Config.Columns
	if len(columns) == 0 {
		columns = defaultColumns
	}

	var out Result
	for i, row := range rows {
		if i < sampleRowCount {
			out.SampleRows = append(out.SampleRows, row)
		}
		date, ok := event.NormalizeDate(cell(row, columns, "date"))
		if !ok {
			if i > 0 { // header row is expected to fail
				out.Errors = append(out.Errors, fmt.Sprintf("row %d: unparseable date %q", i+1, cell(row, columns, "date")))
			}
			continue
		}
		if !event.WithinWindow(date, window.Start, window.Days) {
			continue
		}

		runNumber := 0
		if n, err := strconv.Atoi(strings.TrimSpace(cell(row, columns, "run_number"))); err == nil {
			runNumber = n
		}
		out.Events = append(out.Events, event.RawEvent{
			Date:      date,
			GroupTag:  tagOrDefault(cell(row, columns, "tag"), src),
			Title:     decodeTitle(cell(row, columns, "title")),
			Hares:     trimAll(strings.Split(cell(row, columns, "hares"), ",")),
			Location:  strings.TrimSpace(cell(row, columns, "location")),
			StartTime: event.NormalizeStartTime(cell(row, columns, "start_time")),
			RunNumber: runNumber,
			SourceURL: src.URL,
		})
	}
	return out
}

func cell(row []string, columns map[string]int, field string) string {
	idx, ok := columns[field]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
