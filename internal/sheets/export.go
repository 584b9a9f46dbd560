// Package sheets pushes daily totals to a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/Tiliavir/penguin-meds/internal/logging"
	"github.com/Tiliavir/penguin-meds/internal/model"
)

// DefaultSheet is used when no sheet name is configured.
const DefaultSheet = "Totals"

// Rows builds a date column plus one column per category, ascending by day.
// Only days with at least one entry get a row.
func Rows(totals map[model.Category]map[string]int) [][]interface{} {
	cats := model.Categories()
	header := []interface{}{"date"}
	for _, c := range cats {
		header = append(header, string(c)+"_mg")
	}

	daySet := map[string]bool{}
	for _, byDay := range totals {
		for day := range byDay {
			daySet[day] = true
		}
	}
	days := make([]string, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Strings(days)

	rows := [][]interface{}{header}
	for _, day := range days {
		row := []interface{}{day}
		for _, c := range cats {
			row = append(row, totals[c][day])
		}
		rows = append(rows, row)
	}
	return rows
}

// writer is the part of the Values API the exporter needs.
type writer interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error
}

type valuesWriter struct {
	svc *gsheet.Service
}

func (v valuesWriter) Clear(ctx context.Context, id, rng string) error {
	_, err := v.svc.Spreadsheets.Values.Clear(id, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (v valuesWriter) Update(ctx context.Context, id, rng string, rows [][]interface{}) error {
	_, err := v.svc.Spreadsheets.Values.Update(id, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// Exporter replaces a sheet's contents with the current totals.
type Exporter struct {
	w             writer
	spreadsheetID string
	sheet         string
	log           *logging.Logger
}

// NewExporter creates a Sheets service over an authorized client.
func NewExporter(ctx context.Context, client *http.Client, spreadsheetID, sheet string, log *logging.Logger) (*Exporter, error) {
	svc, err := gsheet.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newExporter(valuesWriter{svc: svc}, spreadsheetID, sheet, log), nil
}

func newExporter(w writer, spreadsheetID, sheet string, log *logging.Logger) *Exporter {
	if sheet == "" {
		sheet = DefaultSheet
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Exporter{w: w, spreadsheetID: spreadsheetID, sheet: sheet, log: log.WithComponent(logging.ComponentSheets)}
}

// Push clears the sheet and writes rows from A1. It returns the number of
// day rows written.
func (e *Exporter) Push(ctx context.Context, rows [][]interface{}) (int, error) {
	rng := e.sheet + "!A:Z"
	if err := e.w.Clear(ctx, e.spreadsheetID, rng); err != nil {
		return 0, fmt.Errorf("clear %s: %w", rng, err)
	}
	if err := e.w.Update(ctx, e.spreadsheetID, e.sheet+"!A1", rows); err != nil {
		return 0, fmt.Errorf("update %s: %w", e.sheet, err)
	}
	n := len(rows) - 1
	if n < 0 {
		n = 0
	}
	e.log.InfoContext(ctx, "sheet updated",
		logging.FieldOperation, logging.OpSync,
		logging.FieldCount, n)
	return n, nil
}
