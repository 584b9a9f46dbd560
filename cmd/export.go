package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all entries of the category to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, yaml, md")
}

// exportRow is the flat shape of an exported entry.
type exportRow struct {
	ID        string `json:"id" yaml:"id"`
	Date      string `json:"date" yaml:"date"`
	Time      string `json:"time" yaml:"time"`
	Category  string `json:"category" yaml:"category"`
	Kind      string `json:"kind" yaml:"kind"`
	Amount    int    `json:"amount_mg" yaml:"amount_mg"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

func toExportRows(entries []model.Entry) []exportRow {
	rows := make([]exportRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, exportRow{
			ID:        e.ID,
			Date:      timecalc.DayKey(e.Timestamp),
			Time:      e.Timestamp.Format("15:04:05"),
			Category:  string(e.Category),
			Kind:      string(e.Kind),
			Amount:    e.Amount,
			Timestamp: e.Timestamp.Format(time.RFC3339),
		})
	}
	return rows
}

func runExport(cmd *cobra.Command, args []string) error {
	cat, err := selectedCategory()
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.store.ListRecent(cat)
	if err != nil {
		return err
	}
	return writeExport(cmd.OutOrStdout(), entries, exportFormat)
}

func writeExport(w io.Writer, entries []model.Entry, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(toExportRows(entries), "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toExportRows(entries)); err != nil {
			return fmt.Errorf("error encoding YAML: %w", err)
		}
		return enc.Close()
	case "md":
		printList(w, entries)
	case "csv":
		printCSV(w, entries)
	default:
		return fmt.Errorf("%w: unknown --format %q", errUsage, format)
	}
	return nil
}

func printCSV(w io.Writer, entries []model.Entry) {
	fmt.Fprintln(w, "date,time,category,kind,amount_mg,id")
	for _, r := range toExportRows(entries) {
		fmt.Fprintf(w, "%s,%s,%s,%s,%d,%s\n",
			csvEscape(r.Date),
			csvEscape(r.Time),
			csvEscape(r.Category),
			csvEscape(r.Kind),
			r.Amount,
			csvEscape(r.ID),
		)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	// Escape internal double quotes by doubling them.
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
