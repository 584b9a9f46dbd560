package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

var (
	reportWeek   string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show a weekly report by type",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportWeek, "week", "", "Any day of the week to report (YYYY-MM-DD); defaults to this week")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

// weekReport is the aggregated data of one ISO week.
type weekReport struct {
	Week     string         `json:"week"`
	Category model.Category `json:"category"`
	From     string         `json:"from"`
	To       string         `json:"to"`
	Kinds    []kindTotal    `json:"kinds"`
	Total    int            `json:"total_mg"`
}

type kindTotal struct {
	Kind   model.Kind `json:"kind"`
	Amount int        `json:"amount_mg"`
}

func runReport(cmd *cobra.Command, args []string) error {
	cat, err := selectedCategory()
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ref := a.now()
	if reportWeek != "" {
		if ref, err = timecalc.ParseDay(reportWeek, a.loc); err != nil {
			return fmt.Errorf("invalid --week value: %w", err)
		}
	}
	from, to := timecalc.WeekRange(ref)

	byKind, err := a.agg.TotalsByKind(cat, timecalc.DayKey(from), timecalc.DayKey(to))
	if err != nil {
		return err
	}
	total, err := a.agg.TotalForWeek(cat, ref)
	if err != nil {
		return err
	}
	r := buildWeekReport(cat, ref, from, to, byKind, total)
	return printReport(cmd.OutOrStdout(), r, reportFormat)
}

func buildWeekReport(cat model.Category, ref, from, to time.Time, byKind map[model.Kind]int, total int) weekReport {
	r := weekReport{
		Week:     timecalc.ISOWeekLabel(ref),
		Category: cat,
		From:     timecalc.DayKey(from),
		To:       timecalc.DayKey(to),
		Kinds:    []kindTotal{},
		Total:    total,
	}
	for k, v := range byKind {
		r.Kinds = append(r.Kinds, kindTotal{Kind: k, Amount: v})
	}
	sort.Slice(r.Kinds, func(i, j int) bool { return r.Kinds[i].Kind < r.Kinds[j].Kind })
	return r
}

func printReport(w io.Writer, r weekReport, format string) error {
	switch format {
	case "csv":
		fmt.Fprintln(w, "kind,amount_mg")
		for _, k := range r.Kinds {
			fmt.Fprintf(w, "%s,%d\n", csvEscape(string(k.Kind)), k.Amount)
		}
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case "md":
		fmt.Fprintf(w, "Week %s – %s (%s to %s)\n", r.Week, r.Category, r.From, r.To)
		fmt.Fprintln(w, "--------------------------------")
		for _, k := range r.Kinds {
			fmt.Fprintf(w, "%-20s%6d mg\n", k.Kind, k.Amount)
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintf(w, "%-20s%6d mg\n", "Total", r.Total)
	default:
		return fmt.Errorf("%w: unknown --format %q", errUsage, format)
	}
	return nil
}
