package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/penguin-meds/internal/chart"
)

var (
	chartDays   int
	chartFormat string
	chartWidth  int
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Draw daily totals as a bar chart",
	Args:  cobra.NoArgs,
	RunE:  runChart,
}

func init() {
	chartCmd.Flags().IntVar(&chartDays, "days", 0, "Show the last N days including empty ones (0 = every day with entries)")
	chartCmd.Flags().StringVar(&chartFormat, "format", "text", "Output format: text, json")
	chartCmd.Flags().IntVar(&chartWidth, "width", 40, "Bar width in columns")
}

func runChart(cmd *cobra.Command, args []string) error {
	cat, err := selectedCategory()
	if err != nil {
		return err
	}
	if chartFormat != "text" && chartFormat != "json" {
		return fmt.Errorf("%w: unknown --format %q", errUsage, chartFormat)
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var s chart.Series
	if chartDays > 0 {
		totals, err := a.agg.TotalsByDay(cat)
		if err != nil {
			return err
		}
		now := a.now()
		s = chart.Window(totals, now.AddDate(0, 0, -(chartDays-1)), now)
	} else {
		s, err = chart.NewFeed(a.agg, cat, a.log).Current()
		if err != nil {
			return err
		}
	}

	if chartFormat == "json" {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	return chart.TextRenderer{W: cmd.OutOrStdout(), Width: chartWidth}.Render(cat, s)
}
