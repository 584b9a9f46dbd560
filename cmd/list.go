package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/penguin-meds/internal/aggregate"
	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

var listDate string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listDate, "date", "", "Only show entries of this day (YYYY-MM-DD)")
}

func runList(cmd *cobra.Command, args []string) error {
	cat, err := selectedCategory()
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var entries []model.Entry
	if listDate != "" {
		day, err := dayFlag("date", listDate, a.loc)
		if err != nil {
			return err
		}
		entries, err = a.store.ListDay(cat, day)
		if err != nil {
			return err
		}
	} else {
		entries, err = a.store.ListRecent(cat)
		if err != nil {
			return err
		}
	}

	printList(cmd.OutOrStdout(), entries)
	return nil
}

// printList groups entries by date and prints them with each day's total.
func printList(w io.Writer, entries []model.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}

	totals := aggregate.ByDay(entries)
	var currentDay string
	for _, e := range entries {
		day := timecalc.DayKey(e.Timestamp)
		if day != currentDay {
			fmt.Fprintf(w, "%s  (%d mg)\n", day, totals[day])
			currentDay = day
		}
		fmt.Fprintf(w, "  %s  %-12s %3d mg  %s\n", e.Timestamp.Format("15:04"), e.Kind, e.Amount, e.ID)
	}
}
