package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

var todayCmd = &cobra.Command{
	Use:     "today",
	Aliases: []string{"status"},
	Short:   "Show today's totals for every category",
	Args:    cobra.NoArgs,
	RunE:    runToday,
}

func runToday(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	day := timecalc.DayKey(a.now())
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Today (%s):\n", day)
	for _, cat := range model.Categories() {
		total, err := a.agg.TotalForDay(cat, day)
		if err != nil {
			return err
		}
		entries, err := a.store.ListDay(cat, day)
		if err != nil {
			return err
		}
		last := "–"
		if len(entries) > 0 {
			last = entries[0].Timestamp.Format("15:04")
		}
		fmt.Fprintf(out, "  %-10s %4d mg  %d entries  last %s\n", cat, total, len(entries), last)
	}
	return nil
}
