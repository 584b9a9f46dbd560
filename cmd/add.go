package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/penguin-meds/internal/form"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

var (
	addDate string
	addTime string
)

var addCmd = &cobra.Command{
	Use:   "add <type> <amount>",
	Short: "Log a new entry",
	Long: `Log a new entry for the selected category. The type may contain spaces
("day gummy") and the amount is in mg. Date and time default to now.`,
	Example: `  pmeds add oil 10
  pmeds -c nic add pouch 4 --time 07:30
  pmeds add day gummy 20 --date 2026-02-26 --time "9:15 PM"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addDate, "date", "", "Date (YYYY-MM-DD); defaults to today")
	addCmd.Flags().StringVar(&addTime, "time", "", "Time of day (15:04 or 3:04 PM); defaults to now")
}

func runAdd(cmd *cobra.Command, args []string) error {
	cat, err := selectedCategory()
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c := a.controller(cat, nil)
	fields := form.Fields{
		Kind:   strings.Join(args[:len(args)-1], " "),
		Amount: args[len(args)-1],
		Date:   addDate,
		Time:   addTime,
	}
	e, err := c.Submit(cmd.Context(), fields)
	if err != nil && e.ID == "" {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Added %s: %s %d mg at %s\n", e.ID, e.Kind, e.Amount, e.Timestamp.In(a.loc).Format("2006-01-02 15:04"))
	if err != nil {
		return fmt.Errorf("could not save entry: %w", err)
	}

	day := timecalc.DayKey(e.Timestamp)
	if total, err := a.agg.TotalForDay(cat, day); err == nil {
		fmt.Fprintf(out, "%s total for %s: %d mg\n", cat, day, total)
	}
	return nil
}
