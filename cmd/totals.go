package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

var (
	totalsFrom string
	totalsTo   string
)

var totalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Show per-day totals and the total over a date range",
	Args:  cobra.NoArgs,
	RunE:  runTotals,
}

func init() {
	totalsCmd.Flags().StringVar(&totalsFrom, "from", "", "First day (YYYY-MM-DD); defaults to the earliest entry")
	totalsCmd.Flags().StringVar(&totalsTo, "to", "", "Last day (YYYY-MM-DD); defaults to today when --from is given")
}

func runTotals(cmd *cobra.Command, args []string) error {
	cat, err := selectedCategory()
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	byDay, err := a.agg.TotalsByDay(cat)
	if err != nil {
		return err
	}
	from, to := "", ""
	if totalsFrom != "" {
		if from, err = dayFlag("from", totalsFrom, a.loc); err != nil {
			return err
		}
	}
	if totalsTo != "" {
		if to, err = dayFlag("to", totalsTo, a.loc); err != nil {
			return err
		}
	}
	from, to = totalsRange(sortedDays(byDay), from, to, timecalc.DayKey(a.now()))

	out := cmd.OutOrStdout()
	if from == "" {
		fmt.Fprintln(out, "No entries found.")
		return nil
	}
	sum, err := a.agg.TotalForRange(cat, from, to)
	if err != nil {
		return err
	}
	printTotals(out, byDay, from, to, sum)
	return nil
}

// totalsRange fills the bounds left blank so that the range never ends
// before it starts. An empty from means there is nothing to show.
func totalsRange(days []string, from, to, today string) (string, string) {
	switch {
	case from == "" && to == "":
		if len(days) == 0 {
			return "", ""
		}
		return days[0], days[len(days)-1]
	case to == "":
		to = max(from, today)
		if len(days) > 0 {
			to = max(to, days[len(days)-1])
		}
		return from, to
	case from == "":
		if len(days) > 0 && days[0] <= to {
			return days[0], to
		}
		return to, to
	}
	return from, to
}

func sortedDays(byDay map[string]int) []string {
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

func printTotals(w io.Writer, byDay map[string]int, from, to string, sum int) {
	for _, day := range sortedDays(byDay) {
		if day < from || day > to {
			continue
		}
		fmt.Fprintf(w, "%s  %4d mg\n", day, byDay[day])
	}
	fmt.Fprintf(w, "Total %s – %s: %d mg\n", from, to, sum)
}
