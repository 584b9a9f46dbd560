package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var categoryFlag string

var rootCmd = &cobra.Command{
	Use:   "pmeds",
	Short: "Penguin Meds – a personal consumption log",
	Long: `pmeds logs marijuana and nicotine consumption with a type, an amount in mg
and a date, and derives per-day totals and charts from the log.
Data and configuration live in $PMEDS_HOME (default ~/.pmeds).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&categoryFlag, "category", "c", "marijuana", "Category: marijuana (mj) or nicotine (nic)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(totalsCmd)
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(sheetsCmd)
	rootCmd.AddCommand(eventsCmd)
}
