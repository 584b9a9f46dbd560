package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every entry of every category",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c := confirmer(clearYes, cmd.InOrStdin(), cmd.OutOrStdout())
	if !c.Confirm("Delete ALL entries of every category?") {
		fmt.Fprintln(cmd.OutOrStdout(), "Kept.")
		return nil
	}
	if err := a.store.ClearAll(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All entries deleted.")
	return nil
}
