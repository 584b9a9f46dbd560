package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmYes bool

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an entry after confirmation",
	Args:    cobra.ExactArgs(1),
	RunE:    runRm,
}

func init() {
	rmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runRm(cmd *cobra.Command, args []string) error {
	cat, err := selectedCategory()
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c := a.controller(cat, confirmer(rmYes, cmd.InOrStdin(), cmd.OutOrStdout()))
	if err := c.Select(args[0]); err != nil {
		return err
	}
	removed, err := c.RequestDelete(cmd.Context())
	if !removed {
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Kept.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
	if err != nil {
		return fmt.Errorf("could not save deletion: %w", err)
	}
	return nil
}
