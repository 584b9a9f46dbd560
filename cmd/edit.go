package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/penguin-meds/internal/form"
)

var (
	editKind   string
	editAmount string
	editDate   string
	editTime   string
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change an entry's type, amount, date or time",
	Long:  `Change an existing entry. Flags that are not given leave the field unchanged.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editKind, "kind", "", "New type")
	editCmd.Flags().StringVar(&editAmount, "amount", "", "New amount in mg")
	editCmd.Flags().StringVar(&editDate, "date", "", "New date (YYYY-MM-DD)")
	editCmd.Flags().StringVar(&editTime, "time", "", "New time of day (15:04 or 3:04 PM)")
}

func runEdit(cmd *cobra.Command, args []string) error {
	cat, err := selectedCategory()
	if err != nil {
		return err
	}
	if editKind == "" && editAmount == "" && editDate == "" && editTime == "" {
		return fmt.Errorf("%w: nothing to change (use --kind, --amount, --date or --time)", errUsage)
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c := a.controller(cat, nil)
	if err := c.Select(args[0]); err != nil {
		return err
	}
	e, err := c.Submit(cmd.Context(), form.Fields{Kind: editKind, Amount: editAmount, Date: editDate, Time: editTime})
	if err != nil && e.ID == "" {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s %d mg at %s\n", e.ID, e.Kind, e.Amount, e.Timestamp.In(a.loc).Format("2006-01-02 15:04"))
	if err != nil {
		return fmt.Errorf("could not save entry: %w", err)
	}
	return nil
}
