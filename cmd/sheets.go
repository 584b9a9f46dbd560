package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/sheets"
)

var (
	sheetsFrom   string
	sheetsTo     string
	sheetsDryRun bool
	sheetsPort   string
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Google Sheets export",
}

var sheetsLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize pmeds to write to your spreadsheets",
	Args:  cobra.NoArgs,
	RunE:  runSheetsLogin,
}

var sheetsPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Replace the sheet with the daily totals of every category",
	Args:  cobra.NoArgs,
	RunE:  runSheetsPush,
}

func init() {
	sheetsLoginCmd.Flags().StringVar(&sheetsPort, "port", "8085", "Local port for the OAuth redirect")
	sheetsPushCmd.Flags().StringVar(&sheetsFrom, "from", "", "First day (YYYY-MM-DD); required when --to is specified")
	sheetsPushCmd.Flags().StringVar(&sheetsTo, "to", "", "Last day (YYYY-MM-DD); defaults to the latest entry")
	sheetsPushCmd.Flags().BoolVar(&sheetsDryRun, "dry-run", false, "Print the rows without writing")
	sheetsCmd.AddCommand(sheetsLoginCmd)
	sheetsCmd.AddCommand(sheetsPushCmd)
}

func runSheetsLogin(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	oc, err := sheets.OAuthConfig(a.cfg.Sheets.ClientFile)
	if err != nil {
		return err
	}
	return sheets.Login(cmd.Context(), oc, sheets.TokenFile(a.cfg.Sheets.TokenFile), sheetsPort, cmd.OutOrStdout())
}

func runSheetsPush(cmd *cobra.Command, args []string) error {
	if sheetsTo != "" && sheetsFrom == "" {
		return fmt.Errorf("%w: --from is required when --to is specified", errUsage)
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	from, to := "", "9999-12-31"
	if sheetsFrom != "" {
		if from, err = dayFlag("from", sheetsFrom, a.loc); err != nil {
			return err
		}
	}
	if sheetsTo != "" {
		if to, err = dayFlag("to", sheetsTo, a.loc); err != nil {
			return err
		}
	}

	totals := map[model.Category]map[string]int{}
	for _, cat := range model.Categories() {
		byDay, err := a.agg.TotalsByDay(cat)
		if err != nil {
			return err
		}
		for day := range byDay {
			if day < from || day > to {
				delete(byDay, day)
			}
		}
		totals[cat] = byDay
	}
	rows := sheets.Rows(totals)

	out := cmd.OutOrStdout()
	if sheetsDryRun {
		for _, r := range rows {
			fmt.Fprintln(out, r...)
		}
		fmt.Fprintf(out, "%d day rows [dry-run]\n", len(rows)-1)
		return nil
	}

	if err := a.cfg.ValidateSheets(); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	oc, err := sheets.OAuthConfig(a.cfg.Sheets.ClientFile)
	if err != nil {
		return err
	}
	client, err := sheets.HTTPClient(cmd.Context(), oc, sheets.TokenFile(a.cfg.Sheets.TokenFile))
	if err != nil {
		return err
	}
	exp, err := sheets.NewExporter(cmd.Context(), client, a.cfg.Sheets.SpreadsheetID, a.cfg.Sheets.SheetName, a.log)
	if err != nil {
		return err
	}
	n, err := exp.Push(cmd.Context(), rows)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Pushed %d day rows to %s.\n", n, a.cfg.Sheets.SheetName)
	return nil
}
