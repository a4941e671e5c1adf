package main

import (
	"fmt"

	"log/slog"

	"github.com/cardsage/cardsage/internal/cli"
	"github.com/cardsage/cardsage/internal/config"
	"github.com/cardsage/cardsage/internal/sheets"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <query>",
		Short: "Run the pipeline and export the report to Google Sheets",
		Long: `Run the full recommendation pipeline and write the resulting report to
a Google Sheets spreadsheet, one tab per run.

Credentials come from the config file (sheets.*) or GOOGLE_SHEETS_*
environment variables. Run 'cardsage auth sheets' once to set up OAuth2.

Examples:
  # Export into a fresh spreadsheet
  cardsage export "best dining card"

  # Append a tab to an existing spreadsheet
  cardsage export "best dining card" --spreadsheet-id 1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	addRunFlags(cmd)
	cmd.Flags().String("spreadsheet-id", "", "existing spreadsheet to append to (a new one is created when empty)")
	cmd.Flags().Bool("trace", false, "export OpenTelemetry traces for this run")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	locale, _ := cmd.Flags().GetString("locale")
	trace, _ := cmd.Flags().GetBool("trace")
	consent := consentFromFlags(cmd)

	// Surface credential problems before spending an LLM run.
	sheetsConfig, err := config.LoadSheetsConfig()
	if err != nil {
		return fmt.Errorf("sheets configuration error: %w", err)
	}
	if id, _ := cmd.Flags().GetString("spreadsheet-id"); id != "" {
		sheetsConfig.SpreadsheetID = id
	}

	writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}

	eng, cleanup, err := buildEngine(ctx, cmd, trace)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := eng.Run(ctx, args[0], locale, consent)
	if err != nil {
		return fmt.Errorf("recommendation run failed: %w", err)
	}

	fmt.Println(cli.RenderAnswer(session))

	if err := writer.Write(ctx, session); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}

	fmt.Println(cli.FormatSuccess("Report exported to Google Sheets"))
	return nil
}
