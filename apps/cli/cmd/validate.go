package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/sheetspec/packages/collection"
	"github.com/abdul-hamid-achik/sheetspec/packages/sheet"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workbook.xlsx|collection.json>...",
	Short: "Validate workbooks and collections without running them",
	Long: `Validate workbooks and collection files without executing any request.

A workbook is valid when every row converts into a test case with a URL and
numeric expectations. A collection file is checked against the structure
runners rely on.

Examples:
  sheetspec validate cases.xlsx
  sheetspec validate reports/temp_collection_2026-01-02T03-04-05-000Z.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

var validateSheetFlag string

func init() {
	validateCmd.Flags().StringVar(&validateSheetFlag, "sheet", getEnvString("SHEETSPEC_SHEET", ""), "Sheet to read (default: first sheet) (env: SHEETSPEC_SHEET)")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	hasErrors := false
	for _, file := range args {
		if err := validateFile(cmd, file); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
		}
	}

	if hasErrors {
		return withExit(ExitParseError, fmt.Errorf("validation failed"))
	}
	return nil
}

func validateFile(cmd *cobra.Command, file string) error {
	if strings.EqualFold(filepath.Ext(file), ".json") {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		if err := collection.ValidateDocument(data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
		return nil
	}

	table, err := sheet.Read(file, validateSheetFlag)
	if err != nil {
		return err
	}
	for _, d := range table.Diagnostics {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", d)
	}
	if err := collection.Build(collection.DefaultName, table.Cases).Validate(); err != nil {
		return err
	}
	if len(table.Diagnostics) > 0 {
		return fmt.Errorf("%d problem(s) in sheet %q", len(table.Diagnostics), table.Sheet)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d test cases in sheet %q)\n", file, len(table.Cases), table.Sheet)
	return nil
}
