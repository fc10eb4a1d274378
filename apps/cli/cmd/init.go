package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/config"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/sheet"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new sheetspec project",
	Long: `Initialize a new sheetspec project in the current directory.

This creates:
  - .sheetspec.yaml - Configuration file
  - cases.xlsx      - Example workbook with test cases

Examples:
  sheetspec init
  sheetspec init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

// exampleCases target a public echo service so the example runs anywhere.
var exampleCases = []model.TestCase{
	{APIName: "Echo", TestCase: "GET returns 200", Method: "GET", URL: "https://postman-echo.com/get", ExpectedStatusCode: 200, ExpectedTimeMs: 2000},
	{APIName: "Echo", TestCase: "POST returns 200", Method: "POST", URL: "https://postman-echo.com/post", ExpectedStatusCode: 200, ExpectedTimeMs: 2000},
	{APIName: "Echo", TestCase: "Status endpoint returns 404", Method: "GET", URL: "https://postman-echo.com/status/404", ExpectedStatusCode: 404, ExpectedTimeMs: 2000},
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return withExit(ExitConfigError, err)
	}

	configFile := filepath.Join(cwd, config.ConfigFilenames[0])
	workbookFile := filepath.Join(cwd, "cases.xlsx")

	if !forceInit {
		for _, f := range []string{configFile, workbookFile} {
			if _, err := os.Stat(f); err == nil {
				return withExit(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	c := config.DefaultConfig()
	c.Workbook = "cases.xlsx"
	if err := c.SaveConfig(configFile); err != nil {
		return withExit(ExitConfigError, fmt.Errorf("failed to create config file: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := sheet.WriteCases(workbookFile, "Tests", exampleCases); err != nil {
		return withExit(ExitConfigError, fmt.Errorf("failed to create example workbook: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", workbookFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nsheetspec project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'sheetspec run' to execute the example test cases.\n")

	return nil
}
