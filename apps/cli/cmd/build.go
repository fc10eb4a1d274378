package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/collection"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/config"
	"github.com/abdul-hamid-achik/sheetspec/packages/output"
	"github.com/abdul-hamid-achik/sheetspec/packages/sheet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var buildCmd = &cobra.Command{
	Use:   "build [workbook.xlsx]",
	Short: "Build a Postman collection from a workbook",
	Long: `Build a Postman v2.1 collection from the rows of a workbook without
running it. The collection can be run with newman and the result imported
with 'sheetspec reconcile'.

Examples:
  sheetspec build cases.xlsx
  sheetspec build cases.xlsx --out collection.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: buildCommand,
}

var (
	buildOutFlag   string
	buildSheetFlag string
	buildNameFlag  string
)

func init() {
	buildCmd.Flags().StringVar(&buildOutFlag, "out", "", "Collection file (default: <output-dir>/temp_collection_<timestamp>.json)")
	buildCmd.Flags().StringVar(&buildSheetFlag, "sheet", getEnvString("SHEETSPEC_SHEET", ""), "Sheet to read (default: first sheet) (env: SHEETSPEC_SHEET)")
	buildCmd.Flags().StringVarP(&buildNameFlag, "name", "n", getEnvString("SHEETSPEC_NAME", ""), "Collection name (env: SHEETSPEC_NAME)")
}

func buildCommand(cmd *cobra.Command, args []string) error {
	o := &config.Config{Sheet: buildSheetFlag, CollectionName: buildNameFlag}
	if len(args) > 0 {
		o.Workbook = args[0]
	}
	rc := cfg.Merge(o)
	if rc.Workbook == "" {
		return withExit(ExitUsageError, errors.New("no workbook given: pass one as an argument or set workbook in the config file"))
	}

	table, err := sheet.Read(rc.Workbook, rc.Sheet)
	if err != nil {
		return withExit(ExitParseError, fmt.Errorf("reading %s: %w", rc.Workbook, err))
	}
	for _, d := range table.Diagnostics {
		logger.Warn("malformed row", zap.Error(d))
	}

	coll := collection.Build(rc.CollectionName, table.Cases)
	if err := coll.Validate(); err != nil {
		return withExit(ExitParseError, err)
	}

	path := buildOutFlag
	if path == "" {
		path = output.NewArtifacts(rc.OutputDir, time.Now()).Collection()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return withExit(ExitConfigError, err)
	}
	if err := coll.Save(path); err != nil {
		return withExit(ExitConfigError, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Built %d request(s): %s\n", len(coll.Item), path)
	return nil
}
