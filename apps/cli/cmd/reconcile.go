package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdul-hamid-achik/sheetspec/packages/collection"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/correlator"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/reconcile"
	"github.com/abdul-hamid-achik/sheetspec/packages/newman"
	"github.com/abdul-hamid-achik/sheetspec/packages/pipeline"
	"github.com/abdul-hamid-achik/sheetspec/packages/sheet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile --newman <report.json> [workbook.xlsx]",
	Short: "Reconcile a newman run with the workbook it came from",
	Long: `Reconcile the JSON report of an external newman run with the rows of a
workbook and write the same reports as 'sheetspec run'.

Build the collection with 'sheetspec build', run it with
'newman run <collection> --reporters json', then reconcile.

Examples:
  sheetspec reconcile --newman newman/run.json cases.xlsx
  sheetspec reconcile --newman run.json --collection reports/temp_collection.json --correlate id cases.xlsx`,
	Args: cobra.MaximumNArgs(1),
	RunE: reconcileCommand,
}

var (
	newmanReportFlag   string
	collectionFileFlag string
)

func init() {
	addReportFlags(reconcileCmd)
	reconcileCmd.Flags().StringVar(&newmanReportFlag, "newman", "", "newman JSON report to import")
	reconcileCmd.Flags().StringVar(&collectionFileFlag, "collection", "", "Collection the report was produced from, for --correlate id")
	_ = reconcileCmd.MarkFlagRequired("newman")
}

func reconcileCommand(cmd *cobra.Command, args []string) error {
	o := reportOverrides(cmd)
	if len(args) > 0 {
		o.Workbook = args[0]
	}
	rc := cfg.Merge(o)
	if rc.Workbook == "" {
		return withExit(ExitUsageError, errors.New("no workbook given: pass one as an argument or set workbook in the config file"))
	}

	key, err := reconcile.ParseKey(rc.Correlate)
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	if key == reconcile.KeyID && collectionFileFlag == "" {
		return withExit(ExitUsageError, errors.New("--correlate id needs --collection"))
	}
	reporters, err := reporterSet(rc.Reporters)
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	notifier, err := buildNotifier(rc, notifyFlag)
	if err != nil {
		return withExit(ExitConfigError, err)
	}

	formatter, err := newFormatter(outputFlag, cmd.OutOrStdout())
	if err != nil {
		return withExit(ExitUsageError, err)
	}

	table, err := sheet.Read(rc.Workbook, rc.Sheet)
	if err != nil {
		return withExit(ExitParseError, fmt.Errorf("reading %s: %w", rc.Workbook, err))
	}
	for _, d := range table.Diagnostics {
		logger.Warn("malformed row", zap.Error(d))
	}

	events, err := newman.Load(newmanReportFlag)
	if err != nil {
		return withExit(ExitParseError, err)
	}

	opts := []pipeline.Option{
		pipeline.WithName(rc.CollectionName),
		pipeline.WithKey(key),
		pipeline.WithSnippetLength(rc.SnippetLength),
		pipeline.WithLogger(logger),
	}
	if collectionFileFlag != "" {
		coll, err := collection.Load(collectionFileFlag)
		if err != nil {
			return withExit(ExitParseError, err)
		}
		if len(coll.Item) != len(table.Cases) {
			logger.Warn("collection and workbook differ in size",
				zap.Int("items", len(coll.Item)),
				zap.Int("rows", len(table.Cases)),
			)
		}
		opts = append(opts, pipeline.WithCollection(coll))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter.FormatHeader(version)
	report, err := pipeline.ReconcileExternal(ctx, table.Cases, newman.Replay(events), opts...)
	if err != nil && !errors.Is(err, correlator.ErrIncompleteRun) {
		formatter.FormatError(err)
		return withExit(ExitParseError, err)
	}

	formatter.FormatReport(report)
	if flushable, ok := formatter.(Flushable); ok {
		if err := flushable.Flush(report.Duration); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	pub := &publisher{rc: rc, table: table, reporters: reporters, notifier: notifier}
	if err := pub.publish(ctx, report); err != nil {
		return err
	}
	return verdictError(report)
}
