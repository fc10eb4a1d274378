package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/reconcile"
	"github.com/abdul-hamid-achik/sheetspec/packages/history"
	"github.com/abdul-hamid-achik/sheetspec/packages/output"
	"github.com/abdul-hamid-achik/sheetspec/packages/pipeline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded runs",
	Long: `List the runs recorded with --history, or the rows of one run.

Examples:
  sheetspec history --db runs.db
  sheetspec history --db runs.db --limit 5
  sheetspec history --db runs.db 42`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCommand,
}

var (
	historyDBFlag    string
	historyLimitFlag int
)

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "db", getEnvString("SHEETSPEC_HISTORY", ""), "SQLite database recording run history (env: SHEETSPEC_HISTORY)")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 20, "Number of runs to list")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	dsn := historyDBFlag
	if dsn == "" {
		dsn = cfg.History
	}
	if dsn == "" {
		return withExit(ExitConfigError, errors.New("no history database: pass --db or set history in the config file"))
	}
	if _, err := os.Stat(history.Path(dsn)); err != nil {
		return withExit(ExitConfigError, fmt.Errorf("history database: %w", err))
	}

	store, err := history.Open(dsn)
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	defer store.Close()

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return withExit(ExitUsageError, fmt.Errorf("invalid run id %q", args[0]))
		}
		rows, err := store.Results(cmd.Context(), id)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return withExit(ExitUsageError, fmt.Errorf("run %d not found", id))
		}
		formatter := output.NewConsoleFormatter(output.WithWriter(cmd.OutOrStdout()), output.WithNoColor(noColorFlag))
		formatter.FormatReport(&pipeline.Report{
			Name:    fmt.Sprintf("run %d", id),
			Rows:    rows,
			Summary: reconcile.Summarize(rows),
		})
		return nil
	}

	runs, err := store.Recent(cmd.Context(), historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetTitle("Run history")
	t.AppendHeader(table.Row{"ID", "Started", "Collection", "Total", "Passed", "Failed", "Unmatched", "Dropped", "Duration"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Collection,
			r.Summary.Total,
			r.Summary.Passed,
			r.Summary.Failed,
			r.Summary.Unmatched,
			r.Dropped,
			r.Duration.Round(time.Millisecond),
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}
