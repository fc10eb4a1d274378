package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/config"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/reconcile"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/runner"
	"github.com/abdul-hamid-achik/sheetspec/packages/http"
	"github.com/abdul-hamid-achik/sheetspec/packages/pipeline"
	"github.com/abdul-hamid-achik/sheetspec/packages/sheet"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run [workbook.xlsx]",
	Short: "Run the API test cases in a workbook",
	Long: `Run every row of a workbook as an API request and write the verdicts.

The workbook needs a header row with at least a URL column. Recognised
columns are API_Name, Test_Case, Method, URL, Expected_Status_Code and
Expected_Time_ms; any other column is carried into the result workbook.

Examples:
  sheetspec run cases.xlsx
  sheetspec run cases.xlsx --sheet Smoke --concurrency 10
  sheetspec run cases.xlsx --correlate id --keep-collection
  sheetspec run cases.xlsx --reporters xlsx,junit --output-dir out
  sheetspec run cases.xlsx --notify slack --notify-on recovery --history runs.db
  sheetspec run cases.xlsx --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	concurrencyFlag    int
	rateFlag           float64
	timeoutFlag        string
	proxyFlag          string
	insecureFlag       bool
	noRedirectsFlag    bool
	keepCollectionFlag bool
	watchFlag          bool
)

func init() {
	addReportFlags(runCmd)

	// Execution flags
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("SHEETSPEC_CONCURRENCY", 0), "Number of requests in flight (default 5) (env: SHEETSPEC_CONCURRENCY)")
	runCmd.Flags().Float64Var(&rateFlag, "rate", getEnvFloat("SHEETSPEC_RATE", 0), "Maximum requests per second, 0 for unlimited (env: SHEETSPEC_RATE)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("SHEETSPEC_TIMEOUT", ""), "Request timeout (e.g., 30s, 1m) (env: SHEETSPEC_TIMEOUT)")
	runCmd.Flags().BoolVar(&keepCollectionFlag, "keep-collection", getEnvBool("SHEETSPEC_KEEP_COLLECTION", false), "Save the generated collection next to the reports (env: SHEETSPEC_KEEP_COLLECTION)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the workbook for changes and re-run")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("SHEETSPEC_PROXY", ""), "Proxy URL for HTTP requests (env: SHEETSPEC_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("SHEETSPEC_INSECURE", false), "Disable SSL certificate validation (env: SHEETSPEC_INSECURE)")
	runCmd.Flags().BoolVar(&noRedirectsFlag, "no-follow-redirects", getEnvBool("SHEETSPEC_NO_FOLLOW_REDIRECTS", false), "Do not follow redirects (env: SHEETSPEC_NO_FOLLOW_REDIRECTS)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// runSettings resolves the config file and command-line flags into the
// settings of one run.
func runSettings(cmd *cobra.Command, args []string) (*config.Config, time.Duration, error) {
	o := reportOverrides(cmd)
	if len(args) > 0 {
		o.Workbook = args[0]
	}
	o.Concurrency = concurrencyFlag
	o.Rate = rateFlag
	o.Proxy = proxyFlag
	if insecureFlag {
		o.ValidateSSL = config.BoolPtr(false)
	}
	if noRedirectsFlag {
		o.FollowRedirects = config.BoolPtr(false)
	}
	rc := cfg.Merge(o)

	timeout := time.Duration(rc.Timeout) * time.Millisecond
	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		timeout = d
	}
	if timeout <= 0 {
		timeout = http.DefaultTimeout
	}
	return rc, timeout, nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	rc, timeout, err := runSettings(cmd, args)
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	if rc.Workbook == "" {
		return withExit(ExitUsageError, errors.New("no workbook given: pass one as an argument or set workbook in the config file"))
	}

	key, err := reconcile.ParseKey(rc.Correlate)
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	reporters, err := reporterSet(rc.Reporters)
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	notifier, err := buildNotifier(rc, notifyFlag)
	if err != nil {
		return withExit(ExitConfigError, err)
	}

	clientOpts := []http.ClientOption{
		http.WithTimeout(timeout),
		http.WithFollowRedirects(rc.GetFollowRedirects()),
		http.WithMaxRedirects(rc.MaxRedirects),
		http.WithValidateSSL(rc.GetValidateSSL()),
	}
	if rc.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(rc.Proxy))
	}
	r := runner.New(
		runner.WithHTTPClient(http.NewClient(clientOpts...)),
		runner.WithConcurrency(rc.Concurrency),
		runner.WithRate(rc.Rate),
		runner.WithLogger(logger),
	)

	pub := &publisher{
		rc:        rc,
		reporters: reporters,
		notifier:  notifier,
		keepColl:  keepCollectionFlag,
	}
	opts := []pipeline.Option{
		pipeline.WithName(rc.CollectionName),
		pipeline.WithRunner(r),
		pipeline.WithKey(key),
		pipeline.WithSnippetLength(rc.SnippetLength),
		pipeline.WithLogger(logger),
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runOnce(ctx, cmd, pub, opts)
	if err != nil {
		return err
	}
	if !watchFlag {
		return verdictError(report)
	}
	return watch(ctx, cmd, rc.Workbook, func() {
		if _, err := runOnce(ctx, cmd, pub, opts); err != nil {
			logger.Error("run failed", zap.Error(err))
		}
	})
}

// runOnce reads the workbook and runs it through the pipeline once.
func runOnce(ctx context.Context, cmd *cobra.Command, pub *publisher, opts []pipeline.Option) (*pipeline.Report, error) {
	var w io.Writer = cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return nil, withExit(ExitConfigError, fmt.Errorf("cannot create output file: %w", err))
		}
		defer f.Close()
		w = f
	}

	formatter, err := newFormatter(outputFlag, w)
	if err != nil {
		return nil, withExit(ExitUsageError, err)
	}
	formatter.FormatHeader(version)

	table, err := sheet.Read(pub.rc.Workbook, pub.rc.Sheet)
	if err != nil {
		formatter.FormatError(err)
		return nil, withExit(ExitParseError, fmt.Errorf("reading %s: %w", pub.rc.Workbook, err))
	}
	for _, d := range table.Diagnostics {
		logger.Warn("malformed row", zap.Error(d))
	}
	pub.table = table

	report, err := pipeline.Execute(ctx, table.Cases, append(opts, pipeline.OnEvent(formatter.FormatEvent))...)
	if err != nil {
		formatter.FormatError(err)
		return nil, withExit(ExitParseError, err)
	}

	formatter.FormatReport(report)
	if flushable, ok := formatter.(Flushable); ok {
		if err := flushable.Flush(report.Duration); err != nil {
			return nil, fmt.Errorf("error writing output: %w", err)
		}
	}

	if err := pub.publish(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// watch calls rerun after the workbook is written, until ctx is cancelled.
// Runs never overlap.
func watch(ctx context.Context, cmd *cobra.Command, workbook string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Spreadsheet editors replace the file on save, so watch the directory.
	target, err := filepath.Abs(workbook)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n\n", workbook)

	trigger := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if name, _ := filepath.Abs(event.Name); name != target {
				continue
			}
			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running tests...\n\n", workbook)
			rerun()
			fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}
