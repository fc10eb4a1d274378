package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/config"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/runner"
	"github.com/abdul-hamid-achik/sheetspec/packages/history"
	"github.com/abdul-hamid-achik/sheetspec/packages/metrics"
	"github.com/abdul-hamid-achik/sheetspec/packages/notify"
	"github.com/abdul-hamid-achik/sheetspec/packages/output"
	"github.com/abdul-hamid-achik/sheetspec/packages/pipeline"
	"github.com/abdul-hamid-achik/sheetspec/packages/sheet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Flags shared by the commands that produce a report.
var (
	sheetFlag          string
	nameFlag           string
	correlateFlag      string
	snippetLengthFlag  int
	outputFlag         string
	outputFileFlag     string
	outputDirFlag      string
	reportersFlag      []string
	historyFlag        string
	metricsFileFlag    string
	allureGenerateFlag bool

	// Notification flags
	notifyFlag       string
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string
	teamsWebhookFlag string
)

func addReportFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&sheetFlag, "sheet", getEnvString("SHEETSPEC_SHEET", ""), "Sheet to read (default: first sheet) (env: SHEETSPEC_SHEET)")
	f.StringVarP(&nameFlag, "name", "n", getEnvString("SHEETSPEC_NAME", ""), "Collection name (env: SHEETSPEC_NAME)")
	f.StringVar(&correlateFlag, "correlate", getEnvString("SHEETSPEC_CORRELATE", ""), "Pair results with rows by: url, id (env: SHEETSPEC_CORRELATE)")
	f.IntVar(&snippetLengthFlag, "snippet-length", getEnvInt("SHEETSPEC_SNIPPET_LENGTH", 0), "Characters of response body kept per row (env: SHEETSPEC_SNIPPET_LENGTH)")

	// Output flags
	f.StringVarP(&outputFlag, "output", "o", getEnvString("SHEETSPEC_OUTPUT", "console"), "Output format: console, json, junit, tap, html (env: SHEETSPEC_OUTPUT)")
	f.StringVar(&outputFileFlag, "output-file", getEnvString("SHEETSPEC_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: SHEETSPEC_OUTPUT_FILE)")
	f.StringVar(&outputDirFlag, "output-dir", getEnvString("SHEETSPEC_OUTPUT_DIR", ""), "Directory for report files (env: SHEETSPEC_OUTPUT_DIR)")
	f.StringSliceVar(&reportersFlag, "reporters", nil, "Report files to write: xlsx, html, json, junit, tap, allure, prometheus")
	f.StringVar(&historyFlag, "history", getEnvString("SHEETSPEC_HISTORY", ""), "SQLite database recording run history (env: SHEETSPEC_HISTORY)")
	f.StringVar(&metricsFileFlag, "metrics-file", getEnvString("SHEETSPEC_METRICS_FILE", ""), "Write Prometheus textfile metrics to this path (env: SHEETSPEC_METRICS_FILE)")
	f.BoolVar(&allureGenerateFlag, "allure-generate", getEnvBool("SHEETSPEC_ALLURE_GENERATE", false), "Run 'allure generate' on the results (env: SHEETSPEC_ALLURE_GENERATE)")

	// Notification flags
	f.StringVar(&notifyFlag, "notify", getEnvString("SHEETSPEC_NOTIFY", ""), "Notification service: slack, teams (env: SHEETSPEC_NOTIFY)")
	f.StringVar(&notifyOnFlag, "notify-on", getEnvString("SHEETSPEC_NOTIFY_ON", ""), "When to notify: always, failure, success, recovery (env: SHEETSPEC_NOTIFY_ON)")
	f.StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack webhook URL (env: SLACK_WEBHOOK)")
	f.StringVar(&slackChannelFlag, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")
	f.StringVar(&teamsWebhookFlag, "teams-webhook", getEnvString("TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL (env: TEAMS_WEBHOOK)")
}

// reportOverrides returns the report settings given on the command line.
// Zero values leave the config file setting in place.
func reportOverrides(cmd *cobra.Command) *config.Config {
	o := &config.Config{
		Sheet:          sheetFlag,
		CollectionName: nameFlag,
		Correlate:      correlateFlag,
		SnippetLength:  snippetLengthFlag,
		OutputDir:      outputDirFlag,
		Reporters:      reportersFlag,
		History:        historyFlag,
		Notify: config.Notify{
			On:           notifyOnFlag,
			SlackWebhook: slackWebhookFlag,
			SlackChannel: slackChannelFlag,
			TeamsWebhook: teamsWebhookFlag,
		},
	}
	if cmd.Flags().Changed("allure-generate") || os.Getenv("SHEETSPEC_ALLURE_GENERATE") != "" {
		o.Allure.Generate = config.BoolPtr(allureGenerateFlag)
	}
	return o
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatEvent(ev runner.Event)
	FormatReport(report *pipeline.Report)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// newFormatter builds the formatter named by format writing to w. A nil w
// means stdout.
func newFormatter(format string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(format) {
	case "json":
		opts := []output.JSONOption{}
		if w != nil {
			opts = append(opts, output.JSONWithWriter(w))
		}
		return output.NewJSONFormatter(opts...), nil
	case "junit":
		opts := []output.JUnitOption{}
		if w != nil {
			opts = append(opts, output.JUnitWithWriter(w))
		}
		return output.NewJUnitFormatter(opts...), nil
	case "tap":
		opts := []output.TAPOption{}
		if w != nil {
			opts = append(opts, output.TAPWithWriter(w))
		}
		return output.NewTAPFormatter(opts...), nil
	case "html":
		opts := []output.HTMLOption{}
		if w != nil {
			opts = append(opts, output.HTMLWithWriter(w))
		}
		return output.NewHTMLFormatter(opts...), nil
	case "", "console":
		consoleOpts := []output.ConsoleOption{
			output.WithVerbose(verboseFlag),
			output.WithNoColor(noColorFlag || quietFlag),
		}
		if w != nil {
			consoleOpts = append(consoleOpts, output.WithWriter(w))
		}
		return output.NewConsoleFormatter(consoleOpts...), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// buildNotifier returns nil when no notification service is configured.
func buildNotifier(rc *config.Config, services string) (*notify.Manager, error) {
	if services == "" {
		return nil, nil
	}
	on, err := notify.ParseNotifyOn(rc.Notify.On)
	if err != nil {
		return nil, err
	}

	m := notify.NewManager(on)
	for _, service := range strings.Split(services, ",") {
		switch strings.ToLower(strings.TrimSpace(service)) {
		case "slack":
			if rc.Notify.SlackWebhook == "" {
				return nil, fmt.Errorf("--slack-webhook is required when using --notify slack")
			}
			slackOpts := []notify.SlackOption{}
			if rc.Notify.SlackChannel != "" {
				slackOpts = append(slackOpts, notify.WithSlackChannel(rc.Notify.SlackChannel))
			}
			m.AddNotifier(notify.NewSlackNotifier(rc.Notify.SlackWebhook, slackOpts...))
		case "teams":
			if rc.Notify.TeamsWebhook == "" {
				return nil, fmt.Errorf("--teams-webhook is required when using --notify teams")
			}
			m.AddNotifier(notify.NewTeamsNotifier(rc.Notify.TeamsWebhook))
		case "":
		default:
			return nil, fmt.Errorf("unknown notification service %q", service)
		}
	}
	if m.Len() == 0 {
		return nil, nil
	}
	return m, nil
}

// reporterSet validates the reporter names.
func reporterSet(names []string) (map[string]bool, error) {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		switch n = strings.ToLower(strings.TrimSpace(n)); n {
		case "xlsx", "html", "json", "junit", "tap", "allure", "prometheus":
			set[n] = true
		case "", "console":
		default:
			return nil, fmt.Errorf("unknown reporter %q", n)
		}
	}
	return set, nil
}

// publisher writes everything a finished report feeds: stdout output, the
// report files, metrics, history and notifications.
type publisher struct {
	rc        *config.Config
	table     *sheet.Table
	reporters map[string]bool
	notifier  *notify.Manager
	keepColl  bool
}

func (p *publisher) publish(ctx context.Context, report *pipeline.Report) error {
	arts := output.NewArtifacts(p.rc.OutputDir, report.Started)
	if err := os.MkdirAll(arts.Dir, 0755); err != nil {
		return withExit(ExitConfigError, fmt.Errorf("creating output directory: %w", err))
	}

	if p.reporters["xlsx"] {
		path := arts.Workbook()
		if err := sheet.Write(path, p.table.Sheet, p.table.Headers, report.Rows); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		logger.Info("wrote workbook", zap.String("path", path))
	}

	files := map[string]string{
		"html":  arts.HTML(),
		"json":  arts.JSON(),
		"junit": arts.JUnit(),
		"tap":   arts.TAP(),
	}
	for _, name := range []string{"html", "json", "junit", "tap"} {
		if !p.reporters[name] {
			continue
		}
		if err := writeReportFile(files[name], name, report); err != nil {
			return err
		}
		logger.Info("wrote report", zap.String("format", name), zap.String("path", files[name]))
	}

	if p.reporters["allure"] {
		dir := arts.AllureResults()
		allure := output.NewAllureFormatter(dir)
		allure.FormatReport(report)
		if err := allure.Flush(report.Duration); err != nil {
			return fmt.Errorf("writing allure results: %w", err)
		}
		logger.Info("wrote allure results", zap.String("dir", dir))

		if p.rc.GetAllureGenerate() {
			if err := output.GenerateAllure(ctx, p.rc.Allure.Command, dir, arts.AllureReport()); err != nil {
				logger.Warn("allure report generation failed", zap.Error(err))
			} else {
				logger.Info("generated allure report", zap.String("dir", arts.AllureReport()))
			}
		}
	}

	if p.keepColl && report.Collection != nil {
		path := arts.Collection()
		if err := report.Collection.Save(path); err != nil {
			return err
		}
		logger.Info("kept collection", zap.String("path", path))
	}

	metricsPath := metricsFileFlag
	if metricsPath == "" && p.reporters["prometheus"] {
		metricsPath = arts.Metrics()
	}
	if metricsPath != "" {
		err := metrics.WriteTextfile(metricsPath, metrics.Run{
			Collection: report.Name,
			Summary:    report.Summary,
			Latency:    report.Latency,
			Dropped:    report.Dropped,
			Duration:   report.Duration,
			Finished:   report.Started.Add(report.Duration),
		})
		if err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		logger.Info("wrote metrics", zap.String("path", metricsPath))
	}

	if p.rc.History != "" {
		if err := p.record(ctx, report); err != nil {
			logger.Warn("recording run history failed", zap.Error(err))
		}
	}

	if p.notifier != nil {
		if err := p.notifier.Notify(notify.NewRunSummary(report, p.rc.Workbook)); err != nil {
			logger.Warn("failed to send notification", zap.Error(err))
		}
	}
	return nil
}

// record stores the run and seeds the notifier with the previous outcome
// of the same collection.
func (p *publisher) record(ctx context.Context, report *pipeline.Report) error {
	store, err := history.Open(p.rc.History)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx = context.WithoutCancel(ctx)
	if p.notifier != nil {
		prev, err := store.Last(ctx, report.Name)
		if err != nil {
			return err
		}
		if prev != nil {
			p.notifier.SetLastState(prev.Summary.OK())
		}
	}

	id, err := store.Record(ctx, history.Run{
		StartedAt:  report.Started,
		Collection: report.Name,
		Workbook:   p.rc.Workbook,
		Summary:    report.Summary,
		Dropped:    report.Dropped,
		Duration:   report.Duration,
	}, report.Rows)
	if err != nil {
		return err
	}
	logger.Debug("recorded run", zap.Int64("id", id))
	return nil
}

func writeReportFile(path, format string, report *pipeline.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create report file: %w", err)
	}
	defer f.Close()

	formatter, err := newFormatter(format, f)
	if err != nil {
		return err
	}
	formatter.FormatHeader(version)
	formatter.FormatReport(report)
	if flushable, ok := formatter.(Flushable); ok {
		if err := flushable.Flush(report.Duration); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

// verdictError maps a finished report to the command's exit status.
func verdictError(report *pipeline.Report) error {
	switch {
	case report.Summary.Total > 0 && report.Dropped >= report.Summary.Total:
		return withExit(ExitNetworkError, fmt.Errorf("none of the %d requests got a response", report.Summary.Total))
	case !report.OK():
		return withExit(ExitTestFailure, nil)
	}
	return nil
}
