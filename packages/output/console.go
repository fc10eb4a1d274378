package output

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/runner"
	"github.com/abdul-hamid-achik/sheetspec/packages/metrics"
	"github.com/abdul-hamid-achik/sheetspec/packages/pipeline"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// formatValue formats a value for display, truncating large values
func formatValue(v any, maxLen int) string {
	str := fmt.Sprintf("%v", v)
	return model.Truncate(str, maxLen)
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// FormatEvent prints one line per finished request as the run progresses.
func (f *ConsoleFormatter) FormatEvent(ev runner.Event) {
	if ev.Kind != runner.EventRequest {
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if ev.Err != nil {
		fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), ev.Item.Name, red(fmt.Sprintf("(%v)", ev.Err)))
		return
	}

	symbol := green("✓")
	if !ev.Passed() {
		symbol = red("✗")
	}
	fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, ev.Item.Name, cyan(fmt.Sprintf("(%dms)", ev.Response.Duration.Milliseconds())))

	if f.verbose {
		fmt.Fprintf(f.writer, "    %s %s -> %d\n", ev.Item.Request.Method, ev.Item.Request.URL, ev.Response.StatusCode)
	}

	if !ev.Passed() {
		for _, a := range ev.Assertions {
			if a.Passed {
				continue
			}
			fmt.Fprintf(f.writer, "    %s %s %s\n", red("→"), a.Subject, a.Operator)
			fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(a.Expected, 100))
			fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(a.Actual, 100))
		}
	}
}

// FormatReport prints the result table and the run summary.
func (f *ConsoleFormatter) FormatReport(report *pipeline.Report) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(f.writer, "\n")
	f.renderTable(report)

	s := report.Summary
	fmt.Fprintf(f.writer, "\nTests: ")
	if s.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", s.Passed)))
	}
	if s.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", s.Failed)))
	}
	if s.Unmatched > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d unmatched", s.Unmatched)))
	}
	fmt.Fprintf(f.writer, "%d total\n", s.Total)

	if report.Dropped > 0 {
		fmt.Fprintf(f.writer, "Errors: %s\n", red(fmt.Sprintf("%d requests failed without a response", report.Dropped)))
	}
	if report.Latency.Count > 0 {
		l := report.Latency
		fmt.Fprintf(f.writer, "Latency: p50 %.1fms, p95 %.1fms, p99 %.1fms, max %.1fms\n",
			metrics.Ms(l.P50), metrics.Ms(l.P95), metrics.Ms(l.P99), metrics.Ms(l.Max))
	}
	if report.Interrupted {
		fmt.Fprintf(f.writer, "%s\n", yellow("Run interrupted; results are partial"))
	}
	fmt.Fprintf(f.writer, "Time:  %dms\n\n", report.Duration.Milliseconds())
}

func (f *ConsoleFormatter) renderTable(report *pipeline.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(f.writer)
	t.SetTitle(report.Name)

	t.AppendHeader(table.Row{"#", "API", "Case", "Method", "URL", "Expected", "Actual", "Time (ms)", "Result"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "URL", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Expected", Align: text.AlignRight},
		{Name: "Actual", Align: text.AlignRight},
		{Name: "Time (ms)", Align: text.AlignRight},
	})

	for i, r := range report.Rows {
		actual, elapsed := "-", "-"
		if r.ActualStatusCode != nil {
			actual = strconv.Itoa(*r.ActualStatusCode)
		}
		if r.ActualResponseTimeMs != nil {
			elapsed = strconv.FormatFloat(*r.ActualResponseTimeMs, 'f', 1, 64)
		}
		t.AppendRow(table.Row{
			i + 1,
			r.APIName,
			r.TestCase.TestCase,
			r.Method,
			r.URL,
			fmt.Sprintf("%d < %gms", r.ExpectedStatusCode, r.ExpectedTimeMs),
			actual,
			elapsed,
			f.verdict(r.Verdict),
		})
	}

	switch {
	case f.noColor:
		t.SetStyle(table.StyleDefault)
	case report.Summary.Failed > 0:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case report.Summary.Unmatched > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	overall := "PASS"
	if !report.OK() {
		overall = "FAIL"
	}
	t.AppendFooter(table.Row{"", "TOTAL", report.Summary.Total, "", "", "", "", "", overall})
	t.Render()
}

func (f *ConsoleFormatter) verdict(v model.Verdict) string {
	if f.noColor {
		return v.String()
	}
	switch v {
	case model.VerdictPass:
		return color.GreenString(v.String())
	case model.VerdictFail:
		return color.RedString(v.String())
	default:
		return color.YellowString(v.String())
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("sheetspec"), version)
}
