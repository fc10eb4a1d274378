package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/runner"
	"github.com/abdul-hamid-achik/sheetspec/packages/metrics"
	"github.com/abdul-hamid-achik/sheetspec/packages/pipeline"
)

// HTMLOutput represents the complete HTML output structure
type HTMLOutput struct {
	Version          string
	Collection       string
	Summary          HTMLSummary
	Rows             []HTMLRow
	Latency          *JSONLatency
	Interrupted      bool
	Duration         float64
	Time             string
	PassedPercent    float64
	FailedPercent    float64
	UnmatchedPercent float64
}

// HTMLSummary represents the run summary for HTML output
type HTMLSummary struct {
	Total     int
	Passed    int
	Failed    int
	Unmatched int
	Dropped   int
}

// HTMLRow represents a single result row for HTML output
type HTMLRow struct {
	Number      int
	APIName     string
	TestCase    string
	Method      string
	URL         string
	Expected    string
	Actual      string
	Time        string
	Result      string
	StatusClass string
	Snippet     string
	Failures    []string
}

// HTMLFormatter formats run results as a standalone HTML page
type HTMLFormatter struct {
	writer  io.Writer
	output  HTMLOutput
	version string
}

// HTMLOption is a functional option for HTMLFormatter
type HTMLOption func(*HTMLFormatter)

// NewHTMLFormatter creates a new HTML formatter
func NewHTMLFormatter(opts ...HTMLOption) *HTMLFormatter {
	f := &HTMLFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// HTMLWithWriter sets the output writer
func HTMLWithWriter(w io.Writer) HTMLOption {
	return func(f *HTMLFormatter) {
		f.writer = w
	}
}

func (f *HTMLFormatter) FormatEvent(ev runner.Event) {}

// FormatReport accumulates the report rows
func (f *HTMLFormatter) FormatReport(report *pipeline.Report) {
	s := report.Summary
	f.output.Collection = report.Name
	f.output.Interrupted = report.Interrupted
	f.output.Summary = HTMLSummary{
		Total:     s.Total,
		Passed:    s.Passed,
		Failed:    s.Failed,
		Unmatched: s.Unmatched,
		Dropped:   report.Dropped,
	}

	for _, r := range report.Rows {
		row := HTMLRow{
			Number:      len(f.output.Rows) + 1,
			APIName:     r.APIName,
			TestCase:    r.TestCase.TestCase,
			Method:      r.Method,
			URL:         r.URL,
			Expected:    fmt.Sprintf("%d in < %gms", r.ExpectedStatusCode, r.ExpectedTimeMs),
			Actual:      "-",
			Time:        "-",
			Result:      r.Verdict.String(),
			StatusClass: statusClass(r.Verdict),
			Snippet:     r.ResponseSnippet,
			Failures:    failures(r),
		}
		if r.ActualStatusCode != nil {
			row.Actual = fmt.Sprintf("%d", *r.ActualStatusCode)
		}
		if r.ActualResponseTimeMs != nil {
			row.Time = fmt.Sprintf("%.1fms", *r.ActualResponseTimeMs)
		}
		f.output.Rows = append(f.output.Rows, row)
	}

	if l := report.Latency; l.Count > 0 {
		f.output.Latency = &JSONLatency{
			Count: l.Count,
			Min:   metrics.Ms(l.Min),
			Mean:  metrics.Ms(l.Mean),
			P50:   metrics.Ms(l.P50),
			P90:   metrics.Ms(l.P90),
			P95:   metrics.Ms(l.P95),
			P99:   metrics.Ms(l.P99),
			Max:   metrics.Ms(l.Max),
		}
	}
}

func statusClass(v model.Verdict) string {
	switch v {
	case model.VerdictPass:
		return "passed"
	case model.VerdictFail:
		return "failed"
	default:
		return "unmatched"
	}
}

// FormatError handles errors (no-op for HTML, errors are in the rows)
func (f *HTMLFormatter) FormatError(err error) {}

// FormatHeader captures the version for the HTML report
func (f *HTMLFormatter) FormatHeader(version string) {
	f.version = version
}

// Flush writes the accumulated HTML output
func (f *HTMLFormatter) Flush(totalDuration time.Duration) error {
	out := f.output
	out.Version = f.version
	out.Duration = float64(totalDuration.Milliseconds())
	out.Time = time.Now().Format("2006-01-02 15:04:05")

	if total := out.Summary.Total; total > 0 {
		out.PassedPercent = float64(out.Summary.Passed) / float64(total) * 100
		out.FailedPercent = float64(out.Summary.Failed) / float64(total) * 100
		out.UnmatchedPercent = float64(out.Summary.Unmatched) / float64(total) * 100
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse HTML template: %w", err)
	}
	return tmpl.Execute(f.writer, out)
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>sheetspec report{{if .Collection}} - {{.Collection}}{{end}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.5rem; margin-bottom: 0.25rem; }
.meta { color: #666; font-size: 0.85rem; margin-bottom: 1.5rem; }
.cards { display: flex; gap: 1rem; margin-bottom: 1rem; }
.card { padding: 0.75rem 1.25rem; border-radius: 6px; background: #f4f4f4; min-width: 7rem; }
.card .n { font-size: 1.5rem; font-weight: 600; }
.bar { display: flex; height: 10px; border-radius: 5px; overflow: hidden; background: #eee; margin-bottom: 1.5rem; }
.bar .passed { background: #2e9d4b; }
.bar .failed { background: #d64541; }
.bar .unmatched { background: #e0b400; }
table { border-collapse: collapse; width: 100%; font-size: 0.9rem; }
th, td { border-bottom: 1px solid #e5e5e5; padding: 0.4rem 0.6rem; text-align: left; vertical-align: top; }
th { background: #fafafa; }
td.result { font-weight: 600; }
tr.passed td.result { color: #2e9d4b; }
tr.failed td.result { color: #d64541; }
tr.unmatched td.result { color: #a07f00; }
.url { word-break: break-all; }
.detail { color: #555; font-size: 0.8rem; }
pre { margin: 0.25rem 0 0; white-space: pre-wrap; font-size: 0.8rem; background: #f8f8f8; padding: 0.25rem; }
</style>
</head>
<body>
<h1>{{if .Collection}}{{.Collection}}{{else}}sheetspec report{{end}}</h1>
<div class="meta">Generated {{.Time}}{{if .Version}} by sheetspec {{.Version}}{{end}} &middot; {{printf "%.0f" .Duration}}ms{{if .Interrupted}} &middot; run interrupted, results are partial{{end}}</div>
<div class="cards">
  <div class="card"><div class="n">{{.Summary.Total}}</div>total</div>
  <div class="card"><div class="n">{{.Summary.Passed}}</div>passed ({{printf "%.1f" .PassedPercent}}%)</div>
  <div class="card"><div class="n">{{.Summary.Failed}}</div>failed ({{printf "%.1f" .FailedPercent}}%)</div>
  <div class="card"><div class="n">{{.Summary.Unmatched}}</div>unmatched ({{printf "%.1f" .UnmatchedPercent}}%)</div>
  {{if .Summary.Dropped}}<div class="card"><div class="n">{{.Summary.Dropped}}</div>request errors</div>{{end}}
</div>
<div class="bar">
  <div class="passed" style="width: {{printf "%.2f" .PassedPercent}}%"></div>
  <div class="failed" style="width: {{printf "%.2f" .FailedPercent}}%"></div>
  <div class="unmatched" style="width: {{printf "%.2f" .UnmatchedPercent}}%"></div>
</div>
{{with .Latency}}<p class="meta">Latency over {{.Count}} responses: p50 {{printf "%.1f" .P50}}ms &middot; p90 {{printf "%.1f" .P90}}ms &middot; p95 {{printf "%.1f" .P95}}ms &middot; p99 {{printf "%.1f" .P99}}ms &middot; max {{printf "%.1f" .Max}}ms</p>{{end}}
<table>
<thead><tr><th>#</th><th>API</th><th>Case</th><th>Method</th><th>URL</th><th>Expected</th><th>Status</th><th>Time</th><th>Result</th></tr></thead>
<tbody>
{{range .Rows}}<tr class="{{.StatusClass}}">
<td>{{.Number}}</td><td>{{.APIName}}</td><td>{{.TestCase}}</td><td>{{.Method}}</td><td class="url">{{.URL}}</td>
<td>{{.Expected}}</td><td>{{.Actual}}</td><td>{{.Time}}</td><td class="result">{{.Result}}</td>
</tr>
{{if or .Failures .Snippet}}<tr class="{{.StatusClass}}"><td></td><td colspan="8" class="detail">
{{range .Failures}}<div>{{.}}</div>{{end}}
{{if .Snippet}}<pre>{{.Snippet}}</pre>{{end}}
</td></tr>{{end}}
{{end}}
</tbody>
</table>
</body>
</html>
`
