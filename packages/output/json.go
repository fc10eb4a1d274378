package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/runner"
	"github.com/abdul-hamid-achik/sheetspec/packages/metrics"
	"github.com/abdul-hamid-achik/sheetspec/packages/pipeline"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Collection  string       `json:"collection"`
	Summary     JSONSummary  `json:"summary"`
	Results     []JSONResult `json:"results"`
	Latency     *JSONLatency `json:"latency,omitempty"`
	Interrupted bool         `json:"interrupted,omitempty"`
	Duration    float64      `json:"duration"`
	Time        string       `json:"time"`
}

type JSONSummary struct {
	Total     int     `json:"total"`
	Passed    int     `json:"passed"`
	Failed    int     `json:"failed"`
	Unmatched int     `json:"unmatched"`
	Dropped   int     `json:"dropped"`
	PassRate  float64 `json:"passRate"`
}

// JSONResult is one reconciled row. Actual values are null when the row
// is UNMATCHED.
type JSONResult struct {
	Row                int               `json:"row,omitempty"`
	ID                 string            `json:"id,omitempty"`
	APIName            string            `json:"apiName"`
	TestCase           string            `json:"testCase"`
	Method             string            `json:"method"`
	URL                string            `json:"url"`
	ExpectedStatusCode int               `json:"expectedStatusCode"`
	ExpectedTimeMs     float64           `json:"expectedTimeMs"`
	ActualStatusCode   *int              `json:"actualStatusCode"`
	ActualResponseTime *float64          `json:"actualResponseTime"`
	Result             string            `json:"result"`
	ResponseSnippet    string            `json:"responseSnippet,omitempty"`
	Extra              map[string]string `json:"extra,omitempty"`
}

type JSONLatency struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// JSONFormatter formats run results as JSON
type JSONFormatter struct {
	writer io.Writer
	output JSONOutput
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		output: JSONOutput{Results: make([]JSONResult, 0)},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatEvent(ev runner.Event) {}

func (f *JSONFormatter) FormatReport(report *pipeline.Report) {
	s := report.Summary
	f.output.Collection = report.Name
	f.output.Interrupted = report.Interrupted
	f.output.Summary = JSONSummary{
		Total:     s.Total,
		Passed:    s.Passed,
		Failed:    s.Failed,
		Unmatched: s.Unmatched,
		Dropped:   report.Dropped,
		PassRate:  s.PassRate(),
	}

	for _, r := range report.Rows {
		f.output.Results = append(f.output.Results, JSONResult{
			Row:                r.Row,
			ID:                 r.ID,
			APIName:            r.APIName,
			TestCase:           r.TestCase.TestCase,
			Method:             r.Method,
			URL:                r.URL,
			ExpectedStatusCode: r.ExpectedStatusCode,
			ExpectedTimeMs:     r.ExpectedTimeMs,
			ActualStatusCode:   r.ActualStatusCode,
			ActualResponseTime: r.ActualResponseTimeMs,
			Result:             r.Verdict.String(),
			ResponseSnippet:    r.ResponseSnippet,
			Extra:              r.Extra,
		})
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

func (f *JSONFormatter) FormatError(err error) {
	// Request errors are reflected in the UNMATCHED rows
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	f.output.Duration = float64(totalDuration.Milliseconds())
	f.output.Time = time.Now().Format(time.RFC3339)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.output)
}
