package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/runner"
	"github.com/abdul-hamid-achik/sheetspec/packages/pipeline"
	"github.com/google/uuid"
)

// AllureResult is the allure2 result file format, one per test case.
type AllureResult struct {
	UUID          string            `json:"uuid"`
	HistoryID     string            `json:"historyId"`
	Name          string            `json:"name"`
	FullName      string            `json:"fullName"`
	Status        string            `json:"status"`
	StatusDetails *AllureDetails    `json:"statusDetails,omitempty"`
	Stage         string            `json:"stage"`
	Start         int64             `json:"start"`
	Stop          int64             `json:"stop"`
	Labels        []AllureLabel     `json:"labels"`
	Parameters    []AllureParameter `json:"parameters,omitempty"`
}

type AllureDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

type AllureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type AllureParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureFormatter writes <uuid>-result.json files into a results
// directory that `allure generate` can render.
type AllureFormatter struct {
	dir     string
	results []AllureResult
	newID   func() string
}

type AllureOption func(*AllureFormatter)

// AllureWithIDGenerator replaces the uuid generator used for file names.
func AllureWithIDGenerator(fn func() string) AllureOption {
	return func(f *AllureFormatter) {
		f.newID = fn
	}
}

func NewAllureFormatter(dir string, opts ...AllureOption) *AllureFormatter {
	f := &AllureFormatter{
		dir:   dir,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *AllureFormatter) FormatEvent(ev runner.Event) {}

func (f *AllureFormatter) FormatReport(report *pipeline.Report) {
	start := report.Started.UnixMilli()
	for _, r := range report.Rows {
		res := AllureResult{
			UUID:      f.newID(),
			HistoryID: uuid.NewSHA1(uuid.NameSpaceURL, []byte(r.DisplayName()+"|"+r.Method+" "+r.URL)).String(),
			Name:      r.DisplayName(),
			FullName:  report.Name + ": " + r.DisplayName(),
			Status:    allureStatus(r.Verdict),
			Stage:     "finished",
			Start:     start,
			Stop:      start + int64(elapsedMs(r)),
			Labels: []AllureLabel{
				{Name: "suite", Value: r.APIName},
				{Name: "parentSuite", Value: report.Name},
				{Name: "framework", Value: "sheetspec"},
			},
			Parameters: []AllureParameter{
				{Name: "method", Value: r.Method},
				{Name: "url", Value: r.URL},
				{Name: "expected status", Value: fmt.Sprintf("%d", r.ExpectedStatusCode)},
				{Name: "expected time (ms)", Value: fmt.Sprintf("%g", r.ExpectedTimeMs)},
			},
		}
		if msgs := failures(r); len(msgs) > 0 {
			res.StatusDetails = &AllureDetails{
				Message: strings.Join(msgs, "\n"),
				Trace:   r.ResponseSnippet,
			}
		}
		f.results = append(f.results, res)
	}
}

// allureStatus maps FAIL to failed and UNMATCHED to broken, so a request
// that never ran is shown apart from one that ran and failed.
func allureStatus(v model.Verdict) string {
	switch v {
	case model.VerdictPass:
		return "passed"
	case model.VerdictFail:
		return "failed"
	default:
		return "broken"
	}
}

func (f *AllureFormatter) FormatError(err error) {}

func (f *AllureFormatter) FormatHeader(version string) {}

// Flush writes one file per accumulated result.
func (f *AllureFormatter) Flush(totalDuration time.Duration) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating allure results dir: %w", err)
	}
	for _, res := range f.results {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		path := filepath.Join(f.dir, res.UUID+"-result.json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing allure result: %w", err)
		}
	}
	return nil
}

// GenerateAllure runs `<command> generate <resultsDir> --clean -o <reportDir>`.
func GenerateAllure(ctx context.Context, command, resultsDir, reportDir string) error {
	if command == "" {
		command = "allure"
	}
	cmd := exec.CommandContext(ctx, command, "generate", resultsDir, "--clean", "-o", reportDir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("allure generate: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
