package output

import (
	"path/filepath"
	"strings"
	"time"
)

// Artifacts names the files a run writes under one output directory. All
// names share the run timestamp so files from one run sort together.
type Artifacts struct {
	Dir   string
	Stamp string
}

// NewArtifacts stamps artifact names with t.
func NewArtifacts(dir string, t time.Time) Artifacts {
	if dir == "" {
		dir = "reports"
	}
	return Artifacts{Dir: dir, Stamp: Timestamp(t)}
}

// Timestamp formats t as UTC ISO-8601 with millisecond precision, with
// ':' and '.' replaced so it is safe in file names.
func Timestamp(t time.Time) string {
	s := t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	return strings.NewReplacer(":", "-", ".", "-").Replace(s)
}

func (a Artifacts) Workbook() string      { return a.path("api_test_results_%s.xlsx") }
func (a Artifacts) HTML() string          { return a.path("report_%s.html") }
func (a Artifacts) JSON() string          { return a.path("report_%s.json") }
func (a Artifacts) JUnit() string         { return a.path("junit_%s.xml") }
func (a Artifacts) TAP() string           { return a.path("report_%s.tap") }
func (a Artifacts) Collection() string    { return a.path("temp_collection_%s.json") }
func (a Artifacts) AllureResults() string { return a.path("allure-results-%s") }
func (a Artifacts) AllureReport() string  { return a.path("allure-report-%s") }
func (a Artifacts) Metrics() string       { return filepath.Join(a.Dir, "sheetspec.prom") }

func (a Artifacts) path(pattern string) string {
	return filepath.Join(a.Dir, strings.Replace(pattern, "%s", a.Stamp, 1))
}
