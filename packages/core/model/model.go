package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultMethod is used when a row leaves Method empty
	DefaultMethod = "GET"
	// SnippetLength is the number of characters kept from a response body
	SnippetLength = 150
)

// Recognised column names of the input sheet.
const (
	ColAPIName            = "API_Name"
	ColTestCase           = "Test_Case"
	ColMethod             = "Method"
	ColURL                = "URL"
	ColExpectedStatusCode = "Expected_Status_Code"
	ColExpectedTimeMs     = "Expected_Time_ms"
)

// Columns appended to every output row.
const (
	ColActualStatusCode   = "Actual_Status_Code"
	ColActualResponseTime = "Actual_Response_Time"
	ColResult             = "Result"
	ColResponseSnippet    = "Response_Snippet"
)

// InputColumns lists the recognised input columns in canonical order.
var InputColumns = []string{
	ColAPIName, ColTestCase, ColMethod, ColURL, ColExpectedStatusCode, ColExpectedTimeMs,
}

// ResultColumns lists the columns added by reconciliation.
var ResultColumns = []string{
	ColActualStatusCode, ColActualResponseTime, ColResult, ColResponseSnippet,
}

var (
	ErrMissingURL    = errors.New("missing URL")
	ErrInvalidNumber = errors.New("invalid number")
)

type TestCase struct {
	Row                int
	ID                 string
	APIName            string
	TestCase           string
	Method             string
	URL                string
	ExpectedStatusCode int
	ExpectedTimeMs     float64
	// Extra holds unrecognised columns so they survive into the report.
	Extra map[string]string
}

// DisplayName is the request name used in collections and reports.
func (tc TestCase) DisplayName() string {
	return tc.APIName + " - " + tc.TestCase
}

type ExecutionOutcome struct {
	ItemID               string
	Name                 string
	URL                  string
	ActualStatusCode     int
	ActualResponseTimeMs float64
	ResponseSnippet      string
}

type Verdict string

const (
	VerdictPass      Verdict = "PASS"
	VerdictFail      Verdict = "FAIL"
	VerdictUnmatched Verdict = "UNMATCHED"
)

// Valid reports whether v is one of the three known verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictPass, VerdictFail, VerdictUnmatched:
		return true
	}
	return false
}

func (v Verdict) String() string {
	return string(v)
}

// ResultRow is a TestCase annotated with what was observed. The actual
// fields are nil when the verdict is UNMATCHED.
type ResultRow struct {
	TestCase
	ActualStatusCode     *int
	ActualResponseTimeMs *float64
	ResponseSnippet      string
	Verdict              Verdict
}

// Matched reports whether an outcome was joined to this row.
func (r ResultRow) Matched() bool {
	return r.ActualStatusCode != nil
}

// Truncate keeps the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// FieldError describes a problem with one field of one row.
type FieldError struct {
	Row    int
	Column string
	Value  any
	Err    error
}

func (e *FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Column, e.Err)
	}
	return fmt.Sprintf("row %d: %s %q: %v", e.Row, e.Column, fmt.Sprint(e.Value), e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// FromRecord converts a row object keyed by column name into a TestCase.
// Method keeps the case written in the sheet; only surrounding whitespace
// is removed and a blank cell becomes GET. It never fails: fields that cannot be converted are left at their zero
// value and reported in the returned diagnostics.
func FromRecord(row int, record map[string]any) (TestCase, []error) {
	var diags []error
	tc := TestCase{
		Row:      row,
		APIName:  toString(record[ColAPIName]),
		TestCase: toString(record[ColTestCase]),
		Method:   strings.TrimSpace(toString(record[ColMethod])),
		URL:      strings.TrimSpace(toString(record[ColURL])),
	}
	if tc.Method == "" {
		tc.Method = DefaultMethod
	}

	if v, ok := record[ColExpectedStatusCode]; ok && !isBlank(v) {
		f, ok := ToNumber(v)
		if !ok || f != math.Trunc(f) {
			diags = append(diags, &FieldError{Row: row, Column: ColExpectedStatusCode, Value: v, Err: ErrInvalidNumber})
		} else {
			tc.ExpectedStatusCode = int(f)
		}
	}

	if v, ok := record[ColExpectedTimeMs]; ok && !isBlank(v) {
		f, ok := ToNumber(v)
		if !ok {
			diags = append(diags, &FieldError{Row: row, Column: ColExpectedTimeMs, Value: v, Err: ErrInvalidNumber})
		} else {
			tc.ExpectedTimeMs = f
		}
	}

	for k, v := range record {
		if isKnownColumn(k) {
			continue
		}
		if tc.Extra == nil {
			tc.Extra = make(map[string]string)
		}
		tc.Extra[k] = toString(v)
	}

	diags = append(diags, Validate(tc)...)
	return tc, diags
}

// Validate reports required fields that are missing. A malformed row is
// still executable; these are diagnostics, not failures.
func Validate(tc TestCase) []error {
	var errs []error
	if tc.URL == "" {
		errs = append(errs, &FieldError{Row: tc.Row, Column: ColURL, Err: ErrMissingURL})
	}
	return errs
}

// ToNumber converts ints, floats and numeric strings to float64.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// SameValue compares two scalars the way a loosely typed sheet expects:
// 200, 200.0 and "200" are all equal.
func SameValue(a, b any) bool {
	af, aOk := ToNumber(a)
	bf, bOk := ToNumber(b)
	if aOk && bOk {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func isKnownColumn(name string) bool {
	for _, c := range InputColumns {
		if c == name {
			return true
		}
	}
	return false
}
