// Package output provides formatters for displaying and exporting run
// results.
//
// Supported output formats:
//   - Console: colored live lines plus a result table
//   - JSON: machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//   - HTML: standalone HTML report
//   - Allure: one result file per case for the allure tool
//
// Formatters that accumulate results before writing implement Flushable.
// The styled xlsx workbook lives in the sheet package.
package output
