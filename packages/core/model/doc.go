// Package model defines the records that flow through sheetspec.
//
// A TestCase is one spreadsheet row describing a request and its pass
// criteria. An ExecutionOutcome is what a runner observed when it issued
// that request. A ResultRow joins the two with a Verdict.
package model
