// Package newman imports the JSON report written by
// `newman run --reporters json` so a run executed outside sheetspec can be
// correlated and reconciled the same way as an in-process run.
//
// Each entry of run.executions becomes a runner event. Executions that
// carry a requestError become error events and are dropped by the
// correlator like any other failed request.
package newman
