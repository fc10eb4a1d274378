// Package pipeline wires the stages of a sheetspec run together: build a
// collection from test cases, execute it, fold the events into outcomes
// and reconcile them against the cases once the run reports done.
package pipeline
