// Package reconcile joins test cases with execution outcomes and decides a
// verdict for each case.
//
// Reconcile is pure and synchronous. It expects the complete outcome set,
// so callers run it only after the correlator has seen the done event.
// Output rows are always in input order, one per case.
package reconcile
