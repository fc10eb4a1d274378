// Package runner executes a collection and reports each request as an
// event.
//
// It provides functionality for:
//   - Concurrent dispatch with a bounded number of in-flight requests
//   - Optional rate limiting of dispatches
//   - Evaluation of each item's inline assertions
//   - A terminal done event once every request has been reported
//
// Request events arrive in completion order, which is unrelated to the
// order of items in the collection.
package runner
