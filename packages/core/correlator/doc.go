// Package correlator folds runner events into execution outcomes.
//
// Events arrive in completion order from concurrent workers. An
// Accumulator appends one outcome per successful request and drops
// request errors. Its outcomes can only be read once the terminal done
// event has been handled, so reconciliation never races the run.
//
// Basic usage:
//
//	acc := correlator.NewAccumulator(correlator.WithLogger(log))
//	r.Execute(ctx, coll, acc.Handle)
//	outcomes, err := acc.Outcomes(ctx)
//
// Or fold a runner channel directly:
//
//	res, err := correlator.Collect(ctx, r.Run(ctx, coll))
package correlator
