package correlator

import (
	"context"
	"errors"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/runner"
)

// ErrIncompleteRun is returned when the event stream ends without a done
// event. The outcomes gathered up to that point are still returned.
var ErrIncompleteRun = errors.New("event stream closed before done")

type Result struct {
	Outcomes []model.ExecutionOutcome
	Dropped  int
}

// Collect folds events until the done event arrives. If the channel closes
// early it returns the partial result with ErrIncompleteRun. If ctx ends
// first it returns the partial result with ctx.Err().
func Collect(ctx context.Context, events <-chan runner.Event, opts ...Option) (Result, error) {
	acc := NewAccumulator(opts...)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return acc.result(), ErrIncompleteRun
			}
			acc.Handle(ev)
			if ev.Kind == runner.EventDone {
				return acc.result(), nil
			}
		case <-ctx.Done():
			return acc.result(), ctx.Err()
		}
	}
}

func (a *Accumulator) result() Result {
	return Result{Outcomes: a.snapshot(), Dropped: a.Dropped()}
}
