package correlator

import (
	"context"
	"sync"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/runner"
	"go.uber.org/zap"
)

type Accumulator struct {
	mu            sync.Mutex
	outcomes      []model.ExecutionOutcome
	dropped       int
	finished      bool
	done          chan struct{}
	snippetLength int
	log           *zap.Logger
}

type Option func(*Accumulator)

// WithSnippetLength sets how many runes of each body are kept.
func WithSnippetLength(n int) Option {
	return func(a *Accumulator) {
		if n > 0 {
			a.snippetLength = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Accumulator) {
		a.log = l
	}
}

func NewAccumulator(opts ...Option) *Accumulator {
	a := &Accumulator{
		done:          make(chan struct{}),
		snippetLength: model.SnippetLength,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle records one event. It is safe to call from many goroutines.
// Request errors are logged and dropped. The done event closes Done, and
// anything handled after it is ignored.
func (a *Accumulator) Handle(ev runner.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finished {
		return
	}

	switch ev.Kind {
	case runner.EventDone:
		a.finished = true
		close(a.done)
	case runner.EventRequest:
		if ev.Err != nil || ev.Response == nil {
			a.dropped++
			a.log.Warn("request failed, no outcome recorded",
				zap.String("name", ev.Item.Name),
				zap.String("url", ev.Item.Request.URL),
				zap.Error(ev.Err),
			)
			return
		}
		a.outcomes = append(a.outcomes, a.outcome(ev))
	}
}

func (a *Accumulator) outcome(ev runner.Event) model.ExecutionOutcome {
	return model.ExecutionOutcome{
		ItemID:               ev.Item.ID,
		Name:                 ev.Item.Name,
		URL:                  ev.Item.Request.URL,
		ActualStatusCode:     ev.Response.StatusCode,
		ActualResponseTimeMs: ev.Response.DurationMs(),
		ResponseSnippet:      model.Truncate(ev.Response.BodyString(), a.snippetLength),
	}
}

// Done is closed once the done event has been handled.
func (a *Accumulator) Done() <-chan struct{} {
	return a.done
}

// Outcomes waits for the done event and returns the outcomes in the order
// they were handled. It returns ctx.Err() if ctx ends first.
func (a *Accumulator) Outcomes(ctx context.Context) ([]model.ExecutionOutcome, error) {
	select {
	case <-a.done:
		return a.snapshot(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dropped returns the number of request errors seen so far.
func (a *Accumulator) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

func (a *Accumulator) snapshot() []model.ExecutionOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.ExecutionOutcome, len(a.outcomes))
	copy(out, a.outcomes)
	return out
}
