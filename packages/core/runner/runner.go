package runner

import (
	"context"
	"sync"

	"github.com/abdul-hamid-achik/sheetspec/packages/assertions"
	"github.com/abdul-hamid-achik/sheetspec/packages/collection"
	"github.com/abdul-hamid-achik/sheetspec/packages/http"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultConcurrency is the default number of requests in flight
	DefaultConcurrency = 5
)

type Runner struct {
	client      *http.Client
	concurrency int
	limiter     *rate.Limiter
	log         *zap.Logger
}

type Option func(*Runner)

// WithHTTPClient sets the client used to issue requests.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Runner) {
		r.client = c
	}
}

// WithConcurrency bounds the number of requests in flight.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		r.concurrency = n
	}
}

// WithRate caps dispatches per second. Zero or less means unlimited.
func WithRate(perSecond float64) Option {
	return func(r *Runner) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			r.limiter = nil
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

func New(opts ...Option) *Runner {
	r := &Runner{
		concurrency: DefaultConcurrency,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = http.NewClient()
	}
	if r.concurrency <= 0 {
		r.concurrency = DefaultConcurrency
	}
	return r
}

// Run executes c in the background and returns its events. The channel is
// buffered for the whole run so a slow consumer never stalls dispatch. It
// carries one request event per item, then a done event, then closes.
func (r *Runner) Run(ctx context.Context, c *collection.Collection) <-chan Event {
	events := make(chan Event, len(c.Item)+1)
	go func() {
		defer close(events)
		r.Execute(ctx, c, func(ev Event) {
			events <- ev
		})
	}()
	return events
}

// Execute runs c and calls handle for every event. Request events are
// delivered from worker goroutines and may be concurrent; handle must be
// safe for that. The done event is delivered last, after all request
// events have returned. Execute returns after the done event.
//
// Cancelling ctx stops dispatch: items not yet started are reported as
// request events carrying the context error.
func (r *Runner) Execute(ctx context.Context, c *collection.Collection, handle func(Event)) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.concurrency)

	for i, item := range c.Item {
		if err := r.acquire(ctx, sem); err != nil {
			handle(Event{Kind: EventRequest, Index: i, Item: item, Err: err})
			continue
		}

		wg.Add(1)
		go func(idx int, item collection.Item) {
			defer wg.Done()
			defer func() { <-sem }()

			handle(r.execute(ctx, idx, item))
		}(i, item)
	}

	wg.Wait()
	r.log.Debug("collection run complete", zap.String("collection", c.Info.Name), zap.Int("items", len(c.Item)))
	handle(DoneEvent())
}

func (r *Runner) acquire(ctx context.Context, sem chan struct{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) execute(ctx context.Context, idx int, item collection.Item) Event {
	ev := Event{Kind: EventRequest, Index: idx, Item: item}

	r.log.Debug("dispatching request",
		zap.Int("index", idx),
		zap.String("name", item.Name),
		zap.String("method", item.Request.Method),
		zap.String("url", item.Request.URL),
	)

	resp, err := r.client.Do(ctx, http.NewRequest(item.Request.Method, item.Request.URL))
	if err != nil {
		ev.Err = err
		return ev
	}
	ev.Response = resp
	ev.Assertions = assertions.EvaluateAll(resp, item.Assertions)
	return ev
}
