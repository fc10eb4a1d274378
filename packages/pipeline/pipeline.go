package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/collection"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/correlator"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/reconcile"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/runner"
	"github.com/abdul-hamid-achik/sheetspec/packages/metrics"
	"go.uber.org/zap"
)

// Report is the outcome of one run.
type Report struct {
	Name       string
	Collection *collection.Collection
	Rows       []model.ResultRow
	Summary    reconcile.Summary
	// Dropped counts requests that errored and produced no outcome.
	Dropped  int
	Started  time.Time
	Duration time.Duration
	Latency  metrics.Latency
	// Interrupted is set when the context ended before every request ran.
	Interrupted bool
}

// OK reports whether every case passed.
func (r *Report) OK() bool {
	return r.Summary.OK()
}

type settings struct {
	name          string
	runner        *runner.Runner
	key           reconcile.Key
	snippetLength int
	collection    *collection.Collection
	idGen         func() string
	onEvent       func(runner.Event)
	log           *zap.Logger
}

type Option func(*settings)

// WithName sets the collection name.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

func WithRunner(r *runner.Runner) Option {
	return func(s *settings) {
		s.runner = r
	}
}

// WithKey selects how outcomes are paired with cases.
func WithKey(k reconcile.Key) Option {
	return func(s *settings) {
		s.key = k
	}
}

func WithSnippetLength(n int) Option {
	return func(s *settings) {
		s.snippetLength = n
	}
}

// WithCollection binds imported runs to the collection that was executed,
// so item ids can be used as the correlation key.
func WithCollection(c *collection.Collection) Option {
	return func(s *settings) {
		s.collection = c
	}
}

// WithIDGenerator replaces the generator used for collection item ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) {
		s.idGen = fn
	}
}

// OnEvent registers fn to see every runner event. Calls are serialised.
func OnEvent(fn func(runner.Event)) Option {
	return func(s *settings) {
		s.onEvent = fn
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		s.log = l
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{
		name: collection.DefaultName,
		key:  reconcile.KeyURL,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = runner.New(runner.WithLogger(s.log))
	}
	return s
}

func (s *settings) accumulatorOptions() []correlator.Option {
	return []correlator.Option{
		correlator.WithSnippetLength(s.snippetLength),
		correlator.WithLogger(s.log),
	}
}

// Execute runs cases end to end. Cancelling ctx stops dispatch; the report
// then covers a partial run and the cases that never ran are UNMATCHED.
func Execute(ctx context.Context, cases []model.TestCase, opts ...Option) (*Report, error) {
	s := newSettings(opts)
	started := time.Now()

	var buildOpts []collection.Option
	if s.idGen != nil {
		buildOpts = append(buildOpts, collection.WithIDGenerator(s.idGen))
	}
	coll := collection.Build(s.name, cases, buildOpts...)
	if err := coll.Validate(); err != nil {
		return nil, fmt.Errorf("built collection is invalid: %w", err)
	}
	bound := coll.Bind(cases)

	s.log.Info("running collection",
		zap.String("collection", coll.Info.Name),
		zap.Int("cases", len(cases)),
		zap.String("key", string(s.key)),
	)

	acc := correlator.NewAccumulator(s.accumulatorOptions()...)
	var mu sync.Mutex
	s.runner.Execute(ctx, coll, func(ev runner.Event) {
		if s.onEvent != nil {
			mu.Lock()
			s.onEvent(ev)
			mu.Unlock()
		}
		acc.Handle(ev)
	})

	// Execute has delivered the done event, so this does not block.
	outcomes, err := acc.Outcomes(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}

	report := finish(s, coll, bound, outcomes, acc.Dropped(), started)
	report.Interrupted = ctx.Err() != nil
	return report, nil
}

// ReconcileExternal reconciles cases against events produced by a runner
// outside this process, such as an imported newman report. events must end
// with a done event; if it closes early the partial report is returned
// with correlator.ErrIncompleteRun.
func ReconcileExternal(ctx context.Context, cases []model.TestCase, events <-chan runner.Event, opts ...Option) (*Report, error) {
	s := newSettings(opts)
	started := time.Now()

	coll := s.collection
	bound := cases
	if coll != nil {
		bound = coll.Bind(cases)
	}

	res, err := correlator.Collect(ctx, events, s.accumulatorOptions()...)
	report := finish(s, coll, bound, res.Outcomes, res.Dropped, started)
	if err != nil {
		report.Interrupted = true
		return report, err
	}
	return report, nil
}

func finish(s *settings, coll *collection.Collection, cases []model.TestCase, outcomes []model.ExecutionOutcome, dropped int, started time.Time) *Report {
	rows := reconcile.Reconcile(cases, outcomes, reconcile.WithKey(s.key))
	summary := reconcile.Summarize(rows)

	name := s.name
	if coll != nil {
		name = coll.Info.Name
	}

	report := &Report{
		Name:       name,
		Collection: coll,
		Rows:       rows,
		Summary:    summary,
		Dropped:    dropped,
		Started:    started,
		Duration:   time.Since(started),
		Latency:    metrics.Compute(outcomes),
	}

	s.log.Info("run reconciled",
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("unmatched", summary.Unmatched),
		zap.Int("dropped", dropped),
		zap.Duration("duration", report.Duration),
	)
	return report
}
