package metrics

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/reconcile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "sheetspec"

// Run is what gets exported for one pipeline run.
type Run struct {
	Collection string
	Summary    reconcile.Summary
	Latency    Latency
	Dropped    int
	Duration   time.Duration
	Finished   time.Time
}

type collectors struct {
	results   *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	latency   *prometheus.GaugeVec
	duration  *prometheus.GaugeVec
	timestamp *prometheus.GaugeVec
}

func newCollectors(reg prometheus.Registerer) *collectors {
	factory := promauto.With(reg)
	return &collectors{
		results: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "results_total",
			Help:      "Test cases by verdict",
		}, []string{"collection", "result"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "request_errors_total",
			Help:      "Requests that failed without a response",
		}, []string{"collection"}),
		latency: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "response_time_ms",
			Help:      "Response time percentiles in milliseconds",
		}, []string{"collection", "quantile"}),
		duration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the run",
		}, []string{"collection"}),
		timestamp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished",
		}, []string{"collection"}),
	}
}

func (c *collectors) record(run Run) {
	name := run.Collection
	for verdict, n := range map[model.Verdict]int{
		model.VerdictPass:      run.Summary.Passed,
		model.VerdictFail:      run.Summary.Failed,
		model.VerdictUnmatched: run.Summary.Unmatched,
	} {
		c.results.WithLabelValues(name, verdict.String()).Add(float64(n))
	}
	c.dropped.WithLabelValues(name).Add(float64(run.Dropped))

	if run.Latency.Count > 0 {
		for q, d := range run.Latency.Quantiles() {
			c.latency.WithLabelValues(name, q).Set(Ms(d))
		}
	}
	c.duration.WithLabelValues(name).Set(run.Duration.Seconds())
	if !run.Finished.IsZero() {
		c.timestamp.WithLabelValues(name).Set(float64(run.Finished.Unix()))
	}
}

// WriteTextfile writes run to path in the Prometheus text format. The
// file is replaced atomically.
func WriteTextfile(path string, run Run) error {
	reg := prometheus.NewRegistry()
	newCollectors(reg).record(run)
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
