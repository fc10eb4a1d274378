package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
)

const (
	// histogram range in microseconds: 1us to 60s
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
	sigFigs      = 3
)

// Latency describes the response time distribution of a run.
type Latency struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	P99   time.Duration
}

// Compute builds the latency distribution of outcomes.
func Compute(outcomes []model.ExecutionOutcome) Latency {
	h := hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs)
	for _, o := range outcomes {
		_ = h.RecordValue(toMicros(o.ActualResponseTimeMs))
	}
	if h.TotalCount() == 0 {
		return Latency{}
	}

	return Latency{
		Count: h.TotalCount(),
		Min:   usToDuration(h.Min()),
		Max:   usToDuration(h.Max()),
		Mean:  time.Duration(h.Mean() * float64(time.Microsecond)),
		P50:   usToDuration(h.ValueAtQuantile(50)),
		P90:   usToDuration(h.ValueAtQuantile(90)),
		P95:   usToDuration(h.ValueAtQuantile(95)),
		P99:   usToDuration(h.ValueAtQuantile(99)),
	}
}

// Quantiles returns the percentile values keyed by quantile label.
func (l Latency) Quantiles() map[string]time.Duration {
	return map[string]time.Duration{
		"0.5":  l.P50,
		"0.9":  l.P90,
		"0.95": l.P95,
		"0.99": l.P99,
	}
}

func toMicros(ms float64) int64 {
	us := int64(ms * 1000)
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	return us
}

func usToDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

// Ms converts d to fractional milliseconds.
func Ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
