package reconcile

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
)

// Key selects the field used to pair a case with an outcome.
type Key string

const (
	// KeyURL pairs on exact URL equality. The first outcome wins, so cases
	// sharing a URL share its outcome.
	KeyURL Key = "url"
	// KeyID pairs on the item id assigned when the collection was built.
	KeyID Key = "id"
)

// ParseKey accepts "url" or "id", case-insensitively. Empty means KeyURL.
func ParseKey(s string) (Key, error) {
	switch Key(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyURL:
		return KeyURL, nil
	case KeyID:
		return KeyID, nil
	default:
		return "", fmt.Errorf("unknown correlation key %q (want url or id)", s)
	}
}

type options struct {
	key Key
}

type Option func(*options)

func WithKey(k Key) Option {
	return func(o *options) {
		o.key = k
	}
}

// Reconcile returns one row per case, in case order.
func Reconcile(cases []model.TestCase, outcomes []model.ExecutionOutcome, opts ...Option) []model.ResultRow {
	o := &options{key: KeyURL}
	for _, opt := range opts {
		opt(o)
	}

	index := indexOutcomes(outcomes, o.key)
	rows := make([]model.ResultRow, len(cases))
	for i, tc := range cases {
		out, ok := index[keyOf(tc, o.key)]
		if !ok {
			rows[i] = model.ResultRow{TestCase: tc, Verdict: model.VerdictUnmatched}
			continue
		}
		rows[i] = Judge(tc, out)
	}
	return rows
}

// Judge computes the verdict for a matched pair. PASS needs the status to
// equal the expected code and the time to be strictly below the limit.
func Judge(tc model.TestCase, out model.ExecutionOutcome) model.ResultRow {
	status := out.ActualStatusCode
	elapsed := out.ActualResponseTimeMs

	verdict := model.VerdictFail
	if model.SameValue(status, tc.ExpectedStatusCode) && elapsed < tc.ExpectedTimeMs {
		verdict = model.VerdictPass
	}

	return model.ResultRow{
		TestCase:             tc,
		ActualStatusCode:     &status,
		ActualResponseTimeMs: &elapsed,
		ResponseSnippet:      out.ResponseSnippet,
		Verdict:              verdict,
	}
}

// indexOutcomes keeps the first outcome seen for each key.
func indexOutcomes(outcomes []model.ExecutionOutcome, key Key) map[string]model.ExecutionOutcome {
	index := make(map[string]model.ExecutionOutcome, len(outcomes))
	for _, out := range outcomes {
		k := out.URL
		if key == KeyID {
			k = out.ItemID
		}
		if k == "" {
			continue
		}
		if _, exists := index[k]; !exists {
			index[k] = out
		}
	}
	return index
}

func keyOf(tc model.TestCase, key Key) string {
	if key == KeyID {
		return tc.ID
	}
	return tc.URL
}
