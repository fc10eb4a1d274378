package output

import (
	"fmt"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
)

// failures describes why a row did not pass. It is empty for PASS.
func failures(r model.ResultRow) []string {
	switch r.Verdict {
	case model.VerdictPass:
		return nil
	case model.VerdictUnmatched:
		return []string{fmt.Sprintf("no response recorded for %s %s", r.Method, r.URL)}
	}

	var out []string
	if r.ActualStatusCode != nil && !model.SameValue(*r.ActualStatusCode, r.ExpectedStatusCode) {
		out = append(out, fmt.Sprintf("status: expected %d, got %d", r.ExpectedStatusCode, *r.ActualStatusCode))
	}
	if r.ActualResponseTimeMs != nil && !(*r.ActualResponseTimeMs < r.ExpectedTimeMs) {
		out = append(out, fmt.Sprintf("response time: expected < %gms, got %.1fms", r.ExpectedTimeMs, *r.ActualResponseTimeMs))
	}
	return out
}

func elapsedMs(r model.ResultRow) float64 {
	if r.ActualResponseTimeMs == nil {
		return 0
	}
	return *r.ActualResponseTimeMs
}
