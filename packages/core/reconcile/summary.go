package reconcile

import "github.com/abdul-hamid-achik/sheetspec/packages/core/model"

type Summary struct {
	Total     int
	Passed    int
	Failed    int
	Unmatched int
}

func Summarize(rows []model.ResultRow) Summary {
	s := Summary{Total: len(rows)}
	for _, r := range rows {
		switch r.Verdict {
		case model.VerdictPass:
			s.Passed++
		case model.VerdictFail:
			s.Failed++
		case model.VerdictUnmatched:
			s.Unmatched++
		}
	}
	return s
}

// OK reports whether every row passed.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Unmatched == 0
}

// PassRate is the share of passing rows as a percentage.
func (s Summary) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total) * 100
}
