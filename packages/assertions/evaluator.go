package assertions

import (
	"fmt"

	"github.com/abdul-hamid-achik/sheetspec/packages/collection"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/http"
)

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

type Evaluator struct {
	response *http.Response
}

func NewEvaluator(resp *http.Response) *Evaluator {
	return &Evaluator{response: resp}
}

func (e *Evaluator) Evaluate(assertion collection.Assertion) *Result {
	result := &Result{
		Subject:  assertion.Subject,
		Operator: assertion.Operator,
		Expected: assertion.Expected,
	}

	actual, err := e.getActualValue(assertion.Subject)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	result.Actual = actual

	result.Passed, result.Message = compare(actual, assertion.Operator, assertion.Expected)
	return result
}

func (e *Evaluator) getActualValue(subject string) (any, error) {
	switch subject {
	case collection.SubjectStatus:
		return e.response.StatusCode, nil
	case collection.SubjectDuration:
		return e.response.DurationMs(), nil
	default:
		return nil, fmt.Errorf("unknown assertion subject: %q", subject)
	}
}

func compare(actual any, op string, expected any) (bool, string) {
	switch op {
	case collection.OpEquals:
		if model.SameValue(actual, expected) {
			return true, ""
		}
		return false, fmt.Sprintf("expected %v, got %v", expected, actual)
	case collection.OpLessThan:
		return lessThan(actual, expected)
	default:
		return false, fmt.Sprintf("unknown operator: %q", op)
	}
}

// lessThan is strict: a value equal to the bound fails.
func lessThan(actual, expected any) (bool, string) {
	actualNum, aOk := model.ToNumber(actual)
	expectedNum, eOk := model.ToNumber(expected)
	if !aOk || !eOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v < %v", actual, expected)
	}
	if actualNum < expectedNum {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v < %v", actual, expected)
}

// EvaluateAll runs every assertion against resp.
func EvaluateAll(resp *http.Response, assertions []collection.Assertion) []*Result {
	evaluator := NewEvaluator(resp)
	results := make([]*Result, len(assertions))
	for i, a := range assertions {
		results[i] = evaluator.Evaluate(a)
	}
	return results
}

// AllPassed reports whether every result passed. An empty list passes.
func AllPassed(results []*Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
