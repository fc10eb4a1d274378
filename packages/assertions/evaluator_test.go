package assertions

import (
	"testing"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/collection"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/http"
	"github.com/stretchr/testify/assert"
)

func createResponse(statusCode int, body string, duration time.Duration) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       []byte(body),
		Duration:   duration,
	}
}

func TestEvaluator_Status(t *testing.T) {
	resp := createResponse(200, `{}`, 100*time.Millisecond)

	tests := []struct {
		name     string
		expected any
		passed   bool
	}{
		{"int", 200, true},
		{"float from json", 200.0, true},
		{"string", "200", true},
		{"mismatch", 404, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewEvaluator(resp).Evaluate(collection.Assertion{
				Subject:  collection.SubjectStatus,
				Operator: collection.OpEquals,
				Expected: tt.expected,
			})
			assert.Equal(t, tt.passed, result.Passed, "Message: %s", result.Message)
			assert.Equal(t, 200, result.Actual)
		})
	}
}

func TestEvaluator_DurationStrict(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		passed   bool
	}{
		{"below", 120 * time.Millisecond, true},
		{"equal fails", 500 * time.Millisecond, false},
		{"above", 900 * time.Millisecond, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewEvaluator(createResponse(200, `{}`, tt.duration)).Evaluate(collection.Assertion{
				Subject:  collection.SubjectDuration,
				Operator: collection.OpLessThan,
				Expected: 500.0,
			})
			assert.Equal(t, tt.passed, result.Passed, "Message: %s", result.Message)
		})
	}
}

func TestEvaluator_BuiltAssertions(t *testing.T) {
	c := collection.Build("api", []model.TestCase{
		{Row: 2, APIName: "users", Method: "GET", URL: "http://example.test/users", ExpectedStatusCode: 200, ExpectedTimeMs: 500},
		{Row: 3, APIName: "orders", URL: "", ExpectedStatusCode: 404, ExpectedTimeMs: 250.5},
	})
	resp := createResponse(200, `{}`, 100*time.Millisecond)

	for _, item := range c.Item {
		for _, a := range item.Assertions {
			result := NewEvaluator(resp).Evaluate(a)
			assert.NotContains(t, result.Message, "unknown", "%s %s", a.Subject, a.Operator)
			assert.NotNil(t, result.Actual, "%s %s", a.Subject, a.Operator)
		}
	}

	results := EvaluateAll(resp, c.Item[0].Assertions)
	assert.True(t, AllPassed(results))
	results = EvaluateAll(resp, c.Item[1].Assertions)
	assert.False(t, results[0].Passed)
	assert.True(t, results[1].Passed)
}

func TestEvaluator_Errors(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{"id": 1}`, time.Millisecond))

	tests := []struct {
		name      string
		assertion collection.Assertion
		message   string
	}{
		{"unknown subject", collection.Assertion{Subject: "latency", Operator: "<", Expected: 1}, "unknown assertion subject"},
		{"body subject", collection.Assertion{Subject: "body.id", Operator: "==", Expected: 1}, "unknown assertion subject"},
		{"header subject", collection.Assertion{Subject: "header Content-Type", Operator: "==", Expected: "application/json"}, "unknown assertion subject"},
		{"unknown operator", collection.Assertion{Subject: "status", Operator: "~", Expected: 1}, "unknown operator"},
		{"not equals", collection.Assertion{Subject: "status", Operator: "!=", Expected: 500}, "unknown operator"},
		{"less or equal", collection.Assertion{Subject: "duration", Operator: "<=", Expected: 500}, "unknown operator"},
		{"non-numeric bound", collection.Assertion{Subject: "duration", Operator: "<", Expected: "fast"}, "non-numeric"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(tt.assertion)
			assert.False(t, result.Passed)
			assert.Contains(t, result.Message, tt.message)
		})
	}
}

func TestEvaluateAll(t *testing.T) {
	resp := createResponse(200, `{}`, 10*time.Millisecond)
	results := EvaluateAll(resp, []collection.Assertion{
		{Subject: collection.SubjectStatus, Operator: collection.OpEquals, Expected: 200},
		{Subject: collection.SubjectDuration, Operator: collection.OpLessThan, Expected: 500},
	})
	assert.Len(t, results, 2)
	assert.True(t, AllPassed(results))

	results = EvaluateAll(resp, []collection.Assertion{
		{Subject: collection.SubjectStatus, Operator: collection.OpEquals, Expected: 201},
	})
	assert.False(t, AllPassed(results))
	assert.True(t, AllPassed(nil))
}
