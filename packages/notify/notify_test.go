package notify

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/reconcile"
	"github.com/abdul-hamid-achik/sheetspec/packages/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []*RunSummary
	err   error
}

func (r *recorder) Notify(s *RunSummary) error {
	r.calls = append(r.calls, s)
	return r.err
}

func (r *recorder) Name() string { return "recorder" }

func passing() *RunSummary {
	return &RunSummary{Collection: "users", Total: 2, Passed: 2}
}

func failing() *RunSummary {
	return &RunSummary{
		Collection: "users",
		Total:      3,
		Passed:     1,
		Failed:     1,
		Unmatched:  1,
		FailedResults: []FailedCase{
			{Name: "Users - list", URL: "http://api/users", Verdict: "FAIL", Detail: "got 500 in 20ms, want 200 in < 100ms"},
			{Name: "Users - get", URL: "http://api/users/1", Verdict: "UNMATCHED"},
		},
	}
}

func TestParseNotifyOn(t *testing.T) {
	for in, want := range map[string]NotifyOn{
		"":          NotifyFailure,
		"always":    NotifyAlways,
		" Failure ": NotifyFailure,
		"SUCCESS":   NotifySuccess,
		"recovery":  NotifyRecovery,
	} {
		got, err := ParseNotifyOn(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseNotifyOn("sometimes")
	assert.Error(t, err)
}

func TestManager_Policy(t *testing.T) {
	tests := []struct {
		name     string
		on       NotifyOn
		summary  *RunSummary
		expected int
	}{
		{"always on pass", NotifyAlways, passing(), 1},
		{"always on fail", NotifyAlways, failing(), 1},
		{"failure on pass", NotifyFailure, passing(), 0},
		{"failure on fail", NotifyFailure, failing(), 1},
		{"success on pass", NotifySuccess, passing(), 1},
		{"success on fail", NotifySuccess, failing(), 0},
		{"recovery on pass", NotifyRecovery, passing(), 0},
		{"recovery on fail", NotifyRecovery, failing(), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			m := NewManager(tt.on, rec)
			require.NoError(t, m.Notify(tt.summary))
			assert.Len(t, rec.calls, tt.expected)
		})
	}
}

func TestManager_UnmatchedIsFailure(t *testing.T) {
	rec := &recorder{}
	m := NewManager(NotifyFailure, rec)

	s := &RunSummary{Total: 1, Unmatched: 1}
	require.NoError(t, m.Notify(s))
	assert.Len(t, rec.calls, 1)
	assert.False(t, s.Succeeded())
	assert.Equal(t, 1, s.Problems())
}

func TestManager_Recovery(t *testing.T) {
	rec := &recorder{}
	m := NewManager(NotifyRecovery, rec)

	require.NoError(t, m.Notify(failing()))
	recovered := passing()
	require.NoError(t, m.Notify(recovered))
	require.NoError(t, m.Notify(passing()))

	require.Len(t, rec.calls, 2)
	assert.True(t, rec.calls[1].IsRecovery)
}

func TestManager_SeededLastState(t *testing.T) {
	rec := &recorder{}
	m := NewManager(NotifyRecovery, rec)
	m.SetLastState(false)

	s := passing()
	require.NoError(t, m.Notify(s))
	require.Len(t, rec.calls, 1)
	assert.True(t, s.IsRecovery)
}

func TestManager_Errors(t *testing.T) {
	good := &recorder{}
	bad := &recorder{err: errors.New("boom")}
	m := NewManager(NotifyAlways, bad)
	m.AddNotifier(good)
	assert.Equal(t, 2, m.Len())

	err := m.Notify(passing())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recorder: boom")
	assert.Len(t, good.calls, 1)
}

func TestNewRunSummary(t *testing.T) {
	status, elapsed := 500, 20.0
	report := &pipeline.Report{
		Name: "users",
		Rows: []model.ResultRow{
			{TestCase: model.TestCase{APIName: "Users", TestCase: "list", URL: "http://api/users", ExpectedStatusCode: 200, ExpectedTimeMs: 100},
				ActualStatusCode: &status, ActualResponseTimeMs: &elapsed, Verdict: model.VerdictFail},
			{TestCase: model.TestCase{APIName: "Users", TestCase: "get", URL: "http://api/users/1"}, Verdict: model.VerdictUnmatched},
			{TestCase: model.TestCase{APIName: "Users", TestCase: "ok"}, Verdict: model.VerdictPass},
		},
		Summary:  reconcile.Summary{Total: 3, Passed: 1, Failed: 1, Unmatched: 1},
		Dropped:  1,
		Duration: 2 * time.Second,
	}

	s := NewRunSummary(report, "cases.xlsx")
	assert.Equal(t, "users", s.Collection)
	assert.Equal(t, "cases.xlsx", s.Workbook)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Dropped)
	require.Len(t, s.FailedResults, 2)
	assert.Equal(t, "Users - list", s.FailedResults[0].Name)
	assert.Equal(t, "FAIL", s.FailedResults[0].Verdict)
	assert.Equal(t, "got 500 in 20ms, want 200 in < 100ms", s.FailedResults[0].Detail)
	assert.Equal(t, "UNMATCHED", s.FailedResults[1].Verdict)
	assert.Empty(t, s.FailedResults[1].Detail)
}

type webhook struct {
	mu     sync.Mutex
	status int
	bodies [][]byte
}

func (w *webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.mu.Lock()
	w.bodies = append(w.bodies, body)
	w.mu.Unlock()
	rw.WriteHeader(w.status)
}

func TestSlackNotifier(t *testing.T) {
	hook := &webhook{status: http.StatusOK}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, WithSlackChannel("#qa"), WithSlackClient(srv.Client()))
	assert.Equal(t, "slack", n.Name())
	require.NoError(t, n.Notify(failing()))

	require.Len(t, hook.bodies, 1)
	var msg slackMessage
	require.NoError(t, json.Unmarshal(hook.bodies[0], &msg))
	assert.Equal(t, "#qa", msg.Channel)
	assert.Equal(t, "sheetspec", msg.Username)
	require.Len(t, msg.Attachments, 1)
	a := msg.Attachments[0]
	assert.Equal(t, "danger", a.Color)
	assert.Contains(t, a.Title, "2 of 3 test case(s) did not pass")
	assert.Contains(t, a.Text, "`Users - list` FAIL (http://api/users)")
	assert.Contains(t, a.Text, "got 500 in 20ms")
	assert.Equal(t, "sheetspec", a.Footer)
}

func TestSlackNotifier_Recovery(t *testing.T) {
	hook := &webhook{status: http.StatusOK}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	s := passing()
	s.IsRecovery = true
	require.NoError(t, NewSlackNotifier(srv.URL).Notify(s))

	var msg slackMessage
	require.NoError(t, json.Unmarshal(hook.bodies[0], &msg))
	assert.Equal(t, "good", msg.Attachments[0].Color)
	assert.Contains(t, msg.Attachments[0].Title, "recovered")
}

func TestSlackNotifier_BadStatus(t *testing.T) {
	srv := httptest.NewServer(&webhook{status: http.StatusForbidden})
	defer srv.Close()

	err := NewSlackNotifier(srv.URL).Notify(passing())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestTeamsNotifier(t *testing.T) {
	hook := &webhook{status: http.StatusAccepted}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	n := NewTeamsNotifier(srv.URL, WithTeamsClient(srv.Client()))
	assert.Equal(t, "teams", n.Name())
	require.NoError(t, n.Notify(failing()))

	var msg teamsMessage
	require.NoError(t, json.Unmarshal(hook.bodies[0], &msg))
	require.Len(t, msg.Attachments, 1)
	body := msg.Attachments[0].Content.Body
	require.NotEmpty(t, body)
	assert.Equal(t, "attention", body[0].Color)
	assert.Len(t, body[1].Columns, 5)

	var texts []string
	for _, b := range body {
		texts = append(texts, b.Text)
	}
	assert.Contains(t, texts, "- `Users - get` UNMATCHED (http://api/users/1)")
}

func TestTeamsNotifier_BadStatus(t *testing.T) {
	srv := httptest.NewServer(&webhook{status: http.StatusInternalServerError})
	defer srv.Close()

	assert.Error(t, NewTeamsNotifier(srv.URL).Notify(failing()))
}
