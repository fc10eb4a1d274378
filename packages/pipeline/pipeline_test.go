package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/collection"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/correlator"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/reconcile"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/runner"
	sheethttp "github.com/abdul-hamid-achik/sheetspec/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":1}]`))
		case "/slow":
			time.Sleep(60 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		case "/created":
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestExecute(t *testing.T) {
	server := newServer(t)
	cases := []model.TestCase{
		{APIName: "users", TestCase: "list", Method: "GET", URL: server.URL + "/users", ExpectedStatusCode: 200, ExpectedTimeMs: 2000},
		{APIName: "users", TestCase: "slow", Method: "GET", URL: server.URL + "/slow", ExpectedStatusCode: 200, ExpectedTimeMs: 10},
		{APIName: "users", TestCase: "missing", Method: "GET", URL: server.URL + "/nope", ExpectedStatusCode: 200, ExpectedTimeMs: 2000},
		{APIName: "users", TestCase: "create", Method: "POST", URL: server.URL + "/created", ExpectedStatusCode: 201, ExpectedTimeMs: 2000},
		{APIName: "orders", TestCase: "no url", Method: "GET", URL: "", ExpectedStatusCode: 200, ExpectedTimeMs: 2000},
	}

	var events atomic.Int32
	var sawDone atomic.Bool
	report, err := Execute(context.Background(), cases,
		WithName("smoke"),
		OnEvent(func(ev runner.Event) {
			events.Add(1)
			if ev.Kind == runner.EventDone {
				sawDone.Store(true)
			}
		}),
	)
	require.NoError(t, err)

	require.Len(t, report.Rows, len(cases))
	want := []model.Verdict{
		model.VerdictPass,
		model.VerdictFail,
		model.VerdictFail,
		model.VerdictPass,
		model.VerdictUnmatched,
	}
	for i, v := range want {
		assert.Equal(t, v, report.Rows[i].Verdict, "row %d (%s)", i, cases[i].TestCase)
		assert.Equal(t, cases[i].URL, report.Rows[i].URL)
		assert.NotEmpty(t, report.Rows[i].ID)
	}

	assert.Equal(t, `[{"id":1}]`, report.Rows[0].ResponseSnippet)
	assert.Equal(t, 404, *report.Rows[2].ActualStatusCode)
	assert.Nil(t, report.Rows[4].ActualStatusCode)

	assert.Equal(t, "smoke", report.Name)
	assert.Equal(t, reconcile.Summary{Total: 5, Passed: 2, Failed: 2, Unmatched: 1}, report.Summary)
	assert.False(t, report.OK())
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, int64(4), report.Latency.Count)
	assert.False(t, report.Interrupted)
	assert.Len(t, report.Collection.Item, 5)

	assert.Equal(t, int32(6), events.Load())
	assert.True(t, sawDone.Load())
}

func TestExecute_DuplicateURLs(t *testing.T) {
	server := newServer(t)
	cases := []model.TestCase{
		{APIName: "users", TestCase: "first", URL: server.URL + "/users", ExpectedStatusCode: 200, ExpectedTimeMs: 2000},
		{APIName: "users", TestCase: "second", URL: server.URL + "/users", ExpectedStatusCode: 404, ExpectedTimeMs: 2000},
	}

	t.Run("url key shares the first outcome", func(t *testing.T) {
		report, err := Execute(context.Background(), cases)
		require.NoError(t, err)
		assert.Equal(t, *report.Rows[0].ActualStatusCode, *report.Rows[1].ActualStatusCode)
		assert.Equal(t, model.VerdictPass, report.Rows[0].Verdict)
		assert.Equal(t, model.VerdictFail, report.Rows[1].Verdict)
	})

	t.Run("id key pairs each case with its own request", func(t *testing.T) {
		report, err := Execute(context.Background(), cases, WithKey(reconcile.KeyID))
		require.NoError(t, err)
		assert.True(t, report.Rows[0].Matched())
		assert.True(t, report.Rows[1].Matched())
		assert.NotEqual(t, report.Rows[0].ID, report.Rows[1].ID)
	})
}

func TestExecute_AllPass(t *testing.T) {
	server := newServer(t)
	cases := []model.TestCase{
		{APIName: "users", TestCase: "list", URL: server.URL + "/users", ExpectedStatusCode: 200, ExpectedTimeMs: 5000},
	}
	report, err := Execute(context.Background(), cases, WithSnippetLength(3))
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, `[{"`, report.Rows[0].ResponseSnippet)
}

func TestExecute_Empty(t *testing.T) {
	report, err := Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	assert.Equal(t, collection.DefaultName, report.Name)
	assert.True(t, report.OK())
}

func TestExecute_Cancelled(t *testing.T) {
	server := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []model.TestCase{
		{APIName: "users", TestCase: "list", URL: server.URL + "/users", ExpectedStatusCode: 200, ExpectedTimeMs: 2000},
		{APIName: "users", TestCase: "slow", URL: server.URL + "/slow", ExpectedStatusCode: 200, ExpectedTimeMs: 2000},
	}
	report, err := Execute(ctx, cases, WithRunner(runner.New(runner.WithHTTPClient(sheethttp.NewClient()))))
	require.NoError(t, err)
	assert.True(t, report.Interrupted)
	for _, row := range report.Rows {
		assert.Equal(t, model.VerdictUnmatched, row.Verdict)
	}
	assert.Equal(t, 2, report.Dropped)
}

func TestExecute_IDGenerator(t *testing.T) {
	server := newServer(t)
	var n atomic.Int32
	gen := func() string {
		return "id-" + strings.Repeat("x", int(n.Add(1)))
	}
	cases := []model.TestCase{{APIName: "users", TestCase: "list", URL: server.URL + "/users", ExpectedStatusCode: 200, ExpectedTimeMs: 2000}}

	report, err := Execute(context.Background(), cases, WithIDGenerator(gen))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(report.Rows[0].ID, "id-"))
	assert.Equal(t, report.Collection.Item[0].ID, report.Rows[0].ID)
}

func externalEvents(events ...runner.Event) <-chan runner.Event {
	ch := make(chan runner.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestReconcileExternal(t *testing.T) {
	cases := []model.TestCase{
		{APIName: "users", TestCase: "list", URL: "http://x/a", ExpectedStatusCode: 200, ExpectedTimeMs: 500},
		{APIName: "users", TestCase: "get", URL: "http://x/b", ExpectedStatusCode: 200, ExpectedTimeMs: 500},
	}
	events := externalEvents(
		runner.Event{
			Kind:     runner.EventRequest,
			Item:     collection.Item{Request: collection.Request{URL: "http://x/a"}},
			Response: &sheethttp.Response{StatusCode: 200, Duration: 120 * time.Millisecond},
		},
		runner.DoneEvent(),
	)

	report, err := ReconcileExternal(context.Background(), cases, events)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictPass, report.Rows[0].Verdict)
	assert.Equal(t, model.VerdictUnmatched, report.Rows[1].Verdict)
	assert.Nil(t, report.Collection)
	assert.False(t, report.Interrupted)
}

func TestReconcileExternal_ByID(t *testing.T) {
	cases := []model.TestCase{
		{APIName: "users", TestCase: "first", URL: "http://x/c", ExpectedStatusCode: 200, ExpectedTimeMs: 500},
		{APIName: "users", TestCase: "second", URL: "http://x/c", ExpectedStatusCode: 500, ExpectedTimeMs: 500},
	}
	ids := []string{"c1", "i1", "i2"}
	coll := collection.Build("imported", cases, collection.WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	events := externalEvents(
		runner.Event{Kind: runner.EventRequest, Item: collection.Item{ID: "i2", Request: collection.Request{URL: "http://x/c"}},
			Response: &sheethttp.Response{StatusCode: 500, Duration: time.Millisecond}},
		runner.Event{Kind: runner.EventRequest, Item: collection.Item{ID: "i1", Request: collection.Request{URL: "http://x/c"}},
			Response: &sheethttp.Response{StatusCode: 200, Duration: time.Millisecond}},
		runner.DoneEvent(),
	)

	report, err := ReconcileExternal(context.Background(), cases, events, WithCollection(coll), WithKey(reconcile.KeyID))
	require.NoError(t, err)
	assert.Equal(t, "imported", report.Name)
	assert.Equal(t, model.VerdictPass, report.Rows[0].Verdict)
	assert.Equal(t, model.VerdictPass, report.Rows[1].Verdict)
}

func TestReconcileExternal_Incomplete(t *testing.T) {
	cases := []model.TestCase{{APIName: "users", TestCase: "list", URL: "http://x/a", ExpectedStatusCode: 200, ExpectedTimeMs: 500}}
	events := externalEvents(runner.Event{
		Kind:     runner.EventRequest,
		Item:     collection.Item{Request: collection.Request{URL: "http://x/a"}},
		Response: &sheethttp.Response{StatusCode: 200, Duration: time.Millisecond},
	})

	report, err := ReconcileExternal(context.Background(), cases, events)
	assert.ErrorIs(t, err, correlator.ErrIncompleteRun)
	require.NotNil(t, report)
	assert.True(t, report.Interrupted)
	assert.Equal(t, model.VerdictPass, report.Rows[0].Verdict)
}
