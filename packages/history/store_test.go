package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite://" + filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRows() []model.ResultRow {
	status, elapsed := 200, 42.5
	return []model.ResultRow{
		{
			TestCase:             model.TestCase{Row: 2, APIName: "users", TestCase: "list", Method: "GET", URL: "http://x/a", ExpectedStatusCode: 200, ExpectedTimeMs: 500},
			ActualStatusCode:     &status,
			ActualResponseTimeMs: &elapsed,
			ResponseSnippet:      "[]",
			Verdict:              model.VerdictPass,
		},
		{
			TestCase: model.TestCase{Row: 3, APIName: "users", TestCase: "get", Method: "GET", URL: "http://x/b", ExpectedStatusCode: 200, ExpectedTimeMs: 500},
			Verdict:  model.VerdictUnmatched,
		},
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []string{
		"sqlite://" + filepath.Join(dir, "a.db"),
		"sqlite:" + filepath.Join(dir, "b.db"),
		filepath.Join(dir, "c.db"),
	}
	for _, dsn := range tests {
		s, err := Open(dsn)
		require.NoError(t, err, dsn)
		require.NoError(t, s.Close())
	}

	_, err := Open("  ")
	assert.Error(t, err)
}

func TestStore_RecordAndResults(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := s.Record(ctx, Run{
		StartedAt:  started,
		Collection: "smoke",
		Workbook:   "cases.xlsx",
		Summary:    reconcile.Summary{Total: 2, Passed: 1, Unmatched: 1},
		Dropped:    1,
		Duration:   1250 * time.Millisecond,
	}, sampleRows())
	require.NoError(t, err)
	assert.Positive(t, id)

	rows, err := s.Results(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)

	last, err := s.Last(ctx, "smoke")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, id, last.ID)
	assert.True(t, started.Equal(last.StartedAt))
	assert.Equal(t, "cases.xlsx", last.Workbook)
	assert.Equal(t, reconcile.Summary{Total: 2, Passed: 1, Unmatched: 1}, last.Summary)
	assert.Equal(t, 1, last.Dropped)
	assert.Equal(t, 1250*time.Millisecond, last.Duration)
}

func TestStore_Last(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	last, err := s.Last(ctx, "smoke")
	require.NoError(t, err)
	assert.Nil(t, last)

	for i := 0; i < 3; i++ {
		_, err := s.Record(ctx, Run{StartedAt: time.Now(), Collection: "smoke", Summary: reconcile.Summary{Total: i}}, nil)
		require.NoError(t, err)
	}
	_, err = s.Record(ctx, Run{StartedAt: time.Now(), Collection: "other"}, nil)
	require.NoError(t, err)

	last, err = s.Last(ctx, "smoke")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 2, last.Summary.Total)
}

func TestStore_Recent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Record(ctx, Run{StartedAt: time.Now(), Collection: name}, nil)
		require.NoError(t, err)
	}

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].Collection)
	assert.Equal(t, "b", runs[1].Collection)

	runs, err = s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(ctx, Run{StartedAt: time.Now(), Collection: "smoke"}, sampleRows())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestPath(t *testing.T) {
	assert.Equal(t, "runs.db", Path("sqlite://runs.db"))
	assert.Equal(t, "runs.db", Path("sqlite:runs.db"))
	assert.Equal(t, "/tmp/runs.db", Path(" /tmp/runs.db "))
}
