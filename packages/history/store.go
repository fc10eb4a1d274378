package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/reconcile"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  TEXT    NOT NULL,
	collection  TEXT    NOT NULL,
	workbook    TEXT    NOT NULL DEFAULT '',
	total       INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	unmatched   INTEGER NOT NULL,
	dropped     INTEGER NOT NULL,
	duration_ms REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_collection ON runs (collection, id);
CREATE TABLE IF NOT EXISTS results (
	run_id           INTEGER NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	position         INTEGER NOT NULL,
	sheet_row        INTEGER NOT NULL,
	api_name         TEXT    NOT NULL,
	test_case        TEXT    NOT NULL,
	method           TEXT    NOT NULL,
	url              TEXT    NOT NULL,
	expected_status  INTEGER NOT NULL,
	expected_time_ms REAL    NOT NULL,
	actual_status    INTEGER,
	actual_time_ms   REAL,
	verdict          TEXT    NOT NULL,
	snippet          TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);`

// Run is one stored pipeline run.
type Run struct {
	ID         int64
	StartedAt  time.Time
	Collection string
	Workbook   string
	Summary    reconcile.Summary
	Dropped    int
	Duration   time.Duration
}

type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Open opens or creates the history database. dsn may be a plain file
// path or use the sqlite:// or sqlite: prefix.
func Open(dsn string) (*Store, error) {
	path := Path(dsn)
	if path == "" {
		return nil, errors.New("history: empty database path")
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// sqlite allows one writer
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return &Store{db: db, queryTimeout: 30 * time.Second}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores run and its rows and returns the new run id.
func (s *Store) Record(ctx context.Context, run Run, rows []model.ResultRow) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (started_at, collection, workbook, total, passed, failed, unmatched, dropped, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.Collection, run.Workbook,
		run.Summary.Total, run.Summary.Passed, run.Summary.Failed, run.Summary.Unmatched,
		run.Dropped, float64(run.Duration.Microseconds())/1000,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (run_id, position, sheet_row, api_name, test_case, method, url,
			expected_status, expected_time_ms, actual_status, actual_time_ms, verdict, snippet)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare results: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		var status sql.NullInt64
		var elapsed sql.NullFloat64
		if r.ActualStatusCode != nil {
			status = sql.NullInt64{Int64: int64(*r.ActualStatusCode), Valid: true}
		}
		if r.ActualResponseTimeMs != nil {
			elapsed = sql.NullFloat64{Float64: *r.ActualResponseTimeMs, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, id, i, r.Row, r.APIName, r.TestCase.TestCase, r.Method, r.URL,
			r.ExpectedStatusCode, r.ExpectedTimeMs, status, elapsed, r.Verdict.String(), r.ResponseSnippet); err != nil {
			return 0, fmt.Errorf("insert result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
}

// Last returns the newest run of collection, or nil if there is none.
func (s *Store) Last(ctx context.Context, collection string) (*Run, error) {
	runs, err := s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs WHERE collection = ? ORDER BY id DESC LIMIT 1`, collection)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// Results returns the rows stored for a run in their original order.
func (s *Store) Results(ctx context.Context, runID int64) ([]model.ResultRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sheet_row, api_name, test_case, method, url, expected_status, expected_time_ms,
			actual_status, actual_time_ms, verdict, snippet
		FROM results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []model.ResultRow
	for rows.Next() {
		var r model.ResultRow
		var status sql.NullInt64
		var elapsed sql.NullFloat64
		var verdict string
		if err := rows.Scan(&r.Row, &r.APIName, &r.TestCase.TestCase, &r.Method, &r.URL,
			&r.ExpectedStatusCode, &r.ExpectedTimeMs, &status, &elapsed, &verdict, &r.ResponseSnippet); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if status.Valid {
			v := int(status.Int64)
			r.ActualStatusCode = &v
		}
		if elapsed.Valid {
			v := elapsed.Float64
			r.ActualResponseTimeMs = &v
		}
		r.Verdict = model.Verdict(verdict)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

const runColumns = `id, started_at, collection, workbook, total, passed, failed, unmatched, dropped, duration_ms`

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		var durationMs float64
		if err := rows.Scan(&r.ID, &started, &r.Collection, &r.Workbook,
			&r.Summary.Total, &r.Summary.Passed, &r.Summary.Failed, &r.Summary.Unmatched,
			&r.Dropped, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("run %d: bad timestamp %q: %w", r.ID, started, err)
		}
		r.Duration = time.Duration(durationMs * float64(time.Millisecond))
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Path returns the database file of dsn, which may be sqlite://path,
// sqlite:path or a bare path.
func Path(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if strings.HasPrefix(dsn, "sqlite://") {
		return strings.TrimPrefix(dsn, "sqlite://")
	}
	return strings.TrimPrefix(dsn, "sqlite:")
}
