// Package history persists export run results to the export_runs
// table. It is a record of what happened; writing it never influences
// a run's outcome.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-scribe/internal/export"
)

// Repository defines the interface for run history operations.
type Repository interface {
	RecordRun(ctx context.Context, result *export.Result) error
	List(ctx context.Context, limit, offset int) (*ListResult, error)
	Last(ctx context.Context) (*export.Result, error)
}

// ListResult contains paginated run history.
type ListResult struct {
	Runs   []export.Result `json:"runs"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// SQLiteRepository stores run history in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new run history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordRun inserts a finished run.
func (r *SQLiteRepository) RecordRun(ctx context.Context, result *export.Result) error {
	var failuresJSON any
	if len(result.Failures) > 0 {
		b, err := json.Marshal(result.Failures)
		if err != nil {
			return fmt.Errorf("marshalling run failures: %w", err)
		}
		failuresJSON = string(b)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO export_runs (id, started_at, finished_at, status, branch_filter,
		 locations, branches, chapters, pages_created, pages_updated, cancelled, failures, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.StartedAt.UTC().Format(time.RFC3339),
		result.FinishedAt.UTC().Format(time.RFC3339),
		string(result.Status),
		nullableString(result.BranchFilter),
		result.Locations, result.Branches, result.Chapters,
		result.PagesCreated, result.PagesUpdated,
		boolToInt(result.Cancelled),
		failuresJSON,
		nullableString(result.Err),
	)
	if err != nil {
		return fmt.Errorf("inserting export run: %w", err)
	}
	return nil
}

// List returns runs ordered by most recent first.
func (r *SQLiteRepository) List(ctx context.Context, limit, offset int) (*ListResult, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM export_runs").Scan(&total); err != nil {
		return nil, fmt.Errorf("counting export runs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		selectColumns+" FROM export_runs ORDER BY started_at DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("querying export runs: %w", err)
	}
	defer rows.Close()

	var runs []export.Result
	for rows.Next() {
		result, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating export runs: %w", err)
	}
	if runs == nil {
		runs = []export.Result{}
	}

	return &ListResult{Runs: runs, Total: total, Limit: limit, Offset: offset}, nil
}

// Last returns the most recent run, or (nil, nil) when no run has been
// recorded yet.
func (r *SQLiteRepository) Last(ctx context.Context) (*export.Result, error) {
	row := r.db.QueryRowContext(ctx,
		selectColumns+" FROM export_runs ORDER BY started_at DESC LIMIT 1")
	result, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

const selectColumns = `SELECT id, started_at, finished_at, status, branch_filter,
 locations, branches, chapters, pages_created, pages_updated, cancelled, failures, error`

func scanRun(scan func(...any) error) (*export.Result, error) {
	var result export.Result
	var startedAt, finishedAt string
	var status string
	var branchFilter, failuresJSON, errText sql.NullString
	var cancelled int

	err := scan(&result.RunID, &startedAt, &finishedAt, &status, &branchFilter,
		&result.Locations, &result.Branches, &result.Chapters,
		&result.PagesCreated, &result.PagesUpdated,
		&cancelled, &failuresJSON, &errText)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning export run: %w", err)
	}

	result.Status = export.Status(status)
	result.BranchFilter = branchFilter.String
	result.Cancelled = cancelled != 0
	result.Err = errText.String

	if result.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return nil, fmt.Errorf("parsing run start time %q: %w", startedAt, err)
	}
	if result.FinishedAt, err = time.Parse(time.RFC3339, finishedAt); err != nil {
		return nil, fmt.Errorf("parsing run finish time %q: %w", finishedAt, err)
	}
	result.Duration = result.FinishedAt.Sub(result.StartedAt).Seconds()

	if failuresJSON.Valid && failuresJSON.String != "" {
		if err := json.Unmarshal([]byte(failuresJSON.String), &result.Failures); err != nil {
			return nil, fmt.Errorf("parsing run failures: %w", err)
		}
	}

	return &result, nil
}

// nullableString returns nil for empty strings, for nullable TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
