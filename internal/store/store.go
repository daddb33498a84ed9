// Package store is the reference result sink: a SQLite-backed store for
// validation runs and their results.
//
// Build modes:
//   - Default (CGO_ENABLED=0): Uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): Uses mattn/go-sqlite3
//
// Use Open() instead of sql.Open() to ensure the correct driver is used.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/regsuite/filings/core/engine"
	apperrors "github.com/regsuite/filings/core/errors"
	"github.com/regsuite/filings/core/rules"
	"github.com/regsuite/filings/internal/logging"
)

// DriverName returns the SQL driver name in use.
func DriverName() string {
	return driverName
}

// DriverType returns a string identifying the underlying implementation.
// Returns "cgo" for mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// schema is applied on open; both tables key results to their run.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	submission_id TEXT NOT NULL,
	status        TEXT NOT NULL,
	error_count   INTEGER NOT NULL,
	warning_count INTEGER NOT NULL,
	created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS results (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT NOT NULL REFERENCES runs(run_id),
	rule_id        TEXT,
	field          TEXT NOT NULL,
	rule_type      TEXT,
	condition      TEXT,
	cell_reference TEXT,
	cell_value     TEXT,
	message        TEXT,
	severity       TEXT NOT NULL,
	is_valid       INTEGER NOT NULL,
	sheet_name     TEXT,
	row_number     INTEGER,
	column_number  INTEGER,
	column_name    TEXT
);

CREATE TABLE IF NOT EXISTS diagnostics (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	rule_id    TEXT,
	field      TEXT,
	sheet_name TEXT,
	message    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_run ON diagnostics(run_id);
`

// Store persists validation runs.
type Store struct {
	db *sql.DB
}

// Open opens (and initializes) a store at the given SQLite path.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists one validation run with all its results and diagnostics
// in a single transaction, so a run is either fully recorded or absent.
func (s *Store) SaveRun(ctx context.Context, summary *engine.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, submission_id, status, error_count, warning_count)
		 VALUES (?, ?, ?, ?, ?)`,
		summary.RunID, summary.SubmissionID, string(summary.Status),
		summary.ErrorCount, summary.WarningCount)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	resStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, rule_id, field, rule_type, condition,
		 cell_reference, cell_value, message, severity, is_valid,
		 sheet_name, row_number, column_number, column_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare results: %w", err)
	}
	defer resStmt.Close()

	for _, r := range summary.Results {
		isValid := 0
		if r.IsValid {
			isValid = 1
		}
		_, err := resStmt.ExecContext(ctx,
			summary.RunID, r.RuleID, r.Field, string(r.RuleType), r.Condition,
			r.CellReference, r.CellValue, r.Message, string(r.Severity), isValid,
			r.SheetName, r.RowNumber, r.ColumnNumber, r.ColumnName)
		if err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
	}

	for _, d := range summary.Diagnostics {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO diagnostics (run_id, rule_id, field, sheet_name, message)
			 VALUES (?, ?, ?, ?, ?)`,
			summary.RunID, d.RuleID, d.Field, d.SheetName, d.Message)
		if err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logging.StoreEvent("run_saved", summary.RunID,
		"results", len(summary.Results), "diagnostics", len(summary.Diagnostics))
	return nil
}

// GetRun loads a run's summary (without results) by id.
func (s *Store) GetRun(ctx context.Context, runID string) (*engine.Summary, error) {
	summary := &engine.Summary{RunID: runID}
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT submission_id, status, error_count, warning_count
		 FROM runs WHERE run_id = ?`, runID).
		Scan(&summary.SubmissionID, &status, &summary.ErrorCount, &summary.WarningCount)
	if apperrors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("run", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	summary.Status = engine.Status(status)
	return summary, nil
}

// Failures loads a run's failing results, the rows a submitter sees.
func (s *Store) Failures(ctx context.Context, runID string) ([]engine.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rule_id, field, rule_type, condition, cell_reference, cell_value,
		 message, severity, sheet_name, row_number, column_number, column_name
		 FROM results WHERE run_id = ? AND is_valid = 0 ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("load failures: %w", err)
	}
	defer rows.Close()

	var out []engine.Result
	for rows.Next() {
		var r engine.Result
		var ruleType, severity string
		if err := rows.Scan(&r.RuleID, &r.Field, &ruleType, &r.Condition,
			&r.CellReference, &r.CellValue, &r.Message, &severity,
			&r.SheetName, &r.RowNumber, &r.ColumnNumber, &r.ColumnName); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.RuleType = rules.RuleType(ruleType)
		r.Severity = rules.Severity(severity)
		r.IsValid = false
		out = append(out, r)
	}
	return out, rows.Err()
}
