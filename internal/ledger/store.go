package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start a fresh ledger)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// BeginRun inserts a running run row.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.RunID) == "" {
		return errors.New("run id required")
	}
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	return s.execWithoutResultRetry(ctx,
		`INSERT INTO runs (run_id, pass, dicom_dir, source_dir, status, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Pass, run.DicomDir, run.SourceDir, StatusRunning, started.UTC().Format(time.RFC3339Nano),
	)
}

// RecordPlacement appends one placement to its run.
func (s *Store) RecordPlacement(ctx context.Context, p Placement) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return s.execWithoutResultRetry(ctx,
		`INSERT INTO placements (run_id, subject, session, series, description, category, kind, destination, outcome, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RunID, p.Subject, nullableString(p.Session), p.Series, p.Description, p.Category,
		p.Kind, p.Destination, p.Outcome, created.UTC().Format(time.RFC3339Nano),
	)
}

// FinishRun stores the totals and final status of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, totals Totals, runErr error) error {
	status := StatusCompleted
	var message string
	if runErr != nil {
		status = StatusFailed
		message = runErr.Error()
	}
	return s.execWithoutResultRetry(ctx,
		`UPDATE runs
         SET status = ?, units = ?, created = ?, replaced = ?, preserved = ?, skipped = ?,
             warnings = ?, error_message = ?, finished_at = ?
         WHERE run_id = ?`,
		status, totals.Units, totals.Created, totals.Replaced, totals.Preserved, totals.Skipped,
		totals.Warnings, nullableString(message), time.Now().UTC().Format(time.RFC3339Nano), runID,
	)
}

const runColumns = `id, run_id, pass, dicom_dir, source_dir, status, units, created, replaced,
    preserved, skipped, warnings, error_message, started_at, finished_at`

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run by its identifier; nil when absent.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Placements lists the artifacts of a run in insertion order.
func (s *Store) Placements(ctx context.Context, runID string) ([]Placement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, subject, session, series, description, category, kind, destination, outcome, created_at
         FROM placements WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	defer rows.Close()

	var out []Placement
	for rows.Next() {
		var (
			p       Placement
			session sql.NullString
			created string
		)
		if err := rows.Scan(&p.RunID, &p.Subject, &session, &p.Series, &p.Description, &p.Category,
			&p.Kind, &p.Destination, &p.Outcome, &created); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		p.Session = session.String
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		status   string
		errMsg   sql.NullString
		started  string
		finished sql.NullString
	)
	err := row.Scan(&run.ID, &run.RunID, &run.Pass, &run.DicomDir, &run.SourceDir, &status,
		&run.Totals.Units, &run.Totals.Created, &run.Totals.Replaced, &run.Totals.Preserved,
		&run.Totals.Skipped, &run.Totals.Warnings, &errMsg, &started, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = Status(status)
	run.Error = errMsg.String
	run.StartedAt = parseTime(started)
	if finished.Valid {
		t := parseTime(finished.String)
		run.FinishedAt = &t
	}
	return run, nil
}
