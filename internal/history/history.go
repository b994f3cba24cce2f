// Package history persists run reports in SQLite so watch mode and the
// status endpoint can answer what happened recently.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/probeforge/metricgen/internal/report"
)

// ErrNoRuns is returned when the store holds no runs yet.
var ErrNoRuns = errors.New("history: no runs recorded")

// Store persists run reports.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the run history database. Use ":memory:" for
// an in-memory store.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		started_at INTEGER NOT NULL,
		format TEXT NOT NULL,
		status TEXT NOT NULL,
		error_count INTEGER NOT NULL,
		fingerprint TEXT,
		report BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores one finished run together with its fingerprint.
func (s *Store) Append(ctx context.Context, r *report.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fingerprint, err := r.Fingerprint()
	if err != nil {
		return err
	}
	payload, err := r.ToJSON()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs (run_id, started_at, format, status, error_count, fingerprint, report) VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.RunID, r.StartedAt.Unix(), r.Format, r.Status, r.ErrorCount, fingerprint, payload,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Latest returns the most recently appended run, or ErrNoRuns.
func (s *Store) Latest(ctx context.Context) (*report.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT report FROM runs ORDER BY id DESC LIMIT 1",
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	return report.FromJSON(payload)
}

// LastSuccessFingerprint returns the fingerprint of the most recent
// successful run, or ErrNoRuns. Watch mode compares it against the
// current inputs to skip runs whose output already exists. Failed runs
// are ignored so a fixed environment gets retried even when the inputs
// did not change.
func (s *Store) LastSuccessFingerprint(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fingerprint string
	err := s.db.QueryRowContext(ctx,
		"SELECT fingerprint FROM runs WHERE status = ? ORDER BY id DESC LIMIT 1",
		report.StatusSuccess,
	).Scan(&fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("query last success fingerprint: %w", err)
	}
	return fingerprint, nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]*report.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT report FROM runs ORDER BY id DESC LIMIT ?", n,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var reports []*report.RunReport
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r, err := report.FromJSON(payload)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return reports, nil
}

// Count returns the total number of recorded runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
