// Package history stores past runs and their scenario results in sqlite.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/studiowebux/perfgate/internal/config"
	"github.com/studiowebux/perfgate/internal/migrations"
)

// Run is one stored harness run
type Run struct {
	ID              string
	BaseURL         string
	Mode            string
	StartedAt       time.Time
	FinishedAt      *time.Time
	Status          string
	ScenarioCount   int
	FailedCount     int
	UpdateBaseline  bool
	RegressionLimit float64
	ErrorBudget     float64
}

// ScenarioResult is one stored scenario verdict
type ScenarioResult struct {
	ID            int64
	RunID         string
	Name          string
	Method        string
	Path          string
	Iterations    int
	Concurrency   int
	Total         int
	AvgMs         float64
	P95Ms         float64
	P99Ms         float64
	MinMs         float64
	MaxMs         float64
	RPS           float64
	ErrorRate     float64
	ElapsedMs     float64
	Status        string
	Failures      []string
	CheckFailures int
}

// Store handles run history persistence
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the history database at dbPath. ":memory:" is accepted.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), config.DirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// in-memory databases exist per connection
	db.SetMaxOpenConns(1)

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its scenario results in a single transaction
func (s *Store) SaveRun(run *Run, results []ScenarioResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO perf_runs
		(id, base_url, mode, started_at, finished_at, status, scenario_count, failed_count, update_baseline, regression_limit, error_budget)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.BaseURL, run.Mode, run.StartedAt, run.FinishedAt, run.Status, run.ScenarioCount,
		run.FailedCount, run.UpdateBaseline, run.RegressionLimit, run.ErrorBudget)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO perf_scenario_results
		(run_id, name, method, path, iterations, concurrency, total, avg_ms, p95_ms, p99_ms, min_ms, max_ms,
		 rps, error_rate, elapsed_ms, status, failures, check_failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		failures, err := json.Marshal(r.Failures)
		if err != nil {
			return fmt.Errorf("failed to encode failures: %w", err)
		}
		_, err = stmt.Exec(run.ID, r.Name, r.Method, r.Path, r.Iterations, r.Concurrency, r.Total,
			r.AvgMs, r.P95Ms, r.P99Ms, r.MinMs, r.MaxMs, r.RPS, r.ErrorRate, r.ElapsedMs, r.Status,
			string(failures), r.CheckFailures)
		if err != nil {
			return fmt.Errorf("failed to insert scenario result %s: %w", r.Name, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, base_url, mode, started_at, finished_at, status, scenario_count, failed_count,
		       update_baseline, regression_limit, error_budget
		FROM perf_runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", id)
		}
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := `
		SELECT id, base_url, mode, started_at, finished_at, status, scenario_count, failed_count,
		       update_baseline, regression_limit, error_budget
		FROM perf_runs
		ORDER BY started_at DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetScenarioResults retrieves the scenario rows of a run in insertion order
func (s *Store) GetScenarioResults(runID string) ([]ScenarioResult, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, name, method, path, iterations, concurrency, total,
		       COALESCE(avg_ms, 0), COALESCE(p95_ms, 0), COALESCE(p99_ms, 0), COALESCE(min_ms, 0), COALESCE(max_ms, 0),
		       COALESCE(rps, 0), COALESCE(error_rate, 0), COALESCE(elapsed_ms, 0), status,
		       failures, COALESCE(check_failures, 0)
		FROM perf_scenario_results
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ScenarioResult
	for rows.Next() {
		var r ScenarioResult
		var failures sql.NullString

		err := rows.Scan(&r.ID, &r.RunID, &r.Name, &r.Method, &r.Path, &r.Iterations, &r.Concurrency,
			&r.Total, &r.AvgMs, &r.P95Ms, &r.P99Ms, &r.MinMs, &r.MaxMs, &r.RPS, &r.ErrorRate, &r.ElapsedMs,
			&r.Status, &failures, &r.CheckFailures)
		if err != nil {
			return nil, err
		}
		if failures.Valid && failures.String != "" {
			if err := json.Unmarshal([]byte(failures.String), &r.Failures); err != nil {
				return nil, fmt.Errorf("failed to decode failures of %s: %w", r.Name, err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// DeleteRun deletes a run and its scenario results
func (s *Store) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM perf_scenario_results WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete scenario results: %w", err)
	}
	res, err := tx.Exec("DELETE FROM perf_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", id)
	}

	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var finishedAt sql.NullTime

	err := row.Scan(&run.ID, &run.BaseURL, &run.Mode, &run.StartedAt, &finishedAt, &run.Status,
		&run.ScenarioCount, &run.FailedCount, &run.UpdateBaseline, &run.RegressionLimit, &run.ErrorBudget)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return run, nil
}
