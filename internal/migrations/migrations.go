package migrations

import (
	"database/sql"
	"fmt"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: 1,
		Name:    "Add run history indices",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_perf_runs_started_at ON perf_runs(started_at DESC);
			CREATE INDEX IF NOT EXISTS idx_perf_scenarios_run_id ON perf_scenario_results(run_id);
			CREATE INDEX IF NOT EXISTS idx_perf_scenarios_name ON perf_scenario_results(name, run_id);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_perf_runs_started_at;
			DROP INDEX IF EXISTS idx_perf_scenarios_run_id;
			DROP INDEX IF EXISTS idx_perf_scenarios_name;
		`,
	},
	{
		Version: 2,
		Name:    "Add p99 latency to scenario results",
		Up: `
			ALTER TABLE perf_scenario_results ADD COLUMN p99_ms REAL DEFAULT 0;
		`,
		Down: `
			ALTER TABLE perf_scenario_results DROP COLUMN p99_ms;
		`,
	},
}

// InitSchema creates all tables used by the run history
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS perf_runs (
		id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		mode TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL,
		scenario_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0,
		update_baseline INTEGER NOT NULL DEFAULT 0,
		regression_limit REAL NOT NULL DEFAULT 0,
		error_budget REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS perf_scenario_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		iterations INTEGER NOT NULL,
		concurrency INTEGER NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		avg_ms REAL DEFAULT 0,
		p95_ms REAL DEFAULT 0,
		min_ms REAL DEFAULT 0,
		max_ms REAL DEFAULT 0,
		rps REAL DEFAULT 0,
		error_rate REAL DEFAULT 0,
		elapsed_ms REAL DEFAULT 0,
		status TEXT NOT NULL,
		failures TEXT,
		check_failures INTEGER DEFAULT 0,
		FOREIGN KEY (run_id) REFERENCES perf_runs(id) ON DELETE CASCADE
	);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Run executes all pending migrations on the database
func Run(db *sql.DB) error {
	// Initialize schema first to ensure all tables exist
	if err := InitSchema(db); err != nil {
		return err
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := GetCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	for _, migration := range AllMigrations {
		if migration.Version <= currentVersion {
			continue
		}

		if _, err := db.Exec(migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		_, err = db.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version,
			migration.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// GetCurrentVersion returns the current database schema version
func GetCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`
		SELECT COALESCE(MAX(version), 0)
		FROM schema_migrations
	`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return version, nil
}
