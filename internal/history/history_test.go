package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/perfgate/internal/migrations"
)

// createTestStore opens an in-memory store for testing
func createTestStore(t *testing.T) *Store {
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := createTestStore(t)

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(42 * time.Second)
	run := &Run{
		ID:              "run-1",
		BaseURL:         "http://localhost:8080",
		Mode:            "simple",
		StartedAt:       started,
		FinishedAt:      &finished,
		Status:          "fail",
		ScenarioCount:   2,
		FailedCount:     1,
		RegressionLimit: 1.5,
		ErrorBudget:     0.01,
	}
	results := []ScenarioResult{
		{Name: "home", Method: "GET", Path: "/", Iterations: 20, Concurrency: 4, Total: 20,
			AvgMs: 12.5, P95Ms: 20, MinMs: 5, MaxMs: 22, RPS: 80, Status: "pass", Failures: []string{}},
		{Name: "api", Method: "GET", Path: "/api", Iterations: 10, Concurrency: 2, Total: 10,
			AvgMs: 200, P95Ms: 250, P99Ms: 310.5, RPS: 9, ErrorRate: 0.1, Status: "fail",
			Failures: []string{"avg 200ms > 150ms", "errorRate 0.1 > 0.01"}, CheckFailures: 3},
	}

	require.NoError(t, store.SaveRun(run, results))

	got, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "fail", got.Status)
	assert.Equal(t, 1, got.FailedCount)
	assert.True(t, got.StartedAt.Equal(started))
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(finished))
	assert.False(t, got.UpdateBaseline)

	rows, err := store.GetScenarioResults("run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "home", rows[0].Name)
	assert.Empty(t, rows[0].Failures)
	assert.Equal(t, []string{"avg 200ms > 150ms", "errorRate 0.1 > 0.01"}, rows[1].Failures)
	assert.Equal(t, 3, rows[1].CheckFailures)
	assert.Equal(t, 0.1, rows[1].ErrorRate)
	assert.Equal(t, 310.5, rows[1].P99Ms)
	assert.Zero(t, rows[0].P99Ms)
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	store := createTestStore(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		run := &Run{ID: id, BaseURL: "http://x", Mode: "simple", StartedAt: base.Add(time.Duration(i) * time.Minute), Status: "pass"}
		require.NoError(t, store.SaveRun(run, nil))
	}

	runs, err := store.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.Nil(t, runs[0].FinishedAt)

	all, err := store.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_DeleteRun(t *testing.T) {
	store := createTestStore(t)
	run := &Run{ID: "gone", BaseURL: "http://x", Mode: "engine", StartedAt: time.Now().UTC(), Status: "pass"}
	require.NoError(t, store.SaveRun(run, []ScenarioResult{{Name: "home", Method: "GET", Path: "/", Status: "pass"}}))

	require.NoError(t, store.DeleteRun("gone"))

	_, err := store.GetRun("gone")
	assert.Error(t, err)
	rows, err := store.GetScenarioResults("gone")
	require.NoError(t, err)
	assert.Empty(t, rows)

	err = store.DeleteRun("gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStore_DuplicateRunID(t *testing.T) {
	store := createTestStore(t)
	run := &Run{ID: "dup", BaseURL: "http://x", Mode: "simple", StartedAt: time.Now().UTC(), Status: "pass"}
	require.NoError(t, store.SaveRun(run, nil))

	assert.Error(t, store.SaveRun(run, nil))
}

func TestOpen_FileMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	version, err := migrations.GetCurrentVersion(store.db)
	require.NoError(t, err)
	assert.Equal(t, len(migrations.AllMigrations), version)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	version, err = migrations.GetCurrentVersion(reopened.db)
	require.NoError(t, err)
	assert.Equal(t, len(migrations.AllMigrations), version)

	var columns int
	require.NoError(t, reopened.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('perf_scenario_results') WHERE name = 'p99_ms'",
	).Scan(&columns))
	assert.Equal(t, 1, columns)
}
