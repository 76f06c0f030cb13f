package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/uiflow/internal/history"
	"github.com/gotrs-io/uiflow/internal/report"
	"github.com/gotrs-io/uiflow/internal/runner"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sampleRun(id, profile string, start time.Time, failed bool) *report.Report {
	r := &report.Report{
		RunID:      id,
		Profile:    profile,
		AppName:    "Task Manager",
		BaseURL:    "http://localhost:3000",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Duration:   time.Second,
	}
	status := report.StatusPassed
	if failed {
		status = report.StatusFailed
	}
	r.Add(report.Result{Position: 1, Name: "TC01: Verify Homepage Title", Status: status, Duration: 200 * time.Millisecond})
	return r
}

func newQuietServer(store RunStore) *Server {
	s := New(store, nil)
	s.logger = log.New(io.Discard, "", 0)
	return s
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(w, req)
	var body map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealthz(t *testing.T) {
	s := newQuietServer(nil)
	w, body := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "last_run")

	require.NoError(t, s.Save(context.Background(), sampleRun("r1", "task-manager", time.Now(), true)))
	_, body = get(t, s, "/healthz")
	last := body["last_run"].(map[string]interface{})
	assert.Equal(t, "r1", last["id"])
	assert.Equal(t, false, last["succeeded"])
}

type fixedJobs []runner.TaskStatus

func (f fixedJobs) Statuses() []runner.TaskStatus { return f }

func TestHealthzListsJobs(t *testing.T) {
	s := newQuietServer(nil)
	s.SetJobs(fixedJobs{{Name: "ui-battery", Schedule: "0 */15 * * * *", Runs: 3, Failures: 1, LastError: "1 scenario(s) failed"}})

	w, body := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	jobs, ok := body["jobs"].([]interface{})
	require.True(t, ok)
	require.Len(t, jobs, 1)
	job := jobs[0].(map[string]interface{})
	assert.Equal(t, "ui-battery", job["name"])
	assert.Equal(t, float64(3), job["runs"])
	assert.Equal(t, "1 scenario(s) failed", job["last_error"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newQuietServer(nil)
	require.NoError(t, s.Save(context.Background(), sampleRun("r1", "task-manager", time.Now(), false)))

	w, _ := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `uiflow_runs_total{outcome="success",profile="task-manager"} 1`)
}

func TestInMemoryRuns(t *testing.T) {
	s := newQuietServer(nil)
	w, _ := get(t, s, "/api/v1/runs/latest")
	assert.Equal(t, http.StatusNotFound, w.Code)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleRun("a", "task-manager", base, false)))
	require.NoError(t, s.Save(ctx, sampleRun("b", "bug-fixer", base.Add(time.Minute), false)))
	require.NoError(t, s.Save(ctx, sampleRun("c", "task-manager", base.Add(2*time.Minute), true)))

	w, body := get(t, s, "/api/v1/runs/latest")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c", body["run_id"])

	_, body = get(t, s, "/api/v1/runs/latest?profile=bug-fixer")
	assert.Equal(t, "b", body["run_id"])

	_, body = get(t, s, "/api/v1/runs?limit=2")
	assert.Equal(t, "memory", body["source"])
	runs := body["runs"].([]interface{})
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].(map[string]interface{})["id"])

	_, body = get(t, s, "/api/v1/runs?profile=task-manager")
	assert.Len(t, body["runs"].([]interface{}), 2)

	w, _ = get(t, s, "/api/v1/runs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = get(t, s, "/api/v1/scenarios/stats")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHistoryBackedRuns(t *testing.T) {
	ctx := context.Background()
	store, err := history.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, sampleRun("a", "task-manager", base, false)))
	require.NoError(t, store.Save(ctx, sampleRun("b", "task-manager", base.Add(time.Minute), true)))

	s := newQuietServer(store)

	w, body := get(t, s, "/api/v1/runs/latest")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b", body["run_id"])

	_, body = get(t, s, "/api/v1/runs?limit=10")
	assert.Equal(t, "history", body["source"])
	assert.Len(t, body["runs"].([]interface{}), 2)

	w, body = get(t, s, "/api/v1/scenarios/stats?window=5")
	assert.Equal(t, http.StatusOK, w.Code)
	stats := body["scenarios"].([]interface{})
	require.Len(t, stats, 1)
	st := stats[0].(map[string]interface{})
	assert.Equal(t, float64(2), st["runs"])
	assert.Equal(t, float64(50), st["pass_rate"])

	w, _ = get(t, s, "/api/v1/runs/latest?profile=bug-fixer")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := newQuietServer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
