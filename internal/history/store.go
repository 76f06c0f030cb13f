// Package history persists run reports so trends across runs can be queried.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gotrs-io/uiflow/internal/report"
)

// Store is a run history backed by SQLite, PostgreSQL or MySQL
type Store struct {
	db     *sqlx.DB
	driver string
}

// RunSummary is one stored run without its scenario results
type RunSummary struct {
	ID         string `db:"id" json:"id"`
	Profile    string `db:"profile" json:"profile"`
	AppName    string `db:"app_name" json:"app_name"`
	BaseURL    string `db:"base_url" json:"base_url"`
	StartedMs  int64  `db:"started_at_ms" json:"-"`
	FinishedMs int64  `db:"finished_at_ms" json:"-"`
	DurationMs int64  `db:"duration_ms" json:"duration_ms"`
	Total      int    `db:"total" json:"total"`
	Passed     int    `db:"passed" json:"passed"`
	Failed     int    `db:"failed" json:"failed"`
	Skipped    int    `db:"skipped" json:"skipped"`

	StartedAt  time.Time `db:"-" json:"started_at"`
	FinishedAt time.Time `db:"-" json:"finished_at"`
}

// Succeeded reports whether no scenario failed
func (s RunSummary) Succeeded() bool { return s.Failed == 0 }

// ScenarioStat aggregates one scenario across every stored run
type ScenarioStat struct {
	Position      int     `db:"position" json:"position"`
	Name          string  `db:"name" json:"name"`
	Runs          int     `db:"runs" json:"runs"`
	Passed        int     `db:"passed" json:"passed"`
	Failed        int     `db:"failed" json:"failed"`
	Skipped       int     `db:"skipped" json:"skipped"`
	AvgDurationMs float64 `db:"avg_duration_ms" json:"avg_duration_ms"`
}

// PassRate is the share of executed runs of the scenario that passed, in percent
func (s ScenarioStat) PassRate() float64 {
	executed := s.Passed + s.Failed
	if executed == 0 {
		return 0
	}
	return float64(s.Passed) / float64(executed) * 100
}

type resultRow struct {
	RunID      string `db:"run_id"`
	Position   int    `db:"position"`
	Name       string `db:"name"`
	Status     string `db:"status"`
	Kind       string `db:"kind"`
	Message    string `db:"message"`
	Notes      string `db:"notes"`
	DurationMs int64  `db:"duration_ms"`
	Screenshot string `db:"screenshot"`
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS uiflow_runs (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		profile VARCHAR(128) NOT NULL,
		app_name VARCHAR(255) NOT NULL,
		base_url VARCHAR(512) NOT NULL,
		started_at_ms BIGINT NOT NULL,
		finished_at_ms BIGINT NOT NULL,
		duration_ms BIGINT NOT NULL,
		total INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		skipped INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS uiflow_results (
		run_id VARCHAR(64) NOT NULL,
		position INTEGER NOT NULL,
		name VARCHAR(255) NOT NULL,
		status VARCHAR(16) NOT NULL,
		kind VARCHAR(16) NOT NULL,
		message TEXT NOT NULL,
		notes TEXT NOT NULL,
		duration_ms BIGINT NOT NULL,
		screenshot VARCHAR(1024) NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
}

// NormalizeDriver maps user-facing driver names onto registered sql drivers
func NormalizeDriver(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3", "":
		return "sqlite3", nil
	case "postgres", "postgresql", "pgsql":
		return "postgres", nil
	case "mysql", "mariadb":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported history driver %q", name)
	}
}

// Open connects to dsn and creates the history tables when missing
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	name, err := NormalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s history: %w", name, err)
	}
	if name == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: sqlx.NewDb(db, name), driver: name}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate history: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a run and its scenario results in one transaction
func (s *Store) Save(ctx context.Context, r *report.Report) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO uiflow_runs
		(id, profile, app_name, base_url, started_at_ms, finished_at_ms, duration_ms, total, passed, failed, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.RunID, r.Profile, r.AppName, r.BaseURL,
		r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), r.Duration.Milliseconds(),
		r.Total, r.Passed, r.Failed, r.Skipped)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.RunID, err)
	}

	insert := tx.Rebind(`INSERT INTO uiflow_results
		(run_id, position, name, status, kind, message, notes, duration_ms, screenshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, res := range r.Results {
		_, err := tx.ExecContext(ctx, insert,
			r.RunID, res.Position, res.Name, string(res.Status), string(res.Kind),
			res.Message, strings.Join(res.Notes, "\n"), res.Duration.Milliseconds(), res.Screenshot)
		if err != nil {
			return fmt.Errorf("save result %d of run %s: %w", res.Position, r.RunID, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, profile, app_name, base_url, started_at_ms, finished_at_ms, duration_ms, total, passed, failed, skipped`

// Recent lists the newest runs first, at most limit of them. An empty
// profile lists runs of every profile.
func (s *Store) Recent(ctx context.Context, profile string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + runColumns + ` FROM uiflow_runs`
	var args []interface{}
	if profile != "" {
		q += ` WHERE profile = ?`
		args = append(args, profile)
	}
	q += ` ORDER BY started_at_ms DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var runs []RunSummary
	if err := s.db.SelectContext(ctx, &runs, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	for i := range runs {
		runs[i].fill()
	}
	return runs, nil
}

func (r *RunSummary) fill() {
	r.StartedAt = time.UnixMilli(r.StartedMs).UTC()
	r.FinishedAt = time.UnixMilli(r.FinishedMs).UTC()
}

// Get loads one run with its results. It returns sql.ErrNoRows when the run
// is unknown.
func (s *Store) Get(ctx context.Context, id string) (*report.Report, error) {
	var run RunSummary
	q := s.db.Rebind(`SELECT ` + runColumns + ` FROM uiflow_runs WHERE id = ?`)
	if err := s.db.GetContext(ctx, &run, q, id); err != nil {
		return nil, err
	}
	run.fill()
	return s.expand(ctx, run)
}

// Latest loads the newest run of profile (any profile when empty) with its
// results, or sql.ErrNoRows
func (s *Store) Latest(ctx context.Context, profile string) (*report.Report, error) {
	runs, err := s.Recent(ctx, profile, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, sql.ErrNoRows
	}
	return s.expand(ctx, runs[0])
}

func (s *Store) expand(ctx context.Context, run RunSummary) (*report.Report, error) {
	var rows []resultRow
	q := s.db.Rebind(`SELECT run_id, position, name, status, kind, message, notes, duration_ms, screenshot
		FROM uiflow_results WHERE run_id = ? ORDER BY position`)
	if err := s.db.SelectContext(ctx, &rows, q, run.ID); err != nil {
		return nil, fmt.Errorf("load results of run %s: %w", run.ID, err)
	}
	r := &report.Report{
		RunID:      run.ID,
		Profile:    run.Profile,
		AppName:    run.AppName,
		BaseURL:    run.BaseURL,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Duration:   time.Duration(run.DurationMs) * time.Millisecond,
	}
	for _, row := range rows {
		var notes []string
		if row.Notes != "" {
			notes = strings.Split(row.Notes, "\n")
		}
		r.Add(report.Result{
			Position:   row.Position,
			Name:       row.Name,
			Status:     report.Status(row.Status),
			Kind:       report.Kind(row.Kind),
			Message:    row.Message,
			Notes:      notes,
			Duration:   time.Duration(row.DurationMs) * time.Millisecond,
			Screenshot: row.Screenshot,
		})
	}
	return r, nil
}

// ScenarioStats aggregates results per scenario. An empty profile covers
// every profile; a positive window restricts it to the newest window runs.
func (s *Store) ScenarioStats(ctx context.Context, profile string, window int) ([]ScenarioStat, error) {
	q := `SELECT res.position AS position, res.name AS name,
			COUNT(*) AS runs,
			SUM(CASE WHEN res.status = 'passed' THEN 1 ELSE 0 END) AS passed,
			SUM(CASE WHEN res.status = 'failed' THEN 1 ELSE 0 END) AS failed,
			SUM(CASE WHEN res.status = 'skipped' THEN 1 ELSE 0 END) AS skipped,
			AVG(res.duration_ms) AS avg_duration_ms
		FROM uiflow_results res JOIN uiflow_runs run ON run.id = res.run_id
		WHERE 1 = 1`
	var args []interface{}
	if profile != "" {
		q += ` AND run.profile = ?`
		args = append(args, profile)
	}
	if window > 0 {
		cutoff, ok, err := s.windowStart(ctx, profile, window)
		if err != nil {
			return nil, err
		}
		if ok {
			q += ` AND run.started_at_ms >= ?`
			args = append(args, cutoff)
		}
	}
	q += ` GROUP BY res.position, res.name ORDER BY res.position, res.name`

	var stats []ScenarioStat
	if err := s.db.SelectContext(ctx, &stats, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("scenario stats: %w", err)
	}
	return stats, nil
}

// windowStart returns the start time of the window-th newest run. ok is
// false when fewer runs exist, meaning no cutoff applies.
func (s *Store) windowStart(ctx context.Context, profile string, window int) (int64, bool, error) {
	q := `SELECT started_at_ms FROM uiflow_runs`
	var args []interface{}
	if profile != "" {
		q += ` WHERE profile = ?`
		args = append(args, profile)
	}
	q += ` ORDER BY started_at_ms DESC LIMIT 1 OFFSET ?`
	args = append(args, window-1)

	var cutoff int64
	err := s.db.GetContext(ctx, &cutoff, s.db.Rebind(q), args...)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("stats window: %w", err)
	}
	return cutoff, true, nil
}

// Summarize condenses a report into its stored run row
func Summarize(r *report.Report) RunSummary {
	return RunSummary{
		ID:         r.RunID,
		Profile:    r.Profile,
		AppName:    r.AppName,
		BaseURL:    r.BaseURL,
		StartedMs:  r.StartedAt.UnixMilli(),
		FinishedMs: r.FinishedAt.UnixMilli(),
		DurationMs: r.Duration.Milliseconds(),
		Total:      r.Total,
		Passed:     r.Passed,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
