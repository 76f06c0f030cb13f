package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gotrs-io/uiflow/internal/browser"
	"github.com/gotrs-io/uiflow/internal/lock"
	"github.com/gotrs-io/uiflow/internal/profile"
	"github.com/gotrs-io/uiflow/internal/report"
)

// Runner executes the scenario battery against one target in one browser session
type Runner struct {
	Launcher      browser.Launcher
	LaunchOptions browser.LaunchOptions
	Profile       *profile.Profile
	BaseURL       string
	Timings       Timings
	// Strict fails scenarios whose optional affordance is missing
	Strict bool
	// Only restricts execution to these positions; the rest are reported skipped
	Only []int
	// ScreenshotDir receives a capture of the page for every failed scenario
	ScreenshotDir string
	// Locker serialises runs against the same base URL when set
	Locker  lock.Locker
	LockTTL time.Duration
	// Scenarios replaces the stock battery
	Scenarios []Scenario
	Logger    *log.Logger
	Verbose   bool
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		r.Logger = log.New(os.Stdout, "[WORKFLOW] ", log.LstdFlags)
	}
	return r.Logger
}

// ScenarioList returns what Run will execute, in order
func (r *Runner) ScenarioList() []Scenario {
	if r.Scenarios != nil {
		return sortScenarios(r.Scenarios)
	}
	return sortScenarios(Battery(r.Profile))
}

// Run acquires one browser session, executes every scenario in position
// order and releases the session. Scenario failures are recorded in the
// report; only failing to acquire the session (or the run lock) returns an
// error.
func (r *Runner) Run(ctx context.Context) (*report.Report, error) {
	if r.Profile == nil {
		return nil, errors.New("runner has no profile")
	}
	if r.Launcher == nil {
		return nil, errors.New("runner has no browser launcher")
	}
	logger := r.logger()
	baseURL := strings.TrimRight(r.BaseURL, "/")
	if baseURL == "" {
		baseURL = r.Profile.DefaultURL
	}

	if r.Locker != nil {
		ttl := r.LockTTL
		if ttl <= 0 {
			ttl = 15 * time.Minute
		}
		lease, err := r.Locker.Acquire(ctx, lock.Key(baseURL), ttl)
		if err != nil {
			if errors.Is(err, lock.ErrHeld) {
				return nil, fmt.Errorf("%w: %s", ErrRunLocked, baseURL)
			}
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		defer func() {
			if err := lease.Release(context.Background()); err != nil {
				logger.Printf("Failed to release run lock: %v", err)
			}
		}()
	}

	rep := &report.Report{
		RunID:     uuid.NewString(),
		Profile:   r.Profile.Name,
		AppName:   r.Profile.AppName,
		BaseURL:   baseURL,
		StartedAt: time.Now(),
	}

	opts := r.LaunchOptions
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = r.Timings.withDefaults().Timeout
	}
	logger.Printf("Starting %s run %s against %s", r.Profile.AppName, rep.RunID, baseURL)
	driver, err := r.Launcher.Launch(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionAcquisition, err)
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Printf("Failed to close browser session: %v", err)
		}
	}()

	s := NewSession(driver, r.Profile, baseURL, r.Timings, logger)
	s.Strict = r.Strict
	s.verbose = r.Verbose

	only := map[int]bool{}
	for _, pos := range r.Only {
		only[pos] = true
	}

	for _, sc := range r.ScenarioList() {
		if ctx.Err() != nil {
			rep.Add(report.Result{
				Position: sc.Position,
				Name:     sc.DisplayName(),
				Status:   report.StatusSkipped,
				Message:  "run cancelled",
			})
			continue
		}
		if len(only) > 0 && !only[sc.Position] {
			rep.Add(report.Result{Position: sc.Position, Name: sc.DisplayName(), Status: report.StatusSkipped})
			continue
		}
		rep.Add(r.runScenario(ctx, s, sc))
	}

	rep.FinishedAt = time.Now()
	rep.Duration = rep.FinishedAt.Sub(rep.StartedAt)
	logger.Printf("Run %s finished: %d passed, %d failed, %d skipped in %s",
		rep.RunID, rep.Passed, rep.Failed, rep.Skipped, rep.Duration.Round(time.Millisecond))
	return rep, nil
}

func (r *Runner) runScenario(ctx context.Context, s *Session, sc Scenario) report.Result {
	logger := r.logger()
	logger.Printf("Running %s", sc.DisplayName())
	start := time.Now()
	s.takeNotes()

	if sc.Precondition == Cleared {
		s.ClearAll(ctx)
	}
	err := r.invoke(ctx, s, sc)

	res := report.Result{
		Position: sc.Position,
		Name:     sc.DisplayName(),
		Status:   report.StatusPassed,
		Notes:    s.takeNotes(),
		Duration: time.Since(start),
	}
	if err == nil {
		logger.Printf("%s PASSED (%s)", sc.ID(), res.Duration.Round(time.Millisecond))
		return res
	}

	res.Status = report.StatusFailed
	res.Kind = Classify(err)
	res.Message = err.Error()
	logger.Printf("%s FAILED (%s): %s", sc.ID(), res.Kind, res.Message)
	res.Screenshot = r.capture(ctx, s, sc)
	return res
}

// invoke runs the scenario body, turning a panic into a scenario error
func (r *Runner) invoke(ctx context.Context, s *Session, sc Scenario) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger().Printf("%s panicked: %v\n%s", sc.ID(), p, debug.Stack())
			err = fmt.Errorf("scenario panicked: %v", p)
		}
	}()
	return sc.Run(ctx, s)
}

func (r *Runner) capture(ctx context.Context, s *Session, sc Scenario) string {
	if r.ScreenshotDir == "" {
		return ""
	}
	if err := os.MkdirAll(r.ScreenshotDir, 0755); err != nil {
		r.logger().Printf("Failed to create screenshot dir: %v", err)
		return ""
	}
	name := fmt.Sprintf("%s_%d_%d.png", r.Profile.Name, sc.Position, time.Now().Unix())
	path := filepath.Join(r.ScreenshotDir, name)
	if err := s.Driver.Screenshot(ctx, path); err != nil {
		r.logger().Printf("Failed to take screenshot: %v", err)
		return ""
	}
	r.logger().Printf("Screenshot saved to %s", path)
	return path
}

// Positions returns the sorted positions of scenarios
func Positions(scenarios []Scenario) []int {
	out := make([]int, 0, len(scenarios))
	for _, sc := range scenarios {
		out = append(out, sc.Position)
	}
	sort.Ints(out)
	return out
}
