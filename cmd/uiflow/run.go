package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gotrs-io/uiflow/internal/browser"
	"github.com/gotrs-io/uiflow/internal/config"
	"github.com/gotrs-io/uiflow/internal/health"
	"github.com/gotrs-io/uiflow/internal/history"
	"github.com/gotrs-io/uiflow/internal/lock"
	"github.com/gotrs-io/uiflow/internal/profile"
	"github.com/gotrs-io/uiflow/internal/report"
	"github.com/gotrs-io/uiflow/internal/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scenario battery once and write the report",
	Long: `Run acquires one browser session, executes the ten scenarios in order
against the target and prints a per-scenario verdict. Report artifacts are
written to the report directory. Exit status is 1 when any scenario failed
and 2 when the run could not start.`,
	RunE: runOnce,
}

var waitReadyCmd = &cobra.Command{
	Use:   "wait-ready",
	Short: "Poll the target's health path until it answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := c.Profile()
		if err != nil {
			return &exitError{code: exitFatal, err: err}
		}
		timeout, _ := cmd.Flags().GetDuration("for")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return waitReady(ctx, c, p, timeout)
	},
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("headless", true, "run the browser without a window")
	f.Int("slow-mo", 0, "milliseconds to pause between browser actions")
	f.String("screenshot-dir", "test-results/screenshots", "directory for failure screenshots (empty disables)")
	f.Duration("timeout", 10*time.Second, "wait budget for required elements")
	f.Bool("strict", false, "fail scenarios whose optional controls are missing")
	f.IntSlice("only", nil, "run only these scenario positions")
	f.Duration("wait-ready", 0, "wait up to this long for the health path before starting")
	f.String("report-dir", "test-results", "report artifact directory")
	f.StringSlice("format", []string{"json", "junit", "markdown"}, "report formats: json, junit, markdown, html, xlsx, metrics")
}

func init() {
	addRunFlags(runCmd)
	waitReadyCmd.Flags().Duration("for", 2*time.Minute, "give up after this long")
}

func newLogger(prefix string) *log.Logger {
	return log.New(os.Stdout, prefix, log.LstdFlags)
}

func waitReady(ctx context.Context, c *config.Config, p *profile.Profile, timeout time.Duration) error {
	logger := newLogger("[RUNNER] ")
	prober := &health.Prober{Interval: time.Second, Logf: logger.Printf}
	base := c.BaseURL(p)
	logger.Printf("Waiting up to %s for %s%s", timeout, base, p.HealthPath)
	if err := prober.WaitReady(ctx, base, p.HealthPath, timeout); err != nil {
		return &exitError{code: exitFatal, err: err}
	}
	return nil
}

// newLocker picks the redis lock when configured, else an in-process one
func newLocker(ctx context.Context, c *config.Config) (lock.Locker, func(), error) {
	if c.Lock.RedisAddr == "" {
		return lock.NewLocalLocker(), func() {}, nil
	}
	rl, err := lock.NewRedisLocker(ctx, c.Lock.RedisAddr, c.Lock.RedisPassword)
	if err != nil {
		return nil, nil, err
	}
	return rl, func() { _ = rl.Close() }, nil
}

// openHistory returns nil when history is not configured
func openHistory(ctx context.Context, c *config.Config) (*history.Store, error) {
	if c.History.Driver == "" {
		return nil, nil
	}
	return history.Open(ctx, c.History.Driver, c.History.DSN)
}

// newWorkflowRunner builds a runner for one battery from configuration
func newWorkflowRunner(c *config.Config, p *profile.Profile, locker lock.Locker) *workflow.Runner {
	return &workflow.Runner{
		Launcher:      browser.NewPlaywrightLauncher(newLogger("[BROWSER] ")),
		LaunchOptions: c.LaunchOptions(),
		Profile:       p,
		BaseURL:       c.BaseURL(p),
		Timings:       c.WorkflowTimings(),
		Strict:        c.Run.Strict,
		Only:          c.Run.Only,
		ScreenshotDir: c.Browser.ScreenshotDir,
		Locker:        locker,
		LockTTL:       c.Lock.TTL,
		Logger:        newLogger("[WORKFLOW] "),
		Verbose:       c.Logging.Verbose,
	}
}

// writeArtifacts writes the configured report formats, logging each file
func writeArtifacts(c *config.Config, rep *report.Report) error {
	written, err := report.WriteAll(c.Report.Dir, rep, c.ReportFormats())
	for _, path := range written {
		log.Printf("Report saved to %s", path)
	}
	return err
}

func runOnce(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := c.Profile()
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Run.WaitReady > 0 {
		if err := waitReady(ctx, c, p, c.Run.WaitReady); err != nil {
			return err
		}
	}

	locker, release, err := newLocker(ctx, c)
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}
	defer release()

	store, err := openHistory(ctx, c)
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}
	if store != nil {
		defer store.Close()
	}

	rep, err := newWorkflowRunner(c, p, locker).Run(ctx)
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}

	report.Print(os.Stdout, rep)
	if err := writeArtifacts(c, rep); err != nil {
		log.Printf("Failed to write report: %v", err)
	}
	if store != nil {
		if err := store.Save(ctx, rep); err != nil {
			log.Printf("Failed to record run history: %v", err)
		}
	}

	if !rep.Succeeded() {
		return &exitError{code: exitFailures, err: fmt.Errorf("%d of %d scenario(s) failed", rep.Failed, rep.Total)}
	}
	return nil
}
