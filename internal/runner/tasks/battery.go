// Package tasks holds the scheduled jobs monitor mode runs.
package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gotrs-io/uiflow/internal/report"
	"github.com/gotrs-io/uiflow/internal/runner"
)

// BatteryRunner executes one full workflow run
type BatteryRunner interface {
	Run(ctx context.Context) (*report.Report, error)
}

// Sink receives every finished report
type Sink interface {
	Save(ctx context.Context, r *report.Report) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, r *report.Report) error

// Save implements Sink
func (f SinkFunc) Save(ctx context.Context, r *report.Report) error { return f(ctx, r) }

// BatteryTask runs the scenario battery on a schedule and hands each report
// to its sinks
type BatteryTask struct {
	name     string
	schedule string
	timeout  time.Duration
	runner   BatteryRunner
	sinks    []Sink
	logger   *log.Logger
}

// NewBatteryTask creates the scheduled battery job
func NewBatteryTask(name, schedule string, timeout time.Duration, br BatteryRunner, sinks ...Sink) runner.Task {
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &BatteryTask{
		name:     name,
		schedule: schedule,
		timeout:  timeout,
		runner:   br,
		sinks:    sinks,
		logger:   log.New(log.Writer(), "[MONITOR] ", log.LstdFlags),
	}
}

// Name returns the task name
func (t *BatteryTask) Name() string { return t.name }

// Schedule returns the cron schedule
func (t *BatteryTask) Schedule() string { return t.schedule }

// Timeout returns the per-run bound
func (t *BatteryTask) Timeout() time.Duration { return t.timeout }

// Run executes the battery once. A run whose scenarios failed is still
// delivered to every sink before the failure is returned.
func (t *BatteryTask) Run(ctx context.Context) error {
	rep, err := t.runner.Run(ctx)
	if err != nil {
		return err
	}

	var sinkErr error
	for _, s := range t.sinks {
		if err := s.Save(ctx, rep); err != nil {
			t.logger.Printf("Failed to record run %s: %v", rep.RunID, err)
			if sinkErr == nil {
				sinkErr = err
			}
		}
	}

	t.logger.Printf("Run %s: %d/%d passed (%.1f%%)", rep.RunID, rep.Passed, rep.Passed+rep.Failed, rep.SuccessRate())
	if !rep.Succeeded() {
		return fmt.Errorf("%d scenario(s) failed", rep.Failed)
	}
	return sinkErr
}
