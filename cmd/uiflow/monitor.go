package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gotrs-io/uiflow/internal/config"
	"github.com/gotrs-io/uiflow/internal/lock"
	"github.com/gotrs-io/uiflow/internal/report"
	"github.com/gotrs-io/uiflow/internal/runner"
	"github.com/gotrs-io/uiflow/internal/runner/tasks"
	"github.com/gotrs-io/uiflow/internal/server"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the battery on a schedule and serve results over HTTP",
	Long: `Monitor runs the scenario battery on a cron schedule (seconds field
first) and serves /healthz, /metrics and the /api/v1 run history. Edits to
the config file apply from the next run on; the schedule and listen address
are fixed at start.`,
	RunE: runMonitor,
}

func init() {
	addRunFlags(monitorCmd)
	monitorCmd.Flags().String("schedule", "0 */15 * * * *", "cron schedule with a leading seconds field")
	monitorCmd.Flags().String("listen", ":9090", "status server address")
}

// liveBattery builds a fresh workflow runner from the current configuration
// for every tick, so reloaded settings take effect on the next run
type liveBattery struct {
	locker lock.Locker
}

func (b *liveBattery) Run(ctx context.Context) (*report.Report, error) {
	c := config.Get()
	p, err := c.Profile()
	if err != nil {
		return nil, err
	}
	return newWorkflowRunner(c, p, b.locker).Run(ctx)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := c.Profile(); err != nil {
		return &exitError{code: exitFatal, err: err}
	}
	loader.Watch(func(nc *config.Config) {
		if nc.Monitor.Schedule != c.Monitor.Schedule {
			newLogger("[MONITOR] ").Printf("Schedule change to %q needs a restart", nc.Monitor.Schedule)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locker, release, err := newLocker(ctx, c)
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}
	defer release()

	store, err := openHistory(ctx, c)
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}

	var runStore server.RunStore
	sinks := []tasks.Sink{tasks.SinkFunc(func(_ context.Context, r *report.Report) error {
		report.Print(os.Stdout, r)
		return writeArtifacts(config.Get(), r)
	})}
	if store != nil {
		defer store.Close()
		runStore = store
		sinks = append(sinks, store)
	}

	metrics := report.NewMetrics()
	srv := server.New(runStore, metrics)
	sinks = append(sinks, srv)

	registry := runner.NewTaskRegistry()
	registry.Register(tasks.NewBatteryTask("ui-battery", c.Monitor.Schedule, c.Lock.TTL, &liveBattery{locker: locker}, sinks...))

	sched := runner.NewRunner(registry)
	sched.RunAtStart = true
	srv.SetJobs(sched)

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe(ctx, c.Monitor.Listen) }()

	if err := sched.Start(ctx); err != nil && ctx.Err() == nil {
		return &exitError{code: exitFatal, err: err}
	}
	stop()
	if err := <-srvErr; err != nil {
		return &exitError{code: exitFatal, err: err}
	}
	return nil
}
