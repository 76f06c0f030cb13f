// Package runner schedules recurring workflow runs for monitor mode.
package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// TaskStatus describes the scheduling state of one task
type TaskStatus struct {
	Name         string        `json:"name"`
	Schedule     string        `json:"schedule"`
	Runs         int           `json:"runs"`
	Failures     int           `json:"failures"`
	Running      bool          `json:"running"`
	LastStarted  time.Time     `json:"last_started,omitempty"`
	LastDuration time.Duration `json:"last_duration_ns,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
	Next         time.Time     `json:"next,omitempty"`
}

// Runner fires registered tasks on their cron schedules
type Runner struct {
	cron     *cron.Cron
	registry *TaskRegistry
	logger   *log.Logger
	inflight sync.WaitGroup

	mu      sync.Mutex
	status  map[string]*TaskStatus
	entries map[string]cron.EntryID

	// RunAtStart executes every task once before the first scheduled tick
	RunAtStart bool
}

// NewRunner creates a scheduler for the tasks in registry. Schedules take a
// leading seconds field; a task still running when its next tick fires,
// including its start-up run, is skipped for that tick.
func NewRunner(registry *TaskRegistry) *Runner {
	return &Runner{
		cron:     cron.New(cron.WithSeconds()),
		registry: registry,
		logger:   log.New(os.Stdout, "[RUNNER] ", log.LstdFlags),
		status:   make(map[string]*TaskStatus),
		entries:  make(map[string]cron.EntryID),
	}
}

// SetLogger replaces the scheduler's logger
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Start schedules every task and blocks until ctx is done. In-flight runs
// are awaited before it returns ctx.Err().
func (r *Runner) Start(ctx context.Context) error {
	tasks := r.registry.Sorted()
	chain := cron.NewChain(cron.SkipIfStillRunning(cron.PrintfLogger(r.logger)))
	jobs := make([]cron.Job, 0, len(tasks))
	for _, task := range tasks {
		t := task
		job := chain.Then(cron.FuncJob(func() { _ = r.execute(ctx, t) }))
		jobs = append(jobs, job)
		id, err := r.cron.AddJob(t.Schedule(), job)
		if err != nil {
			return fmt.Errorf("schedule task %s: %w", t.Name(), err)
		}
		r.mu.Lock()
		r.entries[t.Name()] = id
		r.statusFor(t)
		r.mu.Unlock()
		r.logger.Printf("Scheduled %s (%s)", t.Name(), t.Schedule())
	}

	if r.RunAtStart {
		for _, job := range jobs {
			r.inflight.Add(1)
			go func(j cron.Job) {
				defer r.inflight.Done()
				j.Run()
			}(job)
		}
	}

	r.cron.Start()
	r.logger.Printf("Scheduler running with %d task(s)", len(tasks))

	<-ctx.Done()
	r.Stop()
	return ctx.Err()
}

// RunNow executes the named task synchronously
func (r *Runner) RunNow(ctx context.Context, name string) error {
	task, ok := r.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	return r.execute(ctx, task)
}

// Statuses returns a snapshot of every task that has been scheduled or run,
// ordered by name
func (r *Runner) Statuses() []TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TaskStatus
	for _, task := range r.registry.Sorted() {
		st, ok := r.status[task.Name()]
		if !ok {
			continue
		}
		snap := *st
		if id, ok := r.entries[task.Name()]; ok {
			snap.Next = r.cron.Entry(id).Next
		}
		out = append(out, snap)
	}
	return out
}

// statusFor must be called with mu held
func (r *Runner) statusFor(task Task) *TaskStatus {
	st, ok := r.status[task.Name()]
	if !ok {
		st = &TaskStatus{Name: task.Name(), Schedule: task.Schedule()}
		r.status[task.Name()] = st
	}
	return st
}

func (r *Runner) execute(ctx context.Context, task Task) error {
	r.inflight.Add(1)
	defer r.inflight.Done()

	started := time.Now()
	r.mu.Lock()
	st := r.statusFor(task)
	st.Running = true
	st.LastStarted = started
	r.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()
	r.logger.Printf("Running %s", task.Name())
	err := task.Run(runCtx)
	elapsed := time.Since(started)

	r.mu.Lock()
	st.Running = false
	st.Runs++
	st.LastDuration = elapsed
	st.LastError = ""
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Printf("%s failed after %s: %v", task.Name(), elapsed.Round(time.Millisecond), err)
		return err
	}
	r.logger.Printf("%s finished in %s", task.Name(), elapsed.Round(time.Millisecond))
	return nil
}

// Stop halts the scheduler and waits for in-flight runs
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
	r.inflight.Wait()
	r.logger.Println("Scheduler stopped")
}
