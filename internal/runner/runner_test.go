package runner

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTask struct {
	name     string
	schedule string
	runs     int32
	err      error
}

func (t *countingTask) Name() string           { return t.name }
func (t *countingTask) Schedule() string       { return t.schedule }
func (t *countingTask) Timeout() time.Duration { return time.Second }
func (t *countingTask) Run(ctx context.Context) error {
	atomic.AddInt32(&t.runs, 1)
	return t.err
}

func quietRunner(reg *TaskRegistry) *Runner {
	r := NewRunner(reg)
	r.SetLogger(log.New(io.Discard, "", 0))
	return r
}

func TestRegistry(t *testing.T) {
	reg := NewTaskRegistry()
	reg.Register(&countingTask{name: "b"})
	reg.Register(&countingTask{name: "a"})
	reg.Register(&countingTask{name: "b", schedule: "replaced"})

	sorted := reg.Sorted()
	require.Len(t, sorted, 2)
	assert.Equal(t, "a", sorted[0].Name())
	b, ok := reg.Get("b")
	require.True(t, ok)
	assert.Equal(t, "replaced", b.Schedule())
	_, ok = reg.Get("c")
	assert.False(t, ok)
}

func TestRunNow(t *testing.T) {
	reg := NewTaskRegistry()
	task := &countingTask{name: "battery", schedule: "@every 1h", err: errors.New("2 scenario(s) failed")}
	reg.Register(task)
	r := quietRunner(reg)

	err := r.RunNow(context.Background(), "battery")
	assert.EqualError(t, err, "2 scenario(s) failed")
	assert.Equal(t, int32(1), atomic.LoadInt32(&task.runs))

	assert.Error(t, r.RunNow(context.Background(), "missing"))
}

func TestStartRunsScheduledAndStartupTasks(t *testing.T) {
	reg := NewTaskRegistry()
	task := &countingTask{name: "battery", schedule: "@every 1h"}
	reg.Register(task)
	r := quietRunner(reg)
	r.RunAtStart = true

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := r.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&task.runs))

	st := r.Statuses()
	require.Len(t, st, 1)
	assert.Equal(t, "battery", st[0].Name)
	assert.Equal(t, 1, st[0].Runs)
	assert.False(t, st[0].Running)
}

// blockingTask holds every run until its context ends
type blockingTask struct {
	runs int32
}

func (t *blockingTask) Name() string           { return "battery" }
func (t *blockingTask) Schedule() string       { return "* * * * * *" }
func (t *blockingTask) Timeout() time.Duration { return time.Minute }
func (t *blockingTask) Run(ctx context.Context) error {
	atomic.AddInt32(&t.runs, 1)
	<-ctx.Done()
	return ctx.Err()
}

func TestTicksSkippedWhileStartupRunInFlight(t *testing.T) {
	reg := NewTaskRegistry()
	task := &blockingTask{}
	reg.Register(task)
	r := quietRunner(reg)
	r.RunAtStart = true

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	err := r.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&task.runs))

	st := r.Statuses()
	require.Len(t, st, 1)
	assert.Equal(t, 1, st[0].Runs)
	assert.Equal(t, 1, st[0].Failures)
}

func TestStatusesRecordFailures(t *testing.T) {
	reg := NewTaskRegistry()
	reg.Register(&countingTask{name: "battery", schedule: "@every 1h", err: errors.New("3 scenario(s) failed")})
	reg.Register(&countingTask{name: "idle", schedule: "@every 1h"})
	r := quietRunner(reg)

	assert.Empty(t, r.Statuses())
	_ = r.RunNow(context.Background(), "battery")
	_ = r.RunNow(context.Background(), "battery")

	st := r.Statuses()
	require.Len(t, st, 1)
	assert.Equal(t, 2, st[0].Runs)
	assert.Equal(t, 2, st[0].Failures)
	assert.Equal(t, "3 scenario(s) failed", st[0].LastError)
	assert.False(t, st[0].LastStarted.IsZero())
	assert.True(t, st[0].Next.IsZero())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	reg := NewTaskRegistry()
	reg.Register(&countingTask{name: "bad", schedule: "not a schedule"})
	err := quietRunner(reg).Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule task bad")
}
