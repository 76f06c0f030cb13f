package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/uiflow/internal/report"
)

type fakeRunner struct {
	rep *report.Report
	err error
}

func (f *fakeRunner) Run(context.Context) (*report.Report, error) { return f.rep, f.err }

func TestBatteryTaskDeliversReports(t *testing.T) {
	rep := &report.Report{RunID: "r1"}
	rep.Add(report.Result{Position: 1, Status: report.StatusPassed})

	var got []string
	sink := SinkFunc(func(ctx context.Context, r *report.Report) error {
		got = append(got, r.RunID)
		return nil
	})
	task := NewBatteryTask("battery", "0 */15 * * * *", 0, &fakeRunner{rep: rep}, sink, sink)

	assert.Equal(t, "battery", task.Name())
	assert.Equal(t, "0 */15 * * * *", task.Schedule())
	assert.Equal(t, 15*time.Minute, task.Timeout())
	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, []string{"r1", "r1"}, got)
}

func TestBatteryTaskFailures(t *testing.T) {
	failed := &report.Report{RunID: "r2"}
	failed.Add(report.Result{Position: 1, Status: report.StatusFailed})

	saved := 0
	sink := SinkFunc(func(context.Context, *report.Report) error {
		saved++
		return nil
	})
	err := NewBatteryTask("b", "@hourly", time.Minute, &fakeRunner{rep: failed}, sink).Run(context.Background())
	assert.EqualError(t, err, "1 scenario(s) failed")
	assert.Equal(t, 1, saved, "failed runs are still recorded")

	fatal := errors.New("browser session acquisition failed")
	err = NewBatteryTask("b", "@hourly", time.Minute, &fakeRunner{err: fatal}, sink).Run(context.Background())
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, saved)

	broken := SinkFunc(func(context.Context, *report.Report) error { return errors.New("db down") })
	ok := &report.Report{RunID: "r3"}
	err = NewBatteryTask("b", "@hourly", time.Minute, &fakeRunner{rep: ok}, broken).Run(context.Background())
	assert.EqualError(t, err, "db down")
}
