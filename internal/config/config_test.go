package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/uiflow/internal/profile"
	"github.com/gotrs-io/uiflow/internal/report"
)

func quietLoader(file string) *Loader {
	l := NewLoader(file)
	l.SetLogger(log.New(io.Discard, "", 0))
	return l
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := quietLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, profile.TaskManager, c.Target.Profile)
	assert.True(t, c.Browser.Headless)
	assert.Equal(t, 1920, c.Browser.Width)
	assert.Equal(t, 1080, c.Browser.Height)
	assert.True(t, c.Browser.NoSandbox)
	assert.Equal(t, 10*time.Second, c.Timings.Timeout)
	assert.Equal(t, 250*time.Millisecond, c.Timings.PollInterval)
	assert.Equal(t, time.Second, c.Timings.DialogWait)
	assert.Equal(t, 50, c.Timings.ClearCap)
	assert.False(t, c.Run.Strict)
	assert.Empty(t, c.Run.Only)
	assert.Equal(t, "test-results", c.Report.Dir)
	assert.Equal(t, []report.Format{report.FormatJSON, report.FormatJUnit, report.FormatMarkdown}, c.ReportFormats())
	assert.Equal(t, 15*time.Minute, c.Lock.TTL)
	assert.Equal(t, "0 */15 * * * *", c.Monitor.Schedule)
	assert.Same(t, c, Get())
}

func TestFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", `
target:
  profile: bug-fixer
  base_url: http://app:5000
timings:
  timeout: 3s
run:
  only: [1, 10]
report:
  formats: [json, xlsx]
`)
	t.Setenv("UIFLOW_TIMINGS_POLL_INTERVAL", "100ms")
	t.Setenv("UIFLOW_RUN_STRICT", "true")

	c, err := quietLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, profile.BugFixer, c.Target.Profile)
	assert.Equal(t, 3*time.Second, c.Timings.Timeout)
	assert.Equal(t, 100*time.Millisecond, c.Timings.PollInterval)
	assert.True(t, c.Run.Strict)
	assert.Equal(t, []int{1, 10}, c.Run.Only)
	assert.Equal(t, []report.Format{report.FormatJSON, report.FormatXLSX}, c.ReportFormats())

	wt := c.WorkflowTimings()
	assert.Equal(t, 3*time.Second, wt.Timeout)
	lo := c.LaunchOptions()
	assert.Equal(t, 3*time.Second, lo.ActionTimeout)
	assert.Equal(t, 1920, lo.Width)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := quietLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", `
timings:
  timeout: 0s
  clear_cap: -1
report:
  formats: [pdf]
run:
  only: [0]
history:
  dsn: file.db
`)
	_, err := quietLoader(path).Load()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "timings.timeout must be positive")
	assert.Contains(t, msg, "timings.clear_cap must be positive")
	assert.Contains(t, msg, `unknown report format "pdf"`)
	assert.Contains(t, msg, "run.only position 0 must be positive")
	assert.Contains(t, msg, "history.driver is required")
}

func TestBaseURLPrecedence(t *testing.T) {
	p, err := profile.Lookup(profile.TaskManager)
	require.NoError(t, err)
	c := &Config{}

	t.Setenv(BaseURLEnv, "")
	assert.Equal(t, p.DefaultURL, c.BaseURL(p))

	c.Target.BaseURL = "http://configured:3000"
	assert.Equal(t, "http://configured:3000", c.BaseURL(p))

	t.Setenv(BaseURLEnv, "http://from-env:3000")
	assert.Equal(t, "http://from-env:3000", c.BaseURL(p))
}

func TestProfileFromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "widget.yaml", "name: widget-board\napp_name: Widget Board\nnoun: widget\n")
	c := &Config{Target: TargetConfig{Profile: profile.TaskManager, ProfileFile: path}}
	p, err := c.Profile()
	require.NoError(t, err)
	assert.Equal(t, "Widget Board", p.AppName)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "UIFLOW_DOTENV_SET=from-file\nUIFLOW_DOTENV_KEEP=from-file\n")
	t.Setenv("UIFLOW_DOTENV_KEEP", "from-process")
	t.Setenv("UIFLOW_DOTENV_SET", "")
	os.Unsetenv("UIFLOW_DOTENV_SET")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("UIFLOW_DOTENV_SET"))
	assert.Equal(t, "from-process", os.Getenv("UIFLOW_DOTENV_KEEP"))
}
