package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/uiflow/internal/browser"
)

func TestBuiltinProfiles(t *testing.T) {
	t.Run("task manager", func(t *testing.T) {
		p, err := Lookup(TaskManager)
		require.NoError(t, err)
		require.NoError(t, p.Validate())

		assert.Equal(t, "Task Manager", p.AppName)
		assert.Equal(t, "http://host.docker.internal:3000", p.DefaultURL)
		assert.Equal(t, browser.ByID("task-title"), p.Selectors.TitleInput)
		assert.Equal(t, browser.ByID("submit-task"), p.Selectors.Submit)
		assert.Equal(t, browser.ByClass("task-item"), p.Selectors.Item)
		assert.Equal(t, "In Progress", p.Labels.InProgress)
		assert.Equal(t, "priority-high", p.PriorityClass(PriorityHigh))
		assert.Equal(t, "Task", p.TitleNoun())
	})

	t.Run("bug fixer", func(t *testing.T) {
		p, err := Lookup(BugFixer)
		require.NoError(t, err)
		require.NoError(t, p.Validate())

		assert.Equal(t, "Bug Fixer", p.AppName)
		assert.Equal(t, "http://host.docker.internal:5000", p.DefaultURL)
		assert.Equal(t, browser.ByID("bug-priority"), p.Selectors.PrioritySelect)
		assert.Equal(t, browser.ByClass("bug-status"), p.Selectors.ItemStatus)
		assert.Equal(t, "Start Work", p.Labels.InProgress)
		assert.Equal(t, "severity-low", p.PriorityClass(PriorityLow))
		assert.Equal(t, "status-in-progress", p.StatusClass(StatusInProgress))
	})

	t.Run("lookup returns a copy", func(t *testing.T) {
		p, err := Lookup(TaskManager)
		require.NoError(t, err)
		p.AppName = "changed"

		again, err := Lookup(TaskManager)
		require.NoError(t, err)
		assert.Equal(t, "Task Manager", again.AppName)
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := Lookup("nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "task-manager")
	})

	assert.Equal(t, []string{BugFixer, TaskManager}, Names())
}

func TestValidate(t *testing.T) {
	p := ForNoun("ticket")
	p.Name = "tickets"
	p.AppName = "Tickets"
	p.DefaultURL = "http://localhost:8080"
	require.NoError(t, p.Validate())

	missing := p
	missing.AppName = " "
	assert.ErrorContains(t, missing.Validate(), "app_name is required")

	badPath := p
	badPath.HealthPath = "health"
	assert.ErrorContains(t, badPath.Validate(), "health_path")

	noSel := p
	noSel.Selectors.Submit = browser.Selector{}
	assert.ErrorContains(t, noSel.Validate(), "selector submit is required")
}

func TestParse(t *testing.T) {
	t.Run("minimal document derives selectors from noun", func(t *testing.T) {
		doc := []byte(`
name: issue-board
app_name: Issue Board
noun: issue
default_url: http://localhost:4000
labels:
  in_progress: Begin
classes:
  priority_prefix: level-
`)
		p, err := Parse(doc)
		require.NoError(t, err)

		assert.Equal(t, "issue-board", p.Name)
		assert.Equal(t, browser.ByID("issue-title"), p.Selectors.TitleInput)
		assert.Equal(t, browser.ByClass("issue-item"), p.Selectors.Item)
		assert.Equal(t, "Begin", p.Labels.InProgress)
		assert.Equal(t, "Mark Complete", p.Labels.Complete)
		assert.Equal(t, "level-medium", p.PriorityClass(PriorityMedium))
		assert.Equal(t, "/health", p.HealthPath)
	})

	t.Run("selector override", func(t *testing.T) {
		doc := []byte(`
name: custom
app_name: Custom
noun: card
selectors:
  item:
    kind: css
    value: li.card
`)
		p, err := Parse(doc)
		require.NoError(t, err)
		assert.Equal(t, browser.ByCSS("li.card"), p.Selectors.Item)
		assert.Equal(t, "http://localhost:3000", p.DefaultURL)
	})

	t.Run("schema violations are reported", func(t *testing.T) {
		doc := []byte(`
name: Bad Name
noun: card
selectors:
  item:
    kind: xpath
    value: //li
unknown: true
`)
		_, err := Parse(doc)
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.GreaterOrEqual(t, len(verr.Problems), 3)
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := Parse([]byte(""))
		require.Error(t, err)
	})
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from-file\napp_name: From File\nnoun: note\n"), 0o644))

	p, err := Resolve(TaskManager, path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", p.Name)

	p, err = Resolve(BugFixer, "")
	require.NoError(t, err)
	assert.Equal(t, BugFixer, p.Name)

	_, err = Resolve("", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
