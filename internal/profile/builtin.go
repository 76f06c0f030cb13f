package profile

import (
	"fmt"
	"sort"

	"github.com/gotrs-io/uiflow/internal/browser"
)

const (
	TaskManager = "task-manager"
	BugFixer    = "bug-fixer"
)

// ForNoun derives the conventional page shape for an entity noun: ids such as
// "<noun>-title" and "submit-<noun>", item classes such as "<noun>-item".
func ForNoun(noun string) Profile {
	return Profile{
		Noun:        noun,
		HealthPath:  "/health",
		HealthToken: "OK",
		Selectors: Selectors{
			Heading:          browser.ByTag("h1"),
			TitleInput:       browser.ByID(noun + "-title"),
			DescriptionInput: browser.ByID(noun + "-description"),
			PrioritySelect:   browser.ByID(noun + "-priority"),
			Submit:           browser.ByID("submit-" + noun),
			DeleteAll:        browser.ByID("delete-all"),
			Item:             browser.ByClass(noun + "-item"),
			ItemTitle:        browser.ByClass(noun + "-title"),
			ItemDescription:  browser.ByClass(noun + "-description"),
			ItemStatus:       browser.ByClass(noun + "-status"),
			Body:             browser.ByTag("body"),
		},
		Labels: Labels{
			Complete:   "Mark Complete",
			InProgress: "In Progress",
			Delete:     "Delete",
		},
		Classes: Classes{
			PriorityPrefix:   "priority-",
			StatusCompleted:  "status-completed",
			StatusInProgress: "status-in-progress",
		},
	}
}

func builtins() map[string]Profile {
	task := ForNoun("task")
	task.Name = TaskManager
	task.AppName = "Task Manager"
	task.DefaultURL = "http://host.docker.internal:3000"

	bug := ForNoun("bug")
	bug.Name = BugFixer
	bug.AppName = "Bug Fixer"
	bug.DefaultURL = "http://host.docker.internal:5000"
	bug.Labels.InProgress = "Start Work"
	bug.Classes.PriorityPrefix = "severity-"

	return map[string]Profile{
		TaskManager: task,
		BugFixer:    bug,
	}
}

// Lookup returns a copy of the built-in profile called name
func Lookup(name string) (*Profile, error) {
	p, ok := builtins()[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (available: %v)", name, Names())
	}
	return &p, nil
}

// Names lists the built-in profile names, sorted
func Names() []string {
	all := builtins()
	names := make([]string, 0, len(all))
	for n := range all {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
