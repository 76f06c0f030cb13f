package runner

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Task is a unit of scheduled work
type Task interface {
	Name() string
	// Schedule is a cron expression with a leading seconds field
	Schedule() string
	Timeout() time.Duration
	Run(ctx context.Context) error
}

// TaskRegistry is the set of tasks a Runner schedules, keyed by name
type TaskRegistry struct {
	mu     sync.RWMutex
	byName map[string]Task
}

// NewTaskRegistry creates an empty registry
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{byName: map[string]Task{}}
}

// Register adds task; a later task with the same name wins
func (tr *TaskRegistry) Register(task Task) {
	tr.mu.Lock()
	tr.byName[task.Name()] = task
	tr.mu.Unlock()
}

// Get looks a task up by name
func (tr *TaskRegistry) Get(name string) (Task, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	t, ok := tr.byName[name]
	return t, ok
}

// Sorted returns the registered tasks ordered by name
func (tr *TaskRegistry) Sorted() []Task {
	tr.mu.RLock()
	out := make([]Task, 0, len(tr.byName))
	for _, t := range tr.byName {
		out = append(out, t)
	}
	tr.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
