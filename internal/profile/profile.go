// Package profile describes the application a workflow battery targets:
// its vocabulary, selector map and style markers.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gotrs-io/uiflow/internal/browser"
)

// Priority is the entity priority enumeration
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority in ascending order
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Status is the entity lifecycle state
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Selectors locates the page controls a battery touches
type Selectors struct {
	Heading          browser.Selector `yaml:"heading"`
	TitleInput       browser.Selector `yaml:"title_input"`
	DescriptionInput browser.Selector `yaml:"description_input"`
	PrioritySelect   browser.Selector `yaml:"priority_select"`
	Submit           browser.Selector `yaml:"submit"`
	DeleteAll        browser.Selector `yaml:"delete_all"`
	Item             browser.Selector `yaml:"item"`
	ItemTitle        browser.Selector `yaml:"item_title"`
	ItemDescription  browser.Selector `yaml:"item_description"`
	ItemStatus       browser.Selector `yaml:"item_status"`
	Body             browser.Selector `yaml:"body"`
}

// Labels are the visible texts of per-item action buttons
type Labels struct {
	Complete   string `yaml:"complete"`
	InProgress string `yaml:"in_progress"`
	Delete     string `yaml:"delete"`
}

// Classes are the style markers the page applies to items
type Classes struct {
	PriorityPrefix   string `yaml:"priority_prefix"`
	StatusCompleted  string `yaml:"status_completed"`
	StatusInProgress string `yaml:"status_in_progress"`
}

// Profile is one target application
type Profile struct {
	Name        string    `yaml:"name"`
	AppName     string    `yaml:"app_name"`
	Noun        string    `yaml:"noun"`
	DefaultURL  string    `yaml:"default_url"`
	HealthPath  string    `yaml:"health_path"`
	HealthToken string    `yaml:"health_token"`
	Selectors   Selectors `yaml:"selectors"`
	Labels      Labels    `yaml:"labels"`
	Classes     Classes   `yaml:"classes"`
}

// PriorityClass returns the style marker for p, e.g. "priority-high"
func (p *Profile) PriorityClass(pr Priority) string {
	return p.Classes.PriorityPrefix + string(pr)
}

// StatusClass returns the style marker for a non-open status
func (p *Profile) StatusClass(s Status) string {
	switch s {
	case StatusCompleted:
		return p.Classes.StatusCompleted
	case StatusInProgress:
		return p.Classes.StatusInProgress
	default:
		return "status-" + string(s)
	}
}

// TitleNoun returns the noun title-cased for display ("task" -> "Task")
func (p *Profile) TitleNoun() string {
	return cases.Title(language.English).String(p.Noun)
}

// PluralNoun returns a naive English plural of the noun
func (p *Profile) PluralNoun() string {
	return p.Noun + "s"
}

// Validate reports the first missing required field
func (p *Profile) Validate() error {
	required := map[string]string{
		"name":        p.Name,
		"app_name":    p.AppName,
		"noun":        p.Noun,
		"default_url": p.DefaultURL,
		"health_path": p.HealthPath,
	}
	keys := make([]string, 0, len(required))
	for k := range required {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.TrimSpace(required[k]) == "" {
			return fmt.Errorf("profile %q: %s is required", p.Name, k)
		}
	}
	if !strings.HasPrefix(p.HealthPath, "/") {
		return fmt.Errorf("profile %q: health_path must start with '/'", p.Name)
	}
	sels := []struct {
		name string
		sel  browser.Selector
	}{
		{"heading", p.Selectors.Heading},
		{"title_input", p.Selectors.TitleInput},
		{"description_input", p.Selectors.DescriptionInput},
		{"priority_select", p.Selectors.PrioritySelect},
		{"submit", p.Selectors.Submit},
		{"item", p.Selectors.Item},
		{"item_title", p.Selectors.ItemTitle},
		{"item_description", p.Selectors.ItemDescription},
		{"item_status", p.Selectors.ItemStatus},
		{"body", p.Selectors.Body},
	}
	for _, s := range sels {
		if s.sel.IsZero() {
			return fmt.Errorf("profile %q: selector %s is required", p.Name, s.name)
		}
	}
	return nil
}
