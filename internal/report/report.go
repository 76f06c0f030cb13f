// Package report holds the per-scenario result model of a workflow run and
// writes it in the formats downstream tooling consumes.
package report

import (
	"time"
)

// Status is the verdict of one scenario
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Kind classifies why a scenario failed
type Kind string

const (
	KindNone      Kind = ""
	KindAssertion Kind = "assertion"
	KindTimeout   Kind = "timeout"
	KindError     Kind = "error"
)

// Result is the outcome of one scenario
type Result struct {
	Position   int           `json:"position"`
	Name       string        `json:"name"`
	Status     Status        `json:"status"`
	Kind       Kind          `json:"kind,omitempty"`
	Message    string        `json:"message,omitempty"`
	Notes      []string      `json:"notes,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	Screenshot string        `json:"screenshot,omitempty"`
}

// Passed reports whether the scenario passed
func (r Result) Passed() bool { return r.Status == StatusPassed }

// Report is the outcome of one run of the battery
type Report struct {
	RunID      string    `json:"run_id"`
	Profile    string    `json:"profile"`
	AppName    string    `json:"app_name"`
	BaseURL    string    `json:"base_url"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	// Duration covers session acquisition through release
	Duration time.Duration `json:"duration_ns"`
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Results  []Result      `json:"results"`
}

// Add appends a result and updates the aggregate counts
func (r *Report) Add(res Result) {
	r.Results = append(r.Results, res)
	r.Total++
	switch res.Status {
	case StatusPassed:
		r.Passed++
	case StatusFailed:
		r.Failed++
	case StatusSkipped:
		r.Skipped++
	}
}

// Succeeded reports whether no scenario failed
func (r *Report) Succeeded() bool {
	return r.Failed == 0
}

// SuccessRate is the share of executed scenarios that passed, in percent
func (r *Report) SuccessRate() float64 {
	executed := r.Passed + r.Failed
	if executed == 0 {
		return 0
	}
	return float64(r.Passed) / float64(executed) * 100
}

// Failures returns the failed results in execution order
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}
