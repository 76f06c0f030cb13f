package workflow

import "time"

// Timings bounds every wait the runner performs
type Timings struct {
	// Timeout bounds explicit waits for required elements and postconditions
	Timeout time.Duration
	// PollInterval is the period of poll-until-predicate waits
	PollInterval time.Duration
	// DialogWait bounds the wait for a dialog after a mutating action
	DialogWait time.Duration
	// AffordanceWait bounds the wait for optional controls
	AffordanceWait time.Duration
	// SettleWait bounds the wait for a bulk delete to empty the list
	SettleWait time.Duration
	// DeleteWait bounds the wait for each single delete during clear-all
	DeleteWait time.Duration
	// ClearCap caps clear-all's single-delete iterations
	ClearCap int
}

// DefaultTimings returns the stock wait budgets
func DefaultTimings() Timings {
	return Timings{
		Timeout:        10 * time.Second,
		PollInterval:   250 * time.Millisecond,
		DialogWait:     time.Second,
		AffordanceWait: 2 * time.Second,
		SettleWait:     2 * time.Second,
		DeleteWait:     500 * time.Millisecond,
		ClearCap:       50,
	}
}

// withDefaults fills zero fields from DefaultTimings
func (t Timings) withDefaults() Timings {
	d := DefaultTimings()
	if t.Timeout <= 0 {
		t.Timeout = d.Timeout
	}
	if t.PollInterval <= 0 {
		t.PollInterval = d.PollInterval
	}
	if t.DialogWait <= 0 {
		t.DialogWait = d.DialogWait
	}
	if t.AffordanceWait <= 0 {
		t.AffordanceWait = d.AffordanceWait
	}
	if t.SettleWait <= 0 {
		t.SettleWait = d.SettleWait
	}
	if t.DeleteWait <= 0 {
		t.DeleteWait = d.DeleteWait
	}
	if t.ClearCap <= 0 {
		t.ClearCap = d.ClearCap
	}
	return t
}
