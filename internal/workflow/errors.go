package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gotrs-io/uiflow/internal/browser"
	"github.com/gotrs-io/uiflow/internal/report"
)

// ErrSessionAcquisition marks a run that could not obtain a browser session.
// It is the only run-fatal error.
var ErrSessionAcquisition = errors.New("browser session acquisition failed")

// ErrRunLocked is returned when another run holds the target's lock
var ErrRunLocked = errors.New("another run holds the lock for this target")

// AssertionError is an expected UI condition that did not hold
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string { return e.Message }

// Failf builds an AssertionError
func Failf(format string, args ...interface{}) error {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// TimeoutError is a required element or condition that never appeared
type TimeoutError struct {
	What    string
	Timeout time.Duration
	Last    error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.What)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.Last }

// elementTimeout describes a missing element
func elementTimeout(sel browser.Selector, timeout time.Duration) *TimeoutError {
	return &TimeoutError{What: "element " + sel.String(), Timeout: timeout}
}

// Classify maps a scenario error onto the report taxonomy
func Classify(err error) report.Kind {
	if err == nil {
		return report.KindNone
	}
	var assertErr *AssertionError
	if errors.As(err, &assertErr) {
		return report.KindAssertion
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		if timeoutErr.Last != nil {
			return Classify(timeoutErr.Last)
		}
		return report.KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return report.KindTimeout
	}
	return report.KindError
}
