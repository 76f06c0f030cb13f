// Package browser defines the browser automation capability the workflow
// runner consumes, plus its playwright-go implementation.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNoDialog is returned by NextDialog when no dialog appeared within the budget
var ErrNoDialog = errors.New("no dialog present")

// Dialog is a native browser dialog (alert, confirm, prompt) raised by the page.
type Dialog struct {
	Type    string
	Message string
}

// Driver is one exclusively owned browser session.
type Driver interface {
	// Navigate loads url and waits for the document to be parsed
	Navigate(ctx context.Context, url string) error
	// Refresh reloads the current page
	Refresh(ctx context.Context) error
	Title(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)
	// FindElements returns every element matching sel, in document order.
	// An empty result is not an error.
	FindElements(ctx context.Context, sel Selector) ([]Element, error)
	// NextDialog waits up to budget for a dialog the page raised since the
	// previous call. Dialogs are accepted as soon as they appear so the page
	// never blocks; NextDialog only reports them.
	NextDialog(ctx context.Context, budget time.Duration) (Dialog, error)
	// Screenshot writes a PNG of the current viewport to path
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// Element is a handle to a rendered DOM element.
type Element interface {
	Click(ctx context.Context) error
	// Fill replaces the element's value with text
	Fill(ctx context.Context, text string) error
	// SelectValue picks the option with the given value on a select element
	SelectValue(ctx context.Context, value string) error
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value, or "" when it is absent
	Attribute(ctx context.Context, name string) (string, error)
	// Property reads a live DOM property such as validationMessage
	Property(ctx context.Context, name string) (string, error)
	FindElements(ctx context.Context, sel Selector) ([]Element, error)
}

// LaunchOptions configures session acquisition
type LaunchOptions struct {
	Headless      bool
	Width         int
	Height        int
	NoSandbox     bool
	SlowMo        time.Duration
	Install       bool
	ActionTimeout time.Duration
}

// Launcher acquires a browser session
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Driver, error)
}

// LauncherFunc adapts a function to the Launcher interface
type LauncherFunc func(ctx context.Context, opts LaunchOptions) (Driver, error)

// Launch calls f(ctx, opts)
func (f LauncherFunc) Launch(ctx context.Context, opts LaunchOptions) (Driver, error) {
	return f(ctx, opts)
}
