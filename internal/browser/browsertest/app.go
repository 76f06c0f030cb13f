// Package browsertest provides an in-memory stand-in for a task/bug tracking
// page that satisfies browser.Driver, so workflow code can be exercised
// without a real browser.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gotrs-io/uiflow/internal/browser"
	"github.com/gotrs-io/uiflow/internal/profile"
)

// DefaultValidationMessage mirrors Chromium's message for an empty required input
const DefaultValidationMessage = "Please fill out this field."

// Options toggles the behaviours of the simulated application
type Options struct {
	// Title overrides the document title (defaults to the profile's app name)
	Title string
	// NoDeleteAll hides the bulk delete control
	NoDeleteAll bool
	// NoComplete hides the per-item complete action
	NoComplete bool
	// NoInProgress hides the per-item start-work action
	NoInProgress bool
	// Latency delays every mutation, as an asynchronous server round-trip would
	Latency time.Duration
	// HealthBody replaces the health endpoint response
	HealthBody string
	// LoseOnReload drops all entities when the page is reloaded
	LoseOnReload bool
	// NoPriorityClass renders items without a priority style marker
	NoPriorityClass bool
	// IgnoreStatusChange makes status actions raise a dialog but change nothing
	IgnoreStatusChange bool
	// Unreachable makes every navigation fail
	Unreachable bool
	// DeleteAllFails makes the bulk delete control raise an error dialog only
	DeleteAllFails bool
	// AcceptEmpty stores submissions with empty fields. The inputs still
	// report a validation message.
	AcceptEmpty bool
	// NoValidationMessage drops the required constraint from the inputs
	// while the server still rejects empty submissions
	NoValidationMessage bool
	// IgnoreDelete makes single delete actions raise their dialog but keep the item
	IgnoreDelete bool
	// Capacity caps the number of stored entities; further submissions are
	// acknowledged and dropped. Zero means unlimited.
	Capacity int
}

// Entity is one stored task/bug
type Entity struct {
	ID          int
	Title       string
	Description string
	Priority    profile.Priority
	Status      profile.Status
}

type page int

const (
	pageMain page = iota
	pageHealth
	pageNotFound
)

type formState struct {
	title       string
	description string
	priority    profile.Priority
}

// App is the simulated application plus the single browser session viewing it.
type App struct {
	mu       sync.Mutex
	opts     Options
	p        *profile.Profile
	entities []Entity
	nextID   int
	form     formState
	current  page
	loaded   bool
	dialogs  chan browser.Dialog
	pending  sync.WaitGroup

	closed      bool
	launches    int
	navigations int
	screenshots []string
}

// NewApp creates a simulated application for p
func NewApp(p *profile.Profile, opts Options) *App {
	return &App{
		opts:    opts,
		p:       p,
		nextID:  1,
		form:    formState{priority: profile.PriorityMedium},
		dialogs: make(chan browser.Dialog, 64),
	}
}

// Launcher returns a launcher handing out this app as the session
func (a *App) Launcher() browser.Launcher {
	return browser.LauncherFunc(func(ctx context.Context, _ browser.LaunchOptions) (browser.Driver, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.launches++
		a.closed = false
		return a, nil
	})
}

// Seed stores entities directly, bypassing the page
func (a *App) Seed(entities ...Entity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range entities {
		e.ID = a.nextID
		a.nextID++
		if e.Priority == "" {
			e.Priority = profile.PriorityMedium
		}
		if e.Status == "" {
			e.Status = profile.StatusOpen
		}
		a.entities = append(a.entities, e)
	}
}

// Entities returns a snapshot of the stored entities
func (a *App) Entities() []Entity {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entity, len(a.entities))
	copy(out, a.entities)
	return out
}

// Settle blocks until every delayed mutation has been applied
func (a *App) Settle() {
	a.pending.Wait()
}

// Closed reports whether the session was released
func (a *App) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Launches counts session acquisitions
func (a *App) Launches() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.launches
}

// Screenshots lists the paths passed to Screenshot
func (a *App) Screenshots() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.screenshots...)
}

// Navigate implements browser.Driver
func (a *App) Navigate(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.opts.Unreachable {
		return fmt.Errorf("navigate to %s: net::ERR_CONNECTION_REFUSED", rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", rawURL, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.navigations++
	a.loaded = true
	a.form = formState{priority: profile.PriorityMedium}
	switch strings.TrimSuffix(u.Path, "/") {
	case "":
		a.current = pageMain
	case strings.TrimSuffix(a.p.HealthPath, "/"):
		a.current = pageHealth
	default:
		a.current = pageNotFound
	}
	return nil
}

// Refresh implements browser.Driver
func (a *App) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.loaded {
		return errors.New("nothing to reload")
	}
	a.form = formState{priority: profile.PriorityMedium}
	if a.opts.LoseOnReload {
		a.entities = nil
	}
	return nil
}

// Title implements browser.Driver
func (a *App) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != pageMain || !a.loaded {
		return "", nil
	}
	if a.opts.Title != "" {
		return a.opts.Title, nil
	}
	return a.p.AppName, nil
}

// PageSource implements browser.Driver
func (a *App) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	root := a.renderLocked()
	a.mu.Unlock()
	var b strings.Builder
	b.WriteString("<html><head></head>")
	root.writeHTML(&b)
	b.WriteString("</html>")
	return b.String(), nil
}

// FindElements implements browser.Driver
func (a *App) FindElements(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	root := a.renderLocked()
	a.mu.Unlock()
	return a.wrap(root.find(sel, true))
}

// NextDialog implements browser.Driver
func (a *App) NextDialog(ctx context.Context, budget time.Duration) (browser.Dialog, error) {
	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case d := <-a.dialogs:
		return d, nil
	case <-timer.C:
		return browser.Dialog{}, browser.ErrNoDialog
	case <-ctx.Done():
		return browser.Dialog{}, ctx.Err()
	}
}

// Screenshot implements browser.Driver; it only records the path
func (a *App) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.screenshots = append(a.screenshots, path)
	return nil
}

// Close implements browser.Driver
func (a *App) Close() error {
	a.pending.Wait()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *App) alert(msg string) {
	select {
	case a.dialogs <- browser.Dialog{Type: "alert", Message: msg}:
	default:
	}
}

// mutate applies fn now or after the configured latency, then raises msg
func (a *App) mutate(msg string, fn func()) {
	apply := func() {
		a.mu.Lock()
		fn()
		a.mu.Unlock()
		if msg != "" {
			a.alert(msg)
		}
	}
	if a.opts.Latency <= 0 {
		apply()
		return
	}
	a.pending.Add(1)
	time.AfterFunc(a.opts.Latency, func() {
		defer a.pending.Done()
		apply()
	})
}

func (a *App) healthBody() string {
	if a.opts.HealthBody != "" {
		return a.opts.HealthBody
	}
	body, _ := json.Marshal(map[string]string{
		"status":    a.p.HealthToken,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return string(body)
}
