package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gotrs-io/uiflow/internal/browser"
	"github.com/gotrs-io/uiflow/internal/profile"
)

// Session is the handle threaded through every scenario of a run: the one
// browser session, the target profile and the wait budgets. Scenarios see
// each other's side effects through it, in position order.
type Session struct {
	Driver  browser.Driver
	Profile *profile.Profile
	BaseURL string
	Timings Timings
	// Strict turns lenient degradations into failures
	Strict bool

	logger  *log.Logger
	verbose bool
	notes   []string
}

// NewSession wires a session around an acquired driver
func NewSession(d browser.Driver, p *profile.Profile, baseURL string, t Timings, logger *log.Logger) *Session {
	return &Session{
		Driver:  d,
		Profile: p,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timings: t.withDefaults(),
		logger:  logger,
	}
}

// Logf writes to the run log
func (s *Session) Logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func (s *Session) debugf(format string, args ...interface{}) {
	if s.verbose {
		s.Logf(format, args...)
	}
}

// Note records a remark on the current scenario's result
func (s *Session) Note(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.notes = append(s.notes, msg)
	s.Logf("note: %s", msg)
}

// Lenient handles an optional affordance that is absent: a recorded no-op
// pass, or a failure when the session is strict.
func (s *Session) Lenient(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if s.Strict {
		return Failf("%s", msg)
	}
	s.Note("lenient: %s", msg)
	return nil
}

func (s *Session) takeNotes() []string {
	n := s.notes
	s.notes = nil
	return n
}

// URL joins path onto the base URL
func (s *Session) URL(path string) string {
	if path == "" {
		return s.BaseURL
	}
	return s.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// Poll evaluates cond every PollInterval until it reports true or timeout
// elapses. The last error cond returned is kept on the TimeoutError.
func (s *Session) Poll(ctx context.Context, what string, timeout time.Duration, cond func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	var last error
	for {
		ok, err := cond(ctx)
		if ok && err == nil {
			return nil
		}
		last = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{What: what, Timeout: timeout, Last: last}
		}
		wait := s.Timings.PollInterval
		if wait > remaining {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// WaitForElement waits until sel matches at least one element and returns the first
func (s *Session) WaitForElement(ctx context.Context, sel browser.Selector, timeout time.Duration) (browser.Element, error) {
	var found browser.Element
	err := s.Poll(ctx, "element "+sel.String(), timeout, func(ctx context.Context) (bool, error) {
		els, err := s.Driver.FindElements(ctx, sel)
		if err != nil {
			return false, err
		}
		if len(els) == 0 {
			return false, nil
		}
		found = els[0]
		return true, nil
	})
	if err != nil {
		var te *TimeoutError
		if errors.As(err, &te) && te.Last == nil {
			return nil, elementTimeout(sel, timeout)
		}
		return nil, err
	}
	return found, nil
}

// FindOne returns the first element matching sel right now
func (s *Session) FindOne(ctx context.Context, sel browser.Selector) (browser.Element, error) {
	els, err := s.Driver.FindElements(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, elementTimeout(sel, 0)
	}
	return els[0], nil
}

// SuppressDialog waits briefly for a dialog raised by the previous action and
// logs its text. It never fails: the driver has already accepted the dialog.
func (s *Session) SuppressDialog(ctx context.Context) (string, bool) {
	d, err := s.Driver.NextDialog(ctx, s.Timings.DialogWait)
	if err != nil {
		if !errors.Is(err, browser.ErrNoDialog) {
			s.debugf("dialog wait ended: %v", err)
		}
		return "", false
	}
	s.Logf("Alert detected: %s", d.Message)
	return d.Message, true
}

// drainDialogs discards dialogs left over from earlier actions
func (s *Session) drainDialogs(ctx context.Context) {
	for {
		d, err := s.Driver.NextDialog(ctx, 0)
		if err != nil {
			return
		}
		s.Logf("Alert detected (stale): %s", d.Message)
	}
}

// Open loads the base page and waits for its heading
func (s *Session) Open(ctx context.Context) error {
	if err := s.Driver.Navigate(ctx, s.BaseURL); err != nil {
		return err
	}
	if _, err := s.WaitForElement(ctx, s.Profile.Selectors.Heading, s.Timings.Timeout); err != nil {
		return err
	}
	s.drainDialogs(ctx)
	return nil
}

// Items returns the rendered entity elements
func (s *Session) Items(ctx context.Context) ([]browser.Element, error) {
	return s.Driver.FindElements(ctx, s.Profile.Selectors.Item)
}

// Count returns the number of rendered entities
func (s *Session) Count(ctx context.Context) (int, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// ItemTitle reads the title of one rendered entity
func (s *Session) ItemTitle(ctx context.Context, item browser.Element) (string, error) {
	return s.childText(ctx, item, s.Profile.Selectors.ItemTitle)
}

func (s *Session) childText(ctx context.Context, item browser.Element, sel browser.Selector) (string, error) {
	els, err := item.FindElements(ctx, sel)
	if err != nil {
		return "", err
	}
	if len(els) == 0 {
		return "", Failf("%s has no %s element", s.Profile.Noun, sel)
	}
	txt, err := els[0].Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(txt), nil
}

// Titles returns the title of every rendered entity, in page order
func (s *Session) Titles(ctx context.Context) ([]string, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(items))
	for _, item := range items {
		t, err := s.ItemTitle(ctx, item)
		if err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, nil
}

// WaitForCount polls until exactly want entities are rendered. The last
// observed count is returned either way.
func (s *Session) WaitForCount(ctx context.Context, want int, timeout time.Duration) (int, error) {
	got := -1
	err := s.Poll(ctx, fmt.Sprintf("%d %s", want, s.Profile.PluralNoun()), timeout, func(ctx context.Context) (bool, error) {
		n, err := s.Count(ctx)
		if err != nil {
			return false, err
		}
		got = n
		return n == want, nil
	})
	return got, err
}

// HasClass reports whether el's class attribute contains class as a token
func HasClass(ctx context.Context, el browser.Element, class string) (bool, error) {
	attr, err := el.Attribute(ctx, "class")
	if err != nil {
		return false, err
	}
	for _, c := range strings.Fields(attr) {
		if c == class {
			return true, nil
		}
	}
	return false, nil
}

// AnyStatus reports whether some entity's status badge carries class
func (s *Session) AnyStatus(ctx context.Context, class string) (bool, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		badges, err := item.FindElements(ctx, s.Profile.Selectors.ItemStatus)
		if err != nil {
			return false, err
		}
		if len(badges) == 0 {
			continue
		}
		ok, err := HasClass(ctx, badges[0], class)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// EntityInput is what the creation form is filled with
type EntityInput struct {
	Title       string
	Description string
	Priority    profile.Priority
}

// Create fills and submits the creation form, then resolves its dialog.
// It does not wait for the entity to render.
func (s *Session) Create(ctx context.Context, in EntityInput) error {
	sel := s.Profile.Selectors
	title, err := s.WaitForElement(ctx, sel.TitleInput, s.Timings.Timeout)
	if err != nil {
		return err
	}
	desc, err := s.FindOne(ctx, sel.DescriptionInput)
	if err != nil {
		return err
	}
	prio, err := s.FindOne(ctx, sel.PrioritySelect)
	if err != nil {
		return err
	}
	submit, err := s.FindOne(ctx, sel.Submit)
	if err != nil {
		return err
	}

	if err := title.Fill(ctx, in.Title); err != nil {
		return fmt.Errorf("fill title: %w", err)
	}
	if err := desc.Fill(ctx, in.Description); err != nil {
		return fmt.Errorf("fill description: %w", err)
	}
	if in.Priority != "" {
		if err := prio.SelectValue(ctx, string(in.Priority)); err != nil {
			return fmt.Errorf("select priority %s: %w", in.Priority, err)
		}
	}
	if err := submit.Click(ctx); err != nil {
		return fmt.Errorf("submit %s: %w", s.Profile.Noun, err)
	}
	s.debugf("submitted %s %q (%s)", s.Profile.Noun, in.Title, in.Priority)
	s.SuppressDialog(ctx)
	return nil
}
