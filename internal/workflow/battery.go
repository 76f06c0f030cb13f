package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gotrs-io/uiflow/internal/browser"
	"github.com/gotrs-io/uiflow/internal/health"
	"github.com/gotrs-io/uiflow/internal/profile"
)

// Battery returns the fixed ten-scenario battery for p, in execution order.
// Scenarios share one session and are order dependent: later ones consume the
// entities earlier ones created.
func Battery(p *profile.Profile) []Scenario {
	noun := p.TitleNoun()
	return []Scenario{
		{1, "Verify Homepage Title", "page title contains the app name and a heading is present", NoPrecondition, checkHomepage},
		{2, "Create New " + noun, "a created " + p.Noun + " renders with its title, description and high priority styling", Cleared, createOne},
		{3, "Update Existing " + noun, "marking a " + p.Noun + " complete flags it completed", NoPrecondition, markComplete},
		{4, "Delete " + noun, "deleting the first " + p.Noun + " lowers the count by one", NoPrecondition, deleteOne},
		{5, "Form Validation Test", "an empty submission is rejected, a valid one creates a " + p.Noun, NoPrecondition, formValidation},
		{6, "Create Multiple " + noun + "s", "three " + p.PluralNoun() + " with distinct priorities all render", Cleared, createMultiple},
		{7, "Toggle " + noun + " Status", "starting work on a " + p.Noun + " flags it in progress", NoPrecondition, toggleStatus},
		{8, "Priority Color Indicators", "rendered " + p.PluralNoun() + " carry a priority style marker", NoPrecondition, priorityIndicators},
		{9, noun + " Persistence After Refresh", "reloading keeps the count and every title", NoPrecondition, persistence},
		{10, "Health Endpoint Check", "the health path returns a healthy JSON status with a timestamp", NoPrecondition, healthEndpoint},
	}
}

// Fixtures are the inputs the battery types into the creation form
type Fixtures struct {
	First    EntityInput
	Valid    EntityInput
	Multiple []EntityInput
}

// FixturesFor derives the battery's inputs from the profile noun
func FixturesFor(p *profile.Profile) Fixtures {
	noun := p.TitleNoun()
	f := Fixtures{
		First: EntityInput{
			Title:       "Test " + noun + " 1",
			Description: "This is a test " + p.Noun + " created by automated testing",
			Priority:    profile.PriorityHigh,
		},
		Valid: EntityInput{
			Title:       "Valid Test " + noun,
			Description: "Valid test description",
		},
	}
	for i, ordinal := range []string{"One", "Two", "Three"} {
		title := noun + " " + ordinal
		f.Multiple = append(f.Multiple, EntityInput{
			Title:       title,
			Description: "Description for " + title,
			Priority:    profile.Priorities[i],
		})
	}
	return f
}

// unmet reports whether err is a wait whose condition was evaluated every
// time and never held. A wait that kept failing on a driver error is not unmet.
func unmet(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te) && te.Last == nil
}

func checkHomepage(ctx context.Context, s *Session) error {
	if err := s.Driver.Navigate(ctx, s.BaseURL); err != nil {
		return err
	}
	want := s.Profile.AppName
	var title string
	err := s.Poll(ctx, fmt.Sprintf("title containing %q", want), s.Timings.Timeout, func(ctx context.Context) (bool, error) {
		t, err := s.Driver.Title(ctx)
		if err != nil {
			return false, err
		}
		title = t
		return strings.Contains(t, want), nil
	})
	if unmet(err) {
		return Failf("page title should contain %q, but was: %q", want, title)
	}
	if err != nil {
		return err
	}
	if _, err := s.WaitForElement(ctx, s.Profile.Selectors.Heading, s.Timings.Timeout); err != nil {
		return fmt.Errorf("main heading should be present on the page: %w", err)
	}
	return nil
}

func createOne(ctx context.Context, s *Session) error {
	in := FixturesFor(s.Profile).First
	if err := s.Create(ctx, in); err != nil {
		return err
	}
	n, err := s.WaitForCount(ctx, 1, s.Timings.Timeout)
	if unmet(err) {
		return Failf("expected exactly 1 %s after creation, found %d", s.Profile.Noun, n)
	}
	if err != nil {
		return err
	}

	items, err := s.Items(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return Failf("the created %s disappeared", s.Profile.Noun)
	}
	item := items[0]

	title, err := s.ItemTitle(ctx, item)
	if err != nil {
		return err
	}
	if title != in.Title {
		return Failf("expected %s title %q, got %q", s.Profile.Noun, in.Title, title)
	}
	desc, err := s.childText(ctx, item, s.Profile.Selectors.ItemDescription)
	if err != nil {
		return err
	}
	if !strings.Contains(desc, in.Description) {
		return Failf("%s description should contain %q, got %q", s.Profile.Noun, in.Description, desc)
	}
	class := s.Profile.PriorityClass(profile.PriorityHigh)
	ok, err := HasClass(ctx, item, class)
	if err != nil {
		return err
	}
	if !ok {
		return Failf("%s should have high priority styling (%s)", s.Profile.Noun, class)
	}
	return nil
}

// firstItemAction waits up to timeout for an item exposing a button labelled
// label and returns the first one. It returns nil when none appeared.
func (s *Session) firstItemAction(ctx context.Context, label string, timeout time.Duration) (browser.Element, error) {
	var found browser.Element
	sel := browser.ByButtonText(label)
	err := s.Poll(ctx, fmt.Sprintf("%q action", label), timeout, func(ctx context.Context) (bool, error) {
		items, err := s.Items(ctx)
		if err != nil {
			return false, err
		}
		for _, item := range items {
			btns, err := item.FindElements(ctx, sel)
			if err != nil {
				return false, err
			}
			if len(btns) > 0 {
				found = btns[0]
				return true, nil
			}
		}
		return false, nil
	})
	if unmet(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return found, nil
}

func markComplete(ctx context.Context, s *Session) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	label := s.Profile.Labels.Complete
	btn, err := s.firstItemAction(ctx, label, s.Timings.AffordanceWait)
	if err != nil {
		return err
	}
	if btn == nil {
		return s.Lenient("no %q action found, skipping status update check", label)
	}
	if err := btn.Click(ctx); err != nil {
		return fmt.Errorf("click %q: %w", label, err)
	}
	s.SuppressDialog(ctx)

	class := s.Profile.Classes.StatusCompleted
	err = s.Poll(ctx, "a "+class+" "+s.Profile.Noun, s.Timings.Timeout, func(ctx context.Context) (bool, error) {
		return s.AnyStatus(ctx, class)
	})
	if unmet(err) {
		return Failf("at least one %s should be marked as completed", s.Profile.Noun)
	}
	return err
}

func deleteOne(ctx context.Context, s *Session) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	initial, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if initial == 0 {
		s.Note("no %s found, nothing to delete", s.PluralOrNoun(0))
		return nil
	}

	label := s.Profile.Labels.Delete
	btn, err := s.firstItemAction(ctx, label, s.Timings.Timeout)
	if err != nil {
		return err
	}
	if btn == nil {
		return elementTimeout(s.deleteButton(), s.Timings.Timeout)
	}
	if err := btn.Click(ctx); err != nil {
		return fmt.Errorf("click %q: %w", label, err)
	}
	s.SuppressDialog(ctx)

	got, err := s.WaitForCount(ctx, initial-1, s.Timings.Timeout)
	if unmet(err) {
		return Failf("%s count should decrease by 1 after deletion: expected %d, got %d", s.Profile.TitleNoun(), initial-1, got)
	}
	return err
}

func formValidation(ctx context.Context, s *Session) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	sel := s.Profile.Selectors
	submit, err := s.WaitForElement(ctx, sel.Submit, s.Timings.Timeout)
	if err != nil {
		return err
	}
	before, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if err := submit.Click(ctx); err != nil {
		return fmt.Errorf("submit empty form: %w", err)
	}
	s.SuppressDialog(ctx)

	titleInput, err := s.FindOne(ctx, sel.TitleInput)
	if err != nil {
		return err
	}
	msg, err := titleInput.Property(ctx, "validationMessage")
	if err != nil {
		return err
	}
	if strings.TrimSpace(msg) == "" {
		return Failf("title field should show validation message when empty")
	}
	s.Note("validation message: %q", msg)

	after, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if after != before {
		return Failf("empty submission should not create a %s: count went from %d to %d", s.Profile.Noun, before, after)
	}

	valid := FixturesFor(s.Profile).Valid
	if err := s.Create(ctx, valid); err != nil {
		return err
	}
	got, err := s.WaitForCount(ctx, before+1, s.Timings.Timeout)
	if unmet(err) {
		return Failf("%s should be created when both title and description are provided: expected %d, got %d", s.Profile.TitleNoun(), before+1, got)
	}
	if err != nil {
		return err
	}
	titles, err := s.Titles(ctx)
	if err != nil {
		return err
	}
	if !contains(titles, valid.Title) {
		return Failf("created %s %q should be rendered, titles were %q", s.Profile.Noun, valid.Title, titles)
	}
	return nil
}

// createFixtureSet creates the three distinct-priority fixtures and checks
// that all of them render
func createFixtureSet(ctx context.Context, s *Session) error {
	inputs := FixturesFor(s.Profile).Multiple
	for _, in := range inputs {
		before, err := s.Count(ctx)
		if err != nil {
			return err
		}
		if err := s.Create(ctx, in); err != nil {
			return err
		}
		if _, err := s.WaitForCount(ctx, before+1, s.Timings.Timeout); err != nil {
			if unmet(err) {
				return Failf("%s %q was not rendered after submission", s.Profile.Noun, in.Title)
			}
			return err
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if n != len(inputs) {
		return Failf("should have created %d %s, found %d", len(inputs), s.Profile.PluralNoun(), n)
	}

	titleEls, err := s.Driver.FindElements(ctx, s.Profile.Selectors.ItemTitle)
	if err != nil {
		return err
	}
	var rendered []string
	for _, el := range titleEls {
		t, err := el.Text(ctx)
		if err != nil {
			return err
		}
		rendered = append(rendered, strings.TrimSpace(t))
	}
	for _, in := range inputs {
		if !contains(rendered, in.Title) {
			return Failf("%s title %q should be present", s.Profile.TitleNoun(), in.Title)
		}
	}
	return nil
}

func createMultiple(ctx context.Context, s *Session) error {
	return createFixtureSet(ctx, s)
}

func toggleStatus(ctx context.Context, s *Session) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	first, err := s.WaitForElement(ctx, s.Profile.Selectors.Item, s.Timings.AffordanceWait)
	if unmet(err) {
		return s.Lenient("no %s available for status toggle", s.PluralOrNoun(0))
	}
	if err != nil {
		return err
	}

	label := s.Profile.Labels.InProgress
	btns, err := first.FindElements(ctx, browser.ByButtonText(label))
	if err != nil {
		return err
	}
	if len(btns) == 0 {
		return s.Lenient("first %s has no %q action", s.Profile.Noun, label)
	}
	if err := btns[0].Click(ctx); err != nil {
		return fmt.Errorf("click %q: %w", label, err)
	}
	s.SuppressDialog(ctx)

	class := s.Profile.Classes.StatusInProgress
	err = s.Poll(ctx, "a "+class+" "+s.Profile.Noun, s.Timings.Timeout, func(ctx context.Context) (bool, error) {
		return s.AnyStatus(ctx, class)
	})
	if unmet(err) {
		return Failf("at least one %s should be marked as in-progress", s.Profile.Noun)
	}
	return err
}

func priorityIndicators(ctx context.Context, s *Session) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if n < len(profile.Priorities) {
		s.Note("only %d %s present, recreating the fixture set", n, s.PluralOrNoun(n))
		s.ClearAll(ctx)
		if err := createFixtureSet(ctx, s); err != nil {
			return err
		}
	}

	items, err := s.Items(ctx)
	if err != nil {
		return err
	}
	var found []string
	seen := map[profile.Priority]bool{}
	for _, item := range items {
		for _, pr := range profile.Priorities {
			ok, err := HasClass(ctx, item, s.Profile.PriorityClass(pr))
			if err != nil {
				return err
			}
			if ok && !seen[pr] {
				seen[pr] = true
				found = append(found, string(pr))
				s.Logf("Found %s priority %s with correct styling", pr, s.Profile.Noun)
			}
		}
	}
	if len(found) == 0 {
		return Failf("at least one priority indicator (%s*) should be present", s.Profile.Classes.PriorityPrefix)
	}
	s.Note("priority markers found: %s", strings.Join(found, ", "))
	return nil
}

func persistence(ctx context.Context, s *Session) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	before, err := s.Titles(ctx)
	if err != nil {
		return err
	}

	if err := s.Driver.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if _, err := s.WaitForElement(ctx, s.Profile.Selectors.Heading, s.Timings.Timeout); err != nil {
		return err
	}

	got, err := s.WaitForCount(ctx, len(before), s.Timings.Timeout)
	if unmet(err) {
		return Failf("%s count should remain the same after page refresh: before %d, after %d", s.Profile.TitleNoun(), len(before), got)
	}
	if err != nil {
		return err
	}
	after, err := s.Titles(ctx)
	if err != nil {
		return err
	}
	for _, t := range before {
		if !contains(after, t) {
			return Failf("%s title %q should persist after refresh", s.Profile.TitleNoun(), t)
		}
	}
	return nil
}

func healthEndpoint(ctx context.Context, s *Session) error {
	path := s.Profile.HealthPath
	if err := s.Driver.Navigate(ctx, s.URL(path)); err != nil {
		return err
	}
	if _, err := s.WaitForElement(ctx, s.Profile.Selectors.Body, s.Timings.Timeout); err != nil {
		return err
	}
	src, err := s.Driver.PageSource(ctx)
	if err != nil {
		return err
	}
	if err := health.CheckBody(src, s.Profile.HealthToken); err != nil {
		return Failf("health endpoint %s: %v", path, err)
	}
	return nil
}

// PluralOrNoun picks the singular noun for exactly one, the plural otherwise
func (s *Session) PluralOrNoun(n int) string {
	if n == 1 {
		return s.Profile.Noun
	}
	return s.Profile.PluralNoun()
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
