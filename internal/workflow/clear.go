package workflow

import (
	"context"
	"fmt"
)

// ClearAll empties the entity list on a best-effort basis. It prefers the
// bulk delete control and falls back to deleting items one at a time, at most
// Timings.ClearCap times. Failures are logged, never returned: a dirty list
// surfaces later as a failed assertion in the calling scenario.
func (s *Session) ClearAll(ctx context.Context) {
	if err := s.Open(ctx); err != nil {
		s.Logf("No existing %s to clear or page loading: %v", s.Profile.PluralNoun(), err)
		s.SuppressDialog(ctx)
		return
	}

	if s.clearWithBulkDelete(ctx) {
		s.Logf("All existing %s cleared successfully", s.Profile.PluralNoun())
		return
	}

	deleted, err := s.clearOneByOne(ctx)
	if err != nil {
		s.Logf("Error during individual %s deletion: %v", s.Profile.Noun, err)
		s.SuppressDialog(ctx)
		return
	}
	s.Logf("Individual %s deletion completed (%d deleted)", s.Profile.Noun, deleted)
}

// clearWithBulkDelete reports whether the bulk control existed and was used
func (s *Session) clearWithBulkDelete(ctx context.Context) bool {
	sel := s.Profile.Selectors.DeleteAll
	if sel.IsZero() {
		return false
	}
	btn, err := s.WaitForElement(ctx, sel, s.Timings.AffordanceWait)
	if err != nil {
		s.debugf("bulk delete control unavailable: %v", err)
		return false
	}
	if err := btn.Click(ctx); err != nil {
		s.Logf("bulk delete click failed: %v", err)
		return false
	}
	s.SuppressDialog(ctx)

	if n, err := s.WaitForCount(ctx, 0, s.Timings.SettleWait); err != nil {
		s.Logf("bulk delete left %d %s: %v", n, s.Profile.PluralNoun(), err)
		return false
	}
	return true
}

// clearOneByOne deletes the first item until none remain or the cap is hit
func (s *Session) clearOneByOne(ctx context.Context) (int, error) {
	deleted := 0
	for i := 0; i < s.Timings.ClearCap; i++ {
		items, err := s.Items(ctx)
		if err != nil {
			return deleted, err
		}
		if len(items) == 0 {
			return deleted, nil
		}
		btns, err := items[0].FindElements(ctx, s.deleteButton())
		if err != nil {
			return deleted, err
		}
		if len(btns) == 0 {
			return deleted, fmt.Errorf("%s has no %q control", s.Profile.Noun, s.Profile.Labels.Delete)
		}
		if err := btns[0].Click(ctx); err != nil {
			return deleted, err
		}
		s.SuppressDialog(ctx)

		before := len(items)
		if _, err := s.WaitForCount(ctx, before-1, s.Timings.DeleteWait); err != nil {
			s.debugf("delete did not settle within %s: %v", s.Timings.DeleteWait, err)
		}
		deleted++
	}
	if n, err := s.Count(ctx); err == nil && n > 0 {
		s.Logf("clear cap of %d reached with %d %s left", s.Timings.ClearCap, n, s.Profile.PluralNoun())
	}
	return deleted, nil
}
