package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/gotrs-io/uiflow/internal/browser"
)

// Precondition is the isolation a scenario requires before it runs
type Precondition string

const (
	// NoPrecondition runs against whatever the previous scenario left behind
	NoPrecondition Precondition = "none"
	// Cleared runs ClearAll first
	Cleared Precondition = "cleared"
)

// Scenario is one ordered case of the battery
type Scenario struct {
	Position     int
	Name         string
	Description  string
	Precondition Precondition
	Run          func(ctx context.Context, s *Session) error
}

// ID is the stable display identifier, e.g. "TC03"
func (sc Scenario) ID() string {
	return fmt.Sprintf("TC%02d", sc.Position)
}

// DisplayName joins ID and name
func (sc Scenario) DisplayName() string {
	return sc.ID() + ": " + sc.Name
}

// sortScenarios orders by ascending position, keeping declaration order on ties
func sortScenarios(scenarios []Scenario) []Scenario {
	out := append([]Scenario(nil), scenarios...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (s *Session) deleteButton() browser.Selector {
	return browser.ByButtonText(s.Profile.Labels.Delete)
}
