package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorCSS(t *testing.T) {
	tests := []struct {
		sel  Selector
		want string
	}{
		{ByID("task-title"), "#task-title"},
		{ByClass("task-item"), ".task-item"},
		{ByTag("h1"), "h1"},
		{ByCSS("ul > li"), "ul > li"},
		{ByButtonText("Start Work"), `button:has-text("Start Work")`},
		{ByButtonText("Terminé"), `button:has-text("Terminé")`},
		{ByButtonText(`Say "hi"`), `button:has-text("Say \"hi\"")`},
		{ByButtonText(`a\b`), `button:has-text("a\\b")`},
	}
	for _, tt := range tests {
		t.Run(tt.sel.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sel.CSS())
		})
	}
}

func TestSelectorIsZero(t *testing.T) {
	assert.True(t, Selector{}.IsZero())
	assert.False(t, ByID("x").IsZero())
}
