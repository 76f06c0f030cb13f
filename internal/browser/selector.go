package browser

import (
	"fmt"
	"strings"
)

// SelectorKind identifies how a Selector matches elements
type SelectorKind string

const (
	KindID         SelectorKind = "id"
	KindClass      SelectorKind = "class"
	KindTag        SelectorKind = "tag"
	KindButtonText SelectorKind = "button-text"
	KindCSS        SelectorKind = "css"
)

// Selector locates elements on a page. Every kind except KindCSS can be
// interpreted without a CSS engine.
type Selector struct {
	Kind  SelectorKind `yaml:"kind" json:"kind"`
	Value string       `yaml:"value" json:"value"`
}

// ByID matches the element with the given id attribute
func ByID(id string) Selector { return Selector{Kind: KindID, Value: id} }

// ByClass matches elements carrying the given class
func ByClass(class string) Selector { return Selector{Kind: KindClass, Value: class} }

// ByTag matches elements by tag name
func ByTag(tag string) Selector { return Selector{Kind: KindTag, Value: tag} }

// ByButtonText matches buttons whose text contains the given label
func ByButtonText(label string) Selector { return Selector{Kind: KindButtonText, Value: label} }

// ByCSS matches a raw CSS selector. Only browser-backed drivers support it.
func ByCSS(css string) Selector { return Selector{Kind: KindCSS, Value: css} }

// IsZero reports whether the selector is unset
func (s Selector) IsZero() bool {
	return s.Value == ""
}

// CSS renders the selector in playwright selector syntax
func (s Selector) CSS() string {
	switch s.Kind {
	case KindID:
		return "#" + s.Value
	case KindClass:
		return "." + s.Value
	case KindTag:
		return s.Value
	case KindButtonText:
		return "button:has-text(" + cssString(s.Value) + ")"
	default:
		return s.Value
	}
}

func (s Selector) String() string {
	return fmt.Sprintf("%s=%s", s.Kind, s.Value)
}

var cssEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// cssString quotes v as a CSS string literal. Other characters, including
// non-ASCII ones, are kept as they are.
func cssString(v string) string {
	return `"` + cssEscaper.Replace(v) + `"`
}
