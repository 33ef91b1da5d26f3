// Package inputguard classifies user-submitted text against character limits.
//
// A Guard tracks one piece of text and reports whether it is near or at its
// maximum length. It never truncates: enforcing the hard cap belongs to the
// text-entry surface.
package inputguard

import (
	"errors"
	"unicode/utf8"
)

var ErrInvalidMaxLength = errors.New("max length must be greater than zero")

// Level is the single visual state derived from a Guard.
type Level int

const (
	LevelNormal Level = iota
	LevelNear
	LevelAt
)

func (l Level) String() string {
	switch l {
	case LevelNear:
		return "near-limit"
	case LevelAt:
		return "at-limit"
	default:
		return "normal"
	}
}

type Guard struct {
	text      string
	maxLength int
	disabled  bool
	onClear   func()
}

func New(maxLength int) (*Guard, error) {
	if maxLength <= 0 {
		return nil, ErrInvalidMaxLength
	}
	return &Guard{maxLength: maxLength}, nil
}

func (g *Guard) SetText(text string) {
	g.text = text
}

func (g *Guard) SetMaxLength(maxLength int) error {
	if maxLength <= 0 {
		return ErrInvalidMaxLength
	}
	g.maxLength = maxLength
	return nil
}

func (g *Guard) Text() string {
	return g.text
}

func (g *Guard) MaxLength() int {
	return g.maxLength
}

// Length counts characters, not bytes.
func (g *Guard) Length() int {
	return utf8.RuneCountInString(g.text)
}

// IsNearLimit reports length >= 90% of the maximum.
func (g *Guard) IsNearLimit() bool {
	return g.Length()*10 >= g.maxLength*9
}

// IsAtLimit reports length >= the maximum. It implies IsNearLimit.
func (g *Guard) IsAtLimit() bool {
	return g.Length() >= g.maxLength
}

// Level checks at-limit first since both conditions hold at the maximum.
func (g *Guard) Level() Level {
	switch {
	case g.IsAtLimit():
		return LevelAt
	case g.IsNearLimit():
		return LevelNear
	default:
		return LevelNormal
	}
}

func (g *Guard) SetDisabled(disabled bool) {
	g.disabled = disabled
}

func (g *Guard) Disabled() bool {
	return g.disabled
}

// SetClearHandler wires the clear affordance. A nil handler unwires it.
func (g *Guard) SetClearHandler(fn func()) {
	g.onClear = fn
}

// CanClear reports whether a clear control should be offered at all.
func (g *Guard) CanClear() bool {
	return g.onClear != nil && !g.disabled && g.text != ""
}

// Clear empties the text and notifies the handler. It returns false and
// changes nothing when no handler is wired, the guard is disabled, or the
// text is already empty.
func (g *Guard) Clear() bool {
	if !g.CanClear() {
		return false
	}
	g.text = ""
	g.onClear()
	return true
}
