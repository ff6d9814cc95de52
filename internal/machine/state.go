// Package machine implements the todo list state machine: a view region and a
// status region made of two orthogonal sub-regions (form validity and interaction),
// all evolving over one shared context.
package machine

import (
	"strings"

	"github.com/hylla/todos/internal/domain"
)

// Validity is the form-validity sub-region of the status region.
type Validity string

const (
	Valid   Validity = "valid"
	Invalid Validity = "invalid"
)

// Interaction is the interaction sub-region of the status region.
type Interaction string

const (
	Clean Interaction = "clean"
	Dirty Interaction = "dirty"
)

// State is the composite state: one value per region.
type State struct {
	View        domain.View
	Validity    Validity
	Interaction Interaction
}

// Context is the data shared by every region.
type Context struct {
	PendingText string        `json:"todo"`
	Tasks       []domain.Task `json:"todos"`
}

// Clone returns a deep copy of c.
func (c Context) Clone() Context {
	return Context{
		PendingText: c.PendingText,
		Tasks:       domain.CloneTasks(c.Tasks),
	}
}

// Strings lists the active leaf states as dotted paths.
func (s State) Strings() []string {
	return []string{
		"view." + string(s.View),
		"status.form." + string(s.Validity),
		"status.interactionStatus." + string(s.Interaction),
	}
}

// String joins Strings with spaces.
func (s State) String() string {
	return strings.Join(s.Strings(), " ")
}

// Matches reports whether path names an active state or one of its ancestors,
// e.g. "view", "view.active", "status.form.invalid".
func (s State) Matches(path string) bool {
	path = strings.Trim(strings.TrimSpace(path), ".")
	if path == "" {
		return false
	}
	if path == "status" || path == "status.form" || path == "status.interactionStatus" {
		return true
	}
	for _, leaf := range s.Strings() {
		if leaf == path || strings.HasPrefix(leaf, path+".") {
			return true
		}
	}
	return false
}

// initialState settles every region for ctx, with the view reset to all.
func initialState(ctx Context) State {
	validity, interaction := deriveSubRegions(ctx)
	return State{
		View:        domain.ViewAll,
		Validity:    validity,
		Interaction: interaction,
	}
}

// deriveSubRegions evaluates the status sub-regions from the pending text.
// An empty buffer yields invalid/clean, anything else valid/dirty.
func deriveSubRegions(ctx Context) (Validity, Interaction) {
	if len(ctx.PendingText) == 0 {
		return Invalid, Clean
	}
	return Valid, Dirty
}

// validityFor is the guard used on pending-text changes. It checks the raw
// value; whitespace counts as valid here even though a commit would reject it.
func validityFor(value string) Validity {
	if value == "" {
		return Invalid
	}
	return Valid
}
