package domain

import "strings"

// View selects which tasks are visible.
type View string

const (
	ViewAll       View = "all"
	ViewActive    View = "active"
	ViewCompleted View = "completed"
)

// Views lists every view in display order.
func Views() []View {
	return []View{ViewAll, ViewActive, ViewCompleted}
}

// ParseView parses a view name. Empty input means ViewAll.
func ParseView(raw string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ViewAll:
		return ViewAll, nil
	case ViewActive:
		return ViewActive, nil
	case ViewCompleted:
		return ViewCompleted, nil
	default:
		return "", ErrInvalidView
	}
}

// ParseFragment maps a URL fragment ("#/", "#/active", "#/completed") to a view.
// Anything unrecognized falls back to ViewAll.
func ParseFragment(fragment string) View {
	fragment = strings.TrimSpace(fragment)
	fragment = strings.TrimPrefix(fragment, "#")
	fragment = strings.TrimPrefix(fragment, "/")
	view, err := ParseView(fragment)
	if err != nil {
		return ViewAll
	}
	return view
}

// Fragment returns the canonical URL fragment for v.
func (v View) Fragment() string {
	switch v {
	case ViewActive:
		return "#/active"
	case ViewCompleted:
		return "#/completed"
	default:
		return "#/"
	}
}

// Includes reports whether task is visible under v.
func (v View) Includes(task Task) bool {
	switch v {
	case ViewActive:
		return !task.Completed
	case ViewCompleted:
		return task.Completed
	default:
		return true
	}
}

// Label returns a title-cased display name.
func (v View) Label() string {
	switch v {
	case ViewActive:
		return "Active"
	case ViewCompleted:
		return "Completed"
	default:
		return "All"
	}
}
