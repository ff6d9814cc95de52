package machine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hylla/todos/internal/domain"
)

// maxIDAttempts bounds how often a colliding or empty generated id is retried.
const maxIDAttempts = 8

// IDGenerator returns identifiers for new tasks.
type IDGenerator func() string

// Effects lists the side effects a transition asks for.
type Effects struct {
	Persist bool
}

// Transition computes the next state and context for ev. It never mutates its
// inputs and never performs I/O; unsatisfied preconditions return the inputs unchanged.
func Transition(state State, ctx Context, ev Event, newID IDGenerator) (State, Context, Effects) {
	next := ctx.Clone()
	switch ev := ev.(type) {
	case PendingChange:
		next.PendingText = ev.Value
		state.Validity = validityFor(ev.Value)
		state.Interaction = Dirty
		return state, next, Effects{}

	case PendingCommit:
		title := strings.TrimSpace(ev.Value)
		if title == "" {
			return state, next, Effects{}
		}
		next.Tasks = append(next.Tasks, domain.Task{
			ID:    uniqueID(next.Tasks, newID),
			Title: title,
		})
		next.PendingText = ""
		// Entering the status region again re-derives both sub-regions.
		state.Validity, state.Interaction = deriveSubRegions(next)
		return state, next, Effects{Persist: true}

	case TaskCommit:
		idx := domain.IndexOf(next.Tasks, ev.Task.ID)
		if idx < 0 {
			return state, next, Effects{}
		}
		title := strings.TrimSpace(ev.Task.Title)
		if title == "" {
			return state, next, Effects{}
		}
		next.Tasks[idx] = domain.Task{
			ID:        ev.Task.ID,
			Title:     title,
			Completed: ev.Task.Completed,
		}
		// The status region is left alone; only the text is cleared.
		next.PendingText = ""
		return state, next, Effects{Persist: true}

	case TaskDelete:
		next.Tasks = slices.DeleteFunc(next.Tasks, func(t domain.Task) bool {
			return t.ID == ev.ID
		})
		// Persisted even when nothing matched.
		return state, next, Effects{Persist: true}

	case MarkAllCompleted:
		changed := markAll(next.Tasks, true)
		return state, next, Effects{Persist: changed}

	case MarkAllActive:
		changed := markAll(next.Tasks, false)
		return state, next, Effects{Persist: changed}

	case ClearCompleted:
		before := len(next.Tasks)
		next.Tasks = slices.DeleteFunc(next.Tasks, func(t domain.Task) bool {
			return t.Completed
		})
		return state, next, Effects{Persist: len(next.Tasks) != before}

	case ShowView:
		view, err := domain.ParseView(string(ev.View))
		if err != nil || ev.View == "" {
			return state, next, Effects{}
		}
		state.View = view
		return state, next, Effects{}

	default:
		return state, next, Effects{}
	}
}

// markAll sets completed on every task and reports whether anything changed.
func markAll(tasks []domain.Task, completed bool) bool {
	changed := false
	for i := range tasks {
		if tasks[i].Completed != completed {
			tasks[i].Completed = completed
			changed = true
		}
	}
	return changed
}

// uniqueID asks newID for an id not already used by tasks.
func uniqueID(tasks []domain.Task, newID IDGenerator) string {
	var id string
	for range maxIDAttempts {
		if newID != nil {
			id = strings.TrimSpace(newID())
		}
		if id != "" && domain.IndexOf(tasks, id) < 0 {
			return id
		}
	}
	base := id
	if base == "" {
		base = "task"
	}
	for n := len(tasks) + 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if domain.IndexOf(tasks, candidate) < 0 {
			return candidate
		}
	}
}
