package machine

import "github.com/hylla/todos/internal/domain"

// Snapshot is a settled, detached view of the machine. Every query below is
// derived on demand.
type Snapshot struct {
	State   State
	Context Context
}

// ActiveCount counts tasks that are not completed.
func (s Snapshot) ActiveCount() int {
	n := 0
	for _, t := range s.Context.Tasks {
		if !t.Completed {
			n++
		}
	}
	return n
}

// CompletedCount counts completed tasks.
func (s Snapshot) CompletedCount() int {
	return len(s.Context.Tasks) - s.ActiveCount()
}

// AllCompleted reports a non-empty list with no active tasks.
func (s Snapshot) AllCompleted() bool {
	return len(s.Context.Tasks) > 0 && s.ActiveCount() == 0
}

// VisibleTasks filters the tasks through the current view.
func (s Snapshot) VisibleTasks() []domain.Task {
	out := make([]domain.Task, 0, len(s.Context.Tasks))
	for _, t := range s.Context.Tasks {
		if s.State.View.Includes(t) {
			out = append(out, t)
		}
	}
	return out
}

// IsPendingInvalid is true once the user has touched an empty pending field.
func (s Snapshot) IsPendingInvalid() bool {
	return s.State.Validity == Invalid && s.State.Interaction == Dirty
}

// MarkAllEvent returns the event a mark-all toggle should send: complete
// everything unless everything is already complete.
func (s Snapshot) MarkAllEvent() Event {
	if s.AllCompleted() {
		return MarkAllActive{}
	}
	return MarkAllCompleted{}
}

// Matches reports whether path names an active state.
func (s Snapshot) Matches(path string) bool {
	return s.State.Matches(path)
}

// Task looks up a task by id.
func (s Snapshot) Task(id string) (domain.Task, bool) {
	idx := domain.IndexOf(s.Context.Tasks, id)
	if idx < 0 {
		return domain.Task{}, false
	}
	return s.Context.Tasks[idx], true
}
