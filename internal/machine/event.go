package machine

import "github.com/hylla/todos/internal/domain"

// Event is one input to the machine.
type Event interface {
	// Name returns the event type as used on the wire.
	Name() string
	isEvent()
}

// Event names.
const (
	EventPendingChange    = "PendingText.Change"
	EventPendingCommit    = "PendingText.Commit"
	EventTaskCommit       = "Task.Commit"
	EventTaskDelete       = "Task.Delete"
	EventMarkAllCompleted = "MarkAll.Completed"
	EventMarkAllActive    = "MarkAll.Active"
	EventClearCompleted   = "ClearCompleted"
	EventShowView         = "ShowView"
)

// PendingChange replaces the pending text buffer.
type PendingChange struct {
	Value string
}

// PendingCommit turns the value into a new task when it is non-blank.
type PendingCommit struct {
	Value string
}

// TaskCommit replaces the task with the same id.
type TaskCommit struct {
	Task domain.Task
}

// TaskDelete removes the task with the given id.
type TaskDelete struct {
	ID string
}

// MarkAllCompleted completes every task.
type MarkAllCompleted struct{}

// MarkAllActive reopens every task.
type MarkAllActive struct{}

// ClearCompleted drops every completed task.
type ClearCompleted struct{}

// ShowView switches the view region.
type ShowView struct {
	View domain.View
}

func (PendingChange) Name() string    { return EventPendingChange }
func (PendingCommit) Name() string    { return EventPendingCommit }
func (TaskCommit) Name() string       { return EventTaskCommit }
func (TaskDelete) Name() string       { return EventTaskDelete }
func (MarkAllCompleted) Name() string { return EventMarkAllCompleted }
func (MarkAllActive) Name() string    { return EventMarkAllActive }
func (ClearCompleted) Name() string   { return EventClearCompleted }
func (ShowView) Name() string         { return EventShowView }

func (PendingChange) isEvent()    {}
func (PendingCommit) isEvent()    {}
func (TaskCommit) isEvent()       {}
func (TaskDelete) isEvent()       {}
func (MarkAllCompleted) isEvent() {}
func (MarkAllActive) isEvent()    {}
func (ClearCompleted) isEvent()   {}
func (ShowView) isEvent()         {}
