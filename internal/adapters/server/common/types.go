// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"

	"github.com/hylla/todos/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// TodoState is the transport view of one settled machine snapshot.
type TodoState struct {
	StateHash      string        `json:"state_hash"`
	States         []string      `json:"states"`
	View           string        `json:"view"`
	Fragment       string        `json:"fragment"`
	PendingText    string        `json:"pending_text"`
	PendingInvalid bool          `json:"pending_invalid"`
	ActiveCount    int           `json:"active_count"`
	CompletedCount int           `json:"completed_count"`
	AllCompleted   bool          `json:"all_completed"`
	Tasks          []domain.Task `json:"tasks"`
	VisibleTasks   []domain.Task `json:"visible_tasks"`
}

// EventRequest carries one machine event by wire name, e.g.
// {"type":"PendingText.Commit","value":"buy milk"}.
type EventRequest struct {
	Type      string `json:"type"`
	Value     string `json:"value,omitempty"`
	ID        string `json:"id,omitempty"`
	Title     string `json:"title,omitempty"`
	Completed bool   `json:"completed,omitempty"`
	View      string `json:"view,omitempty"`
}

// AddTaskRequest creates one task.
type AddTaskRequest struct {
	Title string `json:"title"`
}

// MarkAllRequest sets every task; a nil Completed toggles.
type MarkAllRequest struct {
	Completed *bool `json:"completed,omitempty"`
}

// ShowViewRequest selects a view by name or by location fragment.
type ShowViewRequest struct {
	View     string `json:"view,omitempty"`
	Fragment string `json:"fragment,omitempty"`
}

// TodoService is the surface shared by the REST and MCP adapters.
type TodoService interface {
	State(context.Context) (TodoState, error)
	SendEvent(context.Context, EventRequest) (TodoState, error)
	ListTasks(context.Context, string) ([]domain.Task, error)
	AddTask(context.Context, AddTaskRequest) (domain.Task, error)
	ToggleTask(context.Context, string) (domain.Task, error)
	DeleteTask(context.Context, string) (TodoState, error)
	MarkAll(context.Context, MarkAllRequest) (TodoState, error)
	ClearCompleted(context.Context) (TodoState, error)
	ShowView(context.Context, ShowViewRequest) (TodoState, error)
}
