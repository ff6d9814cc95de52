package app

import (
	"context"

	"github.com/hylla/todos/internal/domain"
)

// Repository stores the task list and pending text under a named slot.
// Load methods return ErrNotFound when the slot was never written.
type Repository interface {
	LoadTasks(context.Context, string) ([]domain.Task, error)
	SaveTasks(context.Context, string, []domain.Task) error
	LoadPendingText(context.Context, string) (string, error)
	SavePendingText(context.Context, string, string) error
}
