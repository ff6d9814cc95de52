package common

import (
	"fmt"
	"strings"

	"github.com/hylla/todos/internal/domain"
	"github.com/hylla/todos/internal/machine"
)

// EventTypes lists the accepted wire event names in canonical order.
func EventTypes() []string {
	return []string{
		machine.EventPendingChange,
		machine.EventPendingCommit,
		machine.EventTaskCommit,
		machine.EventTaskDelete,
		machine.EventMarkAllCompleted,
		machine.EventMarkAllActive,
		machine.EventClearCompleted,
		machine.EventShowView,
	}
}

// ToEvent converts a wire request into a machine event.
func (r EventRequest) ToEvent() (machine.Event, error) {
	switch strings.TrimSpace(r.Type) {
	case machine.EventPendingChange:
		return machine.PendingChange{Value: r.Value}, nil
	case machine.EventPendingCommit:
		return machine.PendingCommit{Value: r.Value}, nil
	case machine.EventTaskCommit:
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("%s requires id: %w", r.Type, ErrInvalidRequest)
		}
		return machine.TaskCommit{Task: domain.Task{
			ID:        r.ID,
			Title:     r.Title,
			Completed: r.Completed,
		}}, nil
	case machine.EventTaskDelete:
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("%s requires id: %w", r.Type, ErrInvalidRequest)
		}
		return machine.TaskDelete{ID: r.ID}, nil
	case machine.EventMarkAllCompleted:
		return machine.MarkAllCompleted{}, nil
	case machine.EventMarkAllActive:
		return machine.MarkAllActive{}, nil
	case machine.EventClearCompleted:
		return machine.ClearCompleted{}, nil
	case machine.EventShowView:
		view, err := domain.ParseView(r.View)
		if err != nil || strings.TrimSpace(r.View) == "" {
			return nil, fmt.Errorf("%s requires a view of %v: %w", r.Type, domain.Views(), ErrInvalidRequest)
		}
		return machine.ShowView{View: view}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q: %w", r.Type, ErrInvalidRequest)
	}
}
