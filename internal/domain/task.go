package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Task is one entry of the todo list. The JSON shape is the persisted wire format.
type Task struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// NewTask builds an active task from an id and a raw title.
func NewTask(id, title string) (Task, error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	if id == "" {
		return Task{}, ErrInvalidID
	}
	if title == "" {
		return Task{}, ErrInvalidTitle
	}
	return Task{
		ID:    id,
		Title: title,
	}, nil
}

// Validate reports whether t satisfies the task invariants.
func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrInvalidID
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrInvalidTitle
	}
	return nil
}

// Rename returns a copy of t with a trimmed title.
func (t Task) Rename(title string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrInvalidTitle
	}
	t.Title = title
	return t, nil
}

// Toggle returns a copy of t with the completed flag flipped.
func (t Task) Toggle() Task {
	t.Completed = !t.Completed
	return t
}

// CloneTasks copies a task list so callers never share backing arrays.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return []Task{}
	}
	return slices.Clone(tasks)
}

// IndexOf returns the position of the task with id, or -1.
func IndexOf(tasks []Task, id string) int {
	return slices.IndexFunc(tasks, func(t Task) bool {
		return t.ID == id
	})
}

// ValidateTasks checks every task and rejects repeated ids.
func ValidateTasks(tasks []Task) error {
	seen := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		if err := task.Validate(); err != nil {
			return fmt.Errorf("task %q: %w", task.ID, err)
		}
		if _, dup := seen[task.ID]; dup {
			return fmt.Errorf("duplicate task id %q: %w", task.ID, ErrInvalidID)
		}
		seen[task.ID] = struct{}{}
	}
	return nil
}
