package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/todos/internal/app"
	"github.com/hylla/todos/internal/domain"
	"github.com/hylla/todos/internal/machine"
)

// AppServiceAdapter maps transport contracts onto app.Service.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// State returns the current snapshot.
func (a *AppServiceAdapter) State(_ context.Context) (TodoState, error) {
	if err := a.ready(); err != nil {
		return TodoState{}, err
	}
	return ConvertSnapshot(a.service.Snapshot())
}

// SendEvent applies one wire event.
func (a *AppServiceAdapter) SendEvent(ctx context.Context, in EventRequest) (TodoState, error) {
	if err := a.ready(); err != nil {
		return TodoState{}, err
	}
	ev, err := in.ToEvent()
	if err != nil {
		return TodoState{}, err
	}
	snap, err := a.service.Send(ctx, ev)
	if err != nil {
		return TodoState{}, mapAppError("send event", err)
	}
	return ConvertSnapshot(snap)
}

// ListTasks lists tasks through view, or through the current view when view is empty.
func (a *AppServiceAdapter) ListTasks(_ context.Context, view string) ([]domain.Task, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	snap := a.service.Snapshot()
	if strings.TrimSpace(view) == "" {
		return snap.VisibleTasks(), nil
	}
	parsed, err := domain.ParseView(view)
	if err != nil {
		return nil, mapAppError("list tasks", err)
	}
	out := make([]domain.Task, 0, len(snap.Context.Tasks))
	for _, t := range snap.Context.Tasks {
		if parsed.Includes(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// AddTask creates one task.
func (a *AppServiceAdapter) AddTask(ctx context.Context, in AddTaskRequest) (domain.Task, error) {
	if err := a.ready(); err != nil {
		return domain.Task{}, err
	}
	task, err := a.service.AddTask(ctx, in.Title)
	if err != nil {
		return domain.Task{}, mapAppError("add task", err)
	}
	return task, nil
}

// ToggleTask flips one task.
func (a *AppServiceAdapter) ToggleTask(ctx context.Context, id string) (domain.Task, error) {
	if err := a.ready(); err != nil {
		return domain.Task{}, err
	}
	task, err := a.service.ToggleTask(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Task{}, mapAppError("toggle task", err)
	}
	return task, nil
}

// DeleteTask removes one task.
func (a *AppServiceAdapter) DeleteTask(ctx context.Context, id string) (TodoState, error) {
	if err := a.ready(); err != nil {
		return TodoState{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return TodoState{}, fmt.Errorf("delete task: id is required: %w", ErrInvalidRequest)
	}
	return ConvertSnapshot(a.service.DeleteTask(ctx, id))
}

// MarkAll completes or activates every task.
func (a *AppServiceAdapter) MarkAll(ctx context.Context, in MarkAllRequest) (TodoState, error) {
	if err := a.ready(); err != nil {
		return TodoState{}, err
	}
	if in.Completed == nil {
		return ConvertSnapshot(a.service.ToggleAll(ctx))
	}
	return ConvertSnapshot(a.service.MarkAll(ctx, *in.Completed))
}

// ClearCompleted removes completed tasks.
func (a *AppServiceAdapter) ClearCompleted(ctx context.Context) (TodoState, error) {
	if err := a.ready(); err != nil {
		return TodoState{}, err
	}
	return ConvertSnapshot(a.service.ClearCompleted(ctx))
}

// ShowView switches the view by name or fragment. A fragment wins when both are set.
func (a *AppServiceAdapter) ShowView(ctx context.Context, in ShowViewRequest) (TodoState, error) {
	if err := a.ready(); err != nil {
		return TodoState{}, err
	}
	if strings.TrimSpace(in.Fragment) != "" {
		return ConvertSnapshot(a.service.Navigate(ctx, in.Fragment))
	}
	if strings.TrimSpace(in.View) == "" {
		return TodoState{}, fmt.Errorf("show view: view or fragment is required: %w", ErrInvalidRequest)
	}
	snap, err := a.service.ShowView(ctx, in.View)
	if err != nil {
		return TodoState{}, mapAppError("show view", err)
	}
	return ConvertSnapshot(snap)
}

// ready reports a missing backing service.
func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	return nil
}

// ConvertSnapshot maps a machine snapshot to its transport form.
func ConvertSnapshot(snap machine.Snapshot) (TodoState, error) {
	out := TodoState{
		States:         snap.State.Strings(),
		View:           string(snap.State.View),
		Fragment:       snap.State.View.Fragment(),
		PendingText:    snap.Context.PendingText,
		PendingInvalid: snap.IsPendingInvalid(),
		ActiveCount:    snap.ActiveCount(),
		CompletedCount: snap.CompletedCount(),
		AllCompleted:   snap.AllCompleted(),
		Tasks:          domain.CloneTasks(snap.Context.Tasks),
		VisibleTasks:   snap.VisibleTasks(),
	}
	hash, err := computeStateHash(out)
	if err != nil {
		return TodoState{}, err
	}
	out.StateHash = hash
	return out, nil
}

// computeStateHash fingerprints the regions and tasks so clients can detect changes.
func computeStateHash(state TodoState) (string, error) {
	encoded, err := json.Marshal(struct {
		States      []string      `json:"states"`
		PendingText string        `json:"pending_text"`
		Tasks       []domain.Task `json:"tasks"`
	}{
		States:      state.States,
		PendingText: state.PendingText,
		Tasks:       state.Tasks,
	})
	if err != nil {
		return "", fmt.Errorf("encode state hash: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// mapAppError maps app and domain failures onto transport errors.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrInvalidEvent),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidView):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
