package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hylla/todos/internal/domain"
	"github.com/hylla/todos/internal/machine"
)

// DefaultSlotKey names the persisted slot when none is configured.
const DefaultSlotKey = "todos-xstate"

// saveTimeout bounds a single persistence write.
const saveTimeout = 5 * time.Second

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	SlotKey            string
	SavePendingText    bool
	InitialPendingText string
}

// withDefaults fills unset fields.
func (c ServiceConfig) withDefaults() ServiceConfig {
	c.SlotKey = strings.TrimSpace(c.SlotKey)
	if c.SlotKey == "" {
		c.SlotKey = DefaultSlotKey
	}
	return c
}

// Service serializes access to one task machine and wires its persistence
// hook to a Repository. It is safe for concurrent use by several adapters.
type Service struct {
	mu      sync.Mutex
	repo    Repository
	idGen   machine.IDGenerator
	logger  *log.Logger
	cfg     ServiceConfig
	machine *machine.Machine
	saveCtx context.Context
}

// NewService constructs a service over initial. A nil idGen falls back to
// random UUIDs and a nil logger discards output.
func NewService(repo Repository, initial machine.Context, idGen machine.IDGenerator, logger *log.Logger, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = uuid.NewString
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Service{
		repo:    repo,
		idGen:   idGen,
		logger:  logger,
		cfg:     cfg.withDefaults(),
		saveCtx: context.Background(),
	}
	s.machine = s.newMachine(initial)
	return s
}

// LoadInitialContext reads the persisted slot. A missing or unreadable slot
// yields an empty task list; the failure is logged, never returned.
func LoadInitialContext(ctx context.Context, repo Repository, cfg ServiceConfig, logger *log.Logger) machine.Context {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.New(io.Discard)
	}
	out := machine.Context{
		PendingText: cfg.InitialPendingText,
		Tasks:       []domain.Task{},
	}
	if repo == nil {
		return out
	}

	tasks, err := repo.LoadTasks(ctx, cfg.SlotKey)
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Debug("no persisted tasks", "key", cfg.SlotKey)
	case err != nil:
		logger.Warn("discarding unreadable persisted tasks", "key", cfg.SlotKey, "err", err)
	default:
		if err := domain.ValidateTasks(tasks); err != nil {
			logger.Warn("discarding invalid persisted tasks", "key", cfg.SlotKey, "err", err)
			break
		}
		out.Tasks = domain.CloneTasks(tasks)
	}

	if cfg.SavePendingText {
		text, err := repo.LoadPendingText(ctx, cfg.SlotKey)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			logger.Warn("discarding unreadable pending text", "key", cfg.SlotKey, "err", err)
		default:
			out.PendingText = text
		}
	}
	return out
}

// newMachine builds a machine whose persister writes through the repository.
func (s *Service) newMachine(initial machine.Context, opts ...machine.Option) *machine.Machine {
	opts = append([]machine.Option{
		machine.WithIDGenerator(s.idGen),
		machine.WithPersister(machine.PersisterFunc(s.saveTasks)),
	}, opts...)
	return machine.New(initial, opts...)
}

// saveTasks is the machine persistence hook. Errors are logged and dropped.
func (s *Service) saveTasks(tasks []domain.Task) {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.saveCtx), saveTimeout)
	defer cancel()
	if err := s.repo.SaveTasks(ctx, s.cfg.SlotKey, tasks); err != nil {
		s.logger.Warn("persist tasks failed", "key", s.cfg.SlotKey, "err", err)
	}
}

// savePendingText stores the pending buffer when configured to.
func (s *Service) savePendingText(ctx context.Context, before, after string) {
	if s.repo == nil || !s.cfg.SavePendingText || before == after {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := s.repo.SavePendingText(ctx, s.cfg.SlotKey, after); err != nil {
		s.logger.Warn("persist pending text failed", "key", s.cfg.SlotKey, "err", err)
	}
}

// send applies ev while holding the lock.
func (s *Service) send(ctx context.Context, ev machine.Event) machine.Snapshot {
	if ctx == nil {
		ctx = context.Background()
	}
	s.saveCtx = ctx
	defer func() { s.saveCtx = context.Background() }()

	before := s.machine.Snapshot()
	after := s.machine.Send(ev)
	s.savePendingText(ctx, before.Context.PendingText, after.Context.PendingText)
	s.logger.Debug("event applied", "event", ev.Name(), "state", after.State.String(), "tasks", len(after.Context.Tasks))
	return after
}

// Snapshot returns the current settled snapshot.
func (s *Service) Snapshot() machine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Snapshot()
}

// Send applies an arbitrary machine event.
func (s *Service) Send(ctx context.Context, ev machine.Event) (machine.Snapshot, error) {
	if ev == nil {
		return machine.Snapshot{}, ErrInvalidEvent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(ctx, ev), nil
}

// ChangePending replaces the pending text.
func (s *Service) ChangePending(ctx context.Context, value string) machine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(ctx, machine.PendingChange{Value: value})
}

// CommitPending turns value into a new task when it is not blank.
func (s *Service) CommitPending(ctx context.Context, value string) machine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(ctx, machine.PendingCommit{Value: value})
}

// AddTask commits title as a new task and returns it. Like any commit it
// clears the pending text.
func (s *Service) AddTask(ctx context.Context, title string) (domain.Task, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Task{}, domain.ErrInvalidTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.send(ctx, machine.PendingCommit{Value: title})
	if len(snap.Context.Tasks) == 0 {
		return domain.Task{}, fmt.Errorf("add task %q: %w", title, ErrNotFound)
	}
	return snap.Context.Tasks[len(snap.Context.Tasks)-1], nil
}

// UpdateTask replaces the stored task with the same id.
func (s *Service) UpdateTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	if strings.TrimSpace(task.Title) == "" {
		return domain.Task{}, domain.ErrInvalidTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.machine.Snapshot().Task(task.ID); !ok {
		return domain.Task{}, fmt.Errorf("task %q: %w", task.ID, ErrNotFound)
	}
	snap := s.send(ctx, machine.TaskCommit{Task: task})
	updated, _ := snap.Task(task.ID)
	return updated, nil
}

// ToggleTask flips the completed flag of one task.
func (s *Service) ToggleTask(ctx context.Context, id string) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.machine.Snapshot().Task(id)
	if !ok {
		return domain.Task{}, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	snap := s.send(ctx, machine.TaskCommit{Task: task.Toggle()})
	updated, _ := snap.Task(id)
	return updated, nil
}

// RenameTask changes the title of one task.
func (s *Service) RenameTask(ctx context.Context, id, title string) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.machine.Snapshot().Task(id)
	if !ok {
		return domain.Task{}, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	renamed, err := task.Rename(title)
	if err != nil {
		return domain.Task{}, err
	}
	snap := s.send(ctx, machine.TaskCommit{Task: renamed})
	updated, _ := snap.Task(id)
	return updated, nil
}

// DeleteTask removes a task by id. Unknown ids still persist the list.
func (s *Service) DeleteTask(ctx context.Context, id string) machine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(ctx, machine.TaskDelete{ID: id})
}

// MarkAll sets every task to completed or active.
func (s *Service) MarkAll(ctx context.Context, completed bool) machine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if completed {
		return s.send(ctx, machine.MarkAllCompleted{})
	}
	return s.send(ctx, machine.MarkAllActive{})
}

// ToggleAll completes everything unless everything is already completed.
func (s *Service) ToggleAll(ctx context.Context) machine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(ctx, s.machine.Snapshot().MarkAllEvent())
}

// ClearCompleted removes every completed task.
func (s *Service) ClearCompleted(ctx context.Context) machine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(ctx, machine.ClearCompleted{})
}

// ShowView switches the visible filter.
func (s *Service) ShowView(ctx context.Context, raw string) (machine.Snapshot, error) {
	view, err := domain.ParseView(raw)
	if err != nil {
		return machine.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(ctx, machine.ShowView{View: view}), nil
}

// Navigate resolves a location fragment such as "#/active" to a view.
// Unrecognized fragments show every task.
func (s *Service) Navigate(ctx context.Context, fragment string) machine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(ctx, machine.ShowView{View: domain.ParseFragment(fragment)})
}

// ReplaceTasks swaps the whole list, as done by an import, and persists it.
// The view, the pending text and the status region survive the swap.
func (s *Service) ReplaceTasks(ctx context.Context, tasks []domain.Task) (machine.Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	clean := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		normalized, err := domain.NewTask(task.ID, task.Title)
		if err != nil {
			return machine.Snapshot{}, fmt.Errorf("task %q: %w", task.ID, err)
		}
		normalized.Completed = task.Completed
		clean = append(clean, normalized)
	}
	if err := domain.ValidateTasks(clean); err != nil {
		return machine.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.machine.Snapshot()
	s.machine = s.newMachine(machine.Context{
		PendingText: current.Context.PendingText,
		Tasks:       clean,
	},
		machine.WithView(current.State.View),
		machine.WithStatus(current.State.Validity, current.State.Interaction),
	)

	s.saveCtx = ctx
	s.saveTasks(clean)
	s.saveCtx = context.Background()
	s.logger.Info("tasks replaced", "count", len(clean))
	return s.machine.Snapshot(), nil
}
