package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/hylla/todos/internal/domain"
	"github.com/hylla/todos/internal/machine"
)

type fakeRepo struct {
	mu       sync.Mutex
	tasks    map[string][]domain.Task
	pending  map[string]string
	loadErr  error
	saveErr  error
	saves    int
	pendings int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tasks:   map[string][]domain.Task{},
		pending: map[string]string{},
	}
}

func (f *fakeRepo) LoadTasks(_ context.Context, key string) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	tasks, ok := f.tasks[key]
	if !ok {
		return nil, ErrNotFound
	}
	return domain.CloneTasks(tasks), nil
}

func (f *fakeRepo) SaveTasks(_ context.Context, key string, tasks []domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.tasks[key] = domain.CloneTasks(tasks)
	return nil
}

func (f *fakeRepo) LoadPendingText(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.pending[key]
	if !ok {
		return "", ErrNotFound
	}
	return text, nil
}

func (f *fakeRepo) SavePendingText(_ context.Context, key, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendings++
	f.pending[key] = text
	return nil
}

func counterIDs() machine.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func newTestService(repo *fakeRepo, cfg ServiceConfig) *Service {
	initial := LoadInitialContext(context.Background(), repo, cfg, nil)
	return NewService(repo, initial, counterIDs(), nil, cfg)
}

// TestLoadInitialContextMissingSlot verifies an empty list for a fresh store.
func TestLoadInitialContextMissingSlot(t *testing.T) {
	got := LoadInitialContext(context.Background(), newFakeRepo(), ServiceConfig{InitialPendingText: "Learn state machines"}, nil)
	if got.Tasks == nil || len(got.Tasks) != 0 {
		t.Fatalf("expected empty non-nil tasks, got %#v", got.Tasks)
	}
	if got.PendingText != "Learn state machines" {
		t.Fatalf("pending text = %q", got.PendingText)
	}
}

// TestLoadInitialContextCorruptSlot verifies read failures degrade to empty.
func TestLoadInitialContextCorruptSlot(t *testing.T) {
	repo := newFakeRepo()
	repo.loadErr = errors.New("invalid character")
	got := LoadInitialContext(context.Background(), repo, ServiceConfig{}, nil)
	if len(got.Tasks) != 0 {
		t.Fatalf("expected empty tasks, got %#v", got.Tasks)
	}
}

// TestLoadInitialContextDuplicateIDs verifies a slot with repeated ids degrades to empty.
func TestLoadInitialContextDuplicateIDs(t *testing.T) {
	repo := newFakeRepo()
	repo.tasks[DefaultSlotKey] = []domain.Task{{ID: "x", Title: "A"}, {ID: "x", Title: "B"}}
	got := LoadInitialContext(context.Background(), repo, ServiceConfig{}, nil)
	if got.Tasks == nil || len(got.Tasks) != 0 {
		t.Fatalf("expected empty tasks, got %#v", got.Tasks)
	}

	svc := NewService(repo, got, counterIDs(), nil, ServiceConfig{})
	snap := svc.DeleteTask(context.Background(), "x")
	if len(snap.Context.Tasks) != 0 {
		t.Fatalf("unexpected tasks after delete %#v", snap.Context.Tasks)
	}
}

// TestLoadInitialContextPendingText verifies optional pending text restore.
func TestLoadInitialContextPendingText(t *testing.T) {
	repo := newFakeRepo()
	repo.tasks[DefaultSlotKey] = []domain.Task{{ID: "a", Title: "A"}}
	repo.pending[DefaultSlotKey] = "draft"

	got := LoadInitialContext(context.Background(), repo, ServiceConfig{SavePendingText: true, InitialPendingText: "seed"}, nil)
	if got.PendingText != "draft" || len(got.Tasks) != 1 {
		t.Fatalf("unexpected context %#v", got)
	}
	got = LoadInitialContext(context.Background(), repo, ServiceConfig{InitialPendingText: "seed"}, nil)
	if got.PendingText != "seed" {
		t.Fatalf("pending text = %q, want seed when restore is disabled", got.PendingText)
	}
}

// TestServicePersistsThroughRepository verifies the persistence hook.
func TestServicePersistsThroughRepository(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{SlotKey: "custom"})
	ctx := context.Background()

	task, err := svc.AddTask(ctx, "  write tests ")
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if task.ID != "t1" || task.Title != "write tests" {
		t.Fatalf("unexpected task %#v", task)
	}
	if got := repo.tasks["custom"]; len(got) != 1 || got[0] != task {
		t.Fatalf("unexpected persisted tasks %#v", got)
	}

	svc.ChangePending(ctx, "draft")
	if repo.saves != 1 {
		t.Fatalf("pending change persisted tasks, saves = %d", repo.saves)
	}
	if repo.pendings != 0 {
		t.Fatalf("pending text persisted while disabled")
	}

	restarted := newTestService(repo, ServiceConfig{SlotKey: "custom"})
	if got := restarted.Snapshot().VisibleTasks(); !slices.Equal(got, []domain.Task{task}) {
		t.Fatalf("restored tasks = %#v", got)
	}
}

// TestServiceSavesPendingTextWhenEnabled verifies the optional pending slot.
func TestServiceSavesPendingTextWhenEnabled(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{SavePendingText: true})
	ctx := context.Background()
	svc.ChangePending(ctx, "milk")
	if repo.pending[DefaultSlotKey] != "milk" {
		t.Fatalf("pending slot = %q", repo.pending[DefaultSlotKey])
	}
	svc.CommitPending(ctx, "milk")
	if repo.pending[DefaultSlotKey] != "" {
		t.Fatalf("pending slot = %q after commit", repo.pending[DefaultSlotKey])
	}
}

// TestServiceSwallowsSaveErrors verifies failing storage never breaks events.
func TestServiceSwallowsSaveErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.saveErr = errors.New("disk full")
	svc := newTestService(repo, ServiceConfig{})
	if _, err := svc.AddTask(context.Background(), "still here"); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if got := len(svc.Snapshot().Context.Tasks); got != 1 {
		t.Fatalf("expected 1 task, got %d", got)
	}
	if repo.saves != 1 {
		t.Fatalf("expected a save attempt, got %d", repo.saves)
	}
}

// TestServiceTaskOperations verifies toggle, rename, update and delete.
func TestServiceTaskOperations(t *testing.T) {
	svc := newTestService(newFakeRepo(), ServiceConfig{})
	ctx := context.Background()
	a, _ := svc.AddTask(ctx, "A")
	b, _ := svc.AddTask(ctx, "B")

	toggled, err := svc.ToggleTask(ctx, a.ID)
	if err != nil {
		t.Fatalf("ToggleTask() error = %v", err)
	}
	if !toggled.Completed {
		t.Fatal("expected completed after toggle")
	}

	renamed, err := svc.RenameTask(ctx, b.ID, " Bee ")
	if err != nil {
		t.Fatalf("RenameTask() error = %v", err)
	}
	if renamed.Title != "Bee" {
		t.Fatalf("title = %q", renamed.Title)
	}
	if _, err := svc.RenameTask(ctx, b.ID, "  "); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}

	updated, err := svc.UpdateTask(ctx, domain.Task{ID: b.ID, Title: "Bee", Completed: true})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if !updated.Completed {
		t.Fatal("expected update to complete task")
	}

	for name, call := range map[string]func() error{
		"toggle": func() error { _, err := svc.ToggleTask(ctx, "missing"); return err },
		"rename": func() error { _, err := svc.RenameTask(ctx, "missing", "x"); return err },
		"update": func() error { _, err := svc.UpdateTask(ctx, domain.Task{ID: "missing", Title: "x"}); return err },
	} {
		if err := call(); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s unknown id: expected ErrNotFound, got %v", name, err)
		}
	}

	snap := svc.DeleteTask(ctx, a.ID)
	if len(snap.Context.Tasks) != 1 || snap.Context.Tasks[0].ID != b.ID {
		t.Fatalf("unexpected tasks after delete %#v", snap.Context.Tasks)
	}
}

// TestServiceBulkAndViewOperations verifies mark-all, clear and view changes.
func TestServiceBulkAndViewOperations(t *testing.T) {
	svc := newTestService(newFakeRepo(), ServiceConfig{})
	ctx := context.Background()
	svc.AddTask(ctx, "A")
	svc.AddTask(ctx, "B")

	snap := svc.ToggleAll(ctx)
	if !snap.AllCompleted() {
		t.Fatal("expected all completed after first toggle")
	}
	snap = svc.ToggleAll(ctx)
	if snap.ActiveCount() != 2 {
		t.Fatalf("active count = %d, want 2", snap.ActiveCount())
	}
	svc.MarkAll(ctx, true)
	snap = svc.ClearCompleted(ctx)
	if len(snap.Context.Tasks) != 0 {
		t.Fatalf("expected empty list, got %#v", snap.Context.Tasks)
	}

	if _, err := svc.ShowView(ctx, "done"); !errors.Is(err, domain.ErrInvalidView) {
		t.Fatalf("expected ErrInvalidView, got %v", err)
	}
	snap, err := svc.ShowView(ctx, "Completed")
	if err != nil {
		t.Fatalf("ShowView() error = %v", err)
	}
	if snap.State.View != domain.ViewCompleted {
		t.Fatalf("view = %q", snap.State.View)
	}
	if snap = svc.Navigate(ctx, "#/active"); snap.State.View != domain.ViewActive {
		t.Fatalf("view = %q after navigate", snap.State.View)
	}
	if snap = svc.Navigate(ctx, "#/nope"); snap.State.View != domain.ViewAll {
		t.Fatalf("view = %q after unknown fragment", snap.State.View)
	}
	if _, err := svc.AddTask(ctx, " "); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if _, err := svc.Send(ctx, nil); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

// TestServiceReplaceTasks verifies import-style replacement.
func TestServiceReplaceTasks(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	ctx := context.Background()
	svc.AddTask(ctx, "old")
	svc.ShowView(ctx, "active")

	snap, err := svc.ReplaceTasks(ctx, []domain.Task{
		{ID: "x", Title: " X ", Completed: true},
		{ID: "y", Title: "Y"},
	})
	if err != nil {
		t.Fatalf("ReplaceTasks() error = %v", err)
	}
	if snap.State.View != domain.ViewActive {
		t.Fatalf("view = %q, want preserved active", snap.State.View)
	}
	if got := snap.VisibleTasks(); len(got) != 1 || got[0].ID != "y" {
		t.Fatalf("visible = %#v", got)
	}
	if got := repo.tasks[DefaultSlotKey]; len(got) != 2 || got[0].Title != "X" || !got[0].Completed {
		t.Fatalf("persisted = %#v", got)
	}

	if _, err := svc.ReplaceTasks(ctx, []domain.Task{{ID: "d", Title: "1"}, {ID: "d", Title: "2"}}); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := svc.ReplaceTasks(ctx, []domain.Task{{ID: "e", Title: ""}}); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if got := len(svc.Snapshot().Context.Tasks); got != 2 {
		t.Fatalf("failed replace changed tasks, got %d", got)
	}
}

// TestServiceReplaceTasksKeepsStatus verifies an import leaves the pending field state alone.
func TestServiceReplaceTasksKeepsStatus(t *testing.T) {
	svc := newTestService(newFakeRepo(), ServiceConfig{})
	ctx := context.Background()
	svc.ChangePending(ctx, "draft")
	if snap := svc.ChangePending(ctx, ""); !snap.IsPendingInvalid() {
		t.Fatalf("expected invalid/dirty before import, got %s", snap.State)
	}

	snap, err := svc.ReplaceTasks(ctx, []domain.Task{{ID: "a", Title: "A"}})
	if err != nil {
		t.Fatalf("ReplaceTasks() error = %v", err)
	}
	if !snap.IsPendingInvalid() {
		t.Fatalf("status reset by import, got %s", snap.State)
	}
}

// TestServiceConcurrentSends verifies serialized run-to-completion.
func TestServiceConcurrentSends(t *testing.T) {
	svc := NewService(newFakeRepo(), machine.Context{}, nil, nil, ServiceConfig{})
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddTask(ctx, fmt.Sprintf("task %d", i)); err != nil {
				t.Errorf("AddTask() error = %v", err)
			}
		}()
	}
	wg.Wait()
	tasks := svc.Snapshot().Context.Tasks
	if len(tasks) != 20 {
		t.Fatalf("expected 20 tasks, got %d", len(tasks))
	}
	seen := map[string]struct{}{}
	for _, task := range tasks {
		seen[task.ID] = struct{}{}
	}
	if len(seen) != 20 {
		t.Fatalf("expected unique ids, got %d", len(seen))
	}
}
