package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/todos/internal/app"
	"github.com/hylla/todos/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// pendingSuffix names the companion slot holding the pending text.
const pendingSuffix = ".pending"

// Repository stores named JSON slots in a single sqlite table.
type Repository struct {
	db    *sql.DB
	clock func() time.Time
}

// Open opens (and migrates) the database at path.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Every pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	return newRepository(db)
}

// newRepository migrates db and wraps it.
func newRepository(db *sql.DB) (*Repository, error) {
	repo := &Repository{db: db, clock: time.Now}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the slot table; it is safe to run repeatedly.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS slots (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	alters := []string{
		`ALTER TABLE slots ADD COLUMN updated_at TEXT NOT NULL DEFAULT ''`,
	}
	for _, stmt := range alters {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil && !isDuplicateColumnErr(err) {
			return fmt.Errorf("migrate sqlite slots: %w", err)
		}
	}
	return nil
}

// LoadTasks decodes the task list stored under key.
func (r *Repository) LoadTasks(ctx context.Context, key string) ([]domain.Task, error) {
	raw, err := r.getSlot(ctx, key)
	if err != nil {
		return nil, err
	}
	var tasks []domain.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return nil, fmt.Errorf("decode slot %q: %w", key, err)
	}
	if err := domain.ValidateTasks(tasks); err != nil {
		return nil, fmt.Errorf("decode slot %q: %w", key, err)
	}
	return domain.CloneTasks(tasks), nil
}

// SaveTasks encodes tasks as a JSON array and upserts it under key.
func (r *Repository) SaveTasks(ctx context.Context, key string, tasks []domain.Task) error {
	encoded, err := json.Marshal(domain.CloneTasks(tasks))
	if err != nil {
		return fmt.Errorf("encode slot %q: %w", key, err)
	}
	return r.putSlot(ctx, key, string(encoded))
}

// LoadPendingText returns the pending text stored next to key.
func (r *Repository) LoadPendingText(ctx context.Context, key string) (string, error) {
	return r.getSlot(ctx, key+pendingSuffix)
}

// SavePendingText stores the pending text next to key.
func (r *Repository) SavePendingText(ctx context.Context, key, text string) error {
	return r.putSlot(ctx, key+pendingSuffix, text)
}

// UpdatedAt reports when key was last written.
func (r *Repository) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT updated_at FROM slots WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, app.ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return parseTS(raw), nil
}

// getSlot reads a raw slot value.
func (r *Repository) getSlot(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("slot key is required")
	}
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", app.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// putSlot upserts a raw slot value.
func (r *Repository) putSlot(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("slot key is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO slots(key, value, updated_at)
		VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, ts(r.clock()))
	return err
}

// ts formats a timestamp for storage.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// isDuplicateColumnErr reports whether the expected condition is satisfied.
func isDuplicateColumnErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}
