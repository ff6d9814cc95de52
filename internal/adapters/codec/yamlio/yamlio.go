// Package yamlio reads and writes task lists as YAML documents or JSON arrays.
package yamlio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hylla/todos/internal/domain"
	"gopkg.in/yaml.v3"
)

// Format names a supported document encoding.
type Format string

// FormatYAML and FormatJSON are the supported encodings.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat and related errors describe import failures.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrDuplicateID       = errors.New("duplicate task id")
)

// ParseFormat normalizes a user supplied format name. Empty means YAML.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// FormatForPath guesses the format from a file extension, falling back to fallback.
func FormatForPath(path string, fallback Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return fallback
	}
}

// yamlTask is a single task in a YAML document.
type yamlTask struct {
	ID        string `yaml:"id,omitempty"`
	Title     string `yaml:"title"`
	Completed bool   `yaml:"completed"`
}

// yamlDocument is the root of a YAML document.
type yamlDocument struct {
	Tasks []yamlTask `yaml:"tasks"`
}

// Export writes tasks to w in the requested format.
func Export(w io.Writer, tasks []domain.Task, format Format) error {
	tasks = domain.CloneTasks(tasks)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tasks); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatYAML:
		doc := yamlDocument{Tasks: make([]yamlTask, 0, len(tasks))}
		for _, t := range tasks {
			doc.Tasks = append(doc.Tasks, yamlTask(t))
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Import reads a task list from r. Tasks without an id receive one from newID;
// blank titles and repeated ids are rejected.
func Import(r io.Reader, format Format, newID func() string) ([]domain.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	var raw []yamlTask
	switch format {
	case FormatJSON:
		var decoded []domain.Task
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, fmt.Errorf("JSON parse error: %w", err)
		}
		for _, t := range decoded {
			raw = append(raw, yamlTask(t))
		}
	case FormatYAML:
		var doc yamlDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
		raw = doc.Tasks
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	out := make([]domain.Task, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, rt := range raw {
		id := strings.TrimSpace(rt.ID)
		if id == "" && newID != nil {
			id = newID()
		}
		task, err := domain.NewTask(id, rt.Title)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		if _, dup := seen[task.ID]; dup {
			return nil, fmt.Errorf("task %d: %w %q", i+1, ErrDuplicateID, task.ID)
		}
		seen[task.ID] = struct{}{}
		task.Completed = rt.Completed
		out = append(out, task)
	}
	return out, nil
}
