package yamlio

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/hylla/todos/internal/domain"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

func TestExportImportYAML(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", Title: "Buy milk", Completed: true},
		{ID: "b", Title: "Walk dog"},
	}
	var buf bytes.Buffer
	if err := Export(&buf, tasks, FormatYAML); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "tasks:\n") {
		t.Fatalf("unexpected yaml document:\n%s", buf.String())
	}
	got, err := Import(&buf, FormatYAML, nil)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if !slices.Equal(got, tasks) {
		t.Fatalf("round trip = %#v", got)
	}
}

func TestExportJSONMatchesPersistedShape(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, nil, FormatJSON); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("empty export = %q", buf.String())
	}

	buf.Reset()
	if err := Export(&buf, []domain.Task{{ID: "a", Title: "A"}}, FormatJSON); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	for _, want := range []string{`"id": "a"`, `"title": "A"`, `"completed": false`} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("json export missing %s:\n%s", want, buf.String())
		}
	}
}

func TestImportGeneratesMissingIDs(t *testing.T) {
	input := `
tasks:
  - title: "  first  "
  - id: keep
    title: second
    completed: true
`
	got, err := Import(strings.NewReader(input), FormatYAML, seqIDs())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	want := []domain.Task{
		{ID: "gen-1", Title: "first"},
		{ID: "keep", Title: "second", Completed: true},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("Import() = %#v, want %#v", got, want)
	}
}

func TestImportRejectsInvalidDocuments(t *testing.T) {
	cases := []struct {
		name   string
		format Format
		input  string
		want   error
	}{
		{"blank title", FormatYAML, "tasks:\n  - id: a\n    title: ' '\n", domain.ErrInvalidTitle},
		{"missing id without generator", FormatJSON, `[{"title":"x"}]`, domain.ErrInvalidID},
		{"duplicate id", FormatJSON, `[{"id":"a","title":"x"},{"id":"a","title":"y"}]`, ErrDuplicateID},
		{"unknown format", Format("toml"), "", ErrUnsupportedFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Import(strings.NewReader(tc.input), tc.format, nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Import() error = %v, want %v", err, tc.want)
			}
		})
	}
	if _, err := Import(strings.NewReader("tasks: [oops"), FormatYAML, nil); err == nil {
		t.Fatal("expected parse error for malformed yaml")
	}
}

func TestParseFormat(t *testing.T) {
	for raw, want := range map[string]Format{"": FormatYAML, "YML": FormatYAML, "json": FormatJSON} {
		got, err := ParseFormat(raw)
		if err != nil {
			t.Fatalf("ParseFormat(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if got := FormatForPath("backup.JSON", FormatYAML); got != FormatJSON {
		t.Fatalf("FormatForPath() = %q", got)
	}
	if got := FormatForPath("backup.txt", FormatJSON); got != FormatJSON {
		t.Fatalf("FormatForPath() fallback = %q", got)
	}
}
