package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/hylla/todos/internal/machine"
)

// TasksMarkdown formats the visible tasks of snap as a markdown checklist.
func TasksMarkdown(snap machine.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# todos (%s)\n\n", strings.ToLower(snap.State.View.Label()))
	visible := snap.VisibleTasks()
	if len(visible) == 0 {
		b.WriteString("_nothing here_\n")
	}
	for _, task := range visible {
		box := " "
		if task.Completed {
			box = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", box, escapeMarkdown(task.Title))
	}
	fmt.Fprintf(&b, "\n%s\n", itemsLeft(snap.ActiveCount()))
	return b.String()
}

// RenderMarkdown renders markdown for a terminal using the named glamour
// style. Rendering failures fall back to the raw markdown.
func RenderMarkdown(markdown, style string, width int) string {
	r := markdownRenderer{style: style}
	return r.render(markdown, width)
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`).Replace(s)
}

// markdownRenderer renders markdown and recreates the renderer when wrap width changes.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown input into ANSI-styled terminal text with the requested wrap width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(width, 24)
	style := r.style
	if style == "" {
		style = "dark"
	}
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}
