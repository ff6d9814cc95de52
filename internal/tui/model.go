package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/hylla/todos/internal/domain"
	"github.com/hylla/todos/internal/machine"
)

// Service is the slice of the application service the TUI drives.
type Service interface {
	Snapshot() machine.Snapshot
	ChangePending(context.Context, string) machine.Snapshot
	CommitPending(context.Context, string) machine.Snapshot
	ToggleTask(context.Context, string) (domain.Task, error)
	RenameTask(context.Context, string, string) (domain.Task, error)
	DeleteTask(context.Context, string) machine.Snapshot
	ToggleAll(context.Context) machine.Snapshot
	ClearCompleted(context.Context) machine.Snapshot
	Navigate(context.Context, string) machine.Snapshot
}

// focusArea selects which part of the screen receives keys.
type focusArea int

const (
	focusInput focusArea = iota
	focusList
	focusEdit
)

// Model is the bubbletea model for the todo list.
type Model struct {
	svc Service
	ctx context.Context

	ready  bool
	width  int
	height int
	err    error

	status string

	help help.Model
	keys keyMap
	copy ClipboardFunc

	snap      machine.Snapshot
	focus     focusArea
	selected  int
	input     textinput.Model
	editInput textinput.Model
	editingID string
}

// loadedMsg carries the first snapshot read from the service.
type loadedMsg struct {
	snap machine.Snapshot
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	input := newInput("› ", "What needs to be done?", "", 256)
	input.Focus()
	m := Model{
		svc:       svc,
		ctx:       context.Background(),
		status:    "loading...",
		help:      h,
		keys:      newKeyMap(),
		copy:      defaultClipboard,
		input:     input,
		editInput: newInput("edit: ", "empty title deletes the task", "", 256),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// newInput constructs a single line text input.
func newInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadSnapshot
}

func (m Model) loadSnapshot() tea.Msg {
	return loadedMsg{snap: m.svc.Snapshot()}
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.apply(msg.snap)
		m.status = "ready"
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.focus {
		case focusEdit:
			return m.handleEditKey(msg)
		case focusList:
			return m.handleListKey(msg)
		default:
			return m.handleInputKey(msg)
		}

	default:
		var cmd tea.Cmd
		switch m.focus {
		case focusInput:
			m.input, cmd = m.input.Update(msg)
		case focusEdit:
			m.editInput, cmd = m.editInput.Update(msg)
		}
		return m, cmd
	}
}

// apply adopts a settled snapshot, keeps the selection in range, and mirrors
// the pending text into the input. Task commits clear the pending text too.
func (m *Model) apply(snap machine.Snapshot) {
	m.snap = snap
	m.err = nil
	m.selected = clamp(m.selected, 0, len(snap.VisibleTasks())-1)
	if m.input.Value() != snap.Context.PendingText {
		m.input.SetValue(snap.Context.PendingText)
	}
}

// Service calls run inline so keystrokes reach the machine in order.
func (m Model) handleInputKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.switchFocus):
		return m.setFocus(focusList), nil
	case key.Matches(msg, m.keys.commit):
		title := m.input.Value()
		m.apply(m.svc.CommitPending(m.ctx, title))
		if strings.TrimSpace(title) == "" {
			m.status = "nothing to add"
		} else {
			m.status = "added"
		}
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		return m.setFocus(focusList), nil
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.apply(m.svc.ChangePending(m.ctx, after))
	}
	return m, cmd
}

func (m Model) handleListKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	visible := m.snap.VisibleTasks()
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.switchFocus):
		return m.setFocus(focusInput), nil
	case key.Matches(msg, m.keys.moveUp):
		m.selected = clamp(m.selected-1, 0, len(visible)-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.selected = clamp(m.selected+1, 0, len(visible)-1)
		return m, nil
	case key.Matches(msg, m.keys.toggleAll):
		m.apply(m.svc.ToggleAll(m.ctx))
		m.status = "marked all"
		return m, nil
	case key.Matches(msg, m.keys.clearCompleted):
		m.apply(m.svc.ClearCompleted(m.ctx))
		m.status = "cleared completed"
		return m, nil
	case key.Matches(msg, m.keys.showAll):
		return m.navigate(domain.ViewAll.Fragment()), nil
	case key.Matches(msg, m.keys.showActive):
		return m.navigate(domain.ViewActive.Fragment()), nil
	case key.Matches(msg, m.keys.showCompleted):
		return m.navigate(domain.ViewCompleted.Fragment()), nil
	}

	task, ok := m.selectedTask()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.toggleTask):
		if _, err := m.svc.ToggleTask(m.ctx, task.ID); err != nil {
			m.err = err
			return m, nil
		}
		m.apply(m.svc.Snapshot())
		m.status = "toggled"
	case key.Matches(msg, m.keys.editTask):
		m.editingID = task.ID
		m.editInput.SetValue(task.Title)
		m.editInput.CursorEnd()
		return m.setFocus(focusEdit), nil
	case key.Matches(msg, m.keys.deleteTask):
		m.apply(m.svc.DeleteTask(m.ctx, task.ID))
		m.status = "deleted"
	case key.Matches(msg, m.keys.copyTitle):
		if err := m.copy(task.Title); err != nil {
			m.status = "copy failed: " + err.Error()
			return m, nil
		}
		m.status = "copied title"
	}
	return m, nil
}

func (m Model) handleEditKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		m.editingID = ""
		m.status = "edit cancelled"
		return m.setFocus(focusList), nil
	case key.Matches(msg, m.keys.commit):
		id := m.editingID
		title := strings.TrimSpace(m.editInput.Value())
		m.editingID = ""
		m = m.setFocus(focusList)
		if title == "" {
			m.apply(m.svc.DeleteTask(m.ctx, id))
			m.status = "deleted"
			return m, nil
		}
		if _, err := m.svc.RenameTask(m.ctx, id, title); err != nil {
			m.err = err
			return m, nil
		}
		m.apply(m.svc.Snapshot())
		m.status = "renamed"
		return m, nil
	}
	var cmd tea.Cmd
	m.editInput, cmd = m.editInput.Update(msg)
	return m, cmd
}

func (m Model) navigate(fragment string) Model {
	m.apply(m.svc.Navigate(m.ctx, fragment))
	m.status = "showing " + strings.ToLower(m.snap.State.View.Label())
	return m
}

func (m Model) setFocus(area focusArea) Model {
	m.focus = area
	m.input.Blur()
	m.editInput.Blur()
	switch area {
	case focusInput:
		m.input.Focus()
	case focusEdit:
		m.editInput.Focus()
	}
	return m
}

func (m Model) selectedTask() (domain.Task, bool) {
	visible := m.snap.VisibleTasks()
	if len(visible) == 0 {
		return domain.Task{}, false
	}
	return visible[clamp(m.selected, 0, len(visible)-1)], true
}

// View handles view.
func (m Model) View() tea.View {
	if !m.ready {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render builds the screen text.
func (m Model) render() string {
	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	doneStyle := lipgloss.NewStyle().Foreground(muted).Strikethrough(true)
	selectedStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	activeFilter := lipgloss.NewStyle().Bold(true).Underline(true).Foreground(accent)
	filterStyle := lipgloss.NewStyle().Foreground(muted)
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	sections := []string{titleStyle.Render("todos"), m.input.View()}
	if m.snap.IsPendingInvalid() {
		sections = append(sections, warnStyle.Render("please enter a value"))
	}
	sections = append(sections, "")

	visible := m.snap.VisibleTasks()
	if len(visible) == 0 {
		sections = append(sections, filterStyle.Render("nothing here"))
	}
	for idx, task := range visible {
		box := "[ ]"
		if task.Completed {
			box = "[x]"
		}
		cursor := "  "
		if m.focus != focusInput && idx == m.selected {
			cursor = "> "
		}
		if m.focus == focusEdit && task.ID == m.editingID {
			sections = append(sections, cursor+box+" "+m.editInput.View())
			continue
		}
		line := box + " " + task.Title
		switch {
		case m.focus != focusInput && idx == m.selected:
			line = selectedStyle.Render(line)
		case task.Completed:
			line = doneStyle.Render(line)
		}
		sections = append(sections, cursor+line)
	}

	if len(m.snap.Context.Tasks) > 0 {
		filters := make([]string, 0, len(domain.Views()))
		for _, view := range domain.Views() {
			if m.snap.Matches("view." + string(view)) {
				filters = append(filters, activeFilter.Render(view.Label()))
				continue
			}
			filters = append(filters, filterStyle.Render(view.Label()))
		}
		footer := itemsLeft(m.snap.ActiveCount()) + "   " + strings.Join(filters, " ")
		if m.snap.CompletedCount() > 0 {
			footer += "   " + filterStyle.Render("clear completed")
		}
		sections = append(sections, "", footer)
	}

	if m.err != nil {
		sections = append(sections, "", warnStyle.Render("error: "+m.err.Error()))
	} else if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, "", statusStyle.Render(m.status))
	}

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	sections = append(sections, "", filterStyle.Render(helpBubble.View(m.keys)))
	return strings.Join(sections, "\n")
}

// itemsLeft formats the active counter.
func itemsLeft(n int) string {
	if n == 1 {
		return "1 item left"
	}
	return fmt.Sprintf("%d items left", n)
}

// clamp bounds v to [lo, hi]; an empty range yields lo.
func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}

