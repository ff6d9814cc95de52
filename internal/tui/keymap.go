package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// keyMap represents key map data used by this package.
type keyMap struct {
	quit           key.Binding
	toggleHelp     key.Binding
	switchFocus    key.Binding
	commit         key.Binding
	cancel         key.Binding
	moveUp         key.Binding
	moveDown       key.Binding
	toggleTask     key.Binding
	editTask       key.Binding
	deleteTask     key.Binding
	toggleAll      key.Binding
	clearCompleted key.Binding
	copyTitle      key.Binding
	showAll        key.Binding
	showActive     key.Binding
	showCompleted  key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:           key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		switchFocus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "input/list")),
		commit:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		cancel:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		moveUp:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		toggleTask:     key.NewBinding(key.WithKeys("space", "x"), key.WithHelp("space/x", "toggle")),
		editTask:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		deleteTask:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		toggleAll:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "mark all")),
		clearCompleted: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear completed")),
		copyTitle:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy title")),
		showAll:        key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "all")),
		showActive:     key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "active")),
		showCompleted:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "completed")),
	}
}

// applyConfig overrides the configurable bindings. Blank entries keep the defaults.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.toggleAll, cfg.ToggleAll, "a", "mark all")
	configureBinding(&k.clearCompleted, cfg.ClearCompleted, "c", "clear completed")
	configureBinding(&k.copyTitle, cfg.CopyTitle, "y", "copy title")
}

// configureBinding replaces the keys and help of one binding.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, helpKey := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(helpKey, desc)
}

// parseBindingKeys turns a configured key name into matcher keys and help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = fallback
	}
	if strings.EqualFold(value, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(value) == 1 {
		r, _ := utf8.DecodeRuneInString(value)
		if unicode.IsUpper(r) {
			return []string{value, "shift+" + strings.ToLower(value)}, value
		}
		return []string{value}, value
	}
	return []string{strings.ToLower(value)}, value
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.switchFocus, k.commit, k.toggleTask, k.editTask, k.deleteTask, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.switchFocus, k.commit, k.cancel, k.toggleHelp, k.quit},
		{k.moveUp, k.moveDown, k.toggleTask, k.editTask, k.deleteTask, k.copyTitle},
		{k.toggleAll, k.clearCompleted, k.showAll, k.showActive, k.showCompleted},
	}
}
