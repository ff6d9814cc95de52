package tui

import (
	"testing"

	"charm.land/bubbles/v2/key"
)

// TestParseBindingKeys verifies key parsing behavior for configured overrides.
func TestParseBindingKeys(t *testing.T) {
	t.Run("space aliases", func(t *testing.T) {
		keys, help := parseBindingKeys("space", ".")
		if len(keys) != 2 || keys[0] != " " || keys[1] != "space" {
			t.Fatalf("unexpected parsed space keys %#v", keys)
		}
		if help != "space" {
			t.Fatalf("unexpected space help text %q", help)
		}
	})

	t.Run("uppercase rune includes shift alias", func(t *testing.T) {
		keys, help := parseBindingKeys("Z", "z")
		if len(keys) != 2 || keys[0] != "Z" || keys[1] != "shift+z" {
			t.Fatalf("unexpected uppercase parsed keys %#v", keys)
		}
		if help != "Z" {
			t.Fatalf("unexpected uppercase help text %q", help)
		}
	})

	t.Run("multi rune lowercases key matcher", func(t *testing.T) {
		keys, help := parseBindingKeys("Ctrl+R", "r")
		if len(keys) != 1 || keys[0] != "ctrl+r" {
			t.Fatalf("unexpected multi-rune parsed keys %#v", keys)
		}
		if help != "Ctrl+R" {
			t.Fatalf("unexpected multi-rune help text %q", help)
		}
	})

	t.Run("blank uses fallback", func(t *testing.T) {
		keys, help := parseBindingKeys("", "x")
		if len(keys) != 1 || keys[0] != "x" {
			t.Fatalf("unexpected fallback parsed keys %#v", keys)
		}
		if help != "x" {
			t.Fatalf("unexpected fallback help text %q", help)
		}
	})
}

// TestConfigureBinding verifies binding override application behavior.
func TestConfigureBinding(t *testing.T) {
	b := key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "old"))
	configureBinding(&b, "m", "a", "mark all")
	keys := b.Keys()
	if len(keys) != 1 || keys[0] != "m" {
		t.Fatalf("unexpected configured keys %#v", keys)
	}
	if b.Help().Key != "m" || b.Help().Desc != "mark all" {
		t.Fatalf("unexpected configured help %#v", b.Help())
	}
}

// TestKeyMapApplyConfig verifies dynamic key map override behavior.
func TestKeyMapApplyConfig(t *testing.T) {
	k := newKeyMap()
	k.applyConfig(KeyConfig{
		ToggleAll: "A",
		CopyTitle: "ctrl+y",
	})

	assertKeys := func(name string, binding key.Binding, expected ...string) {
		t.Helper()
		got := binding.Keys()
		if len(got) != len(expected) {
			t.Fatalf("%s key count mismatch got=%#v expected=%#v", name, got, expected)
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Fatalf("%s key mismatch got=%#v expected=%#v", name, got, expected)
			}
		}
	}

	assertKeys("toggle all", k.toggleAll, "A", "shift+a")
	assertKeys("clear completed", k.clearCompleted, "c")
	assertKeys("copy title", k.copyTitle, "ctrl+y")
}

// TestKeyMapDefaultsIncludeFragmentKeys verifies view navigation key defaults.
func TestKeyMapDefaultsIncludeFragmentKeys(t *testing.T) {
	k := newKeyMap()
	for name, b := range map[string]key.Binding{"1": k.showAll, "2": k.showActive, "3": k.showCompleted} {
		if got := b.Keys(); len(got) != 1 || got[0] != name {
			t.Fatalf("unexpected %s keys %#v", name, got)
		}
	}
	if got := k.toggleTask.Keys(); len(got) != 2 || got[0] != "space" || got[1] != "x" {
		t.Fatalf("unexpected toggle keys %#v", got)
	}
}
