package tui

import (
	"context"

	"github.com/atotto/clipboard"
)

// KeyConfig holds user overrides for configurable bindings.
type KeyConfig struct {
	ToggleAll      string
	ClearCompleted string
	CopyTitle      string
}

type Option func(*Model)

// ClipboardFunc writes text to the system clipboard.
type ClipboardFunc func(string) error

func defaultClipboard(text string) error {
	return clipboard.WriteAll(text)
}

func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

func WithClipboard(fn ClipboardFunc) Option {
	return func(m *Model) {
		if fn != nil {
			m.copy = fn
		}
	}
}

// WithContext sets the context passed to service calls.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}
