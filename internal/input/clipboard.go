package input

import (
	"sync"

	"github.com/atotto/clipboard"

	"rustactions/internal/services"
)

// Clipboard writes text to a clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the desktop clipboard.
type SystemClipboard struct{}

// WriteAll replaces the clipboard contents.
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return services.Wrap(services.ErrExternalTool, "input", "clipboard", "no clipboard utility available", nil)
	}
	if err := clipboard.WriteAll(text); err != nil {
		return services.Wrap(services.ErrExternalTool, "input", "clipboard", "write clipboard", err)
	}
	return nil
}

// MemoryClipboard keeps the last written text in memory.
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
}

func (m *MemoryClipboard) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

// Text returns the last written value.
func (m *MemoryClipboard) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}
