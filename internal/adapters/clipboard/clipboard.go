package clipboard

import (
	"github.com/atotto/clipboard"

	"github.com/kamal-hamza/bx-cli/internal/core/ports"
)

// System writes to the desktop clipboard
type System struct{}

var _ ports.Clipboard = System{}

// NewSystem returns the system clipboard
func NewSystem() System {
	return System{}
}

// WriteAll replaces the clipboard contents with text
func (System) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// Available reports whether a clipboard utility was found
func Available() bool {
	return !clipboard.Unsupported
}
