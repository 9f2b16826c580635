package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/internal/core/ports"
	"github.com/kamal-hamza/bx-cli/pkg/ui"
)

// Console prints notifications as styled terminal lines
type Console struct {
	out   io.Writer
	quiet bool
	mu    sync.Mutex
}

var _ ports.Notifier = (*Console)(nil)

// NewConsole writes notifications to out. A quiet console only prints errors.
func NewConsole(out io.Writer, quiet bool) *Console {
	return &Console{out: out, quiet: quiet}
}

func (c *Console) Notify(n domain.Notification) {
	if c.quiet && n.Severity != domain.SeverityError {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, Render(n))
}

// Render formats a notification as a single line
func Render(n domain.Notification) string {
	msg := n.Title
	if n.Description != "" {
		msg += ": " + n.Description
	}

	switch n.Severity {
	case domain.SeveritySuccess:
		return ui.FormatSuccess(msg)
	case domain.SeverityError:
		return ui.FormatError(msg)
	default:
		return ui.FormatInfo(msg)
	}
}
