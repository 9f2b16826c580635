package notify

import (
	"sync/atomic"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/internal/core/ports"
)

// Channel forwards notifications to a buffered channel, for the TUI to
// drain. When the buffer is full the notification is dropped rather than
// blocking the flow.
type Channel struct {
	ch      chan domain.Notification
	dropped atomic.Int64
}

var _ ports.Notifier = (*Channel)(nil)

func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{ch: make(chan domain.Notification, size)}
}

func (c *Channel) Notify(n domain.Notification) {
	select {
	case c.ch <- n:
	default:
		c.dropped.Add(1)
	}
}

// C is the receive side
func (c *Channel) C() <-chan domain.Notification {
	return c.ch
}

// Dropped counts notifications lost to a full buffer
func (c *Channel) Dropped() int64 {
	return c.dropped.Load()
}
