package stream

import (
	"sync"

	"github.com/docmatch/notifier/pkg/registry"
)

// Channel is the registry-facing side of one stream session. Writes are
// queued in a bounded buffer and drained by the session goroutine, so a slow
// client never blocks the dispatcher.
type Channel struct {
	mu     sync.RWMutex
	frames chan []byte
	done   chan struct{}
	closed bool
}

// NewChannel creates a channel that buffers up to size frames.
func NewChannel(size int) *Channel {
	if size <= 0 {
		size = 1
	}
	return &Channel{
		frames: make(chan []byte, size),
		done:   make(chan struct{}),
	}
}

// Write queues frame without blocking. It fails with ErrChannelFull when the
// buffer is full and with ErrChannelClosed once the session has ended.
func (c *Channel) Write(frame []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrChannelClosed
	}
	select {
	case c.frames <- frame:
		return nil
	default:
		return ErrChannelFull
	}
}

// Frames returns the queue the session drains.
func (c *Channel) Frames() <-chan []byte {
	return c.frames
}

// Done is closed when the channel is closed.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close marks the channel closed and ends the session that drains it. Safe
// to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Len reports the number of queued frames.
func (c *Channel) Len() int {
	return len(c.frames)
}

var (
	_ registry.Channel = (*Channel)(nil)
	_ registry.Closer  = (*Channel)(nil)
)
