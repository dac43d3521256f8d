package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Channel is one open delivery path to a client, e.g. a single browser tab.
// Implementations must be comparable (pointer types) because the registry
// keys on channel identity.
type Channel interface {
	// Write hands a serialized frame to the transport. It must not block on
	// slow clients; an error marks the channel as broken.
	Write(frame []byte) error
}

// Closer is implemented by channels that own a live transport. The
// dispatcher closes such a channel after a failed write so the transport
// ends instead of idling unregistered.
type Closer interface {
	Close()
}

// Connection describes a registered channel.
type Connection struct {
	ID          string
	RecipientID int64
	OpenedAt    time.Time
	Channel     Channel
}

// Registry maps recipient ids to their currently open channels. It is
// in-memory only and safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]map[Channel]*Connection
	now   func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for Connection.OpenedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		conns: make(map[int64]map[Channel]*Connection),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds ch under recipientID. Registering the same channel again
// returns the existing connection instead of creating a second path.
func (r *Registry) Register(recipientID int64, ch Channel) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[recipientID]
	if !ok {
		set = make(map[Channel]*Connection)
		r.conns[recipientID] = set
	}
	if conn, exists := set[ch]; exists {
		return conn
	}

	conn := &Connection{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		OpenedAt:    r.now(),
		Channel:     ch,
	}
	set[ch] = conn
	return conn
}

// Unregister removes ch from recipientID's set and drops the recipient
// entry once it is empty. It reports whether the channel was registered.
func (r *Registry) Unregister(recipientID int64, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[recipientID]
	if !ok {
		return false
	}
	if _, exists := set[ch]; !exists {
		return false
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(r.conns, recipientID)
	}
	return true
}

// IsConnected reports whether recipientID has at least one open channel.
func (r *Registry) IsConnected(recipientID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[recipientID]
	return ok
}

// ConnectedRecipientCount returns the number of recipients with at least
// one channel.
func (r *Registry) ConnectedRecipientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// TotalChannelCount returns the number of open channels across all
// recipients.
func (r *Registry) TotalChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, set := range r.conns {
		total += len(set)
	}
	return total
}

// Channels returns a snapshot of recipientID's channels. Callers may
// iterate it while other goroutines register or unregister.
func (r *Registry) Channels(recipientID int64) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[recipientID]
	out := make([]Channel, 0, len(set))
	for ch := range set {
		out = append(out, ch)
	}
	return out
}

// Connections returns copies of recipientID's connection records.
func (r *Registry) Connections(recipientID int64) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[recipientID]
	out := make([]Connection, 0, len(set))
	for _, c := range set {
		out = append(out, *c)
	}
	return out
}

// Recipients returns a snapshot of every recipient id that currently has
// at least one channel.
func (r *Registry) Recipients() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]int64, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}
