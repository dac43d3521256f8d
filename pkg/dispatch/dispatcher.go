package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/docmatch/notifier/pkg/async"
	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/metrics"
	"github.com/docmatch/notifier/pkg/notifications"
	"github.com/docmatch/notifier/pkg/registry"
)

// Dispatcher pushes notification frames to the channels held by a registry.
// A channel whose write fails is unregistered and, when it implements
// registry.Closer, closed on the spot; the failure never reaches the caller.
type Dispatcher struct {
	registry    *registry.Registry
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for the Dispatcher.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithMetrics records delivery counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithConcurrency bounds how many recipients a Broadcast or DeliverBatch
// writes to at once. Zero means unbounded.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		d.concurrency = n
	}
}

// New creates a dispatcher over reg.
func New(reg *registry.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:    reg,
		logger:      slog.Default(),
		concurrency: 64,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.NewNop()
	}
	return d
}

// Frame encodes v as a single event-stream data frame.
func Frame(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(payload) + 8)
	buf.WriteString("data: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// Comment encodes text as an event-stream comment frame.
func Comment(text string) []byte {
	return []byte(": " + text + "\n\n")
}

// SendToUser writes n to every open channel of recipientID and reports
// whether at least one accepted it. A recipient without channels yields
// false; that is the normal offline case.
func (d *Dispatcher) SendToUser(ctx context.Context, recipientID int64, n notifications.Notification) bool {
	frame, ok := d.encode(ctx, n)
	if !ok {
		return false
	}
	return d.SendFrame(ctx, recipientID, frame)
}

// SendFrame writes a pre-encoded frame to every open channel of recipientID.
func (d *Dispatcher) SendFrame(ctx context.Context, recipientID int64, frame []byte) bool {
	channels := d.registry.Channels(recipientID)
	if len(channels) == 0 {
		d.metrics.RecipientsOffline.Inc()
		return false
	}

	delivered := false
	for _, ch := range channels {
		if err := ch.Write(frame); err != nil {
			d.registry.Unregister(recipientID, ch)
			if c, ok := ch.(registry.Closer); ok {
				c.Close()
			}
			d.metrics.ChannelWriteFailures.Inc()
			d.logger.LogAttrs(ctx, slog.LevelDebug, "dropped broken channel",
				logger.RecipientID(recipientID),
				logger.Error(err),
			)
			continue
		}
		d.metrics.FramesDelivered.Inc()
		delivered = true
	}
	return delivered
}

// Broadcast writes n to every recipient currently in the registry and
// returns how many of them were reached.
func (d *Dispatcher) Broadcast(ctx context.Context, n notifications.Notification) int {
	frame, ok := d.encode(ctx, n)
	if !ok {
		return 0
	}

	// Delivery outlives the request that triggered it.
	ctx = context.WithoutCancel(ctx)

	results, _ := async.Map(ctx, d.registry.Recipients(), d.concurrency,
		func(ctx context.Context, recipientID int64) (bool, error) {
			return d.SendFrame(ctx, recipientID, frame), nil
		},
	)
	return countTrue(results)
}

// Deliver implements notifications.Deliverer.
func (d *Dispatcher) Deliver(ctx context.Context, n notifications.Notification) bool {
	return d.SendToUser(ctx, n.RecipientID, n)
}

// DeliverBatch implements notifications.Deliverer. Each row goes to its own
// recipient; rows are delivered concurrently up to the dispatcher's bound.
func (d *Dispatcher) DeliverBatch(ctx context.Context, notifs []notifications.Notification) int {
	if len(notifs) == 0 {
		return 0
	}
	ctx = context.WithoutCancel(ctx)

	results, _ := async.Map(ctx, notifs, d.concurrency,
		func(ctx context.Context, n notifications.Notification) (bool, error) {
			return d.Deliver(ctx, n), nil
		},
	)

	delivered := countTrue(results)
	d.logger.LogAttrs(ctx, slog.LevelDebug, "batch dispatched",
		logger.Count("notifications", len(notifs)),
		logger.Count("delivered", delivered),
	)
	return delivered
}

func (d *Dispatcher) encode(ctx context.Context, n notifications.Notification) ([]byte, bool) {
	frame, err := Frame(notifications.NewView(n))
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "failed to encode notification frame",
			logger.NotificationID(n.ID),
			logger.Error(err),
		)
		return nil, false
	}
	return frame, true
}

func countTrue(results []bool) int {
	count := 0
	for _, ok := range results {
		if ok {
			count++
		}
	}
	return count
}

var _ notifications.Deliverer = (*Dispatcher)(nil)
