package notifications

import "context"

// Deliverer pushes already-persisted notifications to live clients.
// Delivery is best effort; a recipient without open connections is not an
// error.
type Deliverer interface {
	// Deliver reports whether at least one live connection accepted n.
	Deliver(ctx context.Context, n Notification) bool

	// DeliverBatch returns how many of notifs reached at least one
	// connection.
	DeliverBatch(ctx context.Context, notifs []Notification) int
}

// NoOpDeliverer drops everything. Useful when live delivery is disabled.
type NoOpDeliverer struct{}

func (NoOpDeliverer) Deliver(context.Context, Notification) bool { return false }

func (NoOpDeliverer) DeliverBatch(context.Context, []Notification) int { return 0 }
