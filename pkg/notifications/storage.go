package notifications

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("notification not found")
	ErrForbidden        = errors.New("notification belongs to another recipient")
	ErrInvalidRecipient = errors.New("invalid recipient id")
)

// Storage handles notification persistence.
// Ownership rules live in Manager; storage only scopes by recipient where
// the method says so.
type Storage interface {
	// Create stores rows and returns them with ID set, in input order.
	Create(ctx context.Context, notifs ...Notification) ([]Notification, error)

	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id int64) (Notification, error)

	// List returns a recipient's rows, newest first.
	List(ctx context.Context, recipientID int64, opts ListOptions) ([]Notification, error)

	CountUnread(ctx context.Context, recipientID int64) (int, error)

	// MarkRead sets read_at on those ids that belong to recipientID and are
	// still unread. Returns how many rows changed.
	MarkRead(ctx context.Context, recipientID int64, at time.Time, ids ...int64) (int, error)

	// MarkAllRead sets read_at on every unread row of recipientID.
	MarkAllRead(ctx context.Context, recipientID int64, at time.Time) (int, error)

	// Delete returns ErrNotFound for unknown ids.
	Delete(ctx context.Context, id int64) error

	// DeleteRead removes every read row of recipientID.
	DeleteRead(ctx context.Context, recipientID int64) (int, error)
}

// ListOptions filters and paginates List.
type ListOptions struct {
	Limit      int        // 0 = no limit
	Offset     int
	OnlyUnread bool
	Types      []Type     // empty = every type
	Since      *time.Time // created strictly after
}
