package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/rbac"
)

// Actor is the identity performing a lifecycle operation.
type Actor struct {
	ID   int64
	Role string
}

// Authorizer decides whether a role holds a permission.
// *rbac.Authorizer satisfies it.
type Authorizer interface {
	Can(role, permission string) error
}

// Manager applies lifecycle transitions with ownership checks.
type Manager struct {
	storage Storage
	authz   Authorizer
	logger  *slog.Logger
	now     func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger for the Manager.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithAuthorizer enables moderation for roles holding
// rbac.PermNotificationsModerate. Without it only owners may act.
func WithAuthorizer(a Authorizer) ManagerOption {
	return func(m *Manager) {
		m.authz = a
	}
}

// WithClock overrides the time source for created_at and read_at.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new notification manager.
func NewManager(storage Storage, opts ...ManagerOption) *Manager {
	m := &Manager{
		storage: storage,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create persists one unread notification for recipientID.
func (m *Manager) Create(ctx context.Context, recipientID int64, d Draft) (Notification, error) {
	created, err := m.CreateMany(ctx, []int64{recipientID}, d)
	if err != nil {
		return Notification{}, err
	}
	return created[0], nil
}

// CreateMany persists one row per recipient from the same draft. The draft
// is validated before anything is written.
func (m *Manager) CreateMany(ctx context.Context, recipientIDs []int64, d Draft) ([]Notification, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if len(recipientIDs) == 0 {
		return []Notification{}, nil
	}

	now := m.now()
	rows := make([]Notification, len(recipientIDs))
	for i, id := range recipientIDs {
		if id <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidRecipient, id)
		}
		rows[i] = d.forRecipient(id, now)
	}

	created, err := m.storage.Create(ctx, rows...)
	if err != nil {
		return nil, fmt.Errorf("failed to store notifications: %w", err)
	}

	m.logger.LogAttrs(ctx, slog.LevelDebug, "notifications created",
		logger.Count("count", len(created)),
		slog.String("type", string(d.Type)),
	)
	return created, nil
}

// Get returns a notification visible to actor.
func (m *Manager) Get(ctx context.Context, id int64, actor Actor) (Notification, error) {
	n, err := m.storage.Get(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if err := m.authorize(n, actor); err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (m *Manager) List(ctx context.Context, ownerID int64, opts ListOptions) ([]Notification, error) {
	return m.storage.List(ctx, ownerID, opts)
}

func (m *Manager) CountUnread(ctx context.Context, ownerID int64) (int, error) {
	return m.storage.CountUnread(ctx, ownerID)
}

// MarkRead marks a single notification read. Owners and moderators only.
// Reading an already-read row changes nothing.
func (m *Manager) MarkRead(ctx context.Context, id int64, actor Actor) (Notification, error) {
	n, err := m.Get(ctx, id, actor)
	if err != nil {
		return Notification{}, err
	}
	if n.IsRead() {
		return n, nil
	}

	if n.RecipientID != actor.ID {
		m.logger.LogAttrs(ctx, slog.LevelInfo, "moderator marked notification read",
			logger.NotificationID(n.ID),
			logger.RecipientID(n.RecipientID),
			slog.Int64("actor_id", actor.ID),
		)
	}

	if _, err := m.storage.MarkRead(ctx, n.RecipientID, m.now(), id); err != nil {
		return Notification{}, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return m.storage.Get(ctx, id)
}

// MarkManyRead marks the owner's ids read. Ids owned by someone else,
// unknown ids and already-read ids are skipped. Returns the number of rows
// that transitioned.
func (m *Manager) MarkManyRead(ctx context.Context, ids []int64, ownerID int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	changed, err := m.storage.MarkRead(ctx, ownerID, m.now(), ids...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return changed, nil
}

// MarkAllRead marks every unread row of owner read. Idempotent.
func (m *Manager) MarkAllRead(ctx context.Context, ownerID int64) (int, error) {
	changed, err := m.storage.MarkAllRead(ctx, ownerID, m.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return changed, nil
}

// Delete removes a notification. Owners and moderators only.
func (m *Manager) Delete(ctx context.Context, id int64, actor Actor) error {
	if _, err := m.Get(ctx, id, actor); err != nil {
		return err
	}
	return m.storage.Delete(ctx, id)
}

// ClearRead deletes every read row of owner; unread rows stay.
func (m *Manager) ClearRead(ctx context.Context, ownerID int64) (int, error) {
	removed, err := m.storage.DeleteRead(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear read notifications: %w", err)
	}
	return removed, nil
}

// CanModerate reports whether actor may act on rows it does not own.
func (m *Manager) CanModerate(actor Actor) bool {
	return m.authz != nil && m.authz.Can(actor.Role, rbac.PermNotificationsModerate) == nil
}

func (m *Manager) authorize(n Notification, actor Actor) error {
	if n.RecipientID == actor.ID || m.CanModerate(actor) {
		return nil
	}
	return ErrForbidden
}
