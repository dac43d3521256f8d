package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/docmatch/notifier/pkg/pg"
)

// DB is the subset of *pgxpool.Pool used by PGStorage.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStorage stores notifications in the "notifications" table created by
// internal/db/migrations.
type PGStorage struct {
	db DB
}

// NewPGStorage wraps a pgx pool.
func NewPGStorage(db DB) *PGStorage {
	return &PGStorage{db: db}
}

const notificationColumns = `id, recipient_id, title, body, type, channel, data, created_at, read_at`

func (s *PGStorage) Create(ctx context.Context, notifs ...Notification) ([]Notification, error) {
	const query = `
		INSERT INTO notifications (recipient_id, title, body, type, channel, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	out := make([]Notification, len(notifs))
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for i, n := range notifs {
			if n.RecipientID <= 0 {
				return ErrInvalidRecipient
			}
			if n.CreatedAt.IsZero() {
				n.CreatedAt = time.Now()
			}
			if n.Channel == "" {
				n.Channel = ChannelInApp
			}
			data := n.Data
			if data == nil {
				data = map[string]any{}
			}
			if err := tx.QueryRow(ctx, query,
				n.RecipientID, n.Title, n.Body, string(n.Type), string(n.Channel), data, n.CreatedAt,
			).Scan(&n.ID); err != nil {
				return fmt.Errorf("insert notification for recipient %d: %w", n.RecipientID, err)
			}
			out[i] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PGStorage) Get(ctx context.Context, id int64) (Notification, error) {
	row := s.db.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Notification{}, ErrNotFound
		}
		return Notification{}, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

func (s *PGStorage) List(ctx context.Context, recipientID int64, opts ListOptions) ([]Notification, error) {
	var (
		where = []string{"recipient_id = $1"}
		args  = []any{recipientID}
	)
	if opts.OnlyUnread {
		where = append(where, "read_at IS NULL")
	}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		where = append(where, fmt.Sprintf("type = ANY($%d)", len(args)))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		where = append(where, fmt.Sprintf("created_at > $%d", len(args)))
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (s *PGStorage) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE recipient_id = $1 AND read_at IS NULL`,
		recipientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PGStorage) MarkRead(ctx context.Context, recipientID int64, at time.Time, ids ...int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET read_at = $1
		WHERE recipient_id = $2 AND id = ANY($3) AND read_at IS NULL`,
		at, recipientID, ids,
	)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PGStorage) MarkAllRead(ctx context.Context, recipientID int64, at time.Time) (int, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read_at = $1 WHERE recipient_id = $2 AND read_at IS NULL`,
		at, recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PGStorage) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStorage) DeleteRead(ctx context.Context, recipientID int64) (int, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM notifications WHERE recipient_id = $1 AND read_at IS NOT NULL`,
		recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var (
		n       Notification
		typ     string
		channel string
	)
	err := row.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Body, &typ, &channel, &n.Data, &n.CreatedAt, &n.ReadAt)
	if err != nil {
		return Notification{}, err
	}
	n.Type = Type(typ)
	n.Channel = Channel(channel)
	return n, nil
}

var (
	_ Storage = (*PGStorage)(nil)
	_ Storage = (*MemoryStorage)(nil)
)
