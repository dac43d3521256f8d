package targeting

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of *pgxpool.Pool used by PGMembership.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGMembership reads users from the platform's users table, which must have
// a bigint "id" and a text "role" column.
type PGMembership struct {
	db    Querier
	table string
}

// NewPGMembership reads from table (usually "users").
func NewPGMembership(db Querier, table string) *PGMembership {
	if table == "" {
		table = "users"
	}
	return &PGMembership{db: db, table: pgx.Identifier{table}.Sanitize()}
}

func (m *PGMembership) RecipientsByRole(ctx context.Context, role string) ([]int64, error) {
	if role == RoleAll {
		return m.collect(ctx, `SELECT id FROM `+m.table+` ORDER BY id`)
	}
	return m.collect(ctx, `SELECT id FROM `+m.table+` WHERE role = $1 ORDER BY id`, role)
}

func (m *PGMembership) Existing(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}
	found, err := m.collect(ctx, `SELECT id FROM `+m.table+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}

	known := make(map[int64]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	out := make([]int64, 0, len(found))
	for _, id := range ids {
		if _, ok := known[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *PGMembership) collect(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := m.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}
