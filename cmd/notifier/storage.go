package main

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/docmatch/notifier/internal/db/migrations"
	"github.com/docmatch/notifier/pkg/httpserver"
	"github.com/docmatch/notifier/pkg/notifications"
	"github.com/docmatch/notifier/pkg/pg"
	"github.com/docmatch/notifier/pkg/rbac"
	"github.com/docmatch/notifier/pkg/targeting"
)

// openStorage connects to Postgres and applies migrations when configured.
// Otherwise it falls back to in-memory storage seeded from DEV_USERS.
func openStorage(ctx context.Context, cfg Config, log *slog.Logger) (
	notifications.Storage, targeting.Membership, []httpserver.Check, func(), error,
) {
	if !cfg.PG.Enabled() {
		log.Warn("PG_CONN_URL not set, using in-memory storage")
		return notifications.NewMemoryStorage(), devMembership(cfg.DevUsers, log), nil, func() {}, nil
	}

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := pg.MigrateFS(ctx, pool, migrations.FS, cfg.PG, log); err != nil {
		pool.Close()
		return nil, nil, nil, nil, err
	}

	checks := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}}
	return notifications.NewPGStorage(pool),
		targeting.NewPGMembership(pool, cfg.PG.UsersTable),
		checks,
		pool.Close,
		nil
}

func devMembership(users map[string]string, log *slog.Logger) *targeting.StaticMembership {
	m := targeting.NewStaticMembership(nil)
	for rawID, role := range users {
		id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
		if err != nil || id <= 0 {
			log.Warn("skipping invalid dev user", slog.String("id", rawID))
			continue
		}
		m.Set(id, strings.ToLower(strings.TrimSpace(role)))
	}
	return m
}

func loadAuthorizer(ctx context.Context, rolesFile string) (*rbac.Authorizer, error) {
	source := rbac.NewMemorySource(rbac.DefaultRoles())
	if rolesFile != "" {
		source = rbac.NewYAMLSource(rolesFile)
	}
	return rbac.NewAuthorizer(ctx, source)
}
