// Package pg bootstraps the PostgreSQL pool behind notification storage and
// role membership: configuration from the environment, a retrying Connect,
// goose migrations and a readiness probe.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//	    return err
//	}
//
//	storage := notifications.NewPGStorage(pool)
//	members := targeting.NewPGMembership(pool, cfg.UsersTable)
package pg
