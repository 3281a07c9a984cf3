// Package pg wires PostgreSQL into the service using pgx/v5.
//
// Connect opens a *pgxpool.Pool with retry, Migrate applies goose migrations
// from an embedded filesystem over the same pool, and Healthcheck returns a
// probe usable by the HTTP readiness endpoint. Error helpers classify pgx and
// *pgconn.PgError values so stores can map them to domain errors.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, migrations.FS, log); err != nil {
//	    return err
//	}
package pg
