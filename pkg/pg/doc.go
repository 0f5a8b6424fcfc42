// Package pg provides PostgreSQL plumbing on top of the pgx/v5 driver:
// pool creation with startup retry, goose schema migrations, a health
// check, and error classification helpers.
//
// Typical bootstrap:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    panic(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    panic(err)
//	}
//
// Error helpers such as IsNotFoundError and IsDuplicateKeyError unwrap pgx
// and pgconn errors so storage code can classify failures without importing
// driver internals.
package pg
