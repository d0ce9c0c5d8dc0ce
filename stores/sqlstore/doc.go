// Package sqlstore implements authcore.UserStore and authcore.SessionStore
// over database/sql, for PostgreSQL (pgx) and SQLite (modernc, no cgo).
//
// The schema is managed with goose migrations embedded in the binary; Open
// applies any that are pending.
//
//	store, err := sqlstore.Open(ctx, sqlstore.Postgres, "postgres://...")
//	store, err := sqlstore.OpenSQLite(ctx, "/var/lib/app/auth.db")
//
// Timestamps are stored as Unix milliseconds in UTC.
package sqlstore
