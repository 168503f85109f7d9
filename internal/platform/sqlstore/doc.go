// Package sqlstore implements the store interfaces over database/sql.
//
// One code path serves both supported databases: PostgreSQL through the pgx
// stdlib driver and SQLite through the pure Go modernc driver. Queries are
// built with goqu in the matching dialect and scanned with sqlx, so the only
// per-database code is the ledger lock, error mapping and the migrations.
package sqlstore
