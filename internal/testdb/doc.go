// Package testdb opens migrated databases for tests.
//
// Open returns a fresh SQLite database in a temporary directory, so store
// and service tests run with no external services and never share state.
// OpenPostgres runs the same tests against PostgreSQL when
// DIBS_TEST_DATABASE_URL is set and skips otherwise. Tests that use it carry
// the integration build tag:
//
//	DIBS_TEST_DATABASE_URL=postgres://... go test -tags integration ./...
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.Open(t)
//	    items := sqlstore.NewItemStore(db.DB, db.Dialect, nil)
//	    ...
//	}
//
// WithTx runs a test body inside a transaction that is always rolled back.
package testdb
