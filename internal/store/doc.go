// Package store defines the persistence contracts of the loan system: the
// item registry, the loan ledger, the loan history and the staff directory.
// Implementations live under internal/platform; the loan engine and the
// administrative service only see these interfaces, the DBTX abstraction and
// the transaction helpers.
package store
