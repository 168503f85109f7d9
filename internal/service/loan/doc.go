// Package loan is the loan lifecycle engine. It evaluates whether a user may
// borrow an item, grants and ends loans, expires overdue loans lazily at the
// start of every operation, and force-closes the loans of an item withdrawn
// by staff. Every ledger mutation runs in a transaction holding the ledger
// lock, and availability is re-evaluated inside that transaction.
package loan
