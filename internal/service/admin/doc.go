// Package admin implements the staff operations on the item registry:
// adding items from the catalog, editing them, opening and closing them for
// loans, removing them, and reporting usage. Any change that affects existing
// loans goes through the loan engine so the ledger lock is honoured.
package admin
