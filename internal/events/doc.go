// Package events carries loan lifecycle events from the loan engine to the
// components that react to them, such as the borrower notifier and the
// event counters. The engine emits after a transaction commits and never
// depends on what the handlers do.
package events
