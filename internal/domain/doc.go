// Package domain contains the entities of the loan system: items in the
// registry, loans in the ledger, the append-only loan history and the people
// allowed to administer it. It also holds the availability statuses and the
// time rounding rules the loan engine applies. Nothing here touches storage.
package domain
