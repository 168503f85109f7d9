// Package notify tells borrowers about their loans. Notices are composed when
// a grant commits and sent by email from the background worker pool, so a
// slow or failing mail server never delays or undoes a loan.
package notify
