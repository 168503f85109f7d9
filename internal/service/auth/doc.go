// Package auth issues and validates the HMAC-signed JWTs the API accepts and
// checks staff passwords against their bcrypt hashes. Patrons and staff
// alike log in through LoginService; the token carries the user name as
// subject and the person's role list.
package auth
