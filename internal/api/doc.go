// Package api holds the HTTP handlers of the loan service: patron loan
// endpoints, staff administration and login. Handlers decode and validate
// requests, call the loan and admin services and map their outcomes to
// status codes; routing and middleware are wired in cmd/server.
package api
