// Package task runs background work off the request path, chiefly the loan
// notice emails. Tasks wait in a bounded in-memory queue and are executed by
// a fixed pool of workers that retry transient failures with backoff. Nothing
// is persisted: a task still queued when the process dies is lost.
package task
