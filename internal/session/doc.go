// Package session wraps one websocket connection for one account.
//
// A Session lives for exactly one connect attempt. Close is idempotent and
// unblocks any goroutine waiting in Receive, which then returns an error.
// Dial never retries; retry policy belongs to the caller.
package session
