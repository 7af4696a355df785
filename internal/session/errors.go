package session

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrClosed = errors.New("session closed")
)

// ConnectError reports a failed dial: DNS, TCP, TLS, proxy, or handshake.
type ConnectError struct {
	StatusCode int // HTTP status of a rejected handshake, 0 otherwise
	Cause      error
}

func (e *ConnectError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("connect: handshake rejected with status %d: %v", e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("connect: %v", e.Cause)
}

func (e *ConnectError) Unwrap() error { return e.Cause }

// SendError reports a failed frame write.
type SendError struct {
	Cause error
}

func (e *SendError) Error() string { return fmt.Sprintf("send: %v", e.Cause) }

func (e *SendError) Unwrap() error { return e.Cause }

// ReceiveError reports a transport or protocol fault while reading.
type ReceiveError struct {
	Cause error
}

func (e *ReceiveError) Error() string { return fmt.Sprintf("receive: %v", e.Cause) }

func (e *ReceiveError) Unwrap() error { return e.Cause }

// ClosedError reports a close frame from the peer.
type ClosedError struct {
	Code   int
	Reason string
}

func (e *ClosedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connection closed (code: %d)", e.Code)
	}
	return fmt.Sprintf("connection closed (code: %d, reason: %s)", e.Code, e.Reason)
}
