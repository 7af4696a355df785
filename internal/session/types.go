package session

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rickgao/session-keeper/internal/account"
)

// Session is one live websocket connection owned by one worker.
type Session interface {
	// ID uniquely identifies this connect attempt.
	ID() string

	// AccountID returns the owning account.
	AccountID() string

	// Send writes one text frame.
	Send(data []byte) error

	// Receive blocks until a frame arrives or the connection ends.
	// Returns *ClosedError on a close frame and *ReceiveError otherwise.
	Receive() (Frame, error)

	// Close releases the connection. Safe to call more than once.
	Close() error

	// Done is closed once Close has been called.
	Done() <-chan struct{}
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, cred account.Credential) (Session, error)
}

// DialerFunc is a function adapter for Dialer.
type DialerFunc func(ctx context.Context, cred account.Credential) (Session, error)

func (f DialerFunc) Dial(ctx context.Context, cred account.Credential) (Session, error) {
	return f(ctx, cred)
}

// Frame is one inbound message.
type Frame struct {
	Binary     bool
	Data       []byte
	ReceivedAt time.Time // Local timestamp when Receive returned
}

// Len returns the payload size in bytes.
func (f Frame) Len() int {
	return len(f.Data)
}

// Preview returns at most n characters of the payload. Binary frames and
// invalid UTF-8 are summarized instead of printed.
func (f Frame) Preview(n int) string {
	if f.Binary || !utf8.Valid(f.Data) {
		return "<binary frame>"
	}
	s := string(f.Data)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Config configures the websocket dialer.
type Config struct {
	URL              string        // Base endpoint, e.g. wss://secure.ws.teneo.pro/websocket
	Version          string        // Protocol version tag appended to the query
	HandshakeTimeout time.Duration // Covers TCP, TLS, proxy and upgrade
	WriteTimeout     time.Duration // Write deadline for sends
	UserAgent        string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:              "wss://secure.ws.teneo.pro/websocket",
		Version:          "v0.2",
		HandshakeTimeout: 30 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}
