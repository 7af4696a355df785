package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/session-keeper/internal/account"
)

// WSDialer dials the remote endpoint with gorilla/websocket.
type WSDialer struct {
	cfg    Config
	logger *slog.Logger
}

// NewDialer creates a websocket dialer.
func NewDialer(cfg Config, logger *slog.Logger) *WSDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSDialer{cfg: cfg, logger: logger}
}

// Dial opens one session for cred, routed through its proxy if set.
// Every failure is returned as *ConnectError.
func (d *WSDialer) Dial(ctx context.Context, cred account.Credential) (Session, error) {
	endpoint, err := cred.Endpoint(d.cfg.URL, d.cfg.Version)
	if err != nil {
		return nil, &ConnectError{Cause: err}
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: d.cfg.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	proxyURL, err := cred.ProxyURL()
	if err != nil {
		return nil, &ConnectError{Cause: err}
	}
	if proxyURL != nil {
		dialer.Proxy = http.ProxyURL(proxyURL)
	}

	header := http.Header{}
	if d.cfg.UserAgent != "" {
		header.Set("User-Agent", d.cfg.UserAgent)
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		ce := &ConnectError{Cause: err}
		if resp != nil {
			ce.StatusCode = resp.StatusCode
		}
		return nil, ce
	}

	s := &wsSession{
		id:           uuid.NewString(),
		accountID:    cred.AccountID,
		conn:         conn,
		writeTimeout: d.cfg.WriteTimeout,
		done:         make(chan struct{}),
	}
	s.logger = d.logger.With("account", cred.AccountID, "session", s.id)

	s.logger.Debug("websocket connected",
		"remote", conn.RemoteAddr().String(),
		"proxied", proxyURL != nil,
	)

	return s, nil
}

// wsSession implements Session.
type wsSession struct {
	id           string
	accountID    string
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       *slog.Logger

	// Write serialization
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

func (s *wsSession) ID() string            { return s.id }
func (s *wsSession) AccountID() string     { return s.accountID }
func (s *wsSession) Done() <-chan struct{} { return s.done }

// Send writes one text frame.
func (s *wsSession) Send(data []byte) error {
	select {
	case <-s.done:
		return &SendError{Cause: ErrClosed}
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return &SendError{Cause: err}
	}
	return nil
}

// Receive blocks for the next data frame.
func (s *wsSession) Receive() (Frame, error) {
	msgType, data, err := s.conn.ReadMessage()
	receivedAt := time.Now()

	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return Frame{}, &ClosedError{Code: ce.Code, Reason: ce.Text}
		}
		// Errors after Close() are reported as a closed session.
		select {
		case <-s.done:
			return Frame{}, &ReceiveError{Cause: ErrClosed}
		default:
		}
		return Frame{}, &ReceiveError{Cause: err}
	}

	return Frame{
		Binary:     msgType == websocket.BinaryMessage,
		Data:       data,
		ReceivedAt: receivedAt,
	}, nil
}

// Close sends a close frame and releases the connection exactly once.
func (s *wsSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.closeErr = s.conn.Close()

		s.logger.Debug("websocket closed")
	})
	return s.closeErr
}
