package supervisor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/session-keeper/internal/account"
	"github.com/rickgao/session-keeper/internal/session"
	"github.com/rickgao/session-keeper/internal/status"
	"github.com/rickgao/session-keeper/internal/worker"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*http.Request, *websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))
	t.Cleanup(server.Close)

	return server
}

func testDialer(server *httptest.Server) *session.WSDialer {
	return session.NewDialer(session.Config{
		URL:              "ws" + strings.TrimPrefix(server.URL, "http"),
		Version:          "v0.2",
		HandshakeTimeout: 2 * time.Second,
		WriteTimeout:     2 * time.Second,
	}, nil)
}

// holdOpen reads until the client goes away.
func holdOpen(_ *http.Request, conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func testConfig() Config {
	return Config{
		Worker: worker.Config{
			PingInterval:    time.Second,
			ConnectAttempts: 5,
			RetryDelay:      10 * time.Millisecond,
			RestartDelay:    50 * time.Millisecond,
			PreviewLength:   100,
		},
		PanicRestartDelay: 10 * time.Millisecond,
	}
}

func creds(ids ...string) []account.Credential {
	out := make([]account.Credential, 0, len(ids))
	for _, id := range ids {
		out = append(out, account.Credential{AccountID: id, AccessToken: "token-" + id})
	}
	return out
}

func refusing() session.Dialer {
	return session.DialerFunc(func(ctx context.Context, cred account.Credential) (session.Session, error) {
		return nil, &session.ConnectError{Cause: errors.New("connection refused")}
	})
}

func messages(agg *status.Aggregator, accountID string) []string {
	var out []string
	for _, e := range agg.Snapshot().Events {
		if e.AccountID == accountID {
			out = append(out, e.Message)
		}
	}
	return out
}

func hasPrefix(msgs []string, prefix string) bool {
	for _, m := range msgs {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

// runFor runs s until d elapses and returns Run's error.
func runFor(t *testing.T, s *Supervisor, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-time.After(d + 2*time.Second):
		t.Fatal("supervisor did not stop")
		return nil
	}
}

func TestSupervisor_OneWorkerPerAccount(t *testing.T) {
	agg := status.NewAggregator(status.WithCapacity(1000))
	s := New(testConfig(), creds("a", "b", "c"), refusing(), agg, nil, nil)

	require.Len(t, s.Workers(), 3)
	assert.Equal(t, "a", s.Workers()[0].AccountID())
	assert.Equal(t, "c", s.Workers()[2].AccountID())

	// Registered before any event.
	require.Len(t, agg.Snapshot().Accounts, 3)

	require.NoError(t, runFor(t, s, 60*time.Millisecond))

	for _, w := range s.Workers() {
		assert.True(t, hasPrefix(messages(agg, w.AccountID()), "Connecting..."), "account %s", w.AccountID())
		assert.Greater(t, w.Stats().ConnectFailures, int64(0))
	}
	assert.True(t, hasPrefix(messages(agg, ""), "Starting 3 account worker(s)"))
}

func TestSupervisor_FailureIsolation(t *testing.T) {
	server := mockWSServer(t, holdOpen)
	good := testDialer(server)

	dialer := session.DialerFunc(func(ctx context.Context, cred account.Credential) (session.Session, error) {
		if cred.AccountID == "bad" {
			return nil, &session.ConnectError{Cause: errors.New("connection refused")}
		}
		return good.Dial(ctx, cred)
	})

	agg := status.NewAggregator(status.WithCapacity(1000))
	s := New(testConfig(), creds("bad", "good"), dialer, agg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return hasPrefix(messages(agg, "bad"), "Restarting connection") &&
			hasPrefix(messages(agg, "good"), "Connected (session")
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	goodMsgs := messages(agg, "good")
	assert.False(t, hasPrefix(goodMsgs, "Connection error"))
	assert.False(t, hasPrefix(goodMsgs, "Restarting connection"))
	assert.False(t, hasPrefix(messages(agg, "bad"), "Connected"))

	for _, a := range agg.Snapshot().Accounts {
		switch a.AccountID {
		case "bad":
			assert.Equal(t, int64(0), a.Connects)
		case "good":
			assert.Equal(t, int64(1), a.Connects)
		}
	}
}

func TestSupervisor_EndToEndRestart(t *testing.T) {
	var conns atomic.Int32
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		conns.Add(1)
		// Wait for the heartbeat, then close.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		// Drain until the client acknowledges.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	agg := status.NewAggregator(status.WithCapacity(1000))
	s := New(testConfig(), creds("acc-1"), testDialer(server), agg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		n := 0
		for _, m := range messages(agg, "acc-1") {
			if m == "Connecting..." {
				n++
			}
		}
		return n >= 2
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	msgs := messages(agg, "acc-1")
	index := func(prefix string, from int) int {
		for i := from; i < len(msgs); i++ {
			if strings.HasPrefix(msgs[i], prefix) {
				return i
			}
		}
		return -1
	}

	connecting := index("Connecting...", 0)
	connected := index("Connected (session", connecting)
	closed := index("Connection closed (code: 1000)", connected)
	restarting := index("Restarting connection in 50ms...", closed)
	again := index("Connecting...", restarting)
	ping := index("Ping", connected)

	require.NotEqual(t, -1, connecting, "connecting: %v", msgs)
	require.NotEqual(t, -1, connected, "connected: %v", msgs)
	require.NotEqual(t, -1, closed, "closed: %v", msgs)
	require.NotEqual(t, -1, restarting, "restarting: %v", msgs)
	require.NotEqual(t, -1, again, "reconnect: %v", msgs)
	require.NotEqual(t, -1, ping, "ping: %v", msgs)
	assert.Less(t, ping, restarting)

	stats := s.Workers()[0].Stats()
	assert.Equal(t, stats.Sessions, stats.Closes, "every session closed exactly once")
	assert.GreaterOrEqual(t, conns.Load(), int32(1))
}

// stubDisplay returns err after delay.
type stubDisplay struct {
	delay time.Duration
	err   error
}

func (d stubDisplay) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(d.delay):
		return d.err
	}
}

func TestSupervisor_DisplayQuitStopsAll(t *testing.T) {
	agg := status.NewAggregator()
	s := New(testConfig(), creds("a", "b"), refusing(), agg, stubDisplay{delay: 30 * time.Millisecond}, nil)

	start := time.Now()
	err := runFor(t, s, 5*time.Second)

	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "display quit should stop the workers")
	for _, a := range agg.Snapshot().Accounts {
		assert.Equal(t, status.StateDisconnected, a.State, a.AccountID)
	}
}

func TestSupervisor_DisplayErrorIsFatal(t *testing.T) {
	agg := status.NewAggregator()
	boom := errors.New("terminal went away")
	s := New(testConfig(), creds("a"), refusing(), agg, stubDisplay{delay: 20 * time.Millisecond, err: boom}, nil)

	err := runFor(t, s, 5*time.Second)

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "display:")
}

func TestSupervisor_WorkerPanicRestarts(t *testing.T) {
	var calls atomic.Int32
	dialer := session.DialerFunc(func(ctx context.Context, cred account.Credential) (session.Session, error) {
		if calls.Add(1) == 1 {
			panic("dialer exploded")
		}
		return nil, &session.ConnectError{Cause: errors.New("connection refused")}
	})

	agg := status.NewAggregator(status.WithCapacity(1000))
	s := New(testConfig(), creds("a", "b"), dialer, agg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return calls.Load() >= 6
	}, 3*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	crashed := 0
	for _, id := range []string{"a", "b"} {
		if hasPrefix(messages(agg, id), "Worker crashed: dialer exploded") {
			crashed++
		}
	}
	assert.Equal(t, 1, crashed, "exactly one worker crashed")
}

// explodingSession panics on Receive.
type explodingSession struct {
	accountID string
	once      sync.Once
	done      chan struct{}
}

func newExplodingSession(accountID string) *explodingSession {
	return &explodingSession{accountID: accountID, done: make(chan struct{})}
}

func (s *explodingSession) ID() string                      { return "exploding-" + s.accountID }
func (s *explodingSession) AccountID() string               { return s.accountID }
func (s *explodingSession) Send([]byte) error               { return nil }
func (s *explodingSession) Receive() (session.Frame, error) { panic("receive exploded") }
func (s *explodingSession) Done() <-chan struct{}           { return s.done }

func (s *explodingSession) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func TestSupervisor_SessionLoopPanicIsolated(t *testing.T) {
	server := mockWSServer(t, holdOpen)
	good := testDialer(server)

	var explosions atomic.Int32
	dialer := session.DialerFunc(func(ctx context.Context, cred account.Credential) (session.Session, error) {
		if cred.AccountID == "a" {
			explosions.Add(1)
			return newExplodingSession(cred.AccountID), nil
		}
		return good.Dial(ctx, cred)
	})

	agg := status.NewAggregator(status.WithCapacity(1000))
	s := New(testConfig(), creds("a", "b"), dialer, agg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return explosions.Load() >= 2 && hasPrefix(messages(agg, "b"), "Connected (session")
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.True(t, hasPrefix(messages(agg, "a"), "Worker crashed: receive exploded"))
	assert.True(t, hasPrefix(messages(agg, "a"), "Restarting connection"))

	bMsgs := messages(agg, "b")
	assert.False(t, hasPrefix(bMsgs, "Worker crashed"))
	assert.False(t, hasPrefix(bMsgs, "Restarting connection"))
	for _, a := range agg.Snapshot().Accounts {
		if a.AccountID == "b" {
			assert.Equal(t, int64(1), a.Connects)
		}
	}
}
