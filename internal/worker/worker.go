package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rickgao/session-keeper/internal/account"
	"github.com/rickgao/session-keeper/internal/session"
	"github.com/rickgao/session-keeper/internal/status"
)

// Worker keeps one account's session alive.
type Worker struct {
	cfg    Config
	cred   account.Credential
	dialer session.Dialer
	status Reporter
	logger *slog.Logger

	// Outer (unbounded) policy
	cycles atomic.Int64

	sessions        atomic.Int64
	connectFailures atomic.Int64
	closes          atomic.Int64
}

// New creates a worker for cred. The credential is not copied further.
func New(cfg Config, cred account.Credential, dialer session.Dialer, reporter Reporter, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConnectAttempts < 1 {
		cfg.ConnectAttempts = 1
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultConfig().PingInterval
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = DefaultConfig().PreviewLength
	}
	if len(cfg.Heartbeat) == 0 {
		cfg.Heartbeat = DefaultHeartbeat()
	}
	return &Worker{
		cfg:    cfg,
		cred:   cred,
		dialer: dialer,
		status: reporter,
		logger: logger.With("account", cred.AccountID),
	}
}

// AccountID returns the account this worker serves.
func (w *Worker) AccountID() string {
	return w.cred.AccountID
}

// Stats returns activity counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Cycles:          w.cycles.Load(),
		Sessions:        w.sessions.Load(),
		ConnectFailures: w.connectFailures.Load(),
		Closes:          w.closes.Load(),
	}
}

// Run cycles until ctx is cancelled. It never returns an error: every
// failure is logged and followed by a restart.
func (w *Worker) Run(ctx context.Context) {
	w.setState(status.StateDisconnected)
	w.logger.Info("worker started")

	for {
		res := w.runCycle(ctx)
		w.cycles.Add(1)

		w.logger.Debug("cycle ended",
			"cycle", w.cycles.Load(),
			"attempts", res.attempts,
			"connected", res.connected,
			"ended_by", res.endedBy,
			"error", res.err,
		)

		if ctx.Err() != nil {
			w.setState(status.StateDisconnected)
			w.logger.Info("worker stopped")
			return
		}

		delay := w.restartDelay()
		w.event(status.SeverityWarning, "Restarting connection in %s...", formatDelay(delay))
		w.setState(status.StateDisconnected)

		if !sleep(ctx, delay) {
			w.logger.Info("worker stopped")
			return
		}
	}
}

// runCycle performs one connect cycle and, on success, runs the session
// until either loop ends. It always leaves the worker in Terminating with
// no live session.
func (w *Worker) runCycle(ctx context.Context) cycleResult {
	s, attempts, err := w.connect(ctx)
	if err != nil {
		w.setState(status.StateTerminating)
		return cycleResult{attempts: attempts, err: err}
	}

	w.sessions.Add(1)
	w.setState(status.StateConnected)
	w.event(status.SeveritySuccess, "Connected (session %s)", shortID(s.ID()))

	endedBy, err := w.runSession(ctx, s)
	return cycleResult{
		attempts:  attempts,
		connected: true,
		endedBy:   endedBy,
		err:       err,
	}
}

// connect dials up to ConnectAttempts times, waiting RetryDelay between
// failures. The attempt counter is local to one cycle. No RetryDelay follows
// the last failure: an exhausted cycle goes straight to the RestartDelay, so
// it takes (ConnectAttempts-1)*RetryDelay + RestartDelay rather than an
// extra RetryDelay on top.
func (w *Worker) connect(ctx context.Context) (session.Session, int, error) {
	w.setState(status.StateConnecting)

	limit := w.cfg.ConnectAttempts
	for attempt := 1; attempt <= limit; attempt++ {
		w.event(status.SeverityInfo, "Connecting...")

		s, err := w.dialer.Dial(ctx, w.cred)
		if err == nil {
			return s, attempt, nil
		}
		if ctx.Err() != nil {
			return nil, attempt, ctx.Err()
		}

		w.connectFailures.Add(1)
		w.event(status.SeverityError, "Connection error (%d/%d): %v", attempt, limit, err)
		w.logger.Warn("connect failed", "attempt", attempt, "max", limit, "error", err)

		if attempt < limit && !sleep(ctx, w.cfg.RetryDelay) {
			return nil, attempt, ctx.Err()
		}
	}
	return nil, limit, ErrAttemptsExhausted
}

// loopResult reports which loop ended and why.
type loopResult struct {
	name string
	err  error
}

// runSession runs the ping and listen loops until the first one ends, then
// closes s and waits for the other. This goroutine is the only caller of
// s.Close.
func (w *Worker) runSession(ctx context.Context, s session.Session) (string, error) {
	ended := make(chan loopResult, 2)

	go func() {
		ended <- w.guard("ping", func() error { return w.pingLoop(ctx, s) })
	}()
	go func() {
		ended <- w.guard("listen", func() error { return w.listenLoop(s) })
	}()

	pending := 2
	var first loopResult
	select {
	case first = <-ended:
		pending--
	case <-ctx.Done():
		first = loopResult{name: "shutdown", err: ctx.Err()}
	}

	w.setState(status.StateTerminating)
	if err := s.Close(); err != nil {
		w.logger.Debug("session close error", "session", s.ID(), "error", err)
	}
	w.closes.Add(1)

	for ; pending > 0; pending-- {
		<-ended
	}

	w.logger.Debug("session ended", "session", s.ID(), "ended_by", first.name, "error", first.err)
	return first.name, first.err
}

// guard runs one session loop and turns a panic into its result, so a
// crash in a loop goroutine ends only this session.
func (w *Worker) guard(name string, loop func() error) (res loopResult) {
	res.name = name
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("%w: %s loop: %v", ErrLoopPanic, name, r)
			w.logger.Error("session loop panic", "loop", name, "panic", r)
			w.crashed(r)
		}
	}()
	res.err = loop()
	return res
}

// crashed records the crash event. A reporter that panics again is only
// logged.
func (w *Worker) crashed(r any) {
	defer func() {
		if r2 := recover(); r2 != nil {
			w.logger.Error("record crash event", "panic", r2)
		}
	}()
	w.event(status.SeverityError, "Worker crashed: %v", r)
}

// pingLoop sends the heartbeat immediately and then every PingInterval.
// It exits on send failure or when the session is closed underneath it.
func (w *Worker) pingLoop(ctx context.Context, s session.Session) error {
	ticker := time.NewTicker(w.cfg.PingInterval)
	defer ticker.Stop()

	for {
		if err := s.Send(w.cfg.Heartbeat); err != nil {
			if isClosed(s) {
				return nil
			}
			w.event(status.SeverityError, "Ping error: %v", err)
			return err
		}
		w.event(status.SeverityDebug, "Ping")

		select {
		case <-s.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// listenLoop receives frames until the session closes or faults.
func (w *Worker) listenLoop(s session.Session) error {
	for {
		frame, err := s.Receive()
		if err != nil {
			var closed *session.ClosedError
			switch {
			case isClosed(s) || errors.Is(err, session.ErrClosed):
				// Closed by this worker, possibly with the peer's echo
				// of our close frame arriving first.
			case errors.As(err, &closed):
				w.event(status.SeverityWarning, "Connection closed (code: %d)", closed.Code)
			default:
				w.event(status.SeverityError, "Error: %v", err)
			}
			return err
		}

		w.status.AddAccountTraffic(w.cred.AccountID, frame.Len())
		w.event(status.SeveritySuccess, "Response: %s", w.preview(frame))
	}
}

func (w *Worker) preview(f session.Frame) string {
	p := f.Preview(w.cfg.PreviewLength)
	if !f.Binary && utf8.Valid(f.Data) && utf8.RuneCount(f.Data) > w.cfg.PreviewLength {
		p += "..."
	}
	return p
}

func (w *Worker) restartDelay() time.Duration {
	d := w.cfg.RestartDelay
	if w.cfg.RestartJitter > 0 {
		d += time.Duration(rand.Int63n(int64(w.cfg.RestartJitter)))
	}
	return d
}

func (w *Worker) event(severity status.Severity, format string, args ...any) {
	w.status.RecordEvent(w.cred.AccountID, fmt.Sprintf(format, args...), severity)
}

func (w *Worker) setState(state status.State) {
	w.status.SetState(w.cred.AccountID, state)
}

// isClosed reports whether s has been closed locally.
func isClosed(s session.Session) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

// sleep waits for d or until ctx is done. Returns false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// formatDelay renders whole seconds as "5 seconds" and anything else as a
// Go duration.
func formatDelay(d time.Duration) string {
	if d >= time.Second && d%time.Second == 0 {
		n := int(d / time.Second)
		if n == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", n)
	}
	return d.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
