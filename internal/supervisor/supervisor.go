package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/session-keeper/internal/account"
	"github.com/rickgao/session-keeper/internal/session"
	"github.com/rickgao/session-keeper/internal/status"
	"github.com/rickgao/session-keeper/internal/worker"
)

// Display renders status until ctx ends or the user quits.
type Display interface {
	Run(ctx context.Context) error
}

// Config configures a Supervisor.
type Config struct {
	Worker            worker.Config
	PanicRestartDelay time.Duration // Wait before restarting a crashed worker
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Worker:            worker.DefaultConfig(),
		PanicRestartDelay: 5 * time.Second,
	}
}

// Supervisor owns the workers and the display task.
type Supervisor struct {
	cfg     Config
	dialer  session.Dialer
	status  *status.Aggregator
	display Display
	logger  *slog.Logger

	workers []*worker.Worker
}

// New creates one worker per credential. display may be nil, in which case
// Run lasts until ctx is cancelled.
func New(cfg Config, creds []account.Credential, dialer session.Dialer, agg *status.Aggregator, display Display, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Supervisor{
		cfg:     cfg,
		dialer:  dialer,
		status:  agg,
		display: display,
		logger:  logger,
	}
	for _, cred := range creds {
		agg.Register(cred.AccountID)
		s.workers = append(s.workers, worker.New(cfg.Worker, cred, dialer, agg, logger))
	}
	return s
}

// Workers returns the workers in credential order.
func (s *Supervisor) Workers() []*worker.Worker {
	return s.workers
}

// Run starts every worker and the display and blocks until they finish.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	s.status.Eventf("", status.SeverityInfo, "Starting %d account worker(s)", len(s.workers))
	s.logger.Info("supervisor started", "workers", len(s.workers))

	for _, w := range s.workers {
		w := w
		g.Go(func() error {
			s.runWorker(gctx, w)
			return nil
		})
	}

	if s.display != nil {
		g.Go(func() error {
			defer cancel()
			if err := s.display.Run(gctx); err != nil {
				return fmt.Errorf("display: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	s.logger.Info("supervisor stopped", "error", err)
	return err
}

// runWorker runs w, restarting it after a panic.
func (s *Supervisor) runWorker(ctx context.Context, w *worker.Worker) {
	for {
		if !s.runProtected(ctx, w) {
			return
		}
		if !sleep(ctx, s.cfg.PanicRestartDelay) {
			return
		}
	}
}

// runProtected runs w once and reports whether it panicked.
func (s *Supervisor) runProtected(ctx context.Context, w *worker.Worker) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			s.logger.Error("worker panic", "account", w.AccountID(), "panic", r)
			s.status.SetState(w.AccountID(), status.StateDisconnected)
			s.status.Eventf(w.AccountID(), status.SeverityError, "Worker crashed: %v", r)
		}
	}()
	w.Run(ctx)
	return false
}

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
