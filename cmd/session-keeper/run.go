package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/session-keeper/internal/config"
	"github.com/rickgao/session-keeper/internal/database"
	"github.com/rickgao/session-keeper/internal/display"
	"github.com/rickgao/session-keeper/internal/journal"
	"github.com/rickgao/session-keeper/internal/session"
	"github.com/rickgao/session-keeper/internal/status"
	"github.com/rickgao/session-keeper/internal/supervisor"
	"github.com/rickgao/session-keeper/internal/version"
)

// shutdownTimeout bounds the journal's final flush.
const shutdownTimeout = 10 * time.Second

func newRunCmd(opts *globalOptions) *cobra.Command {
	var headless bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep every account's session alive until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if headless {
				cfg.Display.Mode = config.ModeHeadless
			}
			return runKeeper(cmd.Context(), cfg, isTerminal(os.Stdout), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&headless, "headless", false, "log events instead of drawing the terminal display")

	return cmd
}

// runKeeper wires every component and blocks until ctx ends, a signal
// arrives, or the user quits the display.
func runKeeper(ctx context.Context, cfg *config.Config, terminal bool, stdout, stderr io.Writer) error {
	// Accounts are loaded first: nothing starts on a bad file.
	creds, err := loadAccounts(cfg.AccountsFile)
	if err != nil {
		return err
	}

	mode := resolveMode(cfg.Display.Mode, terminal)
	logger, closeLog, err := newLogger(cfg.Logging, mode, stderr)
	if err != nil {
		return &config.StartupError{Op: "configure logging", Err: err}
	}
	defer closeLog()

	logger.Info("starting session-keeper",
		"version", version.Version,
		"commit", version.Commit,
		"accounts", len(creds),
		"endpoint", cfg.Endpoint.URL,
		"display", mode,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle shutdown signals
	var interrupted atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			interrupted.Store(true)
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	agg := status.NewAggregator(status.WithCapacity(cfg.Status.LogCapacity))

	if cfg.Journal.Enabled {
		stopJournal, err := startJournal(ctx, cfg, agg, logger)
		if err != nil {
			return err
		}
		defer stopJournal()
	}

	var disp supervisor.Display
	switch mode {
	case config.ModeTUI:
		disp = display.NewTUI(agg, cfg.Display.RefreshInterval)
	default:
		h := display.NewHeadless(agg, cfg.Display.SummaryInterval, logger)
		agg.AddSink(h)
		disp = h
	}

	dialer := session.NewDialer(cfg.SessionConfig(), logger)
	sup := supervisor.New(supervisor.Config{
		Worker:            cfg.WorkerConfig(),
		PanicRestartDelay: cfg.Worker.RestartDelay,
	}, creds, dialer, agg, disp, logger)

	runErr := sup.Run(ctx)

	if interrupted.Load() {
		_, _ = fmt.Fprintln(stdout, "Shutting down gracefully...")
	}
	for _, w := range sup.Workers() {
		st := w.Stats()
		logger.Info("worker summary",
			"account", w.AccountID(),
			"cycles", st.Cycles,
			"sessions", st.Sessions,
			"connect_failures", st.ConnectFailures,
		)
	}
	snap := agg.Snapshot()
	_, _ = fmt.Fprintf(stdout, "session-keeper finished after %s (%d bytes received)\n",
		status.FormatUptime(snap.Uptime), snap.TotalTraffic)

	return runErr
}

// startJournal connects the journal database and registers the journal as
// an aggregator sink. The returned func flushes and releases everything.
func startJournal(ctx context.Context, cfg *config.Config, agg *status.Aggregator, logger *slog.Logger) (func(), error) {
	logger.Info("connecting to journal database",
		"host", cfg.Journal.Database.Host,
		"port", cfg.Journal.Database.Port,
		"database", cfg.Journal.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Journal.Database)
	if err != nil {
		return nil, &config.StartupError{Op: "connect journal database", Err: err}
	}

	j := journal.New(journal.Config{
		Table:         cfg.Journal.Table,
		BatchSize:     cfg.Journal.BatchSize,
		FlushInterval: cfg.Journal.FlushInterval,
		BufferSize:    cfg.Journal.BufferSize,
	}, pool, logger)

	if err := j.Start(ctx); err != nil {
		pool.Close()
		return nil, &config.StartupError{Op: "start journal", Err: err}
	}
	agg.AddSink(j)

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := j.Stop(stopCtx); err != nil {
			logger.Warn("journal stop failed", "error", err)
		}
		pool.Close()
	}, nil
}
