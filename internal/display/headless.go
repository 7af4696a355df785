package display

import (
	"context"
	"log/slog"
	"time"

	"github.com/rickgao/session-keeper/internal/status"
)

// DefaultSummaryInterval is how often Headless logs a summary line.
const DefaultSummaryInterval = 30 * time.Second

// Headless logs events and periodic summaries instead of drawing a screen.
// Register it as an aggregator sink so it sees every event.
type Headless struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger
}

// NewHeadless creates a headless display.
func NewHeadless(source Source, interval time.Duration, logger *slog.Logger) *Headless {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultSummaryInterval
	}
	return &Headless{
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

// Publish logs one event at the matching slog level.
func (h *Headless) Publish(e status.Entry) {
	attrs := []any{"severity", e.Severity.String()}
	if e.AccountID != "" {
		attrs = append(attrs, "account", e.AccountID)
	}
	h.logger.Log(context.Background(), slogLevel(e.Severity), e.Message, attrs...)
}

// Run logs a summary every interval until ctx ends, then a final one.
func (h *Headless) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.summary()
			return nil
		case <-ticker.C:
			h.summary()
		}
	}
}

func (h *Headless) summary() {
	snap := h.source.Snapshot()
	h.logger.Info("status summary",
		"uptime", status.FormatUptime(snap.Uptime),
		"traffic", formatBytes(snap.TotalTraffic),
		"connected", snap.ConnectedCount(),
		"accounts", len(snap.Accounts),
	)
}

func slogLevel(sev status.Severity) slog.Level {
	switch sev {
	case status.SeverityDebug:
		return slog.LevelDebug
	case status.SeverityWarning:
		return slog.LevelWarn
	case status.SeverityError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
