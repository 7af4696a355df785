package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultRefreshInterval redraws four times per second.
const DefaultRefreshInterval = 250 * time.Millisecond

// TUI is the full-screen terminal display.
type TUI struct {
	source   Source
	interval time.Duration
	opts     []tea.ProgramOption
}

// TUIOption configures a TUI.
type TUIOption func(*TUI)

// WithIO overrides the program's terminal. A nil reader disables input.
func WithIO(in io.Reader, out io.Writer) TUIOption {
	return func(t *TUI) {
		t.opts = append(t.opts, tea.WithInput(in), tea.WithOutput(out))
	}
}

// NewTUI creates a TUI that redraws every interval.
func NewTUI(source Source, interval time.Duration, opts ...TUIOption) *TUI {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	t := &TUI{source: source, interval: interval}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run shows the display until ctx ends or the user quits. Both return nil.
func (t *TUI) Run(ctx context.Context) error {
	opts := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	}, t.opts...)

	p := tea.NewProgram(newModel(t.source, t.interval), opts...)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run display: %w", err)
	}
	return nil
}
