package display

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rickgao/session-keeper/internal/status"
)

// Source provides snapshots to render. *status.Aggregator implements it.
type Source interface {
	Snapshot() status.Snapshot
}

type refreshMsg time.Time

type model struct {
	source   Source
	interval time.Duration
	styles   styles
	spinner  spinner.Model

	snap     status.Snapshot
	width    int
	quitting bool
}

func newModel(source Source, interval time.Duration) model {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(newStyles().spinner),
	)
	return model{
		source:   source,
		interval: interval,
		styles:   newStyles(),
		spinner:  sp,
		snap:     source.Snapshot(),
	}
}

func (m model) refresh() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.snap = m.source.Snapshot()
		return m, m.refresh()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	return renderView(m.snap, viewOptions{Width: m.width, Spinner: m.spinner.View()}, m.styles)
}
