package display

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rickgao/session-keeper/internal/status"
)

type styles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	panel    lipgloss.Style
	panelHdr lipgloss.Style
	colHdr   lipgloss.Style
	empty    lipgloss.Style
	time     lipgloss.Style
	account  lipgloss.Style
	help     lipgloss.Style
	spinner  lipgloss.Style

	severity map[status.Severity]lipgloss.Style
	state    map[status.State]lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		label:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		value:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
		panel:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1),
		panelHdr: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		colHdr:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		empty:    lipgloss.NewStyle().Faint(true),
		time:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		account:  lipgloss.NewStyle().Foreground(lipgloss.Color("111")),
		help:     lipgloss.NewStyle().Faint(true),
		spinner:  lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		severity: map[status.Severity]lipgloss.Style{
			status.SeverityDebug:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			status.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("117")),
			status.SeveritySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
			status.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
			status.SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		},
		state: map[status.State]lipgloss.Style{
			status.StateDisconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			status.StateConnecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
			status.StateConnected:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
			status.StateTerminating:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		},
	}
}

func (s styles) forSeverity(sev status.Severity) lipgloss.Style {
	if st, ok := s.severity[sev]; ok {
		return st
	}
	return s.value
}

func (s styles) forState(state status.State) lipgloss.Style {
	if st, ok := s.state[state]; ok {
		return st
	}
	return s.value
}
