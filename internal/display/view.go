package display

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rickgao/session-keeper/internal/status"
)

// printer formats counters with digit grouping.
var printer = message.NewPrinter(language.English)

type viewOptions struct {
	Width   int    // Terminal width, 0 if unknown
	Spinner string // Current spinner frame
}

func renderView(snap status.Snapshot, opts viewOptions, s styles) string {
	parts := []string{renderHeader(snap, opts, s)}
	if len(snap.Accounts) > 0 {
		parts = append(parts, renderAccounts(snap.Accounts, opts, s))
	}
	parts = append(parts,
		renderLog(snap.Events, opts, s),
		s.help.Render("q: quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderHeader(snap status.Snapshot, opts viewOptions, s styles) string {
	title := s.title.Render("Session Keeper")
	if opts.Spinner != "" {
		title = opts.Spinner + " " + title
	}

	stats := strings.Join([]string{
		field(s, "Uptime", status.FormatUptime(snap.Uptime)),
		field(s, "Traffic", formatBytes(snap.TotalTraffic)),
		field(s, "Connected", fmt.Sprintf("%d/%d", snap.ConnectedCount(), len(snap.Accounts))),
	}, "   ")

	return panel(s, opts).Render(lipgloss.JoinVertical(lipgloss.Left, title, stats))
}

func field(s styles, label, value string) string {
	return s.label.Render(label+":") + " " + s.value.Render(value)
}

func renderAccounts(accounts []status.AccountStatus, opts viewOptions, s styles) string {
	idWidth := len("ACCOUNT")
	for _, a := range accounts {
		idWidth = max(idWidth, utf8.RuneCountInString(a.AccountID))
	}

	lines := []string{
		s.colHdr.Render(fmt.Sprintf("%-*s  %-12s  %8s  %8s  %10s",
			idWidth, "ACCOUNT", "STATE", "CONNECTS", "RESTARTS", "TRAFFIC")),
	}
	for _, a := range accounts {
		lines = append(lines, fmt.Sprintf("%s  %s  %8s  %8s  %10s",
			s.account.Render(fmt.Sprintf("%-*s", idWidth, a.AccountID)),
			s.forState(a.State).Render(fmt.Sprintf("%-12s", a.State)),
			printer.Sprintf("%d", a.Connects),
			printer.Sprintf("%d", a.Restarts),
			formatBytes(a.Traffic),
		))
	}
	return panel(s, opts).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderLog(events []status.Entry, opts viewOptions, s styles) string {
	lines := []string{s.panelHdr.Render("Connection Log")}
	if len(events) == 0 {
		lines = append(lines, s.empty.Render("No events yet."))
	}

	// Border and padding take four columns.
	inner := 0
	if opts.Width > 0 {
		inner = opts.Width - 4
	}

	for _, e := range events {
		prefix := e.Time.Format("15:04:05") + " "
		if e.AccountID != "" {
			prefix += "[" + e.AccountID + "] "
		}
		msg := e.Message
		if inner > 0 {
			msg = truncate(msg, inner-utf8.RuneCountInString(prefix))
		}

		line := s.time.Render(e.Time.Format("15:04:05")) + " "
		if e.AccountID != "" {
			line += s.account.Render("["+e.AccountID+"]") + " "
		}
		line += s.forSeverity(e.Severity).Render(msg)
		lines = append(lines, line)
	}

	return panel(s, opts).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func panel(s styles, opts viewOptions) lipgloss.Style {
	if opts.Width > 2 {
		return s.panel.Width(opts.Width - 2)
	}
	return s.panel
}

// truncate shortens msg to n runes, marking the cut with "...".
func truncate(msg string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(msg) <= n {
		return msg
	}
	runes := []rune(msg)
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
