package statusbar

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	appmsg "github.com/sadopc/toydb/internal/msg"
	"github.com/sadopc/toydb/internal/theme"
)

// ClearStatusMsg is sent after a timeout to revert the status bar to key hints.
type ClearStatusMsg struct{}

// clearDelay is how long a message stays before the key hints return.
const clearDelay = 5 * time.Second

// Model is the status bar component.
type Model struct {
	width    int
	dialect  string
	database string
	elapsed  time.Duration
	lines    int
	message  string
	isError  bool
}

// New creates a status bar for the given store dialect.
func New(dialect string) Model {
	return Model{dialect: dialect}
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	clearAfter := func() tea.Cmd {
		return tea.Tick(clearDelay, func(time.Time) tea.Msg {
			return ClearStatusMsg{}
		})
	}

	switch msg := msg.(type) {
	case appmsg.ExecutedMsg:
		m.lines++
		m.database = msg.Database
		m.elapsed = msg.Elapsed
		m.message = msg.Summary()
		m.isError = msg.Err() != nil
		return m, clearAfter()

	case appmsg.StatusMsg:
		m.message = msg.Text
		m.isError = msg.IsError
		if msg.Duration > 0 {
			m.elapsed = msg.Duration
		}
		return m, clearAfter()

	case ClearStatusMsg:
		m.message = ""
		m.isError = false
	}

	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	th := theme.Current

	// Left section: backend and selected database
	left := th.StatusBarKey.Render(m.dialect)
	if m.database != "" {
		left += th.StatusBarValue.Render(m.database)
	} else {
		left += th.StatusBarValue.Render("no database")
	}

	// Center section: last result or key hints
	var center string
	switch {
	case m.message != "" && m.isError:
		center = th.StatusBarError.Render(" " + truncate(m.message, m.width/2) + " ")
	case m.message != "":
		center = th.StatusBarSuccess.Render(" " + truncate(m.message, m.width/2) + " ")
	default:
		hintKey := th.StatusBarValue
		hintSep := th.StatusBar
		center = hintKey.Render("Enter") +
			hintSep.Render(" Run ") +
			hintKey.Render("Tab") +
			hintSep.Render(" Complete ") +
			hintKey.Render("↑↓") +
			hintSep.Render(" History ") +
			hintKey.Render("Ctrl+D") +
			hintSep.Render(" Quit ")
	}

	// Right section: timing of the last line
	var right string
	if m.elapsed > 0 {
		right = th.StatusBarKey.Render(formatDuration(m.elapsed))
	}

	leftW := lipgloss.Width(left)
	centerW := lipgloss.Width(center)
	rightW := lipgloss.Width(right)
	gap := m.width - leftW - centerW - rightW
	if gap < 0 {
		gap = 0
	}
	leftGap := gap / 2
	rightGap := gap - leftGap

	bar := left +
		th.StatusBar.Render(strings.Repeat(" ", leftGap)) +
		center +
		th.StatusBar.Render(strings.Repeat(" ", rightGap)) +
		right

	return th.StatusBar.Width(m.width).Render(bar)
}

// SetSize sets the status bar width.
func (m *Model) SetSize(width int) {
	m.width = width
}

// SetDatabase sets the selected database shown on the left.
func (m *Model) SetDatabase(name string) {
	m.database = name
}

// Lines returns how many lines have been executed.
func (m Model) Lines() int {
	return m.lines
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		return s
	}
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}
