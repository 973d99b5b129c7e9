// Package historybrowser is the REPL's reverse history search: a filter
// line over the stored statement history, shown below the prompt.
package historybrowser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/toydb/internal/history"
	"github.com/sadopc/toydb/internal/theme"
)

// maxEntries bounds one search.
const maxEntries = 200

// SelectQueryMsg is sent when the user picks a history entry.
type SelectQueryMsg struct {
	Statement string
}

// Model is the history search panel.
type Model struct {
	hist    *history.History
	entries []history.Entry
	err     error
	cursor  int
	offset  int // scroll offset
	rows    int
	visible bool
	width   int
	search  textinput.Model
}

// New creates a history search panel over hist. A nil hist shows no entries.
func New(hist *history.History) Model {
	ti := textinput.New()
	ti.Placeholder = "search history"
	ti.Prompt = "(reverse-search) "
	return Model{
		hist:   hist,
		rows:   8,
		search: ti,
	}
}

// Show opens the panel with an empty filter.
func (m *Model) Show() {
	m.visible = true
	m.cursor = 0
	m.offset = 0
	m.search.SetValue("")
	m.search.Focus()
	m.loadEntries()
}

// Hide closes the panel.
func (m *Model) Hide() {
	m.visible = false
	m.search.Blur()
}

// Visible returns whether the panel is shown.
func (m Model) Visible() bool { return m.visible }

// SetWidth sets the available width.
func (m *Model) SetWidth(width int) {
	m.width = width
	m.search.Width = max(width-len(m.search.Prompt)-2, 10)
}

// Update handles keys while the panel is open.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c", "ctrl+g":
			m.Hide()
			return m, nil
		case "up", "ctrl+p", "ctrl+r":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
				m.ensureVisible()
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor > 0 {
				m.cursor--
				m.ensureVisible()
			}
			return m, nil
		case "enter", "tab":
			if m.cursor < len(m.entries) {
				stmt := m.entries[m.cursor].Statement
				m.Hide()
				return m, func() tea.Msg {
					return SelectQueryMsg{Statement: stmt}
				}
			}
			return m, nil
		}

		prev := m.search.Value()
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != prev {
			m.cursor = 0
			m.offset = 0
			m.loadEntries()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// View renders the filter line and the matching entries, most recent at
// the bottom next to the filter.
func (m Model) View() string {
	if !m.visible {
		return ""
	}
	th := theme.Current

	var lines []string
	switch {
	case m.err != nil:
		lines = append(lines, th.ErrorText.Render("  history unavailable: "+m.err.Error()))
	case len(m.entries) == 0:
		lines = append(lines, th.MutedText.Render("  no matching statements"))
	default:
		end := min(m.offset+m.rows, len(m.entries))
		for i := end - 1; i >= m.offset; i-- {
			e := m.entries[i]
			line := m.formatEntry(e, m.lineWidth())
			switch {
			case i == m.cursor:
				lines = append(lines, th.CompletionSelected.Render("> "+line))
			case e.IsError:
				lines = append(lines, th.ErrorText.Render("  "+line))
			default:
				lines = append(lines, th.CompletionItem.Render("  "+line))
			}
		}
	}

	lines = append(lines,
		m.search.View(),
		th.MutedText.Render(fmt.Sprintf("  %d matches  enter:use  esc:close  ↑↓:move", len(m.entries))),
	)
	return strings.Join(lines, "\n")
}

func (m Model) lineWidth() int {
	if m.width <= 4 {
		return 76
	}
	return m.width - 4
}

func (m *Model) ensureVisible() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.rows {
		m.offset = m.cursor - m.rows + 1
	}
}

func (m *Model) loadEntries() {
	m.entries, m.err = nil, nil
	if m.hist == nil {
		return
	}

	ctx := context.Background()
	if text := m.search.Value(); text != "" {
		m.entries, m.err = m.hist.Search(ctx, "%"+text+"%", maxEntries)
	} else {
		m.entries, m.err = m.hist.Recent(ctx, maxEntries)
	}
}

func (m Model) formatEntry(e history.Entry, maxWidth int) string {
	var meta []string
	if e.DatabaseName != "" {
		meta = append(meta, e.DatabaseName)
	}
	meta = append(meta, formatDuration(e.DurationMS), RelativeTime(e.ExecutedAt))
	suffix := strings.Join(meta, " | ")

	stmtMax := max(maxWidth-runewidth.StringWidth(suffix)-2, 10)
	stmt := runewidth.Truncate(firstLine(e.Statement), stmtMax, "…")
	return runewidth.FillRight(stmt, stmtMax) + "  " + suffix
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

// RelativeTime formats a timestamp as a human-readable relative time.
func RelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "yesterday"
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
