package autocomplete

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/toydb/internal/completion"
	"github.com/sadopc/toydb/internal/theme"
)

const maxVisible = 5

// SelectedMsg is sent when a candidate is accepted. The input should replace
// the Replace bytes before the cursor with Text.
type SelectedMsg struct {
	Text    string
	Replace int
}

// DismissMsg is sent when the candidate list is dismissed.
type DismissMsg struct{}

// Model is the candidate list shown under the prompt.
type Model struct {
	items    []completion.Item
	selected int
	visible  bool
	prefix   string // word being completed
	engine   *completion.Engine
	width    int
}

// New creates a new autocomplete model.
func New(engine *completion.Engine) Model {
	return Model{
		engine: engine,
		width:  40,
	}
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles list navigation while the list is visible.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "ctrl+p":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down", "ctrl+n":
			if m.selected < len(m.items)-1 {
				m.selected++
			}
			return m, nil

		case "enter", "tab":
			if m.selected < len(m.items) {
				sel := SelectedMsg{Text: m.items[m.selected].Label, Replace: len(m.prefix)}
				m.visible = false
				return m, func() tea.Msg { return sel }
			}

		case "esc", "ctrl+c":
			m.visible = false
			return m, func() tea.Msg { return DismissMsg{} }
		}
	}

	return m, nil
}

// View renders the candidate list.
func (m Model) View() string {
	if !m.visible || len(m.items) == 0 {
		return ""
	}

	th := theme.Current

	visible := m.items
	offset := 0
	if len(visible) > maxVisible {
		if m.selected >= maxVisible {
			offset = m.selected - maxVisible + 1
		}
		end := offset + maxVisible
		if end > len(visible) {
			end = len(visible)
		}
		visible = visible[offset:end]
	}

	var lines []string
	for i, item := range visible {
		label := kindIcon(item.Kind) + " " + item.Label
		detail := ""
		if item.Detail != "" {
			detail = "  " + item.Detail
		}
		label = runewidth.Truncate(label, m.width-2, "…")
		room := m.width - 2 - runewidth.StringWidth(label)
		detail = runewidth.Truncate(detail, room, "")
		pad := room - runewidth.StringWidth(detail)

		var line string
		if offset+i == m.selected {
			line = th.CompletionSelected.Render(label)
		} else {
			line = th.CompletionItem.Render(label)
		}
		lines = append(lines, line+th.CompletionDetail.Render(detail)+strings.Repeat(" ", pad))
	}

	return strings.Join(lines, "\n")
}

// Trigger computes candidates for text with the cursor at byte offset
// cursorPos. A single candidate is accepted at once; several candidates
// first extend the word to their common prefix and then show the list.
func (m *Model) Trigger(text string, cursorPos int) tea.Cmd {
	m.visible = false
	if m.engine == nil {
		return nil
	}
	items := m.engine.Complete(text, cursorPos)
	if len(items) == 0 {
		return nil
	}
	m.prefix = extractPrefix(text, cursorPos)

	if len(items) == 1 {
		sel := SelectedMsg{Text: items[0].Label, Replace: len(m.prefix)}
		return func() tea.Msg { return sel }
	}
	if common := completion.CommonPrefix(items); len(common) > len(m.prefix) {
		sel := SelectedMsg{Text: common, Replace: len(m.prefix)}
		return func() tea.Msg { return sel }
	}

	m.items = items
	m.selected = 0
	m.visible = true
	return nil
}

// Dismiss hides the list.
func (m *Model) Dismiss() {
	m.visible = false
}

// Visible returns whether the list is shown.
func (m Model) Visible() bool {
	return m.visible
}

// SetWidth sets the list width.
func (m *Model) SetWidth(w int) {
	if w > 0 {
		m.width = w
	}
}

// Engine returns the completion engine.
func (m Model) Engine() *completion.Engine {
	return m.engine
}

func extractPrefix(text string, cursorPos int) string {
	if cursorPos > len(text) {
		cursorPos = len(text)
	}
	before := text[:cursorPos]
	i := len(before) - 1
	for i >= 0 && !isWordBreak(before[i]) {
		i--
	}
	return before[i+1:]
}

func isWordBreak(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '(' || b == ')' ||
		b == ',' || b == ';' || b == '.' || b == '=' || b == '<' || b == '>'
}

func kindIcon(k completion.Kind) string {
	switch k {
	case completion.KindTable:
		return "T"
	case completion.KindView:
		return "V"
	case completion.KindColumn:
		return "C"
	case completion.KindKeyword:
		return "K"
	case completion.KindFunction:
		return "F"
	case completion.KindDatabase:
		return "D"
	default:
		return " "
	}
}
