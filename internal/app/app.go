// Package app is the interactive REPL: a prompt that runs each entered line
// against the catalog and prints the outcome above itself.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/sadopc/toydb/internal/completion"
	"github.com/sadopc/toydb/internal/config"
	"github.com/sadopc/toydb/internal/history"
	appmsg "github.com/sadopc/toydb/internal/msg"
	"github.com/sadopc/toydb/internal/runner"
	"github.com/sadopc/toydb/internal/theme"
	"github.com/sadopc/toydb/internal/ui/autocomplete"
	"github.com/sadopc/toydb/internal/ui/highlight"
	"github.com/sadopc/toydb/internal/ui/historybrowser"
	"github.com/sadopc/toydb/internal/ui/results"
	"github.com/sadopc/toydb/internal/ui/statusbar"
)

// execDoneMsg carries a finished line and the catalog snapshot taken right
// after it, both produced on the same goroutine as the session calls.
type execDoneMsg struct {
	executed appmsg.ExecutedMsg
	snapshot appmsg.SnapshotMsg
}

// Model is the root REPL model.
type Model struct {
	width int

	// Components
	input       textinput.Model
	statusbar   statusbar.Model
	autocomp    autocomplete.Model
	search      historybrowser.Model
	help        help.Model
	spinner     spinner.Model
	highlighter *highlight.Highlighter

	// Execution
	runner   *runner.Runner
	format   results.Format
	database string
	busy     bool

	// History recall, oldest first. recallPos == len(recall) is the line
	// being edited; draft keeps it while browsing.
	history     *history.History
	recallLimit int
	recall      []string
	recallPos   int
	draft       string

	keyMap   KeyMap
	log      zerolog.Logger
	showHelp bool
	quitting bool
}

// Option configures a Model.
type Option func(*Model)

// WithFormat sets the format results are printed in.
func WithFormat(f results.Format) Option {
	return func(m *Model) { m.format = f }
}

// WithHistory enables recall of lines stored in h.
func WithHistory(h *history.History) Option {
	return func(m *Model) { m.history = h }
}

// WithLogger sets the logger for front-end failures.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) { m.log = l }
}

// New creates the REPL model over r.
func New(cfg *config.Config, r *runner.Runner, opts ...Option) Model {
	theme.Current = theme.Get(cfg.Theme)
	dialect := r.Dialect()

	in := textinput.New()
	in.Placeholder = "statement; ..."
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		input:       in,
		statusbar:   statusbar.New(dialect),
		autocomp:    autocomplete.New(completion.NewEngine(dialect)),
		help:        help.New(),
		spinner:     s,
		highlighter: highlight.New(dialect),
		runner:      r,
		format:      results.FormatTable,
		busy:        true,
		recallLimit: cfg.History.RecallLimit,
		keyMap:      DefaultKeyMap(),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	// A disabled history config wins over WithHistory.
	if !cfg.History.Enabled {
		m.history = nil
	}
	m.search = historybrowser.New(m.history)
	m.database, _ = r.Session().CurrentDatabaseName()
	m.input.Prompt = m.prompt()
	return m
}

// Init loads the completion snapshot and the recall history.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.loadSnapshot(), m.loadHistory())
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.statusbar.SetSize(msg.Width)
		m.autocomp.SetWidth(min(msg.Width, 60))
		m.search.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-len(m.database)-4, 10)
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			switch msg.String() {
			case "f1", "esc", "q":
				m.showHelp = false
				return m, nil
			}
		}

		if m.search.Visible() {
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			return m, cmd
		}

		if m.autocomp.Visible() {
			switch msg.String() {
			case "up", "down", "enter", "tab", "esc", "ctrl+p", "ctrl+n":
				var cmd tea.Cmd
				m.autocomp, cmd = m.autocomp.Update(msg)
				return m, cmd
			}
		}

		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.autocomp.Dismiss()
		cmds = append(cmds, cmd)

	case execDoneMsg:
		m.busy = false
		m.database = msg.executed.Database
		m.input.Prompt = m.prompt()
		m.remember(msg.executed.Line)
		m.applySnapshot(msg.snapshot)

		var sbCmd tea.Cmd
		m.statusbar, sbCmd = m.statusbar.Update(msg.executed)
		cmds = append(cmds, sbCmd)
		if out := m.renderOutcomes(msg.executed.Outcomes); out != "" {
			cmds = append(cmds, tea.Println(out))
		}

	case appmsg.SnapshotMsg:
		m.busy = false
		m.applySnapshot(msg)

	case appmsg.HistoryMsg:
		if msg.Err != nil {
			m.log.Warn().Err(msg.Err).Msg("history not loaded")
			break
		}
		m.recall = append(msg.Statements, m.recall...)
		m.recallPos = len(m.recall)

	case appmsg.StatusMsg, statusbar.ClearStatusMsg:
		var cmd tea.Cmd
		m.statusbar, cmd = m.statusbar.Update(msg)
		cmds = append(cmds, cmd)

	case autocomplete.SelectedMsg:
		m.insertCompletion(msg)

	case autocomplete.DismissMsg:

	case historybrowser.SelectQueryMsg:
		m.input.SetValue(msg.Statement)
		m.input.CursorEnd()
		m.recallPos = len(m.recall)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKey applies REPL keybindings. It reports false for keys that go to
// the input.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		if m.input.Value() != "" {
			return nil, false
		}
		m.quitting = true
		return tea.Quit, true

	case key.Matches(msg, m.keyMap.ClearLine):
		if m.input.Value() == "" {
			m.quitting = true
			return tea.Quit, true
		}
		m.input.Reset()
		m.recallPos = len(m.recall)
		return nil, true

	case key.Matches(msg, m.keyMap.Execute):
		return m.submit(), true

	case key.Matches(msg, m.keyMap.Complete):
		return m.autocomp.Trigger(m.input.Value(), byteOffset(m.input.Value(), m.input.Position())), true

	case key.Matches(msg, m.keyMap.HistoryPrev):
		m.recallStep(-1)
		return nil, true

	case key.Matches(msg, m.keyMap.HistoryNext):
		m.recallStep(1)
		return nil, true

	case key.Matches(msg, m.keyMap.HistorySearch):
		m.autocomp.Dismiss()
		m.search.Show()
		return textinput.Blink, true

	case key.Matches(msg, m.keyMap.ClearScreen):
		return tea.ClearScreen, true

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return nil, true
	}
	return nil, false
}

// submit echoes the current line and runs it. Lines entered while a
// previous one is still running are ignored.
func (m *Model) submit() tea.Cmd {
	if m.busy {
		return nil
	}
	line := m.input.Value()
	m.input.Reset()
	m.draft = ""
	m.recallPos = len(m.recall)

	echo := tea.Println(m.prompt() + m.highlighter.Highlight(line, theme.Current))
	if strings.TrimSpace(line) == "" {
		return echo
	}
	m.busy = true
	return tea.Sequence(echo, m.execute(line))
}

// execute runs line on a background goroutine.
func (m Model) execute(line string) tea.Cmd {
	r := m.runner
	return func() tea.Msg {
		ctx := context.Background()
		start := time.Now()
		outcomes := r.Exec(ctx, line)
		db, _ := r.Session().CurrentDatabaseName()
		done := execDoneMsg{executed: appmsg.ExecutedMsg{
			Line:     line,
			Outcomes: outcomes,
			Database: db,
			Elapsed:  time.Since(start),
		}}
		done.snapshot.Snapshot, done.snapshot.Err = r.Session().Snapshot(ctx)
		return done
	}
}

func (m Model) loadSnapshot() tea.Cmd {
	r := m.runner
	return func() tea.Msg {
		snap, err := r.Session().Snapshot(context.Background())
		return appmsg.SnapshotMsg{Snapshot: snap, Err: err}
	}
}

func (m Model) loadHistory() tea.Cmd {
	if m.history == nil || m.recallLimit == 0 {
		return nil
	}
	h, limit := m.history, m.recallLimit
	return func() tea.Msg {
		stmts, err := h.Statements(context.Background(), limit)
		return appmsg.HistoryMsg{Statements: stmts, Err: err}
	}
}

func (m *Model) applySnapshot(msg appmsg.SnapshotMsg) {
	if msg.Err != nil {
		m.log.Warn().Err(msg.Err).Msg("catalog snapshot failed")
		return
	}
	if eng := m.autocomp.Engine(); eng != nil {
		eng.Update(msg.Snapshot)
	}
}

// remember adds line to the recall list unless it repeats the last entry.
func (m *Model) remember(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(m.recall); n == 0 || m.recall[n-1] != line {
		m.recall = append(m.recall, line)
	}
	if m.recallLimit > 0 && len(m.recall) > m.recallLimit {
		m.recall = m.recall[len(m.recall)-m.recallLimit:]
	}
	m.recallPos = len(m.recall)
}

// recallStep moves through the recall list by delta.
func (m *Model) recallStep(delta int) {
	pos := m.recallPos + delta
	if pos < 0 || pos > len(m.recall) {
		return
	}
	if m.recallPos == len(m.recall) {
		m.draft = m.input.Value()
	}
	m.recallPos = pos
	if pos == len(m.recall) {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(m.recall[pos])
	}
	m.input.CursorEnd()
}

// insertCompletion replaces the word before the cursor with the candidate.
func (m *Model) insertCompletion(sel autocomplete.SelectedMsg) {
	value := m.input.Value()
	cur := byteOffset(value, m.input.Position())
	start := cur - sel.Replace
	if start < 0 {
		start = 0
	}
	m.input.SetValue(value[:start] + sel.Text + value[cur:])
	m.input.SetCursor(len([]rune(value[:start] + sel.Text)))
}

// byteOffset converts a rune position in s to a byte offset.
func byteOffset(s string, runePos int) int {
	for i := range s {
		if runePos == 0 {
			return i
		}
		runePos--
	}
	return len(s)
}

func (m Model) prompt() string {
	th := theme.Current
	if m.database == "" {
		return th.Prompt.Render(">") + " "
	}
	return th.PromptDatabase.Render(m.database) + th.Prompt.Render(">") + " "
}

// renderOutcomes formats every outcome of a line for printing.
func (m Model) renderOutcomes(outcomes []runner.Outcome) string {
	var parts []string
	for _, o := range outcomes {
		if o.Err != nil {
			parts = append(parts, results.RenderError(o.Err, theme.Current))
			continue
		}
		var b strings.Builder
		if err := results.Write(&b, m.format, o.Result, theme.Current); err != nil {
			m.log.Error().Err(err).Msg("render result")
			continue
		}
		if s := strings.TrimRight(b.String(), "\n"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// View renders the prompt, the candidate list, help and the status bar.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if m.busy && m.width > 0 {
		b.WriteString(m.spinner.View() + " ")
	}
	b.WriteString(m.input.View())
	if v := m.search.View(); v != "" {
		b.WriteString("\n" + v)
	}
	if v := m.autocomp.View(); v != "" {
		b.WriteString("\n" + v)
	}
	if m.showHelp {
		b.WriteString("\n" + m.help.View(m.keyMap))
	}
	if v := m.statusbar.View(); v != "" {
		b.WriteString("\n" + v)
	}
	return b.String()
}
