package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the REPL keybindings.
type KeyMap struct {
	// Input
	Execute   key.Binding
	Complete  key.Binding
	ClearLine key.Binding

	// History
	HistoryPrev   key.Binding
	HistoryNext   key.Binding
	HistorySearch key.Binding

	// App
	ClearScreen key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the REPL keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Execute: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run"),
		),
		Complete: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "complete"),
		),
		ClearLine: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "clear line"),
		),
		HistoryPrev: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑/ctrl+p", "previous"),
		),
		HistoryNext: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("↓/ctrl+n", "next"),
		),
		HistorySearch: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "search history"),
		),
		ClearScreen: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear screen"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "quit"),
		),
	}
}

// ShortHelp returns a subset of keybindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Execute, k.Complete, k.HistoryPrev, k.Quit, k.Help}
}

// FullHelp returns all keybindings grouped for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Execute, k.Complete, k.ClearLine},
		{k.HistoryPrev, k.HistoryNext, k.HistorySearch},
		{k.ClearScreen, k.Help, k.Quit},
	}
}
