// Package theme provides the styling system for the toydb terminal front
// end. Every visual element references a lipgloss.Style held in a Theme so
// the look can be swapped at start-up.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme holds lipgloss.Style values for every element the REPL renders.
type Theme struct {
	Name string

	// Prompt
	Prompt         lipgloss.Style
	PromptDatabase lipgloss.Style

	// SQL syntax highlighting
	SQLKeyword    lipgloss.Style
	SQLString     lipgloss.Style
	SQLNumber     lipgloss.Style
	SQLComment    lipgloss.Style
	SQLOperator   lipgloss.Style
	SQLFunction   lipgloss.Style
	SQLType       lipgloss.Style
	SQLIdentifier lipgloss.Style

	// Results table
	ResultsBorder lipgloss.Style
	ResultsHeader lipgloss.Style
	ResultsCell   lipgloss.Style
	ResultsEmpty  lipgloss.Style

	// Status bar
	StatusBar        lipgloss.Style
	StatusBarKey     lipgloss.Style
	StatusBarValue   lipgloss.Style
	StatusBarError   lipgloss.Style
	StatusBarSuccess lipgloss.Style

	// Completion list
	CompletionItem     lipgloss.Style
	CompletionSelected lipgloss.Style
	CompletionDetail   lipgloss.Style

	// General
	ErrorText   lipgloss.Style
	HintText    lipgloss.Style
	SuccessText lipgloss.Style
	MutedText   lipgloss.Style
}

// ---------------------------------------------------------------------------
// Theme definitions
// ---------------------------------------------------------------------------

// newDefaultTheme builds the Default dark theme.
func newDefaultTheme() *Theme {
	return &Theme{
		Name: "default",

		Prompt: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#569CD6")),
		PromptDatabase: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#DCDCAA")),

		SQLKeyword: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#569CD6")),
		SQLString: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CE9178")),
		SQLNumber: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B5CEA8")),
		SQLComment: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#6A9955")),
		SQLOperator: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D4D4D4")),
		SQLFunction: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DCDCAA")),
		SQLType: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4EC9B0")),
		SQLIdentifier: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CDCFE")),

		ResultsBorder: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3C3C3C")),
		ResultsHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#569CD6")).
			PaddingLeft(1).
			PaddingRight(1),
		ResultsCell: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D4D4D4")).
			PaddingLeft(1).
			PaddingRight(1),
		ResultsEmpty: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#808080")),

		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#007ACC")),
		StatusBarKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#007ACC")).
			PaddingLeft(1).
			PaddingRight(1),
		StatusBarValue: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D4D4D4")).
			Background(lipgloss.Color("#1E1E1E")).
			PaddingLeft(1).
			PaddingRight(1),
		StatusBarError: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#F44747")),
		StatusBarSuccess: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#388A34")),

		CompletionItem: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D4D4D4")),
		CompletionSelected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#264F78")),
		CompletionDetail: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808080")),

		ErrorText: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F44747")),
		HintText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCA700")),
		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6A9955")),
		MutedText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808080")),
	}
}

// newLightTheme builds the Light theme suitable for light terminal backgrounds.
func newLightTheme() *Theme {
	return &Theme{
		Name: "light",

		Prompt: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0000FF")),
		PromptDatabase: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#795E26")),

		SQLKeyword: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0000FF")),
		SQLString: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A31515")),
		SQLNumber: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#098658")),
		SQLComment: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#008000")),
		SQLOperator: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")),
		SQLFunction: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#795E26")),
		SQLType: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#267F99")),
		SQLIdentifier: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#001080")),

		ResultsBorder: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC")),
		ResultsHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0000FF")).
			PaddingLeft(1).
			PaddingRight(1),
		ResultsCell: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			PaddingLeft(1).
			PaddingRight(1),
		ResultsEmpty: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#999999")),

		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#007ACC")),
		StatusBarKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#005A9E")).
			PaddingLeft(1).
			PaddingRight(1),
		StatusBarValue: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#333333")).
			Background(lipgloss.Color("#E8E8E8")).
			PaddingLeft(1).
			PaddingRight(1),
		StatusBarError: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#E51400")),
		StatusBarSuccess: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#388A34")),

		CompletionItem: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")),
		CompletionSelected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#ADD6FF")),
		CompletionDetail: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")),

		ErrorText: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E51400")),
		HintText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BF8803")),
		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#388A34")),
		MutedText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")),
	}
}

// newPlainTheme builds a theme without colors, for terminals or logs where
// escape sequences are unwanted.
func newPlainTheme() *Theme {
	plain := lipgloss.NewStyle()
	padded := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
	return &Theme{
		Name: "plain",

		Prompt:         plain,
		PromptDatabase: plain,

		SQLKeyword:    plain,
		SQLString:     plain,
		SQLNumber:     plain,
		SQLComment:    plain,
		SQLOperator:   plain,
		SQLFunction:   plain,
		SQLType:       plain,
		SQLIdentifier: plain,

		ResultsBorder: plain,
		ResultsHeader: padded,
		ResultsCell:   padded,
		ResultsEmpty:  plain,

		StatusBar:        plain,
		StatusBarKey:     padded,
		StatusBarValue:   padded,
		StatusBarError:   plain,
		StatusBarSuccess: plain,

		CompletionItem:     plain,
		CompletionSelected: plain.Reverse(true),
		CompletionDetail:   plain,

		ErrorText:   plain,
		HintText:    plain,
		SuccessText: plain,
		MutedText:   plain,
	}
}

// ---------------------------------------------------------------------------
// Registry and accessors
// ---------------------------------------------------------------------------

// Themes maps theme names to their Theme definitions.
var Themes = map[string]*Theme{
	"default": newDefaultTheme(),
	"light":   newLightTheme(),
	"plain":   newPlainTheme(),
}

// Current is the currently active theme. It is initialized to Default.
var Current = Themes["default"]

// Default returns the default dark theme.
func Default() *Theme {
	return Themes["default"]
}

// Get returns the theme identified by name. If no theme with that name exists
// it falls back to the default theme.
func Get(name string) *Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return Default()
}
