// Package highlight colours SQL statements echoed by the REPL.
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/toydb/internal/theme"
)

// chroma lexer names per store dialect.
var lexerNames = map[string]string{
	"postgres": "postgresql",
	"mysql":    "MySQL",
	"sqlite":   "SQL",
}

// Highlighter tokenises SQL text using chroma and renders it with lipgloss
// styles from a theme.
type Highlighter struct {
	lexer chroma.Lexer
}

// New creates a Highlighter for the given store dialect. Unknown dialects
// use the generic SQL lexer.
func New(dialect string) *Highlighter {
	var l chroma.Lexer
	if name, ok := lexerNames[dialect]; ok {
		l = lexers.Get(name)
	}
	if l == nil {
		l = lexers.Get("SQL")
	}
	if l == nil {
		l = lexers.Fallback
	}
	return &Highlighter{lexer: chroma.Coalesce(l)}
}

// Highlight returns sql with each token styled from th. A nil theme or a
// tokenising failure returns sql unchanged. Newlines are emitted unstyled.
func (h *Highlighter) Highlight(sql string, th *theme.Theme) string {
	if th == nil {
		return sql
	}
	iter, err := h.lexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) * 2)
	for _, tok := range iter.Tokens() {
		if tok.Value == "" {
			continue
		}
		style, ok := styleFor(tok.Type, th)
		if !ok {
			b.WriteString(tok.Value)
			continue
		}
		lines := strings.Split(tok.Value, "\n")
		for i, line := range lines {
			if line != "" {
				b.WriteString(style.Render(line))
			}
			if i < len(lines)-1 {
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

// styleFor maps a chroma token type to a theme style. It reports false for
// tokens that pass through unstyled.
func styleFor(tt chroma.TokenType, th *theme.Theme) (lipgloss.Style, bool) {
	switch {
	// KeywordType is a Keyword subtype; check it first so INT and VARCHAR
	// get the type colour.
	case tt == chroma.KeywordType:
		return th.SQLType, true
	case tt == chroma.NameFunction || tt == chroma.NameBuiltin:
		return th.SQLFunction, true
	case tt.InCategory(chroma.Keyword):
		return th.SQLKeyword, true
	case tt.InSubCategory(chroma.LiteralString):
		return th.SQLString, true
	case tt.InSubCategory(chroma.LiteralNumber):
		return th.SQLNumber, true
	case tt.InCategory(chroma.Comment):
		return th.SQLComment, true
	case tt.InCategory(chroma.Operator):
		return th.SQLOperator, true
	case tt == chroma.Name || tt == chroma.NameVariable:
		return th.SQLIdentifier, true
	default:
		return lipgloss.Style{}, false
	}
}
