package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/sadopc/toydb/internal/statement"
)

// sqlLexer splits input into chroma tokens. Its token types only decide
// the coarse shape (word, string, number, comment); keywords are chosen by
// the reserved word list so identifiers such as "name" or "data" stay
// identifiers.
var sqlLexer = func() chroma.Lexer {
	l := lexers.Get("SQL")
	if l == nil {
		l = lexers.Fallback
	}
	return l
}()

// Operators spelled with two characters.
var twoCharOps = map[string]bool{
	"<=": true, ">=": true, "<>": true, "!=": true, "||": true, "::": true,
	"->": true,
}

// lexeme is a token with its rune offsets in the source.
type lexeme struct {
	statement.Token
	start, end int
}

// lex tokenises src, which must use "\n" line endings. Whitespace and
// comments are dropped.
func lex(src string) ([]lexeme, error) {
	it, err := sqlLexer.Tokenise(nil, src)
	if err != nil {
		return nil, err
	}
	toks := it.Tokens()

	var out []lexeme
	pos := 0
	emit := func(kind statement.TokenKind, text string, quote byte, start int) {
		out = append(out, lexeme{
			Token: statement.Token{Kind: kind, Text: text, Quote: quote},
			start: start,
			end:   pos,
		})
	}

	for i := 0; i < len(toks); i++ {
		ct := toks[i]
		start := pos
		pos += utf8.RuneCountInString(ct.Value)

		switch {
		case ct.Value == "" || strings.TrimSpace(ct.Value) == "" || ct.Type.InCategory(chroma.Comment):
			continue

		case ct.Type == chroma.LiteralStringSingle || ct.Type == chroma.LiteralStringDouble:
			var b strings.Builder
			b.WriteString(ct.Value)
			for i+1 < len(toks) && toks[i+1].Type == ct.Type {
				i++
				b.WriteString(toks[i].Value)
				pos += utf8.RuneCountInString(toks[i].Value)
			}
			text := b.String()
			quote := text[0]
			if !closedQuote(text, quote) {
				return nil, syntaxErrorAt(start, truncate(text), "unterminated quoted string")
			}
			if quote == '\'' {
				emit(statement.TokenString, text, 0, start)
			} else {
				emit(statement.TokenQuotedIdent, unquote(text, quote), quote, start)
			}

		case ct.Value == "`":
			var b strings.Builder
			closed := false
			for i+1 < len(toks) {
				i++
				pos += utf8.RuneCountInString(toks[i].Value)
				if toks[i].Value == "`" {
					closed = true
					break
				}
				b.WriteString(toks[i].Value)
			}
			if !closed {
				return nil, syntaxErrorAt(start, "`"+truncate(b.String()), "unterminated quoted identifier")
			}
			emit(statement.TokenQuotedIdent, b.String(), '`', start)

		case ct.Type.InCategory(chroma.LiteralNumber):
			text := ct.Value
			// The SQL lexer only knows integers; glue "1" "." "5" back together.
			if i+2 < len(toks) && toks[i+1].Value == "." && toks[i+2].Type.InCategory(chroma.LiteralNumber) {
				text += "." + toks[i+2].Value
				pos += 1 + utf8.RuneCountInString(toks[i+2].Value)
				i += 2
			}
			emit(statement.TokenNumber, text, 0, start)

		case ct.Type.InCategory(chroma.Keyword) || ct.Type.InCategory(chroma.Name):
			kind := statement.TokenIdent
			if IsReserved(ct.Value) {
				kind = statement.TokenKeyword
			}
			emit(kind, ct.Value, 0, start)

		default:
			// Operators, punctuation and characters the lexer rejected come
			// one rune at a time; runs are split and re-paired here.
			off := start
			for _, r := range ct.Value {
				s := string(r)
				if n := len(out); n > 0 && out[n-1].Kind == statement.TokenPunct &&
					out[n-1].end == off && twoCharOps[out[n-1].Text+s] {
					out[n-1].Text += s
					out[n-1].end = off + 1
				} else {
					out = append(out, lexeme{
						Token: statement.Token{Kind: statement.TokenPunct, Text: s},
						start: off,
						end:   off + 1,
					})
				}
				off++
			}
		}
	}
	return out, nil
}

// closedQuote reports whether s is a complete literal quoted with q, where
// a doubled q stands for itself.
func closedQuote(s string, q byte) bool {
	if len(s) < 2 || s[0] != q {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != q {
			continue
		}
		if i+1 < len(s) && s[i+1] == q {
			i++
			continue
		}
		return i == len(s)-1
	}
	return false
}

func unquote(s string, q byte) string {
	inner := s[1 : len(s)-1]
	return strings.ReplaceAll(inner, string(q)+string(q), string(q))
}

func truncate(s string) string {
	const max = 20
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
