package statement

import "strings"

// TokenKind classifies a query token.
type TokenKind int

const (
	TokenKeyword TokenKind = iota
	TokenIdent
	TokenQuotedIdent
	TokenString
	TokenNumber
	TokenPunct
)

// Token is one lexical element of a query. Text is the token as written,
// except for quoted identifiers where it is the unquoted name and Quote the
// quote character.
type Token struct {
	Kind  TokenKind
	Text  string
	Quote byte
}

func (t Token) String() string {
	switch t.Kind {
	case TokenKeyword:
		return strings.ToUpper(t.Text)
	case TokenQuotedIdent:
		q := string(t.Quote)
		return q + strings.ReplaceAll(t.Text, q, q+q) + q
	default:
		return t.Text
	}
}

// IsKeyword reports whether t is one of the given keywords.
func (t Token) IsKeyword(words ...string) bool {
	if t.Kind != TokenKeyword {
		return false
	}
	for _, w := range words {
		if strings.EqualFold(t.Text, w) {
			return true
		}
	}
	return false
}

// IsPunct reports whether t is the punctuation p.
func (t Token) IsPunct(p string) bool {
	return t.Kind == TokenPunct && t.Text == p
}

// IsName reports whether t can name a relation or column.
func (t Token) IsName() bool {
	return t.Kind == TokenIdent || t.Kind == TokenQuotedIdent
}

// Relation is a relation a query reads from. Database is empty when the
// reference is unqualified.
type Relation struct {
	Database string
	Name     string
}

func (r Relation) String() string {
	if r.Database == "" {
		return QuoteIdent(r.Name)
	}
	return QuoteIdent(r.Database) + "." + QuoteIdent(r.Name)
}

// Query is the body of a view definition.
type Query struct {
	Tokens []Token
}

// String renders the query canonically: keywords upper-cased, one space
// between tokens except around punctuation that binds tightly.
func (q *Query) String() string {
	return q.render(Token.String)
}

func (q *Query) render(text func(Token) string) string {
	var b strings.Builder
	for i, t := range q.Tokens {
		if i > 0 && spaced(q.Tokens[i-1], t) {
			b.WriteByte(' ')
		}
		b.WriteString(text(t))
	}
	return b.String()
}

// Keywords written with a space before an opening parenthesis.
var spacedBeforeParen = map[string]bool{
	"AND": true, "ALL": true, "ANY": true, "AS": true, "BY": true,
	"EXISTS": true, "FROM": true, "IN": true, "JOIN": true, "NOT": true,
	"ON": true, "OR": true, "OVER": true, "SELECT": true, "SOME": true,
	"THEN": true, "ELSE": true, "WHEN": true, "USING": true, "VALUES": true,
	"WHERE": true, "UNION": true, "INTERSECT": true, "EXCEPT": true,
	"LATERAL": true, "HAVING": true, "RETURN": true,
}

func spaced(prev, next Token) bool {
	if prev.Kind == TokenPunct {
		switch prev.Text {
		case "(", ".", "::":
			return false
		}
	}
	if next.Kind == TokenPunct {
		switch next.Text {
		case ",", ")", ".", ";", "::":
			return false
		case "(":
			switch prev.Kind {
			case TokenIdent, TokenQuotedIdent:
				return false
			case TokenKeyword:
				return spacedBeforeParen[strings.ToUpper(prev.Text)]
			}
		}
	}
	return true
}

// Keywords that end a FROM list at the same nesting level.
var endsFromList = map[string]bool{
	"WHERE": true, "GROUP": true, "HAVING": true, "ORDER": true,
	"LIMIT": true, "OFFSET": true, "UNION": true, "INTERSECT": true,
	"EXCEPT": true, "WINDOW": true, "SELECT": true, "FETCH": true,
	"FOR": true, "QUALIFY": true, "RETURNING": true,
}

// Functions whose arguments use FROM as a separator.
var fromInArgs = map[string]bool{
	"EXTRACT": true, "SUBSTRING": true, "TRIM": true, "OVERLAY": true,
	"POSITION": true,
}

// Relations returns the relations the query reads from, in the order they
// appear. Duplicates are kept; names bound by WITH are not relations where
// they are in scope.
func (q *Query) Relations() []Relation {
	if rels, ok := q.parsedRelations(); ok {
		return rels
	}
	return q.scanRelations()
}

// scanRelations finds relations on the token stream. It serves queries the
// PostgreSQL grammar rejects.
func (q *Query) scanRelations() []Relation {
	toks := q.Tokens
	ctes := q.cteScopes()

	var rels []Relation
	depth := 0
	inList := map[int]bool{}
	inArgs := map[int]bool{}
	expect := false

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.IsPunct("("):
			if i > 0 && fromInArgs[strings.ToUpper(toks[i-1].Text)] {
				inArgs[depth+1] = true
			}
			depth++
			// A parenthesised join list, unlike a subquery, starts with a name.
			if expect && i+1 < len(toks) && toks[i+1].IsName() {
				inList[depth] = true
			} else {
				expect = false
			}
			continue
		case t.IsPunct(")"):
			delete(inList, depth)
			delete(inArgs, depth)
			depth--
			continue
		case t.IsKeyword("FROM", "JOIN"):
			if !inArgs[depth] {
				inList[depth] = true
				expect = true
			}
			continue
		case t.IsPunct(","):
			expect = inList[depth]
			continue
		case t.IsKeyword("LATERAL", "ONLY"):
			continue
		case t.Kind == TokenKeyword && endsFromList[strings.ToUpper(t.Text)]:
			inList[depth] = false
			expect = false
			continue
		}

		if !expect {
			continue
		}
		expect = false
		rel, next, ok := relationAt(toks, i)
		if !ok {
			continue
		}
		if rel.Database != "" || !ctes.shadows(rel.Name, i) {
			rels = append(rels, rel)
		}
		i = next - 1
	}
	return rels
}

// relationAt reads a possibly qualified name starting at toks[i]. It
// returns the index after the name; a name followed by "(" is a function
// call, not a relation.
func relationAt(toks []Token, i int) (Relation, int, bool) {
	if !toks[i].IsName() {
		return Relation{}, i, false
	}
	parts := []string{toks[i].Text}
	j := i + 1
	for j+1 < len(toks) && toks[j].IsPunct(".") && toks[j+1].IsName() {
		parts = append(parts, toks[j+1].Text)
		j += 2
	}
	if j < len(toks) && toks[j].IsPunct("(") {
		return Relation{}, j, false
	}

	rel := Relation{Name: parts[len(parts)-1]}
	if len(parts) > 1 {
		rel.Database = parts[len(parts)-2]
	}
	return rel, j, true
}

// cteScope is the token range [from, to) in which a WITH name hides a
// relation of the same name.
type cteScope struct {
	name     string
	from, to int
}

type cteScopes []cteScope

func (s cteScopes) shadows(name string, i int) bool {
	for _, c := range s {
		if c.name == name && c.from <= i && i < c.to {
			return true
		}
	}
	return false
}

// cteScopes collects the names bound by every WITH clause of the query. A
// name is visible from the end of its own definition, or from WITH itself
// when the clause is RECURSIVE, to the end of the enclosing parenthesis
// group.
func (q *Query) cteScopes() cteScopes {
	toks := q.Tokens
	var scopes cteScopes
	for i := 0; i < len(toks); i++ {
		if !toks[i].IsKeyword("WITH") {
			continue
		}
		end := groupEnd(toks, i)
		j := i + 1
		recursive := j < len(toks) && toks[j].IsKeyword("RECURSIVE")
		if recursive {
			j++
		}
		for j < len(toks) && toks[j].IsName() {
			name := toks[j].Text
			j++
			if j < len(toks) && toks[j].IsPunct("(") {
				j = skipParens(toks, j)
			}
			if j >= len(toks) || !toks[j].IsKeyword("AS") {
				break
			}
			j++
			for j < len(toks) && toks[j].IsKeyword("NOT", "MATERIALIZED") {
				j++
			}
			if j >= len(toks) || !toks[j].IsPunct("(") {
				break
			}
			j = skipParens(toks, j)

			from := j
			if recursive {
				from = i
			}
			scopes = append(scopes, cteScope{name: name, from: from, to: end})
			if j >= len(toks) || !toks[j].IsPunct(",") {
				break
			}
			j++
		}
	}
	return scopes
}

// groupEnd returns the index of the parenthesis closing the group that
// contains toks[i], or len(toks) at the top level.
func groupEnd(toks []Token, i int) int {
	depth := 0
	for ; i < len(toks); i++ {
		switch {
		case toks[i].IsPunct("("):
			depth++
		case toks[i].IsPunct(")"):
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return len(toks)
}

// skipParens returns the index after the parenthesis group opening at
// toks[i].
func skipParens(toks []Token, i int) int {
	depth := 0
	for ; i < len(toks); i++ {
		switch {
		case toks[i].IsPunct("("):
			depth++
		case toks[i].IsPunct(")"):
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}
