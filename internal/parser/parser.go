// Package parser turns SQL text into catalog statements. Text is tokenised
// with the chroma SQL lexer and parsed by recursive descent; statements the
// catalog does not model come back as *statement.Other.
package parser

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/sadopc/toydb/internal/schema"
	"github.com/sadopc/toydb/internal/statement"
)

// SyntaxError reports malformed input. Near is the offending token, empty
// at end of input; Pos is its rune offset in the statement text.
type SyntaxError struct {
	Pos  int
	Near string
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Near == "" {
		return "syntax error at end of input: " + e.Msg
	}
	return fmt.Sprintf("syntax error at or near %q: %s", e.Near, e.Msg)
}

func syntaxErrorAt(pos int, near, msg string) error {
	return errors.WithStack(&SyntaxError{Pos: pos, Near: near, Msg: msg})
}

// Parse parses every ';'-separated statement in text. Empty statements are
// skipped.
func Parse(text string) ([]statement.Statement, error) {
	src := []rune(strings.ReplaceAll(text, "\r\n", "\n"))
	lexemes, err := lex(string(src))
	if err != nil {
		return nil, err
	}

	var stmts []statement.Statement
	begin := 0
	for i := 0; i <= len(lexemes); i++ {
		if i < len(lexemes) && !lexemes[i].IsPunct(";") {
			continue
		}
		if i > begin {
			p := &parser{src: src, toks: lexemes[begin:i]}
			stmt, err := p.statement()
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
		}
		begin = i + 1
	}
	return stmts, nil
}

// ParseOne parses text holding exactly one statement.
func ParseOne(text string) (statement.Statement, error) {
	stmts, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, errors.Newf("expected one statement, got %d", len(stmts))
	}
	return stmts[0], nil
}

type parser struct {
	src  []rune
	toks []lexeme
	pos  int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() (lexeme, bool) {
	if p.atEnd() {
		return lexeme{}, false
	}
	return p.toks[p.pos], true
}

// peekWord reports whether the next token is one of words.
func (p *parser) peekWord(words ...string) bool {
	t, ok := p.peek()
	return ok && isWord(t, words...)
}

func (p *parser) peekPunct(s string) bool {
	t, ok := p.peek()
	return ok && t.IsPunct(s)
}

func (p *parser) acceptWord(words ...string) bool {
	if p.peekWord(words...) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) acceptPunct(s string) bool {
	if p.peekPunct(s) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectWord(word string) error {
	if !p.acceptWord(word) {
		return p.errorf("expected %s", word)
	}
	return nil
}

func (p *parser) expectPunct(s string) error {
	if !p.acceptPunct(s) {
		return p.errorf("expected %q", s)
	}
	return nil
}

// name reads an identifier. Any bare word is accepted so that names such as
// "key" or "status" work in definitions.
func (p *parser) name(what string) (string, error) {
	t, ok := p.peek()
	if !ok || !(t.IsName() || t.Kind == statement.TokenKeyword) {
		return "", p.errorf("expected %s name", what)
	}
	p.pos++
	return t.Text, nil
}

// nameList reads name {, name}.
func (p *parser) nameList(what string) ([]string, error) {
	var names []string
	for {
		n, err := p.name(what)
		if err != nil {
			return nil, err
		}
		names = append(names, n)
		if !p.acceptPunct(",") {
			return names, nil
		}
	}
}

func (p *parser) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	t, ok := p.peek()
	if !ok {
		return syntaxErrorAt(p.endPos(), "", msg)
	}
	return syntaxErrorAt(t.start, truncate(t.String()), msg)
}

func (p *parser) endPos() int {
	if len(p.toks) == 0 {
		return 0
	}
	return p.toks[len(p.toks)-1].end
}

// text returns the source covered by toks[from:to].
func (p *parser) text(from, to int) string {
	if from >= to {
		return ""
	}
	return string(p.src[p.toks[from].start:p.toks[to-1].end])
}

// expectEnd fails unless every token of the statement was consumed.
func (p *parser) expectEnd() error {
	if !p.atEnd() {
		return p.errorf("unexpected input")
	}
	return nil
}

// skipGroup consumes a balanced parenthesis group starting at the current
// "(" token.
func (p *parser) skipGroup() error {
	depth := 0
	for ; !p.atEnd(); p.pos++ {
		switch t := p.toks[p.pos]; {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
			if depth == 0 {
				p.pos++
				return nil
			}
		}
	}
	return p.errorf("unbalanced parentheses")
}

// skipToSeparator consumes tokens up to the next "," or ")" outside
// parentheses.
func (p *parser) skipToSeparator() error {
	for !p.atEnd() {
		if p.peekPunct(",") || p.peekPunct(")") {
			return nil
		}
		if p.peekPunct("(") {
			if err := p.skipGroup(); err != nil {
				return err
			}
			continue
		}
		p.pos++
	}
	return nil
}

func isWord(t lexeme, words ...string) bool {
	if t.Kind != statement.TokenIdent && t.Kind != statement.TokenKeyword {
		return false
	}
	for _, w := range words {
		if strings.EqualFold(t.Text, w) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *parser) statement() (statement.Statement, error) {
	switch {
	case p.acceptWord("CREATE"):
		switch {
		case p.acceptWord("DATABASE", "SCHEMA"):
			return p.createDatabase()
		case p.acceptWord("TABLE"):
			return p.createTable()
		case p.acceptWord("VIEW"):
			return p.createView()
		}
	case p.acceptWord("DROP"):
		switch {
		case p.acceptWord("DATABASE", "SCHEMA"):
			return p.dropDatabase()
		case p.acceptWord("TABLE"):
			return p.drop(schema.KindTable)
		case p.acceptWord("VIEW"):
			return p.drop(schema.KindView)
		}
	case p.acceptWord("USE"):
		return p.use()
	case p.acceptWord("ALTER"):
		if p.acceptWord("TABLE") {
			return p.alterTable()
		}
	case p.acceptWord("SHOW"):
		if p.acceptWord("TABLES") {
			return &statement.ShowTables{}, p.expectEnd()
		}
	case p.acceptWord("EXPLAIN"):
		if stmt, ok, err := p.explain(); ok || err != nil {
			return stmt, err
		}
	case p.acceptWord("DESCRIBE", "DESC"):
		return p.explainTarget()
	}
	return p.other(), nil
}

// other wraps the whole statement as unmodelled.
func (p *parser) other() statement.Statement {
	verb := ""
	if len(p.toks) > 0 {
		verb = strings.ToUpper(p.toks[0].Text)
	}
	return &statement.Other{Verb: verb, Text: p.text(0, len(p.toks))}
}

func (p *parser) createDatabase() (statement.Statement, error) {
	stmt := &statement.CreateDatabase{}
	if p.acceptWord("IF") {
		if err := p.expectWord("NOT"); err != nil {
			return nil, err
		}
		if err := p.expectWord("EXISTS"); err != nil {
			return nil, err
		}
		stmt.IfNotExists = true
	}
	name, err := p.name("database")
	if err != nil {
		return nil, err
	}
	stmt.Name = name
	return stmt, p.expectEnd()
}

func (p *parser) dropDatabase() (statement.Statement, error) {
	stmt := &statement.DropDatabase{}
	ifExists, err := p.ifExists()
	if err != nil {
		return nil, err
	}
	stmt.IfExists = ifExists
	name, err := p.name("database")
	if err != nil {
		return nil, err
	}
	stmt.Name = name
	return stmt, p.expectEnd()
}

func (p *parser) ifExists() (bool, error) {
	if !p.acceptWord("IF") {
		return false, nil
	}
	if err := p.expectWord("EXISTS"); err != nil {
		return false, err
	}
	return true, nil
}

func (p *parser) use() (statement.Statement, error) {
	name, err := p.name("database")
	if err != nil {
		return nil, err
	}
	return &statement.Use{Name: name}, p.expectEnd()
}

func (p *parser) drop(kind schema.ObjectKind) (statement.Statement, error) {
	stmt := &statement.Drop{ObjectKind: kind}
	ifExists, err := p.ifExists()
	if err != nil {
		return nil, err
	}
	stmt.IfExists = ifExists
	if stmt.Names, err = p.nameList(string(kind)); err != nil {
		return nil, err
	}
	switch {
	case p.acceptWord("CASCADE"):
		stmt.Cascade = true
	case p.acceptWord("RESTRICT"):
	}
	return stmt, p.expectEnd()
}

// explain handles EXPLAIN [TABLE] name. ok is false for EXPLAIN of a query,
// which the catalog does not model.
func (p *parser) explain() (statement.Statement, bool, error) {
	if p.acceptWord("TABLE") {
		stmt, err := p.explainTarget()
		return stmt, true, err
	}
	// EXPLAIN name, and nothing else.
	if len(p.toks)-p.pos == 1 {
		if t, _ := p.peek(); t.IsName() {
			stmt, err := p.explainTarget()
			return stmt, true, err
		}
	}
	return nil, false, nil
}

func (p *parser) explainTarget() (statement.Statement, error) {
	name, err := p.name("table")
	if err != nil {
		return nil, err
	}
	return &statement.ExplainTable{Name: name}, p.expectEnd()
}

// ---------------------------------------------------------------------------
// CREATE TABLE / ALTER TABLE
// ---------------------------------------------------------------------------

func (p *parser) createTable() (statement.Statement, error) {
	stmt := &statement.CreateTable{}
	if p.acceptWord("IF") {
		if err := p.expectWord("NOT"); err != nil {
			return nil, err
		}
		if err := p.expectWord("EXISTS"); err != nil {
			return nil, err
		}
		stmt.IfNotExists = true
	}
	name, err := p.name("table")
	if err != nil {
		return nil, err
	}
	stmt.Name = name

	// CREATE TABLE ... AS SELECT copies a query result; not a catalog shape.
	if p.peekWord("AS") {
		return p.other(), nil
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	var primaryKey []string
	for {
		switch {
		case p.peekWord("PRIMARY"):
			p.pos++
			if err := p.expectWord("KEY"); err != nil {
				return nil, err
			}
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			cols, err := p.nameList("column")
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			primaryKey = append(primaryKey, cols...)
			if err := p.skipToSeparator(); err != nil {
				return nil, err
			}
		case p.tableConstraintAhead():
			// Named and secondary constraints do not change the catalog.
			if p.acceptWord("CONSTRAINT") {
				if _, err := p.name("constraint"); err != nil {
					return nil, err
				}
				if p.peekWord("PRIMARY") {
					continue
				}
			}
			if err := p.skipToSeparator(); err != nil {
				return nil, err
			}
		default:
			col, err := p.columnDef()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
		}

		if p.acceptPunct(",") {
			continue
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		break
	}

	for _, name := range primaryKey {
		found := false
		for i := range stmt.Columns {
			if stmt.Columns[i].Name == name {
				stmt.Columns[i].PrimaryKey = true
				found = true
			}
		}
		if !found {
			return nil, syntaxErrorAt(0, name, "primary key names an undefined column")
		}
	}

	// Table options (ENGINE=..., WITHOUT ROWID, STRICT) are ignored.
	p.pos = len(p.toks)
	return stmt, nil
}

// tableConstraintAhead reports whether the next element of a CREATE TABLE
// list is a table constraint or index rather than a column named like one.
func (p *parser) tableConstraintAhead() bool {
	switch {
	case p.peekWord("CONSTRAINT"):
		return true
	case p.peekWord("FOREIGN"):
		return p.peekAt(1, func(t lexeme) bool { return isWord(t, "KEY") })
	case p.peekWord("UNIQUE", "CHECK", "KEY", "INDEX", "EXCLUDE"):
		if p.peekAt(1, func(t lexeme) bool { return t.IsPunct("(") || isWord(t, "KEY", "INDEX", "USING") }) {
			return true
		}
		// KEY idx (a) names an index; key VARCHAR(20) is a column.
		return p.peekAt(2, func(t lexeme) bool { return t.IsPunct("(") }) &&
			p.peekAt(3, func(t lexeme) bool { return t.Kind != statement.TokenNumber })
	}
	return false
}

// peekAt applies fn to the token n positions ahead.
func (p *parser) peekAt(n int, fn func(lexeme) bool) bool {
	i := p.pos + n
	return i < len(p.toks) && fn(p.toks[i])
}

// Words that end a data type and start a column constraint.
var constraintWords = []string{
	"PRIMARY", "NOT", "NULL", "UNIQUE", "DEFAULT", "REFERENCES", "CHECK",
	"CONSTRAINT", "COLLATE", "AUTO_INCREMENT", "AUTOINCREMENT", "GENERATED",
	"KEY", "COMMENT", "ON", "AS", "IDENTITY",
}

// columnDef reads name type [constraint ...].
func (p *parser) columnDef() (statement.ColumnDef, error) {
	var col statement.ColumnDef
	name, err := p.name("column")
	if err != nil {
		return col, err
	}
	col.Name = name

	if col.DataType, err = p.dataType(); err != nil {
		return col, err
	}

	for !p.atEnd() && !p.peekPunct(",") && !p.peekPunct(")") {
		switch {
		case p.acceptWord("PRIMARY"):
			if err := p.expectWord("KEY"); err != nil {
				return col, err
			}
			col.PrimaryKey = true
			p.acceptWord("ASC", "DESC")
		case p.acceptWord("NOT"):
			if err := p.expectWord("NULL"); err != nil {
				return col, err
			}
			col.NotNull = true
		case p.acceptWord("NULL"):
		case p.acceptWord("UNIQUE"):
			col.Unique = true
			p.acceptWord("KEY")
		case p.acceptWord("DEFAULT"):
			if col.Default, err = p.defaultExpr(); err != nil {
				return col, err
			}
		case p.acceptWord("CONSTRAINT"):
			if _, err := p.name("constraint"); err != nil {
				return col, err
			}
		case p.peekPunct("("):
			if err := p.skipGroup(); err != nil {
				return col, err
			}
		default:
			// REFERENCES, CHECK, COLLATE and friends carry no catalog data.
			p.pos++
		}
	}
	return col, nil
}

// dataType reads a possibly multi-word type with optional arguments and
// renders it upper-cased: VARCHAR(255), DOUBLE PRECISION, DECIMAL(10,2).
func (p *parser) dataType() (string, error) {
	t, ok := p.peek()
	if !ok || t.Kind == statement.TokenQuotedIdent || !(t.IsName() || t.Kind == statement.TokenKeyword) || isWord(t, constraintWords...) {
		return "", p.errorf("expected data type")
	}

	var b strings.Builder
	for {
		t, ok := p.peek()
		if !ok || t.Kind == statement.TokenQuotedIdent || !(t.IsName() || t.Kind == statement.TokenKeyword) || isWord(t, constraintWords...) {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToUpper(t.Text))
		p.pos++

		if p.peekPunct("(") {
			start := p.pos
			if err := p.skipGroup(); err != nil {
				return "", err
			}
			for _, a := range p.toks[start:p.pos] {
				b.WriteString(a.String())
			}
		}
		for p.peekPunct("[") {
			p.pos++
			b.WriteByte('[')
			if t, ok := p.peek(); ok && t.Kind == statement.TokenNumber {
				b.WriteString(t.Text)
				p.pos++
			}
			if err := p.expectPunct("]"); err != nil {
				return "", err
			}
			b.WriteByte(']')
		}
	}
	return b.String(), nil
}

// defaultExpr reads the expression of a DEFAULT clause and renders it.
func (p *parser) defaultExpr() (string, error) {
	start := p.pos
	switch {
	case p.peekPunct("("):
		if err := p.skipGroup(); err != nil {
			return "", err
		}
	case p.peekPunct("-"), p.peekPunct("+"):
		sign := p.toks[p.pos].Text
		p.pos++
		t, ok := p.peek()
		if !ok || t.Kind != statement.TokenNumber {
			return "", p.errorf("expected number")
		}
		p.pos++
		return sign + t.Text, nil
	default:
		if p.atEnd() || p.peekPunct(",") || p.peekPunct(")") {
			return "", p.errorf("expected default value")
		}
		p.pos++
		if p.peekPunct("(") {
			if err := p.skipGroup(); err != nil {
				return "", err
			}
		}
	}
	for p.acceptPunct("::") {
		if _, err := p.name("type"); err != nil {
			return "", err
		}
	}
	return p.render(start, p.pos), nil
}

// render renders toks[from:to] canonically.
func (p *parser) render(from, to int) string {
	q := &statement.Query{Tokens: tokens(p.toks[from:to])}
	return q.String()
}

func tokens(ls []lexeme) []statement.Token {
	out := make([]statement.Token, len(ls))
	for i, l := range ls {
		out[i] = l.Token
	}
	return out
}

func (p *parser) alterTable() (statement.Statement, error) {
	name, err := p.name("table")
	if err != nil {
		return nil, err
	}
	stmt := &statement.AlterTable{Name: name}

	for {
		start := p.pos
		op, err := p.alterOp()
		if err != nil {
			return nil, err
		}
		if op.Kind == statement.AlterOther {
			p.pos = start
			if err := p.skipToSeparator(); err != nil {
				return nil, err
			}
			if p.pos == start {
				return nil, p.errorf("expected ALTER TABLE operation")
			}
			op.Text = p.text(start, p.pos)
		}
		stmt.Operations = append(stmt.Operations, op)

		if !p.acceptPunct(",") {
			break
		}
	}
	return stmt, p.expectEnd()
}

func (p *parser) alterOp() (statement.AlterOp, error) {
	switch {
	case p.acceptWord("ADD"):
		if p.peekWord("CONSTRAINT", "PRIMARY", "UNIQUE", "FOREIGN", "CHECK", "INDEX", "KEY") {
			return statement.AlterOp{Kind: statement.AlterOther}, nil
		}
		p.acceptWord("COLUMN")
		col, err := p.columnDef()
		if err != nil {
			return statement.AlterOp{}, err
		}
		return statement.AlterOp{Kind: statement.AlterAddColumn, Column: col}, nil

	case p.acceptWord("DROP"):
		if p.peekWord("CONSTRAINT", "PRIMARY", "FOREIGN", "INDEX", "KEY", "CHECK", "DEFAULT") {
			return statement.AlterOp{Kind: statement.AlterOther}, nil
		}
		p.acceptWord("COLUMN")
		name, err := p.name("column")
		if err != nil {
			return statement.AlterOp{}, err
		}
		p.acceptWord("CASCADE", "RESTRICT")
		return statement.AlterOp{Kind: statement.AlterDropColumn, ColumnName: name}, nil
	}
	return statement.AlterOp{Kind: statement.AlterOther}, nil
}

// ---------------------------------------------------------------------------
// CREATE VIEW
// ---------------------------------------------------------------------------

func (p *parser) createView() (statement.Statement, error) {
	name, err := p.name("view")
	if err != nil {
		return nil, err
	}
	// Column aliases would rename the view's output; not modelled.
	if p.peekPunct("(") {
		return p.other(), nil
	}
	if err := p.expectWord("AS"); err != nil {
		return nil, err
	}
	if !p.peekWord("SELECT", "WITH", "VALUES") && !p.peekPunct("(") {
		return nil, p.errorf("expected query")
	}
	query := &statement.Query{Tokens: tokens(p.toks[p.pos:])}
	if err := checkBalanced(p.toks[p.pos:]); err != nil {
		return nil, err
	}
	p.pos = len(p.toks)
	return &statement.CreateView{Name: name, Query: query}, nil
}

func checkBalanced(ls []lexeme) error {
	depth := 0
	for _, l := range ls {
		switch {
		case l.IsPunct("("):
			depth++
		case l.IsPunct(")"):
			depth--
			if depth < 0 {
				return syntaxErrorAt(l.start, ")", "unbalanced parentheses")
			}
		}
	}
	if depth != 0 {
		return syntaxErrorAt(ls[len(ls)-1].end, "", "unbalanced parentheses")
	}
	return nil
}
