// Package completion offers context-aware Tab completion for the REPL:
// keywords of the active dialect plus the database, object and column names
// of the current catalog snapshot, ranked with fuzzy matching.
package completion

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/sahilm/fuzzy"

	"github.com/sadopc/toydb/internal/parser"
	"github.com/sadopc/toydb/internal/schema"
)

// maxItems caps the number of candidates returned.
const maxItems = 50

// Kind categorizes completion items.
type Kind int

const (
	KindKeyword Kind = iota
	KindFunction
	KindDatabase
	KindTable
	KindView
	KindColumn
)

// Item is one completion candidate.
type Item struct {
	Label  string
	Kind   Kind
	Detail string
}

// Engine provides completion candidates based on the catalog and dialect.
type Engine struct {
	mu        sync.RWMutex
	databases []string
	objects   []schema.Object
	columns   map[string][]schema.Column // table name -> columns
	keywords  []string
	functions []string
}

// NewEngine creates a completion engine with the keyword and function lists
// of the given store dialect.
func NewEngine(dialect string) *Engine {
	return &Engine{
		columns:   make(map[string][]schema.Column),
		keywords:  parser.KeywordsForDialect(dialect),
		functions: parser.FunctionsForDialect(dialect),
	}
}

// Update refreshes the cached names from a session snapshot.
func (e *Engine) Update(snap schema.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.databases = append([]string(nil), snap.Databases...)
	e.objects = append([]schema.Object(nil), snap.Objects...)
	e.columns = make(map[string][]schema.Column, len(snap.Columns))
	for name, cols := range snap.Columns {
		e.columns[name] = cols
	}
}

// Complete returns completion candidates for the given text and cursor
// position.
func (e *Engine) Complete(text string, cursorPos int) []Item {
	if cursorPos > len(text) {
		cursorPos = len(text)
	}
	if cursorPos < 0 {
		cursorPos = 0
	}

	before := text[:cursorPos]

	// No completions inside string literals.
	if insideStringLiteral(before) {
		return nil
	}

	prefix, dotContext := extractPrefix(before)
	if dotContext != "" {
		return e.completeDotAccess(dotContext, prefix)
	}

	var items []Item
	switch detectContext(before, prefix) {
	case contextDatabase:
		items = e.databaseCompletions()
	case contextTable:
		items = e.objectCompletions(schema.KindTable)
	case contextObject:
		items = e.objectCompletions("")
	case contextAlterColumn:
		items = e.columnsForTable(alterTarget(before))
	case contextColumn:
		for _, t := range parseFromTables(text) {
			items = append(items, e.columnsForTable(t)...)
		}
		items = append(items, e.objectCompletions("")...)
		items = append(items, e.functionCompletions()...)
	default:
		items = append(items, e.keywordCompletions()...)
		items = append(items, e.objectCompletions("")...)
	}

	if prefix == "" {
		if len(items) > maxItems {
			items = items[:maxItems]
		}
		return items
	}
	return fuzzyMatch(prefix, items)
}

// contextKind indicates the kind of SQL context before the cursor.
type contextKind int

const (
	contextGeneral contextKind = iota
	contextDatabase
	contextTable
	contextObject
	contextColumn
	contextAlterColumn
)

// Keywords followed by a database name.
var databaseKeywords = map[string]bool{
	"USE": true, "DATABASE": true, "SCHEMA": true,
}

// Keywords followed by a table name.
var tableKeywords = map[string]bool{
	"TABLE": true, "EXPLAIN": true, "DESCRIBE": true, "DESC": true,
}

// Keywords followed by a table or view name.
var objectKeywords = map[string]bool{
	"FROM": true, "JOIN": true, "VIEW": true,
}

// Keywords followed by a column name.
var columnKeywords = map[string]bool{
	"SELECT": true, "WHERE": true, "ON": true, "AND": true, "OR": true,
	"HAVING": true, "BY": true,
}

// detectContext looks at the text before the prefix to determine what
// completions to offer.
func detectContext(before, prefix string) contextKind {
	ctxText := strings.TrimSpace(before[:len(before)-len(prefix)])
	if ctxText == "" {
		return contextGeneral
	}

	tokens := tokenize(ctxText)
	if len(tokens) == 0 {
		return contextGeneral
	}
	last := strings.ToUpper(tokens[len(tokens)-1])

	if last == "COLUMN" || (last == "DROP" && len(tokens) >= 3 &&
		strings.EqualFold(tokens[0], "ALTER") && strings.EqualFold(tokens[1], "TABLE")) {
		return contextAlterColumn
	}
	if kind, ok := keywordContext(last); ok {
		return kind
	}

	// Inside a comma separated list: find the keyword that opened it.
	if strings.HasSuffix(last, ",") {
		for i := len(tokens) - 1; i >= 0; i-- {
			tok := strings.ToUpper(strings.TrimRight(tokens[i], ","))
			if kind, ok := keywordContext(tok); ok {
				return kind
			}
		}
	}
	return contextGeneral
}

func keywordContext(tok string) (contextKind, bool) {
	switch {
	case databaseKeywords[tok]:
		return contextDatabase, true
	case tableKeywords[tok]:
		return contextTable, true
	case objectKeywords[tok]:
		return contextObject, true
	case columnKeywords[tok]:
		return contextColumn, true
	}
	return contextGeneral, false
}

// alterTarget returns the table named by a leading ALTER TABLE.
func alterTarget(before string) string {
	tokens := tokenize(before)
	if len(tokens) >= 3 && strings.EqualFold(tokens[0], "ALTER") && strings.EqualFold(tokens[1], "TABLE") {
		return strings.Trim(tokens[2], "`\"")
	}
	return ""
}

// extractPrefix returns the current word being typed and any dot-context.
// For "users.na", it returns prefix="na", dotContext="users".
func extractPrefix(before string) (prefix, dotContext string) {
	i := len(before) - 1
	for i >= 0 && !isWordBreak(rune(before[i])) {
		i--
	}
	word := before[i+1:]

	if dotIdx := strings.LastIndex(word, "."); dotIdx >= 0 {
		return word[dotIdx+1:], word[:dotIdx]
	}
	return word, ""
}

func isWordBreak(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.')
}

// insideStringLiteral checks if the cursor is inside an unmatched string literal.
func insideStringLiteral(before string) bool {
	return strings.Count(before, "'")%2 != 0
}

// tokenize splits text into rough SQL tokens (whitespace-separated).
func tokenize(text string) []string {
	return strings.Fields(text)
}

var (
	fromClauseRe = regexp.MustCompile(`(?i)\bFROM\s+([\w."]+(?:\s+(?:AS\s+)?[\w]+)?(?:\s*,\s*[\w."]+(?:\s+(?:AS\s+)?[\w]+)?)*)`)
	joinClauseRe = regexp.MustCompile(`(?i)\bJOIN\s+([\w."]+)`)
)

// parseFromTables extracts table names from FROM and JOIN clauses. Qualified
// names keep only the object name.
func parseFromTables(text string) []string {
	var tables []string
	seen := map[string]bool{}
	add := func(name string) {
		name = strings.Trim(name, `"`)
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		if name != "" && !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
	}

	for _, match := range fromClauseRe.FindAllStringSubmatch(text, -1) {
		for _, part := range strings.Split(match[1], ",") {
			if tokens := strings.Fields(part); len(tokens) > 0 {
				add(tokens[0])
			}
		}
	}
	for _, match := range joinClauseRe.FindAllStringSubmatch(text, -1) {
		add(match[1])
	}
	return tables
}

// completeDotAccess completes after "x.": the columns of table x, or the
// objects of the current database when x is a database name.
func (e *Engine) completeDotAccess(qualifier, prefix string) []Item {
	items := e.columnsForTable(qualifier)
	if items == nil && e.isDatabase(qualifier) {
		items = e.objectCompletions("")
	}
	if prefix == "" {
		return items
	}
	return fuzzyMatch(prefix, items)
}

func (e *Engine) isDatabase(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, db := range e.databases {
		if db == name {
			return true
		}
	}
	return false
}

func (e *Engine) columnsForTable(table string) []Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cols, ok := e.columns[table]
	if !ok {
		return nil
	}
	items := make([]Item, 0, len(cols))
	for _, c := range cols {
		detail := c.DataType
		if c.IsPrimaryKey {
			detail += " PK"
		}
		items = append(items, Item{Label: c.Name, Kind: KindColumn, Detail: table + " - " + detail})
	}
	return items
}

// objectCompletions lists the current database's objects of the given kind,
// or of every kind when kind is empty.
func (e *Engine) objectCompletions(kind schema.ObjectKind) []Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var items []Item
	for _, o := range e.objects {
		if kind != "" && o.Kind != kind {
			continue
		}
		k := KindTable
		if o.IsView() {
			k = KindView
		}
		items = append(items, Item{Label: o.Name, Kind: k, Detail: string(o.Kind)})
	}
	return items
}

func (e *Engine) databaseCompletions() []Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	items := make([]Item, 0, len(e.databases))
	for _, db := range e.databases {
		items = append(items, Item{Label: db, Kind: KindDatabase, Detail: "database"})
	}
	return items
}

func (e *Engine) keywordCompletions() []Item {
	items := make([]Item, 0, len(e.keywords))
	for _, kw := range e.keywords {
		items = append(items, Item{Label: kw, Kind: KindKeyword, Detail: "keyword"})
	}
	return items
}

func (e *Engine) functionCompletions() []Item {
	items := make([]Item, 0, len(e.functions))
	for _, fn := range e.functions {
		items = append(items, Item{Label: fn, Kind: KindFunction, Detail: "function"})
	}
	return items
}

// candidateLabels implements fuzzy.Source over lower-cased labels.
type candidateLabels []string

func (c candidateLabels) String(i int) string { return c[i] }
func (c candidateLabels) Len() int            { return len(c) }

// fuzzyMatch filters and ranks items by fuzzy matching against the prefix,
// case-insensitively.
func fuzzyMatch(prefix string, items []Item) []Item {
	if len(items) == 0 {
		return nil
	}

	labels := make(candidateLabels, len(items))
	for i, item := range items {
		labels[i] = strings.ToLower(item.Label)
	}

	matches := fuzzy.FindFrom(strings.ToLower(prefix), labels)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	result := make([]Item, 0, len(matches))
	for _, m := range matches {
		result = append(result, items[m.Index])
	}
	if len(result) > maxItems {
		result = result[:maxItems]
	}
	return result
}

// CommonPrefix returns the longest prefix shared by every label, compared
// case-insensitively and taken from the first item.
func CommonPrefix(items []Item) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0].Label
	for _, it := range items[1:] {
		n := 0
		for n < len(prefix) && n < len(it.Label) &&
			unicode.ToLower(rune(prefix[n])) == unicode.ToLower(rune(it.Label[n])) {
			n++
		}
		prefix = prefix[:n]
	}
	return prefix
}
