// Package statement models the parsed DDL statements the catalog session
// handles. Every statement kind has its own struct; Kind enumerates them.
package statement

import (
	"regexp"
	"strings"

	"github.com/sadopc/toydb/internal/schema"
)

// Kind enumerates the statement shapes.
type Kind int

const (
	KindOther Kind = iota
	KindCreateDatabase
	KindDropDatabase
	KindUse
	KindCreateTable
	KindDrop
	KindAlterTable
	KindShowTables
	KindExplainTable
	KindCreateView
)

func (k Kind) String() string {
	switch k {
	case KindCreateDatabase:
		return "CREATE DATABASE"
	case KindDropDatabase:
		return "DROP DATABASE"
	case KindUse:
		return "USE"
	case KindCreateTable:
		return "CREATE TABLE"
	case KindDrop:
		return "DROP"
	case KindAlterTable:
		return "ALTER TABLE"
	case KindShowTables:
		return "SHOW TABLES"
	case KindExplainTable:
		return "EXPLAIN TABLE"
	case KindCreateView:
		return "CREATE VIEW"
	default:
		return "OTHER"
	}
}

// Statement is one parsed statement. String renders it back as SQL.
type Statement interface {
	Kind() Kind
	String() string
}

// CreateDatabase is CREATE DATABASE [IF NOT EXISTS] name.
type CreateDatabase struct {
	Name        string
	IfNotExists bool
}

func (s *CreateDatabase) Kind() Kind { return KindCreateDatabase }

func (s *CreateDatabase) String() string {
	return "CREATE DATABASE " + ifNotExists(s.IfNotExists) + QuoteIdent(s.Name)
}

// DropDatabase is DROP DATABASE [IF EXISTS] name.
type DropDatabase struct {
	Name     string
	IfExists bool
}

func (s *DropDatabase) Kind() Kind { return KindDropDatabase }

func (s *DropDatabase) String() string {
	return "DROP DATABASE " + ifExists(s.IfExists) + QuoteIdent(s.Name)
}

// Use is USE name.
type Use struct {
	Name string
}

func (s *Use) Kind() Kind     { return KindUse }
func (s *Use) String() string { return "USE " + QuoteIdent(s.Name) }

// ColumnDef is one column definition of CREATE TABLE or ALTER TABLE ADD.
// DataType is the rendered type, upper-cased with its arguments.
type ColumnDef struct {
	Name       string
	DataType   string
	PrimaryKey bool
	NotNull    bool
	Unique     bool
	Default    string
}

func (c ColumnDef) String() string {
	var b strings.Builder
	b.WriteString(QuoteIdent(c.Name))
	b.WriteByte(' ')
	b.WriteString(c.DataType)
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Unique {
		b.WriteString(" UNIQUE")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

// CreateTable is CREATE TABLE [IF NOT EXISTS] name (columns).
type CreateTable struct {
	Name        string
	IfNotExists bool
	Columns     []ColumnDef
}

func (s *CreateTable) Kind() Kind { return KindCreateTable }

func (s *CreateTable) String() string {
	defs := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		defs[i] = c.String()
	}
	return "CREATE TABLE " + ifNotExists(s.IfNotExists) + QuoteIdent(s.Name) +
		" (" + strings.Join(defs, ", ") + ")"
}

// Drop is DROP TABLE|VIEW [IF EXISTS] name, ... [CASCADE].
type Drop struct {
	ObjectKind schema.ObjectKind
	Names      []string
	IfExists   bool
	Cascade    bool
}

func (s *Drop) Kind() Kind { return KindDrop }

func (s *Drop) String() string {
	names := make([]string, len(s.Names))
	for i, n := range s.Names {
		names[i] = QuoteIdent(n)
	}
	out := "DROP " + strings.ToUpper(string(s.ObjectKind)) + " " + ifExists(s.IfExists) + strings.Join(names, ", ")
	if s.Cascade {
		out += " CASCADE"
	}
	return out
}

// AlterOpKind is the kind of one ALTER TABLE operation.
type AlterOpKind int

const (
	AlterOther AlterOpKind = iota
	AlterAddColumn
	AlterDropColumn
)

// AlterOp is one operation of ALTER TABLE. Column is set for AlterAddColumn,
// ColumnName for AlterDropColumn and Text, the operation as written, for
// AlterOther.
type AlterOp struct {
	Kind       AlterOpKind
	Column     ColumnDef
	ColumnName string
	Text       string
}

func (op AlterOp) String() string {
	switch op.Kind {
	case AlterAddColumn:
		return "ADD COLUMN " + op.Column.String()
	case AlterDropColumn:
		return "DROP COLUMN " + QuoteIdent(op.ColumnName)
	default:
		return op.Text
	}
}

// AlterTable is ALTER TABLE name op, op, ...
type AlterTable struct {
	Name       string
	Operations []AlterOp
}

func (s *AlterTable) Kind() Kind { return KindAlterTable }

func (s *AlterTable) String() string {
	ops := make([]string, len(s.Operations))
	for i, op := range s.Operations {
		ops[i] = op.String()
	}
	return "ALTER TABLE " + QuoteIdent(s.Name) + " " + strings.Join(ops, ", ")
}

// ShowTables is SHOW TABLES.
type ShowTables struct{}

func (s *ShowTables) Kind() Kind     { return KindShowTables }
func (s *ShowTables) String() string { return "SHOW TABLES" }

// ExplainTable is EXPLAIN [TABLE] name, DESCRIBE name or DESC name.
type ExplainTable struct {
	Name string
}

func (s *ExplainTable) Kind() Kind     { return KindExplainTable }
func (s *ExplainTable) String() string { return "EXPLAIN TABLE " + QuoteIdent(s.Name) }

// CreateView is CREATE VIEW name AS query.
type CreateView struct {
	Name  string
	Query *Query
}

func (s *CreateView) Kind() Kind { return KindCreateView }

func (s *CreateView) String() string {
	return "CREATE VIEW " + QuoteIdent(s.Name) + " AS " + s.Query.String()
}

// Other is any statement the catalog does not model. Verb is its leading
// keyword, upper-cased.
type Other struct {
	Verb string
	Text string
}

func (s *Other) Kind() Kind     { return KindOther }
func (s *Other) String() string { return s.Text }

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// QuoteIdent returns name as written in SQL, double-quoting it unless it is
// a plain identifier.
func QuoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func ifExists(b bool) string {
	if b {
		return "IF EXISTS "
	}
	return ""
}

func ifNotExists(b bool) string {
	if b {
		return "IF NOT EXISTS "
	}
	return ""
}
