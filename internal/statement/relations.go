package statement

import (
	"strings"

	"github.com/auxten/postgresql-parser/pkg/sql/parser"
	"github.com/auxten/postgresql-parser/pkg/sql/sem/tree"
)

// parsedRelations extracts relations from the PostgreSQL syntax tree of the
// query. It reports false when the grammar rejects the query or the query
// is not a SELECT.
func (q *Query) parsedRelations() ([]Relation, bool) {
	stmts, err := parser.Parse(q.parserText())
	if err != nil || len(stmts) != 1 {
		return nil, false
	}
	switch stmts[0].AST.(type) {
	case *tree.Select, *tree.ParenSelect:
	default:
		return nil, false
	}

	w := &relationWalker{}
	w.walk(stmts[0].AST, nil)
	return w.rels, true
}

// parserText renders the query for the PostgreSQL grammar. Identifiers it
// would case-fold, and identifiers quoted with another character, are
// double quoted so names come back as written.
func (q *Query) parserText() string {
	return q.render(func(t Token) string {
		switch t.Kind {
		case TokenIdent:
			if strings.ToLower(t.Text) == t.Text {
				return t.Text
			}
			return doubleQuote(t.Text)
		case TokenQuotedIdent:
			return doubleQuote(t.Text)
		}
		return t.String()
	})
}

func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// withNames is the set of WITH names visible at a point of the tree.
type withNames map[string]bool

func (n withNames) with(name string) withNames {
	out := make(withNames, len(n)+1)
	for k := range n {
		out[k] = true
	}
	out[name] = true
	return out
}

// relationWalker collects table references in source order.
type relationWalker struct {
	rels []Relation
}

func (w *relationWalker) walk(node any, names withNames) {
	switch n := node.(type) {
	case *tree.Select:
		if n == nil {
			return
		}
		names = w.withClause(n.With, names)
		w.walk(n.Select, names)
		for _, o := range n.OrderBy {
			w.expr(o.Expr, names)
		}

	case *tree.ParenSelect:
		if n != nil {
			w.walk(n.Select, names)
		}

	case *tree.SelectClause:
		if n == nil {
			return
		}
		for _, e := range n.Exprs {
			w.expr(e.Expr, names)
		}
		for _, t := range n.From.Tables {
			w.walk(t, names)
		}
		if n.Where != nil {
			w.expr(n.Where.Expr, names)
		}
		w.exprs(n.GroupBy, names)
		if n.Having != nil {
			w.expr(n.Having.Expr, names)
		}

	case *tree.UnionClause:
		if n != nil {
			w.walk(n.Left, names)
			w.walk(n.Right, names)
		}

	case *tree.ValuesClause:
		if n != nil {
			for _, row := range n.Rows {
				w.exprs(row, names)
			}
		}

	case *tree.AliasedTableExpr:
		if n != nil {
			w.walk(n.Expr, names)
		}

	case *tree.ParenTableExpr:
		if n != nil {
			w.walk(n.Expr, names)
		}

	case *tree.JoinTableExpr:
		if n == nil {
			return
		}
		w.walk(n.Left, names)
		w.walk(n.Right, names)
		if on, ok := n.Cond.(*tree.OnJoinCond); ok {
			w.expr(on.Expr, names)
		}

	case *tree.Subquery:
		if n != nil {
			w.walk(n.Select, names)
		}

	case *tree.StatementSource:
		if n != nil {
			w.walk(n.Statement, names)
		}

	case *tree.RowsFromExpr:
		if n != nil {
			w.exprs(n.Items, names)
		}

	case *tree.TableName:
		if n == nil {
			return
		}
		rel := Relation{Name: n.Table()}
		if n.ExplicitSchema {
			rel.Database = n.Schema()
		}
		if rel.Database == "" && names[rel.Name] {
			return
		}
		w.rels = append(w.rels, rel)
	}
}

// withClause walks the CTE bodies and returns the names visible after the
// clause. A name is visible in later bodies, and in its own body too when
// the clause is RECURSIVE.
func (w *relationWalker) withClause(with *tree.With, names withNames) withNames {
	if with == nil {
		return names
	}
	if with.Recursive {
		for _, cte := range with.CTEList {
			names = names.with(string(cte.Name.Alias))
		}
	}
	for _, cte := range with.CTEList {
		w.walk(cte.Stmt, names)
		names = names.with(string(cte.Name.Alias))
	}
	return names
}

func (w *relationWalker) exprs(exprs []tree.Expr, names withNames) {
	for _, e := range exprs {
		w.expr(e, names)
	}
}

// expr walks subqueries nested anywhere in e.
func (w *relationWalker) expr(e tree.Expr, names withNames) {
	if e == nil {
		return
	}
	tree.WalkExpr(&subqueryVisitor{w: w, names: names}, e)
}

type subqueryVisitor struct {
	w     *relationWalker
	names withNames
}

func (v *subqueryVisitor) VisitPre(expr tree.Expr) (recurse bool, newExpr tree.Expr) {
	if sq, ok := expr.(*tree.Subquery); ok {
		v.w.walk(sq.Select, v.names)
		return false, expr
	}
	return true, expr
}

func (v *subqueryVisitor) VisitPost(expr tree.Expr) tree.Expr { return expr }
