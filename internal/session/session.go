// Package session implements the catalog session: it holds the currently
// selected database and applies each parsed statement to the store as one
// transaction.
package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadopc/toydb/internal/catalogerr"
	"github.com/sadopc/toydb/internal/schema"
	"github.com/sadopc/toydb/internal/statement"
	"github.com/sadopc/toydb/internal/store"
)

// Result is the outcome of a successful statement. Columns and Rows are set
// for statements that list something; Message describes what changed.
type Result struct {
	Columns []string
	Rows    [][]string
	Message string
}

// Session applies statements for one caller. It is not safe for concurrent
// use; give every caller its own Session over a shared Store.
type Session struct {
	store   *store.Store
	current *schema.Database
	log     zerolog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for statement tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New creates a Session with no database selected.
func New(st *store.Store, opts ...Option) *Session {
	s := &Session{store: st, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentDatabaseName returns the name of the selected database.
func (s *Session) CurrentDatabaseName() (string, bool) {
	if s.current == nil {
		return "", false
	}
	return s.current.Name, true
}

// Handle applies one statement. Every change a statement makes commits
// together or not at all; after a failure the session stays usable and its
// current database is unchanged.
func (s *Session) Handle(ctx context.Context, stmt statement.Statement) (*Result, error) {
	start := time.Now()
	res, err := s.dispatch(ctx, stmt)

	ev := s.log.Debug()
	if err != nil {
		ev = s.log.Warn().Err(err).Stringer("error_kind", catalogerr.KindOf(err))
	}
	db, _ := s.CurrentDatabaseName()
	ev.Stringer("kind", stmt.Kind()).
		Str("database", db).
		Dur("duration", time.Since(start)).
		Msg("statement handled")

	return res, err
}

func (s *Session) dispatch(ctx context.Context, stmt statement.Statement) (*Result, error) {
	switch st := stmt.(type) {
	case *statement.CreateDatabase:
		return s.createDatabase(ctx, st)
	case *statement.DropDatabase:
		return s.dropDatabase(ctx, st)
	case *statement.Use:
		return s.use(ctx, st)
	case *statement.CreateTable:
		return s.createTable(ctx, st)
	case *statement.Drop:
		return s.drop(ctx, st)
	case *statement.AlterTable:
		return s.alterTable(ctx, st)
	case *statement.ShowTables:
		return s.showTables(ctx)
	case *statement.ExplainTable:
		return s.explainTable(ctx, st)
	case *statement.CreateView:
		return s.createView(ctx, st)
	case *statement.Other:
		return nil, catalogerr.Unsupported("statement " + st.Verb)
	default:
		return nil, catalogerr.Unsupported("statement " + stmt.Kind().String())
	}
}

// database returns the selected database or fails with NoDatabaseSelected.
func (s *Session) database() (schema.Database, error) {
	if s.current == nil {
		return schema.Database{}, catalogerr.NoDatabaseSelected()
	}
	return *s.current, nil
}

func okf(format string, args ...any) *Result {
	return &Result{Message: fmt.Sprintf(format, args...)}
}

// ---------------------------------------------------------------------------
// Databases
// ---------------------------------------------------------------------------

func (s *Session) createDatabase(ctx context.Context, st *statement.CreateDatabase) (*Result, error) {
	var db schema.Database
	skipped := false
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		if st.IfNotExists {
			if _, err := tx.DatabaseByName(ctx, st.Name); err == nil {
				skipped = true
				return nil
			} else if catalogerr.KindOf(err) != catalogerr.KindNotFound {
				return err
			}
		}
		var err error
		db, err = tx.CreateDatabase(ctx, st.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	if skipped {
		return okf("database `%s` already exists, skipped", st.Name), nil
	}

	if s.current == nil {
		s.current = &db
	}
	return okf("database `%s` created", st.Name), nil
}

func (s *Session) use(ctx context.Context, st *statement.Use) (*Result, error) {
	var db schema.Database
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		db, err = tx.DatabaseByName(ctx, st.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.current = &db
	return okf("database changed to `%s`", db.Name), nil
}

// dropDatabase removes a database and everything in it. Views go first,
// newest first, so views built on other views of the same database are
// released before their dependencies.
func (s *Session) dropDatabase(ctx context.Context, st *statement.DropDatabase) (*Result, error) {
	var db schema.Database
	skipped := false
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		db, err = tx.DatabaseByName(ctx, st.Name)
		if err != nil {
			if st.IfExists && catalogerr.KindOf(err) == catalogerr.KindNotFound {
				skipped = true
				return nil
			}
			return err
		}

		views, err := tx.Objects(ctx, store.ObjectFilter{DatabaseID: db.ID, Kind: schema.KindView})
		if err != nil {
			return err
		}
		sort.Slice(views, func(i, j int) bool { return views[i].ID > views[j].ID })
		for _, v := range views {
			if _, err := tx.DeleteObjects(ctx, store.ObjectFilter{DatabaseID: db.ID, Kind: schema.KindView, Name: v.Name}); err != nil {
				return err
			}
		}

		tables, err := tx.Objects(ctx, store.ObjectFilter{DatabaseID: db.ID, Kind: schema.KindTable})
		if err != nil {
			return err
		}
		for _, t := range tables {
			if _, err := tx.DeleteObjects(ctx, store.ObjectFilter{DatabaseID: db.ID, Kind: schema.KindTable, Name: t.Name}); err != nil {
				return err
			}
		}

		_, err = tx.DeleteDatabase(ctx, db.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if skipped {
		return okf("database `%s` does not exist, skipped", st.Name), nil
	}

	if s.current != nil && s.current.ID == db.ID {
		s.current = nil
	}
	return okf("database `%s` dropped", st.Name), nil
}

// ---------------------------------------------------------------------------
// Tables and views
// ---------------------------------------------------------------------------

// checkNameFree fails with AlreadyExists when an object of any kind already
// uses name in the database. ok is false when the name is taken and the
// statement asked to skip.
func checkNameFree(ctx context.Context, tx *store.Tx, dbID int64, name string, ifNotExists bool) (ok bool, err error) {
	existing, err := tx.FindObject(ctx, store.ObjectFilter{DatabaseID: dbID, Name: name})
	switch {
	case err == nil:
		if ifNotExists {
			return false, nil
		}
		return false, catalogerr.AlreadyExists(string(existing.Kind), name)
	case catalogerr.KindOf(err) == catalogerr.KindNotFound:
		return true, nil
	default:
		return false, err
	}
}

func (s *Session) createTable(ctx context.Context, st *statement.CreateTable) (*Result, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}

	created := true
	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		ok, err := checkNameFree(ctx, tx, db.ID, st.Name, st.IfNotExists)
		if err != nil || !ok {
			created = ok
			return err
		}

		tbl, err := tx.CreateObject(ctx, schema.Object{Kind: schema.KindTable, Name: st.Name, DatabaseID: db.ID})
		if err != nil {
			return err
		}
		for _, def := range st.Columns {
			if _, err := tx.CreateColumn(ctx, columnFromDef(tbl.ID, def)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return okf("table `%s` already exists, skipped", st.Name), nil
	}
	return okf("table `%s` created", st.Name), nil
}

func columnFromDef(tableID int64, def statement.ColumnDef) schema.Column {
	return schema.Column{
		TableID:      tableID,
		Name:         def.Name,
		DataType:     def.DataType,
		IsPrimaryKey: def.PrimaryKey,
	}
}

// drop deletes the named objects in order. A missing name aborts the whole
// statement unless IF EXISTS was given.
func (s *Session) drop(ctx context.Context, st *statement.Drop) (*Result, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}
	if st.Cascade {
		return nil, catalogerr.Unsupported("DROP " + string(st.ObjectKind) + " ... CASCADE")
	}

	dropped := 0
	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		for _, name := range st.Names {
			n, err := tx.DeleteObjects(ctx, store.ObjectFilter{DatabaseID: db.ID, Kind: st.ObjectKind, Name: name})
			if err != nil {
				return err
			}
			if n == 0 {
				if st.IfExists {
					continue
				}
				return catalogerr.NotFound(string(st.ObjectKind), name)
			}
			dropped++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return okf("%d %s(s) dropped", dropped, st.ObjectKind), nil
}

// alterTable applies the operations in order against the columns loaded
// when the statement started: a column added by an earlier operation cannot
// be dropped by a later one in the same statement.
func (s *Session) alterTable(ctx context.Context, st *statement.AlterTable) (*Result, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		tbl, err := tx.Table(ctx, db.ID, st.Name)
		if err != nil {
			return err
		}

		for _, op := range st.Operations {
			switch op.Kind {
			case statement.AlterAddColumn:
				if _, err := tx.CreateColumn(ctx, columnFromDef(tbl.ID, op.Column)); err != nil {
					return err
				}
			case statement.AlterDropColumn:
				col, ok := tbl.Column(op.ColumnName)
				if !ok {
					return catalogerr.NotFound("column", op.ColumnName)
				}
				n, err := tx.DeleteColumn(ctx, col.ID)
				if err != nil {
					return err
				}
				if n == 0 {
					return catalogerr.NotFound("column", op.ColumnName)
				}
			default:
				return catalogerr.Unsupported("ALTER TABLE operation " + op.Text)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return okf("table `%s` altered", st.Name), nil
}

// showTables lists the tables of the current database by name. Views are
// not listed.
func (s *Session) showTables(ctx context.Context) (*Result, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: []string{"table"}}
	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		tables, err := tx.Objects(ctx, store.ObjectFilter{DatabaseID: db.ID, Kind: schema.KindTable})
		if err != nil {
			return err
		}
		for _, t := range tables {
			res.Rows = append(res.Rows, []string{t.Name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// explainTable describes a table's columns: name, data type and "PRI" for
// primary key columns.
func (s *Session) explainTable(ctx context.Context, st *statement.ExplainTable) (*Result, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: []string{"column", "type", "key"}}
	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		tbl, err := tx.Table(ctx, db.ID, st.Name)
		if err != nil {
			return err
		}
		for _, c := range tbl.Columns {
			key := ""
			if c.IsPrimaryKey {
				key = "PRI"
			}
			res.Rows = append(res.Rows, []string{c.Name, c.DataType, key})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// createView records a view and one dependency per distinct object its query
// reads from. Qualified references resolve in the named database;
// unqualified ones anywhere in the store, preferring the current database.
func (s *Session) createView(ctx context.Context, st *statement.CreateView) (*Result, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}
	relations := st.Query.Relations()

	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		if _, err := checkNameFree(ctx, tx, db.ID, st.Name, false); err != nil {
			return err
		}

		var deps []int64
		seen := make(map[int64]bool)
		for _, rel := range relations {
			obj, err := resolve(ctx, tx, db.ID, rel)
			if err != nil {
				return err
			}
			if !seen[obj.ID] {
				seen[obj.ID] = true
				deps = append(deps, obj.ID)
			}
		}

		view, err := tx.CreateObject(ctx, schema.Object{
			Kind:       schema.KindView,
			Name:       st.Name,
			DatabaseID: db.ID,
			Definition: st.Query.String(),
		})
		if err != nil {
			return err
		}
		for _, id := range deps {
			if err := tx.CreateViewDependency(ctx, schema.ViewDependency{ViewID: view.ID, DependentObjectID: id}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return okf("view `%s` created", st.Name), nil
}

// resolve finds the object a view relation names.
func resolve(ctx context.Context, tx *store.Tx, currentID int64, rel statement.Relation) (schema.Object, error) {
	f := store.ObjectFilter{Name: rel.Name, PreferDatabaseID: currentID}
	if rel.Database != "" {
		db, err := tx.DatabaseByName(ctx, rel.Database)
		if catalogerr.KindOf(err) == catalogerr.KindNotFound {
			return schema.Object{}, catalogerr.NotFound("referenced object", rel.String())
		}
		if err != nil {
			return schema.Object{}, err
		}
		f.DatabaseID = db.ID
	}

	obj, err := tx.FindObject(ctx, f)
	if catalogerr.KindOf(err) == catalogerr.KindNotFound {
		return schema.Object{}, catalogerr.NotFound("referenced object", rel.String())
	}
	return obj, err
}

// Snapshot returns every database name and the objects and columns of the
// current database.
func (s *Session) Snapshot(ctx context.Context) (schema.Snapshot, error) {
	snap := schema.Snapshot{Columns: map[string][]schema.Column{}}
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		dbs, err := tx.Databases(ctx)
		if err != nil {
			return err
		}
		for _, db := range dbs {
			snap.Databases = append(snap.Databases, db.Name)
		}
		if s.current == nil {
			return nil
		}

		snap.Current = s.current.Name
		if snap.Objects, err = tx.Objects(ctx, store.ObjectFilter{DatabaseID: s.current.ID}); err != nil {
			return err
		}
		for _, obj := range snap.Objects {
			if obj.IsView() {
				continue
			}
			cols, err := tx.Columns(ctx, obj.ID)
			if err != nil {
				return err
			}
			snap.Columns[obj.Name] = cols
		}
		return nil
	})
	return snap, err
}
