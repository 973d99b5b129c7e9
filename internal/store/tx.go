package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/sadopc/toydb/internal/catalogerr"
	"github.com/sadopc/toydb/internal/schema"
)

// Tx is one unit of work against the catalog. Every mutation of a statement
// goes through a single Tx so the statement commits or rolls back as a whole.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
	done    bool
}

// Commit makes the unit of work durable.
func (t *Tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return t.fail("commit", err)
	}
	return nil
}

// Rollback discards the unit of work. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return catalogerr.StoreUnavailable("rollback", err)
	}
	return nil
}

// ObjectFilter selects catalog objects. Zero fields match anything.
type ObjectFilter struct {
	DatabaseID int64
	Kind       schema.ObjectKind
	Name       string

	// PreferDatabaseID orders matches from this database first.
	PreferDatabaseID int64
}

// where renders the filter as a WHERE clause; prefix qualifies the columns.
func (f ObjectFilter) where(prefix string) (string, []any) {
	var conds []string
	var args []any
	if f.DatabaseID != 0 {
		conds = append(conds, prefix+"database_id = ?")
		args = append(args, f.DatabaseID)
	}
	if f.Kind != "" {
		conds = append(conds, prefix+"kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Name != "" {
		conds = append(conds, prefix+"name = ?")
		args = append(args, f.Name)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (f ObjectFilter) describe() (kind, name string) {
	kind = "object"
	if f.Kind != "" {
		kind = string(f.Kind)
	}
	return kind, f.Name
}

// ---------------------------------------------------------------------------
// Databases
// ---------------------------------------------------------------------------

// CreateDatabase inserts a database row.
func (t *Tx) CreateDatabase(ctx context.Context, name string) (schema.Database, error) {
	id, err := t.dialect.InsertID(ctx, t.tx,
		t.q("INSERT INTO catalog_database (name) VALUES (?)"), name)
	if err != nil {
		if t.dialect.Classify(err) == ViolationUnique {
			return schema.Database{}, catalogerr.AlreadyExists("database", name)
		}
		return schema.Database{}, t.fail("create database", err)
	}
	return schema.Database{ID: id, Name: name}, nil
}

// DatabaseByName looks a database up by its unique name.
func (t *Tx) DatabaseByName(ctx context.Context, name string) (schema.Database, error) {
	var db schema.Database
	err := t.tx.QueryRowContext(ctx,
		t.q("SELECT id, name FROM catalog_database WHERE name = ?"), name,
	).Scan(&db.ID, &db.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Database{}, catalogerr.NotFound("database", name)
	}
	if err != nil {
		return schema.Database{}, t.fail("find database", err)
	}
	return db, nil
}

// Databases lists every database ordered by name.
func (t *Tx) Databases(ctx context.Context) ([]schema.Database, error) {
	rows, err := t.tx.QueryContext(ctx, "SELECT id, name FROM catalog_database ORDER BY name")
	if err != nil {
		return nil, t.fail("list databases", err)
	}
	defer rows.Close()

	var dbs []schema.Database
	for rows.Next() {
		var db schema.Database
		if err := rows.Scan(&db.ID, &db.Name); err != nil {
			return nil, t.fail("scan database", err)
		}
		dbs = append(dbs, db)
	}
	if err := rows.Err(); err != nil {
		return nil, t.fail("list databases", err)
	}
	return dbs, nil
}

// DeleteDatabase deletes a database row and reports the rows affected. The
// database must be empty; objects restrict its deletion.
func (t *Tx) DeleteDatabase(ctx context.Context, id int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, t.q("DELETE FROM catalog_database WHERE id = ?"), id)
	if err != nil {
		if t.dialect.Classify(err) == ViolationForeignKey {
			return 0, catalogerr.ConstraintViolation("database still contains objects", err)
		}
		return 0, t.fail("delete database", err)
	}
	return t.affected("delete database", res)
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

// CreateObject inserts an object together with its kind-specific row: a
// catalog_table row for tables, a catalog_view row carrying the definition
// for views. The returned object has its id assigned.
func (t *Tx) CreateObject(ctx context.Context, obj schema.Object) (schema.Object, error) {
	if !obj.Kind.Valid() {
		return schema.Object{}, errors.AssertionFailedf("invalid object kind %q", obj.Kind)
	}

	id, err := t.dialect.InsertID(ctx, t.tx,
		t.q("INSERT INTO catalog_object (kind, name, database_id) VALUES (?, ?, ?)"),
		string(obj.Kind), obj.Name, obj.DatabaseID)
	if err != nil {
		if t.dialect.Classify(err) == ViolationUnique {
			return schema.Object{}, catalogerr.AlreadyExists(string(obj.Kind), obj.Name)
		}
		return schema.Object{}, t.fail("create "+string(obj.Kind), err)
	}
	obj.ID = id

	switch obj.Kind {
	case schema.KindTable:
		_, err = t.tx.ExecContext(ctx, t.q("INSERT INTO catalog_table (object_id) VALUES (?)"), id)
	case schema.KindView:
		_, err = t.tx.ExecContext(ctx,
			t.q("INSERT INTO catalog_view (object_id, definition) VALUES (?, ?)"), id, obj.Definition)
	}
	if err != nil {
		return schema.Object{}, t.fail("create "+string(obj.Kind), err)
	}
	return obj, nil
}

const selectObject = `SELECT o.id, o.kind, o.name, o.database_id, COALESCE(v.definition, '')
FROM catalog_object o
LEFT JOIN catalog_view v ON v.object_id = o.id`

// FindObject returns the first object matching f.
func (t *Tx) FindObject(ctx context.Context, f ObjectFilter) (schema.Object, error) {
	where, args := f.where("o.")
	query := selectObject + where
	if f.PreferDatabaseID != 0 {
		query += " ORDER BY CASE WHEN o.database_id = ? THEN 0 ELSE 1 END, o.id"
		args = append(args, f.PreferDatabaseID)
	} else {
		query += " ORDER BY o.id"
	}
	query += " LIMIT 1"

	obj, err := scanObject(t.tx.QueryRowContext(ctx, t.q(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		kind, name := f.describe()
		return schema.Object{}, catalogerr.NotFound(kind, name)
	}
	if err != nil {
		return schema.Object{}, t.fail("find object", err)
	}
	return obj, nil
}

// Objects lists the objects matching f ordered by name.
func (t *Tx) Objects(ctx context.Context, f ObjectFilter) ([]schema.Object, error) {
	where, args := f.where("o.")
	rows, err := t.tx.QueryContext(ctx, t.q(selectObject+where+" ORDER BY o.name, o.id"), args...)
	if err != nil {
		return nil, t.fail("list objects", err)
	}
	defer rows.Close()

	var objs []schema.Object
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, t.fail("scan object", err)
		}
		objs = append(objs, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, t.fail("list objects", err)
	}
	return objs, nil
}

// DeleteObjects deletes the objects matching f and reports the rows
// affected. Extension rows, columns and the dependencies of a dropped view go
// with them; an object a view depends on cannot be deleted.
func (t *Tx) DeleteObjects(ctx context.Context, f ObjectFilter) (int64, error) {
	where, args := f.where("")
	if where == "" {
		return 0, errors.AssertionFailedf("refusing to delete objects without a filter")
	}
	res, err := t.tx.ExecContext(ctx, t.q("DELETE FROM catalog_object"+where), args...)
	if err != nil {
		if t.dialect.Classify(err) == ViolationForeignKey {
			kind, name := f.describe()
			return 0, errors.WithHint(
				catalogerr.ConstraintViolation(fmt.Sprintf("cannot drop %s `%s`: a view depends on it", kind, name), err),
				"drop the dependent views first",
			)
		}
		return 0, t.fail("delete object", err)
	}
	return t.affected("delete object", res)
}

// Table looks a table up by name within a database and loads its columns.
func (t *Tx) Table(ctx context.Context, databaseID int64, name string) (schema.Table, error) {
	var obj schema.Object
	var kind string
	err := t.tx.QueryRowContext(ctx, t.q(`SELECT o.id, o.kind, o.name, o.database_id
FROM catalog_table t
JOIN catalog_object o ON o.id = t.object_id
WHERE o.database_id = ? AND o.kind = ? AND o.name = ?`),
		databaseID, string(schema.KindTable), name,
	).Scan(&obj.ID, &kind, &obj.Name, &obj.DatabaseID)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Table{}, catalogerr.NotFound("table", name)
	}
	if err != nil {
		return schema.Table{}, t.fail("find table", err)
	}
	obj.Kind = schema.ObjectKind(kind)

	cols, err := t.Columns(ctx, obj.ID)
	if err != nil {
		return schema.Table{}, err
	}
	return schema.Table{Object: obj, Columns: cols}, nil
}

// ---------------------------------------------------------------------------
// Columns
// ---------------------------------------------------------------------------

// CreateColumn inserts a column into an existing table.
func (t *Tx) CreateColumn(ctx context.Context, col schema.Column) (schema.Column, error) {
	id, err := t.dialect.InsertID(ctx, t.tx,
		t.q("INSERT INTO catalog_column (table_id, name, data_type, is_primary_key) VALUES (?, ?, ?, ?)"),
		col.TableID, col.Name, col.DataType, col.IsPrimaryKey)
	if err != nil {
		switch t.dialect.Classify(err) {
		case ViolationUnique:
			return schema.Column{}, catalogerr.AlreadyExists("column", col.Name)
		case ViolationForeignKey:
			return schema.Column{}, catalogerr.ConstraintViolation(
				fmt.Sprintf("column `%s` references a missing table", col.Name), err)
		}
		return schema.Column{}, t.fail("create column", err)
	}
	col.ID = id
	return col, nil
}

// Columns lists a table's columns in declaration order.
func (t *Tx) Columns(ctx context.Context, tableID int64) ([]schema.Column, error) {
	rows, err := t.tx.QueryContext(ctx,
		t.q("SELECT id, table_id, name, data_type, is_primary_key FROM catalog_column WHERE table_id = ? ORDER BY id"),
		tableID)
	if err != nil {
		return nil, t.fail("list columns", err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var c schema.Column
		if err := rows.Scan(&c.ID, &c.TableID, &c.Name, &c.DataType, &c.IsPrimaryKey); err != nil {
			return nil, t.fail("scan column", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, t.fail("list columns", err)
	}
	return cols, nil
}

// DeleteColumn deletes a column by id and reports the rows affected.
func (t *Tx) DeleteColumn(ctx context.Context, id int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, t.q("DELETE FROM catalog_column WHERE id = ?"), id)
	if err != nil {
		return 0, t.fail("delete column", err)
	}
	return t.affected("delete column", res)
}

// ---------------------------------------------------------------------------
// View dependencies
// ---------------------------------------------------------------------------

// CreateViewDependency records that a view reads from another object.
func (t *Tx) CreateViewDependency(ctx context.Context, dep schema.ViewDependency) error {
	_, err := t.tx.ExecContext(ctx,
		t.q("INSERT INTO catalog_view_dependency (view_id, dependent_object_id) VALUES (?, ?)"),
		dep.ViewID, dep.DependentObjectID)
	if err != nil {
		switch t.dialect.Classify(err) {
		case ViolationUnique:
			return catalogerr.AlreadyExists("view dependency", fmt.Sprintf("%d -> %d", dep.ViewID, dep.DependentObjectID))
		case ViolationForeignKey:
			return catalogerr.ConstraintViolation("view dependency references a missing object", err)
		}
		return t.fail("create view dependency", err)
	}
	return nil
}

// ViewDependencies lists the objects a view depends on.
func (t *Tx) ViewDependencies(ctx context.Context, viewID int64) ([]schema.ViewDependency, error) {
	rows, err := t.tx.QueryContext(ctx,
		t.q("SELECT view_id, dependent_object_id FROM catalog_view_dependency WHERE view_id = ? ORDER BY dependent_object_id"),
		viewID)
	if err != nil {
		return nil, t.fail("list view dependencies", err)
	}
	defer rows.Close()

	var deps []schema.ViewDependency
	for rows.Next() {
		var d schema.ViewDependency
		if err := rows.Scan(&d.ViewID, &d.DependentObjectID); err != nil {
			return nil, t.fail("scan view dependency", err)
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, t.fail("list view dependencies", err)
	}
	return deps, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (t *Tx) q(query string) string {
	return t.dialect.Rebind(query)
}

// fail turns a driver error into a catalog failure. Integrity violations the
// caller did not anticipate become ConstraintViolation; everything else is a
// backend fault.
func (t *Tx) fail(op string, err error) error {
	if t.dialect.Classify(err) != ViolationNone {
		return catalogerr.ConstraintViolation(op, err)
	}
	return catalogerr.StoreUnavailable(op, err)
}

func (t *Tx) affected(op string, res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, t.fail(op, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row rowScanner) (schema.Object, error) {
	var obj schema.Object
	var kind string
	if err := row.Scan(&obj.ID, &kind, &obj.Name, &obj.DatabaseID, &obj.Definition); err != nil {
		return schema.Object{}, err
	}
	obj.Kind = schema.ObjectKind(kind)
	return obj, nil
}
