// Package schema holds the catalog entities persisted by the store: databases,
// the objects (tables and views) they contain, table columns and the
// dependencies recorded between views and the objects they read from.
package schema

// ObjectKind tags an Object as a table or a view.
type ObjectKind string

const (
	KindTable ObjectKind = "table"
	KindView  ObjectKind = "view"
)

func (k ObjectKind) String() string { return string(k) }

// Valid reports whether k is one of the known object kinds.
func (k ObjectKind) Valid() bool {
	return k == KindTable || k == KindView
}

// Database is a namespace for objects.
type Database struct {
	ID   int64
	Name string
}

// Object is the identity record of a named table or view. Definition holds
// the canonical text of the defining query and is only set for views.
type Object struct {
	ID         int64
	Kind       ObjectKind
	Name       string
	DatabaseID int64
	Definition string
}

// IsView reports whether the object is a view.
func (o Object) IsView() bool { return o.Kind == KindView }

// Column belongs to exactly one table.
type Column struct {
	ID           int64
	TableID      int64
	Name         string
	DataType     string
	IsPrimaryKey bool
}

// ViewDependency records that view ViewID reads from DependentObjectID.
type ViewDependency struct {
	ViewID            int64
	DependentObjectID int64
}

// Table is a table object together with its columns in declaration order.
type Table struct {
	Object
	Columns []Column
}

// Column returns the column with the given name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Snapshot is a read-only view of the catalog as seen from a session: every
// database name plus the objects and columns of the current database.
type Snapshot struct {
	Databases []string
	Current   string
	Objects   []Object
	Columns   map[string][]Column // table name -> columns
}
