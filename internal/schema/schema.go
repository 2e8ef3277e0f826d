// Package schema folds classified JSON values into a converging relational
// schema. The accumulator is an explicit context object so concurrent
// extractions never share state.
package schema

import (
	"strings"

	"github.com/openlibdata/ldx/internal/jsonval"
	"github.com/openlibdata/ldx/internal/names"
)

// ColumnType is the inferred SQL-facing type of a column. Types widen
// monotonically and never narrow.
type ColumnType uint8

const (
	TypeUnknown ColumnType = iota // only null values observed so far
	TypeBool
	TypeInt
	TypeFloat
	TypeTimestamp
	TypeText
	TypeJSON // raw JSON fallback
)

func (t ColumnType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeTimestamp:
		return "timestamp"
	case TypeText:
		return "text"
	case TypeJSON:
		return "json"
	}
	return "unknown"
}

// TypeOf maps a value classification to a column type. Null values carry no
// type information.
func TypeOf(k jsonval.Kind) ColumnType {
	switch k {
	case jsonval.Bool:
		return TypeBool
	case jsonval.Int:
		return TypeInt
	case jsonval.Float:
		return TypeFloat
	case jsonval.Timestamp:
		return TypeTimestamp
	case jsonval.Text:
		return TypeText
	case jsonval.Object, jsonval.Array:
		return TypeJSON
	}
	return TypeUnknown
}

// Widen returns the narrowest type that can hold both a and b. Int widens
// to Float, everything else incompatible widens to Text, and any conflict
// involving raw JSON stays raw JSON.
func Widen(a, b ColumnType) ColumnType {
	if a == b {
		return a
	}
	if a == TypeUnknown {
		return b
	}
	if b == TypeUnknown {
		return a
	}
	if a == TypeJSON || b == TypeJSON {
		return TypeJSON
	}
	if (a == TypeInt && b == TypeFloat) || (a == TypeFloat && b == TypeInt) {
		return TypeFloat
	}
	return TypeText
}

// Column is one column of a table descriptor. Key is the original JSON key,
// empty for the reserved surrogate and parent key columns.
type Column struct {
	Name string
	Key  string
	Type ColumnType
}

// Table is the descriptor for one nesting path. Columns are append-only so
// generated DDL stays stable across a run.
type Table struct {
	Name    string
	Path    []string
	Parent  *Table
	Columns []*Column

	byName map[string]*Column
}

// Column returns the column with the given allocated name, or nil.
func (t *Table) Column(name string) *Column {
	return t.byName[name]
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

func (t *Table) addColumn(c *Column) {
	t.Columns = append(t.Columns, c)
	t.byName[c.Name] = c
}

// NewRawTable returns the fixed descriptor for a shadow JSON table: the
// surrogate key plus the serialized source document.
func NewRawTable(name string) *Table {
	t := &Table{Name: name, byName: make(map[string]*Column)}
	t.addColumn(&Column{Name: names.ID, Type: TypeInt})
	t.addColumn(&Column{Name: "jsonb", Type: TypeJSON})
	return t
}

// Accumulator maintains the table descriptors for one extraction run.
type Accumulator struct {
	alloc  *names.Allocator
	root   string
	tables map[string]*Table
	order  []*Table
}

// NewAccumulator creates an accumulator rooted at the caller-supplied table
// label.
func NewAccumulator(root string, alloc *names.Allocator) *Accumulator {
	return &Accumulator{
		alloc:  alloc,
		root:   root,
		tables: make(map[string]*Table),
	}
}

func pathKey(path []string) string {
	return strings.Join(path, "\x00")
}

// Root returns the descriptor for the top-level table, creating it on first
// use.
func (a *Accumulator) Root() (*Table, error) {
	return a.Table(nil, nil)
}

// Table returns the descriptor at the given nesting path, creating it with a
// parent link on first encounter. Descriptors are never deleted during a
// run, so an array path observed empty still produces a table.
func (a *Accumulator) Table(path []string, parent *Table) (*Table, error) {
	key := pathKey(path)
	if t, ok := a.tables[key]; ok {
		return t, nil
	}
	name, err := a.alloc.Table(a.root, path)
	if err != nil {
		return nil, err
	}
	t := &Table{
		Name:   name,
		Path:   path,
		Parent: parent,
		byName: make(map[string]*Column),
	}
	t.addColumn(&Column{Name: names.ID, Type: TypeInt})
	if parent != nil {
		t.addColumn(&Column{Name: names.ParentID, Type: TypeInt})
	}
	a.tables[key] = t
	a.order = append(a.order, t)
	return t, nil
}

// Observe records a value for a JSON key within a table, appending a new
// column or widening the existing one. It returns the column so callers can
// place the row value.
func (a *Accumulator) Observe(t *Table, key string, k jsonval.Kind) (*Column, error) {
	name, err := a.alloc.Column(t.Name, key)
	if err != nil {
		return nil, err
	}
	if c := t.byName[name]; c != nil {
		c.Type = Widen(c.Type, TypeOf(k))
		return c, nil
	}
	c := &Column{Name: name, Key: key, Type: TypeOf(k)}
	t.addColumn(c)
	return c, nil
}

// Tables returns all descriptors in first-seen order.
func (a *Accumulator) Tables() []*Table {
	return a.order
}
