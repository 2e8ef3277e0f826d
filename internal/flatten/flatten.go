// Package flatten decomposes JSON documents into relational rows. One
// document becomes a row in the root table, one row in the shadow JSON
// table, and one row per element of every nested array or object, wired
// together with surrogate keys.
package flatten

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/openlibdata/ldx/internal/jsonval"
	"github.com/openlibdata/ldx/internal/names"
	"github.com/openlibdata/ldx/internal/schema"
)

// Row is one materializable row. Values are keyed by allocated column name;
// columns added to the table after this row was flattened read back as NULL.
type Row struct {
	Table  *schema.Table
	Values map[string]any
}

// RowSet is the result of flattening one or more documents.
type RowSet struct {
	tables []*schema.Table
	seen   map[string]bool
	rows   map[string][]*Row
}

func newRowSet() *RowSet {
	return &RowSet{
		seen: make(map[string]bool),
		rows: make(map[string][]*Row),
	}
}

func (rs *RowSet) add(r *Row) {
	if !rs.seen[r.Table.Name] {
		rs.seen[r.Table.Name] = true
		rs.tables = append(rs.tables, r.Table)
	}
	rs.rows[r.Table.Name] = append(rs.rows[r.Table.Name], r)
}

// Tables returns the tables that received rows, in first-seen order.
func (rs *RowSet) Tables() []*schema.Table {
	return rs.tables
}

// Rows returns the rows for a table in document order.
func (rs *RowSet) Rows(table string) []*Row {
	return rs.rows[table]
}

// Len returns the total number of rows in the set.
func (rs *RowSet) Len() int {
	var n int
	for _, rows := range rs.rows {
		n += len(rows)
	}
	return n
}

// Flattener turns documents into rows against a shared schema accumulator.
// Surrogate keys are assigned per table in monotonic document order, so
// flattening is deterministic for a given input order.
type Flattener struct {
	acc    *schema.Accumulator
	shadow *schema.Table
	seq    map[string]int64
}

// New creates a flattener for the given root table label. If shadow is
// non-empty, every document also produces a row in the shadow JSON table of
// that name, keyed by the same surrogate as its root row.
func New(table string, shadow string, alloc *names.Allocator) (*Flattener, error) {
	if alloc == nil {
		alloc = names.New(0)
	}
	f := &Flattener{
		acc: schema.NewAccumulator(table, alloc),
		seq: make(map[string]int64),
	}
	if _, err := f.acc.Root(); err != nil {
		return nil, err
	}
	if shadow != "" {
		f.shadow = schema.NewRawTable(shadow)
	}
	return f, nil
}

// Tables returns every table descriptor created so far, shadow table first,
// then flattened tables in first-seen path order. Descriptors whose paths
// only ever held empty arrays are included.
func (f *Flattener) Tables() []*schema.Table {
	var out []*schema.Table
	if f.shadow != nil {
		out = append(out, f.shadow)
	}
	return append(out, f.acc.Tables()...)
}

func (f *Flattener) next(t *schema.Table) int64 {
	f.seq[t.Name]++
	return f.seq[t.Name]
}

type rowMode uint8

const (
	objectRow rowMode = iota // value is an object; one column per key
	valueRow                 // scalar array element; single value column
	rawRow                   // mixed array element; raw JSON value column
)

// task is one pending row. Traversal uses an explicit FIFO work list
// instead of recursion so document depth never grows the call stack.
type task struct {
	table  *schema.Table
	parent int64
	value  gjson.Result
	mode   rowMode
	key    string // value column key for valueRow and rawRow
}

// Flatten decomposes a single document. The schema accumulator is mutated
// as new paths, columns, or wider types are observed; the returned rows are
// purely a function of the document and prior surrogate counters.
func (f *Flattener) Flatten(doc gjson.Result) (*RowSet, error) {
	rs := newRowSet()
	root, err := f.acc.Root()
	if err != nil {
		return nil, err
	}
	id := f.next(root)
	if f.shadow != nil {
		rs.add(&Row{Table: f.shadow, Values: map[string]any{
			names.ID: id,
			"jsonb":  json.RawMessage(doc.Raw),
		}})
	}

	rootTask := task{table: root, value: doc, mode: objectRow}
	if !doc.IsObject() {
		// non-object documents land in a single value column; the shadow
		// table keeps full fidelity
		rootTask.key = "value"
		if doc.IsArray() {
			rootTask.mode = rawRow
		} else {
			rootTask.mode = valueRow
		}
	}
	queue := []task{rootTask}
	first := true
	for len(queue) > 0 {
		tk := queue[0]
		queue = queue[1:]
		rowID := id
		if !first {
			rowID = f.next(tk.table)
		}
		first = false
		row := &Row{Table: tk.table, Values: map[string]any{names.ID: rowID}}
		if tk.table.Parent != nil {
			row.Values[names.ParentID] = tk.parent
		}
		switch tk.mode {
		case valueRow, rawRow:
			kind := jsonval.Classify(tk.value)
			if tk.mode == rawRow {
				// force the raw JSON fallback type regardless of
				// what this element happens to be
				kind = jsonval.Array
			}
			col, err := f.acc.Observe(tk.table, tk.key, kind)
			if err != nil {
				return nil, err
			}
			if tk.value.Type != gjson.Null {
				if tk.mode == rawRow {
					row.Values[col.Name] = json.RawMessage(tk.value.Raw)
				} else {
					row.Values[col.Name] = jsonval.Native(tk.value)
				}
			}
		default:
			more, err := f.fields(tk.table, rowID, tk.value, row)
			if err != nil {
				return nil, err
			}
			queue = append(queue, more...)
		}
		rs.add(row)
	}
	return rs, nil
}

// fields fills one object row and returns the child tasks produced by its
// nested values.
func (f *Flattener) fields(t *schema.Table, id int64, obj gjson.Result, row *Row) ([]task, error) {
	var pending []task
	var ferr error
	obj.ForEach(func(k, v gjson.Result) bool {
		kind := jsonval.Classify(v)
		switch kind {
		case jsonval.Object:
			child, err := f.childTable(t, k.Str)
			if err != nil {
				ferr = err
				return false
			}
			pending = append(pending, task{table: child, parent: id, value: v, mode: objectRow})
		case jsonval.Array:
			child, err := f.childTable(t, k.Str)
			if err != nil {
				ferr = err
				return false
			}
			mode := objectRow
			switch jsonval.ClassifyElements(v) {
			case jsonval.ElementsNone:
				// the child table exists even when every array at
				// this path is empty
				return true
			case jsonval.ElementsScalar:
				mode = valueRow
			case jsonval.ElementsMixed:
				mode = rawRow
			}
			v.ForEach(func(_, el gjson.Result) bool {
				pending = append(pending, task{table: child, parent: id, value: el, mode: mode, key: k.Str})
				return true
			})
		default:
			col, err := f.acc.Observe(t, k.Str, kind)
			if err != nil {
				ferr = err
				return false
			}
			if kind != jsonval.Null {
				row.Values[col.Name] = jsonval.Native(v)
			}
		}
		return true
	})
	return pending, ferr
}

func (f *Flattener) childTable(parent *schema.Table, key string) (*schema.Table, error) {
	path := make([]string, 0, len(parent.Path)+1)
	path = append(path, parent.Path...)
	path = append(path, key)
	return f.acc.Table(path, parent)
}
