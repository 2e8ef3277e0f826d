package flatten

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/openlibdata/ldx/internal/schema"
)

func flattenAll(t *testing.T, f *Flattener, docs ...string) []*RowSet {
	t.Helper()
	out := make([]*RowSet, 0, len(docs))
	for _, doc := range docs {
		rs, err := f.Flatten(gjson.Parse(doc))
		assert.NoError(t, err)
		out = append(out, rs)
	}
	return out
}

func rowsFor(sets []*RowSet, table string) []*Row {
	var out []*Row
	for _, rs := range sets {
		out = append(out, rs.Rows(table)...)
	}
	return out
}

func TestFlattenScalarArrays(t *testing.T) {
	f, err := New("r", "", nil)
	assert.NoError(t, err)

	sets := flattenAll(t, f,
		`{"id":"1","tags":["a","b"]}`,
		`{"id":"2","tags":[]}`,
		`{"id":"3"}`,
	)

	roots := rowsFor(sets, "r")
	assert.Len(t, roots, 3)
	assert.Equal(t, int64(1), roots[0].Values["__id"])
	assert.Equal(t, "1", roots[0].Values["id"])
	assert.Equal(t, int64(2), roots[1].Values["__id"])
	assert.Equal(t, int64(3), roots[2].Values["__id"])

	tags := rowsFor(sets, "r_tags")
	assert.Len(t, tags, 2)
	assert.Equal(t, int64(1), tags[0].Values["__id"])
	assert.Equal(t, int64(1), tags[0].Values["__parent_id"])
	assert.Equal(t, "a", tags[0].Values["tags"])
	assert.Equal(t, int64(2), tags[1].Values["__id"])
	assert.Equal(t, int64(1), tags[1].Values["__parent_id"])
	assert.Equal(t, "b", tags[1].Values["tags"])

	// the child table descriptor exists even though only one document had
	// elements and another only ever had an empty array
	tables := f.Tables()
	assert.Len(t, tables, 2)
	assert.Equal(t, "r", tables[0].Name)
	assert.Equal(t, "r_tags", tables[1].Name)
}

func TestFlattenEmptyArrayOnlyStillCreatesTable(t *testing.T) {
	f, err := New("r", "", nil)
	assert.NoError(t, err)
	sets := flattenAll(t, f, `{"id":"1","tags":[]}`)
	assert.Empty(t, rowsFor(sets, "r_tags"))

	tables := f.Tables()
	assert.Len(t, tables, 2)
	assert.Equal(t, "r_tags", tables[1].Name)
	assert.Equal(t, []string{"__id", "__parent_id"}, tables[1].ColumnNames())
}

func TestFlattenNestedObjects(t *testing.T) {
	f, err := New("r", "", nil)
	assert.NoError(t, err)
	sets := flattenAll(t, f, `{"id":"1","meta":{"by":"x","audit":{"ok":true}}}`)

	meta := rowsFor(sets, "r_meta")
	assert.Len(t, meta, 1)
	assert.Equal(t, int64(1), meta[0].Values["__parent_id"])
	assert.Equal(t, "x", meta[0].Values["by"])

	audit := rowsFor(sets, "r_meta_audit")
	assert.Len(t, audit, 1)
	assert.Equal(t, meta[0].Values["__id"], audit[0].Values["__parent_id"])
	assert.Equal(t, true, audit[0].Values["ok"])
}

func TestFlattenObjectArrays(t *testing.T) {
	f, err := New("r", "", nil)
	assert.NoError(t, err)
	sets := flattenAll(t, f, `{"id":"1","items":[{"sku":"a"},{"sku":"b"}]}`)

	items := rowsFor(sets, "r_items")
	assert.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Values["sku"])
	assert.Equal(t, "b", items[1].Values["sku"])
	assert.Equal(t, int64(1), items[0].Values["__parent_id"])
	assert.Equal(t, int64(1), items[1].Values["__parent_id"])
}

func TestFlattenMixedArrayFallsBackToRawJSON(t *testing.T) {
	f, err := New("r", "", nil)
	assert.NoError(t, err)
	sets := flattenAll(t, f, `{"id":"1","odd":[{"a":1},"b"]}`)

	odd := rowsFor(sets, "r_odd")
	assert.Len(t, odd, 2)
	assert.Equal(t, json.RawMessage(`{"a":1}`), odd[0].Values["odd"])
	assert.Equal(t, json.RawMessage(`"b"`), odd[1].Values["odd"])

	table := f.Tables()[1]
	assert.Equal(t, "r_odd", table.Name)
	assert.Equal(t, schema.TypeJSON, table.Column("odd").Type)
}

func TestFlattenTypeWideningAcrossDocuments(t *testing.T) {
	f, err := New("r", "", nil)
	assert.NoError(t, err)
	flattenAll(t, f,
		`{"n":1}`,
		`{"n":2.5}`,
	)
	root := f.Tables()[0]
	assert.Equal(t, schema.TypeFloat, root.Column("n").Type)
}

func TestFlattenNullsObserveButDontStore(t *testing.T) {
	f, err := New("r", "", nil)
	assert.NoError(t, err)
	sets := flattenAll(t, f, `{"id":"1","gone":null}`)

	root := f.Tables()[0]
	assert.NotNil(t, root.Column("gone"))
	assert.Equal(t, schema.TypeUnknown, root.Column("gone").Type)
	_, present := rowsFor(sets, "r")[0].Values["gone"]
	assert.False(t, present)
}

func TestFlattenShadowTable(t *testing.T) {
	f, err := New("r_j", "r", nil)
	assert.NoError(t, err)
	doc := `{"id":"1","tags":["a"]}`
	sets := flattenAll(t, f, doc)

	shadow := rowsFor(sets, "r")
	assert.Len(t, shadow, 1)
	assert.Equal(t, int64(1), shadow[0].Values["__id"])
	assert.Equal(t, json.RawMessage(doc), shadow[0].Values["jsonb"])

	roots := rowsFor(sets, "r_j")
	assert.Len(t, roots, 1)
	// shadow row and flattened root row share the surrogate key
	assert.Equal(t, shadow[0].Values["__id"], roots[0].Values["__id"])

	tables := f.Tables()
	assert.Equal(t, "r", tables[0].Name)
	assert.Equal(t, "r_j", tables[1].Name)
	assert.Equal(t, "r_j_tags", tables[2].Name)
}

func TestFlattenNonObjectDocument(t *testing.T) {
	f, err := New("r", "", nil)
	assert.NoError(t, err)
	sets := flattenAll(t, f, `"loose string"`)

	roots := rowsFor(sets, "r")
	assert.Len(t, roots, 1)
	assert.Equal(t, "loose string", roots[0].Values["value"])
}

func TestFlattenDeterministicAcrossRuns(t *testing.T) {
	docs := []string{
		`{"id":"1","tags":["a","b"],"meta":{"by":"x"}}`,
		`{"id":"2","tags":["c"]}`,
	}
	run := func() []*RowSet {
		f, err := New("r", "", nil)
		assert.NoError(t, err)
		return flattenAll(t, f, docs...)
	}
	first := run()
	second := run()
	for i := range first {
		for _, table := range []string{"r", "r_tags", "r_meta"} {
			a := first[i].Rows(table)
			b := second[i].Rows(table)
			assert.Equal(t, len(a), len(b))
			for j := range a {
				assert.Equal(t, a[j].Values, b[j].Values)
			}
		}
	}
}
