package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openlibdata/ldx/internal/jsonval"
	"github.com/openlibdata/ldx/internal/names"
)

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeUnknown, TypeOf(jsonval.Null))
	assert.Equal(t, TypeBool, TypeOf(jsonval.Bool))
	assert.Equal(t, TypeInt, TypeOf(jsonval.Int))
	assert.Equal(t, TypeFloat, TypeOf(jsonval.Float))
	assert.Equal(t, TypeTimestamp, TypeOf(jsonval.Timestamp))
	assert.Equal(t, TypeText, TypeOf(jsonval.Text))
	assert.Equal(t, TypeJSON, TypeOf(jsonval.Object))
	assert.Equal(t, TypeJSON, TypeOf(jsonval.Array))
}

func TestWiden(t *testing.T) {
	assert.Equal(t, TypeInt, Widen(TypeInt, TypeInt))
	assert.Equal(t, TypeInt, Widen(TypeUnknown, TypeInt))
	assert.Equal(t, TypeInt, Widen(TypeInt, TypeUnknown))
	assert.Equal(t, TypeFloat, Widen(TypeInt, TypeFloat))
	assert.Equal(t, TypeFloat, Widen(TypeFloat, TypeInt))
	assert.Equal(t, TypeText, Widen(TypeBool, TypeInt))
	assert.Equal(t, TypeText, Widen(TypeTimestamp, TypeText))
	assert.Equal(t, TypeJSON, Widen(TypeJSON, TypeInt))
	assert.Equal(t, TypeJSON, Widen(TypeText, TypeJSON))
}

func TestWidenSequenceOrderIndependent(t *testing.T) {
	// {int,int,text} folds to text regardless of arrival order
	fold := func(kinds ...ColumnType) ColumnType {
		out := TypeUnknown
		for _, k := range kinds {
			out = Widen(out, k)
		}
		return out
	}
	assert.Equal(t, TypeText, fold(TypeInt, TypeInt, TypeText))
	assert.Equal(t, TypeText, fold(TypeText, TypeInt, TypeInt))
	assert.Equal(t, TypeFloat, fold(TypeInt, TypeFloat, TypeInt))
	assert.Equal(t, TypeJSON, fold(TypeInt, TypeJSON, TypeText))
}

func TestAccumulatorUnionOfKeys(t *testing.T) {
	a := NewAccumulator("r", names.New(0))
	root, err := a.Root()
	assert.NoError(t, err)
	assert.Equal(t, "r", root.Name)
	assert.Equal(t, []string{"__id"}, root.ColumnNames())

	_, err = a.Observe(root, "id", jsonval.Text)
	assert.NoError(t, err)
	_, err = a.Observe(root, "count", jsonval.Int)
	assert.NoError(t, err)
	// second document carries a key the first one lacked
	_, err = a.Observe(root, "name", jsonval.Text)
	assert.NoError(t, err)
	assert.Equal(t, []string{"__id", "id", "count", "name"}, root.ColumnNames())

	// widening mutates the column in place
	c, err := a.Observe(root, "count", jsonval.Float)
	assert.NoError(t, err)
	assert.Equal(t, TypeFloat, c.Type)
	assert.Equal(t, TypeFloat, root.Column("count").Type)
}

func TestAccumulatorChildTables(t *testing.T) {
	a := NewAccumulator("r", names.New(0))
	root, err := a.Root()
	assert.NoError(t, err)

	child, err := a.Table([]string{"tags"}, root)
	assert.NoError(t, err)
	assert.Equal(t, "r_tags", child.Name)
	assert.Equal(t, root, child.Parent)
	assert.Equal(t, []string{"__id", "__parent_id"}, child.ColumnNames())

	// same path returns the same descriptor
	again, err := a.Table([]string{"tags"}, root)
	assert.NoError(t, err)
	assert.Same(t, child, again)

	tables := a.Tables()
	assert.Len(t, tables, 2)
	assert.Equal(t, "r", tables[0].Name)
	assert.Equal(t, "r_tags", tables[1].Name)
}

func TestNewRawTable(t *testing.T) {
	raw := NewRawTable("r")
	assert.Equal(t, []string{"__id", "jsonb"}, raw.ColumnNames())
	assert.Equal(t, TypeInt, raw.Column("__id").Type)
	assert.Equal(t, TypeJSON, raw.Column("jsonb").Type)
}
