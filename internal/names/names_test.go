package names

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	a := New(0)
	name, err := a.Table("r", nil)
	assert.NoError(t, err)
	assert.Equal(t, "r", name)

	name, err = a.Table("r", []string{"tags"})
	assert.NoError(t, err)
	assert.Equal(t, "r_tags", name)

	name, err = a.Table("r", []string{"tags", "meta"})
	assert.NoError(t, err)
	assert.Equal(t, "r_tags_meta", name)

	// same path always resolves to the same name
	name, err = a.Table("r", []string{"tags"})
	assert.NoError(t, err)
	assert.Equal(t, "r_tags", name)
}

func TestTableNameCollision(t *testing.T) {
	a := New(0)
	name, err := a.Table("r", []string{"a.b"})
	assert.NoError(t, err)
	assert.Equal(t, "r_a_b", name)

	// a distinct path sanitizing to the same identifier gets a suffix
	name, err = a.Table("r", []string{"a_b"})
	assert.NoError(t, err)
	assert.Equal(t, "r_a_b_2", name)

	// and keeps it on re-resolution
	name, err = a.Table("r", []string{"a_b"})
	assert.NoError(t, err)
	assert.Equal(t, "r_a_b_2", name)
}

func TestColumnNames(t *testing.T) {
	a := New(0)
	name, err := a.Column("r", "holdingsRecords2")
	assert.NoError(t, err)
	assert.Equal(t, "holdingsrecords2", name)

	name, err = a.Column("r", "due-date")
	assert.NoError(t, err)
	assert.Equal(t, "due_date", name)

	name, err = a.Column("r", "9digit")
	assert.NoError(t, err)
	assert.Equal(t, "_9digit", name)
}

func TestColumnCaseFoldCollision(t *testing.T) {
	a := New(0)
	name, err := a.Column("r", "id")
	assert.NoError(t, err)
	assert.Equal(t, "id", name)

	name, err = a.Column("r", "ID")
	assert.NoError(t, err)
	assert.Equal(t, "id_2", name)

	name, err = a.Column("r", "Id")
	assert.NoError(t, err)
	assert.Equal(t, "id_3", name)

	// first-seen mapping is stable
	name, err = a.Column("r", "ID")
	assert.NoError(t, err)
	assert.Equal(t, "id_2", name)

	// the same keys in another table allocate independently
	name, err = a.Column("other", "ID")
	assert.NoError(t, err)
	assert.Equal(t, "id", name)
}

func TestColumnReservedCollision(t *testing.T) {
	a := New(0)
	name, err := a.Column("r", "__id")
	assert.NoError(t, err)
	assert.Equal(t, "__id_2", name)

	name, err = a.Column("r", "__parent_id")
	assert.NoError(t, err)
	assert.Equal(t, "__parent_id_2", name)
}

func TestLongNameTruncation(t *testing.T) {
	a := New(24)
	long := strings.Repeat("abcdef", 10)
	name, err := a.Column("r", long)
	assert.NoError(t, err)
	assert.Len(t, name, 24)
	assert.True(t, strings.HasPrefix(name, long[:15]))

	// repeatable
	again, err := a.Column("r", long)
	assert.NoError(t, err)
	assert.Equal(t, name, again)

	// a different long key sharing the truncated prefix stays distinct
	other, err := a.Column("r", long+"x")
	assert.NoError(t, err)
	assert.Len(t, other, 24)
	assert.NotEqual(t, name, other)
}

func TestTinyMaxLengthIsFloored(t *testing.T) {
	a := New(4)
	name, err := a.Column("r", "id")
	assert.NoError(t, err)
	assert.Equal(t, "id", name)

	// names longer than the floored limit still truncate without panicking
	name, err = a.Column("r", strings.Repeat("abcdef", 10))
	assert.NoError(t, err)
	assert.Len(t, name, 10)
}
