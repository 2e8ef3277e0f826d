package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openlibdata/ldx/internal/schema"
)

func TestCreateSQL(t *testing.T) {
	table := &schema.Table{
		Name: "r",
		Columns: []*schema.Column{
			{Name: "__id", Type: schema.TypeInt},
			{Name: "active", Type: schema.TypeBool},
			{Name: "score", Type: schema.TypeFloat},
			{Name: "at", Type: schema.TypeTimestamp},
			{Name: "meta", Type: schema.TypeJSON},
		},
	}
	assert.Equal(t, `CREATE TABLE "r" (
	"__id" INTEGER PRIMARY KEY,
	"active" INTEGER,
	"score" REAL,
	"at" TEXT,
	"meta" TEXT
)`, createSQL(table))
}

func TestFilenameFromURL(t *testing.T) {
	fn, err := getFilenameFromURL("sqlite://ldx.db")
	assert.NoError(t, err)
	assert.Equal(t, "ldx.db", fn)

	fn, err = getFilenameFromURL("sqlite:///var/data/ldx.db")
	assert.NoError(t, err)
	assert.Equal(t, "/var/data/ldx.db", fn)

	_, err = getFilenameFromURL("sqlite://")
	assert.Error(t, err)
}
