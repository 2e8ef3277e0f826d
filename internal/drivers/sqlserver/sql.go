package sqlserver

import (
	"strings"

	"github.com/openlibdata/ldx/internal/schema"
)

func quoteIdentifier(val string) string {
	return "[" + strings.ReplaceAll(val, "]", "]]") + "]"
}

// columnType maps inferred types to SQL Server types. There is no native
// JSON type, so raw JSON degrades to NVARCHAR(MAX).
func columnType(t schema.ColumnType) string {
	switch t {
	case schema.TypeBool:
		return "BIT"
	case schema.TypeInt:
		return "BIGINT"
	case schema.TypeFloat:
		return "FLOAT"
	case schema.TypeTimestamp:
		return "DATETIMEOFFSET"
	default:
		return "NVARCHAR(MAX)"
	}
}

func createSQL(t *schema.Table) string {
	var sql strings.Builder
	sql.WriteString("DROP TABLE IF EXISTS ")
	sql.WriteString(quoteIdentifier(t.Name))
	sql.WriteString(";\n")
	sql.WriteString("CREATE TABLE ")
	sql.WriteString(quoteIdentifier(t.Name))
	sql.WriteString(" (\n")
	for i, c := range t.Columns {
		sql.WriteString("\t")
		sql.WriteString(quoteIdentifier(c.Name))
		sql.WriteString(" ")
		sql.WriteString(columnType(c.Type))
		if c.Name == "__id" {
			sql.WriteString(" PRIMARY KEY")
		}
		if i < len(t.Columns)-1 {
			sql.WriteString(",")
		}
		sql.WriteString("\n")
	}
	sql.WriteString(");\n")
	return sql.String()
}
