package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/openlibdata/ldx/internal/schema"
)

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnType(c schema.Column) string {
	switch c.Type {
	case schema.TypeBool, schema.TypeInt:
		return "INTEGER"
	case schema.TypeFloat:
		return "REAL"
	default:
		// timestamps and json degrade to text
		return "TEXT"
	}
}

func createSQL(table *schema.Table) string {
	var sql strings.Builder
	sql.WriteString("CREATE TABLE ")
	sql.WriteString(quoteIdentifier(table.Name))
	sql.WriteString(" (\n")
	for i, c := range table.Columns {
		sql.WriteString("\t")
		sql.WriteString(quoteIdentifier(c.Name))
		sql.WriteString(" ")
		sql.WriteString(columnType(*c))
		if c.Name == "__id" {
			sql.WriteString(" PRIMARY KEY")
		}
		if i+1 < len(table.Columns) {
			sql.WriteString(",")
		}
		sql.WriteString("\n")
	}
	sql.WriteString(")")
	return sql.String()
}

func getFilenameFromURL(urlstr string) (string, error) {
	u, err := url.Parse(urlstr)
	if err != nil {
		return "", fmt.Errorf("unable to parse url: %w", err)
	}
	fn := filepath.Join(u.Host, u.Path)
	if fn == "" {
		return "", fmt.Errorf("missing database file path in url: %s", urlstr)
	}
	return fn, nil
}
