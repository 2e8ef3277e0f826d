package mysql

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/openlibdata/ldx/internal/schema"
	"github.com/openlibdata/ldx/internal/util"
)

func quoteIdentifier(val string) string {
	return "`" + strings.ReplaceAll(val, "`", "``") + "`"
}

func columnType(t schema.ColumnType) string {
	switch t {
	case schema.TypeBool:
		return "BOOLEAN"
	case schema.TypeInt:
		return "BIGINT"
	case schema.TypeFloat:
		return "DOUBLE"
	case schema.TypeTimestamp:
		return "DATETIME(6)"
	case schema.TypeJSON:
		return "JSON"
	default:
		return "TEXT"
	}
}

func createSQL(t *schema.Table) string {
	var sql strings.Builder
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

// getConnectionStringFromURL converts a mysql:// URL to the DSN format the
// driver expects. parseTime is forced on so timestamp columns scan as
// time.Time.
func getConnectionStringFromURL(urlstr string) (string, error) {
	u, err := url.Parse(urlstr)
	if err != nil {
		return "", fmt.Errorf("error parsing mysql db url: %w", err)
	}
	if u.Port() == "" {
		u.Host = u.Host + ":3306"
	}
	q := u.Query()
	q.Set("parseTime", "true")
	var dsn strings.Builder
	dsn.WriteString(util.ToUserPass(u))
	if u.User != nil {
		dsn.WriteString("@")
	}
	dsn.WriteString("tcp(")
	dsn.WriteString(u.Host)
	dsn.WriteString(")/")
	dsn.WriteString(strings.TrimPrefix(u.Path, "/"))
	dsn.WriteString("?")
	dsn.WriteString(q.Encode())
	return dsn.String(), nil
}
