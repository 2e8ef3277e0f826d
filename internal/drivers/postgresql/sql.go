package postgresql

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"

	"github.com/openlibdata/ldx/internal/schema"
	"github.com/openlibdata/ldx/internal/util"
)

// quoteIdentifier always quotes so reserved words and generated names never
// need renaming.
func quoteIdentifier(val string) string {
	return pq.QuoteIdentifier(val)
}

func columnType(t schema.ColumnType) string {
	switch t {
	case schema.TypeBool:
		return "BOOLEAN"
	case schema.TypeInt:
		return "BIGINT"
	case schema.TypeFloat:
		return "DOUBLE PRECISION"
	case schema.TypeTimestamp:
		return "TIMESTAMP WITH TIME ZONE"
	case schema.TypeJSON:
		return "JSONB"
	default:
		return "TEXT"
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

func getConnectionStringFromURL(urlstr string) (string, error) {
	u, err := url.Parse(urlstr)
	if err != nil {
		return "", fmt.Errorf("error parsing postgres db url: %w", err)
	}
	u.Scheme = "postgresql"
	if u.Port() == "" {
		u.Host = u.Host + ":5432"
	}
	var reencode bool
	q := u.Query()
	if !u.Query().Has("application_name") {
		q.Set("application_name", "ldx")
		reencode = true
	}
	if util.IsLocalhost(u.Host) && !u.Query().Has("sslmode") {
		q.Set("sslmode", "disable")
		reencode = true
	}
	if reencode {
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
