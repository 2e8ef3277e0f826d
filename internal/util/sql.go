package util

import (
	"context"
	"database/sql"
	"net/url"
	"strings"
)

// ToUserPass returns a user:pass string from a URL.
func ToUserPass(u *url.URL) string {
	var dsn strings.Builder
	user := u.User.Username()
	pass, ok := u.User.Password()
	dsn.WriteString(user)
	if ok {
		dsn.WriteString(":")
		dsn.WriteString(pass)
	}
	return dsn.String()
}

// PlaceholderFunc renders the bind parameter at 1-based position n.
type PlaceholderFunc func(n int) string

// QuestionPlaceholder is the "?" style used by MySQL and SQLite.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder is the "$n" style used by PostgreSQL.
func DollarPlaceholder(n int) string {
	var b strings.Builder
	b.WriteByte('$')
	writeInt(&b, n)
	return b.String()
}

// AtPlaceholder is the "@pN" style used by SQL Server.
func AtPlaceholder(n int) string {
	var b strings.Builder
	b.WriteString("@p")
	writeInt(&b, n)
	return b.String()
}

func writeInt(b *strings.Builder, n int) {
	if n >= 10 {
		writeInt(b, n/10)
	}
	b.WriteByte(byte('0' + n%10))
}

// InsertAll inserts rows into a table within a single transaction, chunking
// statements so no statement exceeds maxParams bind parameters. The table
// and column names must already be quoted for the dialect. The transaction
// fully commits or fully rolls back.
func InsertAll(ctx context.Context, db *sql.DB, table string, columns []string, rows [][]any, ph PlaceholderFunc, maxParams int) error {
	if len(rows) == 0 {
		return nil
	}
	perStmt := maxParams / len(columns)
	if perStmt < 1 {
		perStmt = 1
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	var success bool
	defer func() {
		if !success {
			tx.Rollback()
		}
	}()
	prefix := "INSERT INTO " + table + " (" + strings.Join(columns, ",") + ") VALUES "
	for start := 0; start < len(rows); start += perStmt {
		end := start + perStmt
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(")
			for j := range columns {
				if j > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(ph(len(args) + 1))
				args = append(args, row[j])
			}
			sb.WriteString(")")
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	success = true
	return nil
}

// FetchRows runs a query and materializes every row as a slice of scanned
// values, for printing and export.
func FetchRows(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, [][]any, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	return columns, out, rows.Err()
}
