// Package materialize buffers flattened rows and loads them into a database
// driver. It implements the two-pass strategy: the whole document stream is
// consumed first so the schema has converged, then each table is created
// once and filled with batched transactional inserts. No ALTER statements
// are ever needed; the cost is holding the extraction in memory.
package materialize

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopmonkeyus/go-common/logger"
	"golang.org/x/sync/errgroup"

	"github.com/openlibdata/ldx/internal"
	"github.com/openlibdata/ldx/internal/flatten"
	"github.com/openlibdata/ldx/internal/schema"
	"github.com/openlibdata/ldx/internal/util"
)

const (
	defaultBatchSize   = 1000
	defaultConcurrency = 4
)

// Error reports a DDL or insert failure for one table batch. Batches commit
// or roll back atomically, so a failed batch leaves no partial rows behind.
type Error struct {
	Table string
	Batch int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("materialization failed for table %s (batch %d): %s", e.Table, e.Batch, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options configure a Materializer.
type Options struct {
	Logger      logger.Logger
	Driver      internal.Driver
	BatchSize   int
	Concurrency int
	DryRun      bool
}

// Materializer accumulates rows per table and writes them out in Load.
type Materializer struct {
	logger      logger.Logger
	driver      internal.Driver
	batchSize   int
	concurrency int
	dryRun      bool
	rows        map[string][]*flatten.Row
}

func New(opts Options) *Materializer {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	conc := opts.Concurrency
	if conc <= 0 {
		conc = defaultConcurrency
	}
	return &Materializer{
		logger:      opts.Logger.WithPrefix("[materialize]"),
		driver:      opts.Driver,
		batchSize:   batch,
		concurrency: conc,
		dryRun:      opts.DryRun,
	}
}

// Add buffers the rows of one flattened document.
func (m *Materializer) Add(rs *flatten.RowSet) {
	if m.rows == nil {
		m.rows = make(map[string][]*flatten.Row)
	}
	for _, t := range rs.Tables() {
		m.rows[t.Name] = append(m.rows[t.Name], rs.Rows(t.Name)...)
	}
}

// AddRow buffers a single row.
func (m *Materializer) AddRow(row *flatten.Row) {
	if m.rows == nil {
		m.rows = make(map[string][]*flatten.Row)
	}
	m.rows[row.Table.Name] = append(m.rows[row.Table.Name], row)
}

// Pending returns the number of buffered rows.
func (m *Materializer) Pending() int {
	var n int
	for _, rows := range m.rows {
		n += len(rows)
	}
	return n
}

// Load creates every table and inserts its buffered rows in batches. Tables
// with no rows (paths only seen as empty arrays) are still created. After
// the schema freeze, independent tables load in parallel. The returned
// names follow the descriptor order regardless of load order.
func (m *Materializer) Load(ctx context.Context, tables []*schema.Table) ([]string, error) {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
		if m.dryRun {
			m.logger.Info("[dry-run] would create table %s with %d columns and insert %d rows", t.Name, len(t.Columns), len(m.rows[t.Name]))
			continue
		}
		m.logger.Debug("creating table %s", t.Name)
		if err := m.driver.CreateTable(ctx, t); err != nil {
			return nil, &Error{Table: t.Name, Err: err}
		}
	}
	if m.dryRun {
		return names, nil
	}

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for _, t := range tables {
		rows := m.rows[t.Name]
		if len(rows) == 0 {
			continue
		}
		g.Go(func() error {
			return m.loadTable(ctx, t, rows)
		})
	}
	if err := g.Wait(); err != nil {
		return names, err
	}
	return names, nil
}

// loadTable inserts one table's rows in transactional batches. Cancellation
// is honored between batches only; a batch in flight commits or rolls back
// as a unit.
func (m *Materializer) loadTable(ctx context.Context, t *schema.Table, rows []*flatten.Row) error {
	for batch := 0; batch*m.batchSize < len(rows); batch++ {
		if err := ctx.Err(); err != nil {
			return &Error{Table: t.Name, Batch: batch, Err: err}
		}
		start := batch * m.batchSize
		end := start + m.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		aligned := alignRows(t, rows[start:end])
		if err := m.driver.InsertBatch(ctx, t, aligned); err != nil {
			return &Error{Table: t.Name, Batch: batch, Err: err}
		}
		m.logger.Debug("inserted %d rows into %s (batch %d)", end-start, t.Name, batch)
	}
	return nil
}

// alignRows orders each row's values by the table's final column order,
// filling NULL for columns the row never saw and coercing values that were
// flattened before their column widened.
func alignRows(t *schema.Table, rows []*flatten.Row) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		values := make([]any, len(t.Columns))
		for j, col := range t.Columns {
			if v, ok := row.Values[col.Name]; ok {
				values[j] = coerce(v, col.Type)
			}
		}
		out[i] = values
	}
	return out
}

// coerce converts a value captured at flatten time to the column's final
// widened type.
func coerce(v any, t schema.ColumnType) any {
	if v == nil {
		return nil
	}
	switch t {
	case schema.TypeFloat:
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	case schema.TypeText:
		switch x := v.(type) {
		case string:
			return x
		case bool:
			return strconv.FormatBool(x)
		case int64:
			return strconv.FormatInt(x, 10)
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64)
		case time.Time:
			return x.Format(time.RFC3339Nano)
		}
	case schema.TypeJSON:
		switch x := v.(type) {
		case json.RawMessage:
			return string(x)
		case time.Time:
			return util.JSONStringify(x.Format(time.RFC3339Nano))
		default:
			return util.JSONStringify(x)
		}
	}
	return v
}
