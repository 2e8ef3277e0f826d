package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/shopmonkeyus/go-common/logger"
	_ "modernc.org/sqlite"

	"github.com/openlibdata/ldx/internal"
	"github.com/openlibdata/ldx/internal/schema"
	"github.com/openlibdata/ldx/internal/util"
)

// Conservative bind parameter cap; older SQLite builds default to 999.
const maxParams = 900

type sqliteDriver struct {
	ctx    context.Context
	logger logger.Logger
	db     *sql.DB
	once   sync.Once
}

var _ internal.Driver = (*sqliteDriver)(nil)
var _ internal.DriverHelp = (*sqliteDriver)(nil)

func (p *sqliteDriver) connectToDB(ctx context.Context, urlstr string) (*sql.DB, error) {
	fn, err := getFilenameFromURL(urlstr)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", fn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection: %w", err)
	}
	// writes from parallel table loads serialize on a single connection
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Start the driver. This is called once at the beginning of the driver's lifecycle.
func (p *sqliteDriver) Start(config internal.DriverConfig) error {
	db, err := p.connectToDB(config.Context, config.URL)
	if err != nil {
		return err
	}
	p.logger = config.Logger.WithPrefix("[sqlite]")
	p.db = db
	p.ctx = config.Context
	return nil
}

// Stop the driver. This is called once at the end of the driver's lifecycle.
func (p *sqliteDriver) Stop() error {
	p.once.Do(func() {
		if p.db != nil {
			p.db.Close()
			p.db = nil
		}
	})
	return nil
}

// MaxIdentifierLength returns the backend's identifier length limit in bytes.
func (p *sqliteDriver) MaxIdentifierLength() int {
	// SQLite has no practical limit; keep generated names bounded anyway
	return 256
}

// CreateTable drops any previous table of the same name and creates it from
// the descriptor.
func (p *sqliteDriver) CreateTable(ctx context.Context, table *schema.Table) error {
	if _, err := p.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdentifier(table.Name)); err != nil {
		return fmt.Errorf("unable to drop table %s: %w", table.Name, err)
	}
	stmt := createSQL(table)
	p.logger.Debug("executing: %s", stmt)
	if _, err := p.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("unable to create table %s: %w", table.Name, err)
	}
	return nil
}

// InsertBatch appends one batch of rows inside a single transaction.
func (p *sqliteDriver) InsertBatch(ctx context.Context, table *schema.Table, rows [][]any) error {
	columns := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		columns[i] = quoteIdentifier(c.Name)
	}
	return util.InsertAll(ctx, p.db, quoteIdentifier(table.Name), columns, rows, util.QuestionPlaceholder, maxParams)
}

// Query returns up to limit rows of a table ordered by surrogate key.
func (p *sqliteDriver) Query(ctx context.Context, table string, limit int) ([]string, [][]any, error) {
	stmt := fmt.Sprintf(`SELECT * FROM %s ORDER BY "__id"`, quoteIdentifier(table))
	if limit > 0 {
		stmt = fmt.Sprintf("%s LIMIT %d", stmt, limit)
	}
	return util.FetchRows(ctx, p.db, stmt)
}

// Test is called to test the driver's connectivity with the configured url.
func (p *sqliteDriver) Test(ctx context.Context, logger logger.Logger, url string) error {
	db, err := p.connectToDB(ctx, url)
	if err != nil {
		return err
	}
	return db.Close()
}

// Name is a unique name for the driver.
func (p *sqliteDriver) Name() string {
	return "SQLite"
}

// Description is the description of the driver.
func (p *sqliteDriver) Description() string {
	return "Stores extracted tables in a local SQLite database file."
}

// ExampleURL should return an example URL for configuring the driver.
func (p *sqliteDriver) ExampleURL() string {
	return "sqlite://ldx.db"
}

func init() {
	internal.RegisterDriver("sqlite", &sqliteDriver{})
}
