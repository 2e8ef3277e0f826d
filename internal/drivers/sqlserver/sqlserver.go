package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/shopmonkeyus/go-common/logger"

	"github.com/openlibdata/ldx/internal"
	"github.com/openlibdata/ldx/internal/schema"
	"github.com/openlibdata/ldx/internal/util"
)

// SQL Server caps one statement at 2100 bind parameters.
const maxParams = 2000

type sqlserverDriver struct {
	ctx    context.Context
	logger logger.Logger
	db     *sql.DB
	once   sync.Once
}

var _ internal.Driver = (*sqlserverDriver)(nil)
var _ internal.DriverAlias = (*sqlserverDriver)(nil)
var _ internal.DriverHelp = (*sqlserverDriver)(nil)

func (p *sqlserverDriver) connectToDB(ctx context.Context, urlstr string) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", urlstr)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Start the driver. This is called once at the beginning of the driver's lifecycle.
func (p *sqlserverDriver) Start(config internal.DriverConfig) error {
	db, err := p.connectToDB(config.Context, config.URL)
	if err != nil {
		return err
	}
	p.logger = config.Logger.WithPrefix("[sqlserver]")
	p.db = db
	p.ctx = config.Context
	return nil
}

// Stop the driver. This is called once at the end of the driver's lifecycle.
func (p *sqlserverDriver) Stop() error {
	p.once.Do(func() {
		if p.db != nil {
			p.db.Close()
			p.db = nil
		}
	})
	return nil
}

// MaxIdentifierLength returns the backend's identifier length limit in bytes.
func (p *sqlserverDriver) MaxIdentifierLength() int {
	return 128
}

// CreateTable drops any previous table of the same name and creates it from
// the descriptor.
func (p *sqlserverDriver) CreateTable(ctx context.Context, table *schema.Table) error {
	stmt := createSQL(table)
	p.logger.Debug("executing: %s", stmt)
	if _, err := p.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("unable to create table %s: %w", table.Name, err)
	}
	return nil
}

// InsertBatch appends one batch of rows inside a single transaction.
func (p *sqlserverDriver) InsertBatch(ctx context.Context, table *schema.Table, rows [][]any) error {
	columns := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		columns[i] = quoteIdentifier(c.Name)
	}
	return util.InsertAll(ctx, p.db, quoteIdentifier(table.Name), columns, rows, util.AtPlaceholder, maxParams)
}

// Query returns up to limit rows of a table ordered by surrogate key.
func (p *sqlserverDriver) Query(ctx context.Context, table string, limit int) ([]string, [][]any, error) {
	top := ""
	if limit > 0 {
		top = fmt.Sprintf("TOP (%d) ", limit)
	}
	stmt := fmt.Sprintf("SELECT %s* FROM %s ORDER BY [__id]", top, quoteIdentifier(table))
	return util.FetchRows(ctx, p.db, stmt)
}

// Test is called to test the driver's connectivity with the configured url.
func (p *sqlserverDriver) Test(ctx context.Context, logger logger.Logger, url string) error {
	db, err := p.connectToDB(ctx, url)
	if err != nil {
		return err
	}
	return db.Close()
}

// Name is a unique name for the driver.
func (p *sqlserverDriver) Name() string {
	return "Microsoft SQL Server"
}

// Description is the description of the driver.
func (p *sqlserverDriver) Description() string {
	return "Stores extracted tables in a Microsoft SQL Server database."
}

// ExampleURL should return an example URL for configuring the driver.
func (p *sqlserverDriver) ExampleURL() string {
	return "sqlserver://localhost:1433?database=ldx"
}

func (p *sqlserverDriver) Aliases() []string {
	return []string{"mssql"}
}

func init() {
	internal.RegisterDriver("sqlserver", &sqlserverDriver{})
}
