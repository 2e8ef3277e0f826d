package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopmonkeyus/go-common/logger"

	"github.com/openlibdata/ldx/internal"
	"github.com/openlibdata/ldx/internal/schema"
	"github.com/openlibdata/ldx/internal/util"
)

const maxParams = 65000

type mysqlDriver struct {
	ctx    context.Context
	logger logger.Logger
	db     *sql.DB
	once   sync.Once
}

var _ internal.Driver = (*mysqlDriver)(nil)
var _ internal.DriverHelp = (*mysqlDriver)(nil)

func (p *mysqlDriver) connectToDB(ctx context.Context, urlstr string) (*sql.DB, error) {
	dsn, err := getConnectionStringFromURL(urlstr)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
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
func (p *mysqlDriver) Start(config internal.DriverConfig) error {
	db, err := p.connectToDB(config.Context, config.URL)
	if err != nil {
		return err
	}
	p.logger = config.Logger.WithPrefix("[mysql]")
	p.db = db
	p.ctx = config.Context
	return nil
}

// Stop the driver. This is called once at the end of the driver's lifecycle.
func (p *mysqlDriver) Stop() error {
	p.once.Do(func() {
		if p.db != nil {
			p.db.Close()
			p.db = nil
		}
	})
	return nil
}

// MaxIdentifierLength returns the backend's identifier length limit in bytes.
func (p *mysqlDriver) MaxIdentifierLength() int {
	return 64
}

// CreateTable drops any previous table of the same name and creates it from
// the descriptor.
func (p *mysqlDriver) CreateTable(ctx context.Context, table *schema.Table) error {
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
func (p *mysqlDriver) InsertBatch(ctx context.Context, table *schema.Table, rows [][]any) error {
	columns := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		columns[i] = quoteIdentifier(c.Name)
	}
	return util.InsertAll(ctx, p.db, quoteIdentifier(table.Name), columns, rows, util.QuestionPlaceholder, maxParams)
}

// Query returns up to limit rows of a table ordered by surrogate key.
func (p *mysqlDriver) Query(ctx context.Context, table string, limit int) ([]string, [][]any, error) {
	stmt := fmt.Sprintf("SELECT * FROM %s ORDER BY `__id`", quoteIdentifier(table))
	if limit > 0 {
		stmt = fmt.Sprintf("%s LIMIT %d", stmt, limit)
	}
	return util.FetchRows(ctx, p.db, stmt)
}

// Test is called to test the driver's connectivity with the configured url.
func (p *mysqlDriver) Test(ctx context.Context, logger logger.Logger, url string) error {
	db, err := p.connectToDB(ctx, url)
	if err != nil {
		return err
	}
	return db.Close()
}

// Name is a unique name for the driver.
func (p *mysqlDriver) Name() string {
	return "MySQL"
}

// Description is the description of the driver.
func (p *mysqlDriver) Description() string {
	return "Stores extracted tables in a MySQL database."
}

// ExampleURL should return an example URL for configuring the driver.
func (p *mysqlDriver) ExampleURL() string {
	return "mysql://localhost:3306/ldx"
}

func init() {
	internal.RegisterDriver("mysql", &mysqlDriver{})
}
