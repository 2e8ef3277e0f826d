package internal

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/shopmonkeyus/go-common/logger"

	"github.com/openlibdata/ldx/internal/schema"
)

// DriverConfig is the configuration for a database driver.
type DriverConfig struct {

	// Context for the driver.
	Context context.Context

	// URL for the driver.
	URL string

	// Logger to use for logging.
	Logger logger.Logger
}

// Driver is the interface implemented by all database backends. The engine
// only needs table creation, typed columns, batched transactional inserts,
// and identifier limits; everything else is dialect-private.
type Driver interface {

	// Start the driver. This is called once at the beginning of the driver's lifecycle.
	Start(config DriverConfig) error

	// Stop the driver. This is called once at the end of the driver's lifecycle.
	Stop() error

	// MaxIdentifierLength returns the backend's identifier length limit in bytes.
	MaxIdentifierLength() int

	// CreateTable drops any previous table of the same name and creates it
	// from the descriptor. Backend-unsupported column types degrade to the
	// dialect's raw JSON text representation.
	CreateTable(ctx context.Context, table *schema.Table) error

	// InsertBatch appends one batch of rows, aligned to the descriptor's
	// column order. The batch commits fully or not at all.
	InsertBatch(ctx context.Context, table *schema.Table, rows [][]any) error

	// Query returns up to limit rows of a table ordered by surrogate key,
	// with limit <= 0 meaning all rows.
	Query(ctx context.Context, table string, limit int) ([]string, [][]any, error)

	// Test is called to test the driver's connectivity with the configured url.
	Test(ctx context.Context, logger logger.Logger, url string) error
}

// DriverAlias is an interface that Drivers implement for specifying additional
// protocol schemes for URLs that the driver can handle.
type DriverAlias interface {
	Aliases() []string
}

// DriverHelp is an interface that Drivers implement for the drivers listing.
type DriverHelp interface {

	// Name is a unique name for the driver.
	Name() string

	// Description is the description of the driver.
	Description() string

	// ExampleURL should return an example URL for configuring the driver.
	ExampleURL() string
}

// DriverMetadata describes a registered driver.
type DriverMetadata struct {
	Scheme      string `json:"scheme"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ExampleURL  string `json:"exampleURL"`
}

var driverRegistry = map[string]Driver{}
var driverAliasRegistry = map[string]string{}

// RegisterDriver registers a driver for a given protocol.
func RegisterDriver(protocol string, driver Driver) {
	driverRegistry[protocol] = driver
	if p, ok := driver.(DriverAlias); ok {
		for _, alias := range p.Aliases() {
			driverAliasRegistry[alias] = protocol
		}
	}
}

// GetDriverMetadata returns the metadata for all the registered drivers.
func GetDriverMetadata() []DriverMetadata {
	var res []DriverMetadata
	for scheme, driver := range driverRegistry {
		if help, ok := driver.(DriverHelp); ok {
			res = append(res, DriverMetadata{
				Scheme:      scheme,
				Name:        help.Name(),
				Description: help.Description(),
				ExampleURL:  help.ExampleURL(),
			})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Scheme < res[j].Scheme })
	return res
}

func lookupDriver(scheme string) Driver {
	driver := driverRegistry[scheme]
	if driver == nil {
		if protocol := driverAliasRegistry[scheme]; protocol != "" {
			driver = driverRegistry[protocol]
		}
	}
	return driver
}

// TestDriver checks connectivity for the driver registered for the URL
// without starting it.
func TestDriver(ctx context.Context, logger logger.Logger, urlString string) error {
	u, err := url.Parse(urlString)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	driver := lookupDriver(u.Scheme)
	if driver == nil {
		return fmt.Errorf("no driver registered for protocol %s", u.Scheme)
	}
	return driver.Test(ctx, logger.WithPrefix(fmt.Sprintf("[%s]", u.Scheme)), urlString)
}

// NewDriver creates and starts a driver for the given URL.
func NewDriver(ctx context.Context, logger logger.Logger, urlString string) (Driver, error) {
	u, err := url.Parse(urlString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	driver := lookupDriver(u.Scheme)
	if driver == nil {
		return nil, fmt.Errorf("no driver registered for protocol %s", u.Scheme)
	}
	if err := driver.Start(DriverConfig{
		Context: ctx,
		URL:     urlString,
		Logger:  logger.WithPrefix(fmt.Sprintf("[%s]", u.Scheme)),
	}); err != nil {
		return nil, err
	}
	return driver, nil
}
