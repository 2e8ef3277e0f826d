package internal

import (
	"context"
	"testing"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"

	"github.com/openlibdata/ldx/internal/schema"
)

type testDriver struct {
	started bool
	tested  bool
	url     string
}

func (d *testDriver) Start(config DriverConfig) error {
	d.started = true
	d.url = config.URL
	return nil
}
func (d *testDriver) Stop() error              { return nil }
func (d *testDriver) MaxIdentifierLength() int { return 63 }
func (d *testDriver) CreateTable(ctx context.Context, table *schema.Table) error {
	return nil
}
func (d *testDriver) InsertBatch(ctx context.Context, table *schema.Table, rows [][]any) error {
	return nil
}
func (d *testDriver) Query(ctx context.Context, table string, limit int) ([]string, [][]any, error) {
	return nil, nil, nil
}
func (d *testDriver) Test(ctx context.Context, logger logger.Logger, url string) error {
	d.tested = true
	d.url = url
	return nil
}
func (d *testDriver) Aliases() []string { return []string{"testalias"} }

func TestDriverRegistry(t *testing.T) {
	driver := &testDriver{}
	RegisterDriver("testscheme", driver)

	assert.Same(t, driver, lookupDriver("testscheme"))
	assert.Same(t, driver, lookupDriver("testalias"))
	assert.Nil(t, lookupDriver("unknown"))
}

func TestNewDriver(t *testing.T) {
	driver := &testDriver{}
	RegisterDriver("teststart", driver)

	got, err := NewDriver(context.Background(), logger.NewTestLogger(), "teststart://h/db")
	assert.NoError(t, err)
	assert.Same(t, driver, got.(*testDriver))
	assert.True(t, driver.started)
	assert.Equal(t, "teststart://h/db", driver.url)

	_, err = NewDriver(context.Background(), logger.NewTestLogger(), "bogus://h/db")
	assert.Error(t, err)
}

func TestTestDriver(t *testing.T) {
	driver := &testDriver{}
	RegisterDriver("testconn", driver)

	err := TestDriver(context.Background(), logger.NewTestLogger(), "testconn://h/db")
	assert.NoError(t, err)
	assert.True(t, driver.tested)
	assert.False(t, driver.started)
	assert.Equal(t, "testconn://h/db", driver.url)

	err = TestDriver(context.Background(), logger.NewTestLogger(), "bogus://h/db")
	assert.Error(t, err)
}
