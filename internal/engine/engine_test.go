package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/openlibdata/ldx/internal"
	"github.com/openlibdata/ldx/internal/schema"
)

type fakeSource struct {
	pages [][]string
	page  int
	total int
	err   error // returned after the pages run out
}

func (s *fakeSource) Total() (int, bool) {
	return s.total, s.total > 0
}

func (s *fakeSource) Next(ctx context.Context) ([]gjson.Result, error) {
	if s.page >= len(s.pages) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, nil
	}
	docs := make([]gjson.Result, 0, len(s.pages[s.page]))
	for _, doc := range s.pages[s.page] {
		docs = append(docs, gjson.Parse(doc))
	}
	s.page++
	return docs, nil
}

type fakeDriver struct {
	mu       sync.Mutex
	created  []string
	inserted map[string]int
}

var _ internal.Driver = (*fakeDriver)(nil)

func (d *fakeDriver) Start(config internal.DriverConfig) error { return nil }
func (d *fakeDriver) Stop() error                              { return nil }
func (d *fakeDriver) MaxIdentifierLength() int                 { return 63 }

func (d *fakeDriver) CreateTable(ctx context.Context, table *schema.Table) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, table.Name)
	return nil
}

func (d *fakeDriver) InsertBatch(ctx context.Context, table *schema.Table, rows [][]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inserted == nil {
		d.inserted = make(map[string]int)
	}
	d.inserted[table.Name] += len(rows)
	return nil
}

func (d *fakeDriver) Query(ctx context.Context, table string, limit int) ([]string, [][]any, error) {
	return nil, nil, nil
}

func (d *fakeDriver) Test(ctx context.Context, logger logger.Logger, url string) error {
	return nil
}

func TestRun(t *testing.T) {
	driver := &fakeDriver{}
	src := &fakeSource{
		total: 3,
		pages: [][]string{
			{`{"id":"1","tags":["a","b"]}`, `{"id":"2","tags":[]}`},
			{`{"id":"3"}`},
		},
	}

	var progress [][2]int
	result, err := Run(context.Background(), Options{
		Logger:    logger.NewTestLogger(),
		Driver:    driver,
		Table:     "g",
		Transform: true,
		Progress: func(processed, total int) {
			progress = append(progress, [2]int{processed, total})
		},
	}, src)
	assert.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, []string{"g", "g_j", "g_j_tags"}, result.Tables)
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, []string{"g", "g_j", "g_j_tags"}, driver.created)
	assert.Equal(t, 3, driver.inserted["g"])
	assert.Equal(t, 3, driver.inserted["g_j"])
	assert.Equal(t, 2, driver.inserted["g_j_tags"])

	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
}

func TestRunWithoutTransform(t *testing.T) {
	driver := &fakeDriver{}
	src := &fakeSource{
		pages: [][]string{{`{"id":"1","tags":["a"]}`, `{"id":"2"}`}},
	}

	result, err := Run(context.Background(), Options{
		Logger: logger.NewTestLogger(),
		Driver: driver,
		Table:  "g",
	}, src)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, []string{"g"}, result.Tables)
	assert.Equal(t, []string{"g"}, driver.created)
	assert.Equal(t, 2, driver.inserted["g"])
}

func TestRunRequiresTable(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Logger: logger.NewTestLogger(),
		Driver: &fakeDriver{},
	}, &fakeSource{})
	assert.Error(t, err)
}

func TestRunSanitizesTableLabel(t *testing.T) {
	driver := &fakeDriver{}
	src := &fakeSource{
		pages: [][]string{{`{"id":"1"}`}},
	}

	result, err := Run(context.Background(), Options{
		Logger:    logger.NewTestLogger(),
		Driver:    driver,
		Table:     "My Table",
		Transform: true,
	}, src)
	assert.NoError(t, err)
	// the shadow table follows the same identifier rules as the flattened
	// tables derived from it
	assert.Equal(t, []string{"my_table", "my_table_j"}, result.Tables)
}

func TestRunLimitsTableLabelLength(t *testing.T) {
	driver := &fakeDriver{}
	src := &fakeSource{
		pages: [][]string{{`{"id":"1"}`}},
	}

	result, err := Run(context.Background(), Options{
		Logger: logger.NewTestLogger(),
		Driver: driver,
		Table:  strings.Repeat("verylonglabel", 10),
	}, src)
	assert.NoError(t, err)
	assert.Len(t, result.Tables, 1)
	assert.LessOrEqual(t, len(result.Tables[0]), driver.MaxIdentifierLength())
}

func TestRunFetchFailureRetainsPartialResults(t *testing.T) {
	sentinel := errors.New("connection reset")
	driver := &fakeDriver{}
	src := &fakeSource{
		pages: [][]string{{`{"id":"1"}`}},
		err:   sentinel,
	}

	result, err := Run(context.Background(), Options{
		Logger:    logger.NewTestLogger(),
		Driver:    driver,
		Table:     "g",
		Transform: true,
	}, src)
	assert.ErrorIs(t, err, sentinel)
	// the page received before the failure was still materialized
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, []string{"g", "g_j"}, result.Tables)
	assert.Equal(t, 1, driver.inserted["g"])
	assert.Equal(t, 1, driver.inserted["g_j"])
}
