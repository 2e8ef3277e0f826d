// Package okapi is a minimal client for Okapi-based library services
// backends. It handles tenant login and paginated CQL queries; the
// extraction engine consumes the returned documents in page order.
package okapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tidwall/gjson"

	"github.com/openlibdata/ldx/internal/util"
)

const tokenHeader = "x-okapi-token"

// FetchError is a transport or authorization failure reported by the
// backend. It halts further extraction but never rolls back tables that
// were already materialized.
type FetchError struct {
	Path   string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed for %s: %s", e.Path, e.Err)
	}
	return fmt.Sprintf("fetch failed for %s: unexpected status %d", e.Path, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Config are the Okapi connection parameters.
type Config struct {
	URL      string
	Tenant   string
	Username string
	Password string
	Logger   logger.Logger
}

// Client is an authenticated Okapi connection.
type Client struct {
	config Config
	logger logger.Logger
	token  string
}

func NewClient(config Config) *Client {
	return &Client{
		config: config,
		logger: config.Logger.WithPrefix("[okapi]"),
	}
}

// Login authenticates against /authn/login and stores the session token for
// subsequent queries.
func (c *Client) Login(ctx context.Context) error {
	body := util.JSONStringify(map[string]string{
		"username": c.config.Username,
		"password": c.config.Password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL+"/authn/login", bytes.NewReader([]byte(body)))
	if err != nil {
		return err
	}
	req.Header.Set("X-Okapi-Tenant", c.config.Tenant)
	req.Header.Set("Content-Type", "application/json")
	resp, err := util.NewHTTPRetry(req, util.WithLogger(c.logger)).Do()
	if err != nil {
		return &FetchError{Path: "/authn/login", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &FetchError{Path: "/authn/login", Status: resp.StatusCode}
	}
	token := resp.Header.Get(tokenHeader)
	if token == "" {
		return &FetchError{Path: "/authn/login", Err: fmt.Errorf("no %s header in response", tokenHeader)}
	}
	c.token = token
	c.logger.Debug("logged in to %s as tenant %s", c.config.URL, c.config.Tenant)
	return nil
}

func (c *Client) get(ctx context.Context, path string, cql string, offset, limit int) (gjson.Result, error) {
	u := fmt.Sprintf("%s%s?offset=%d&limit=%d&query=%s", c.config.URL, path, offset, limit, url.QueryEscape(cql))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("X-Okapi-Tenant", c.config.Tenant)
	req.Header.Set("X-Okapi-Token", c.token)
	resp, err := util.NewHTTPRetry(req, util.WithLogger(c.logger)).Do()
	if err != nil {
		return gjson.Result{}, &FetchError{Path: path, Err: err}
	}
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, &FetchError{Path: path, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, &FetchError{Path: path, Status: resp.StatusCode}
	}
	parsed := gjson.ParseBytes(buf)
	if !parsed.IsObject() {
		return gjson.Result{}, &FetchError{Path: path, Err: fmt.Errorf("response is not a JSON object")}
	}
	return parsed, nil
}

// records extracts the result array from a query response: the first
// top-level array field, per the Okapi collection response convention.
func records(body gjson.Result) []gjson.Result {
	var out []gjson.Result
	body.ForEach(func(_, v gjson.Result) bool {
		if v.IsArray() {
			out = v.Array()
			return false
		}
		return true
	})
	return out
}

// Query starts a paginated CQL query. The total record count is probed with
// a single-record request so callers can report progress.
func (c *Client) Query(ctx context.Context, path string, cql string, pageSize int) (*Pages, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}
	probe, err := c.get(ctx, path, cql, 0, 1)
	if err != nil {
		return nil, err
	}
	total := probe.Get("totalRecords")
	p := &Pages{
		client:   c,
		path:     path,
		cql:      cql,
		pageSize: pageSize,
	}
	if total.Exists() && total.Type == gjson.Number {
		p.total = int(total.Int())
		p.totalKnown = true
	}
	c.logger.Debug("query %s: estimated %d records", path, p.total)
	return p, nil
}

// Pages iterates the result pages of one query. It is finite and not
// restartable mid-page.
type Pages struct {
	client     *Client
	path       string
	cql        string
	pageSize   int
	page       int
	total      int
	totalKnown bool
	done       bool
}

// Total returns the backend's record count estimate, if it reported one.
func (p *Pages) Total() (int, bool) {
	return p.total, p.totalKnown
}

// Next returns the documents of the next page, or an empty slice at end of
// stream.
func (p *Pages) Next(ctx context.Context) ([]gjson.Result, error) {
	if p.done {
		return nil, nil
	}
	body, err := p.client.get(ctx, p.path, p.cql, p.page*p.pageSize, p.pageSize)
	if err != nil {
		return nil, err
	}
	p.page++
	docs := records(body)
	if len(docs) == 0 {
		p.done = true
	}
	return docs, nil
}
