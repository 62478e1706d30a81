package dbtcloud

import (
	"context"
	"net/url"
	"strconv"

	"github.com/spf13/cast"
)

const (
	DefaultPageSize = 100
	DefaultDataKey  = "data"
)

type PageOption func(c *pageConfig)

type pageConfig struct {
	pageSize int
	dataKey  string
}

// WithPageSize sets the default "limit", it is used if the query does not contain the "limit" parameter.
func WithPageSize(v int) PageOption {
	return func(c *pageConfig) {
		c.pageSize = v
	}
}

// WithDataKey sets the response field which contains the page records.
func WithDataKey(v string) PageOption {
	return func(c *pageConfig) {
		c.dataKey = v
	}
}

// Iterator lazily pulls records of a paginated endpoint page by page using "offset" and "limit".
//
//	it := client.Paginate("/projects/", dbtcloud.V2, nil)
//	for it.Next(ctx) {
//		record := it.Record()
//	}
//	if err := it.Err(); err != nil {...}
//
// A page shorter than the limit ends the iteration. A response without a list under the data key
// ends the iteration too, with a warning. The iterator cannot be restarted.
type Iterator struct {
	client  *Client
	path    string
	version APIVersion
	query   url.Values
	dataKey string
	limit   int
	offset  int

	page    []Record
	current Record
	done    bool
	err     error
}

func (c *Client) Paginate(path string, version APIVersion, query url.Values, opts ...PageOption) *Iterator {
	cfg := pageConfig{pageSize: DefaultPageSize, dataKey: DefaultDataKey}
	for _, o := range opts {
		o(&cfg)
	}

	params := url.Values{}
	for k, v := range query {
		params[k] = append([]string(nil), v...)
	}

	offset := cast.ToInt(params.Get("offset"))
	limit := cfg.pageSize
	if v := params.Get("limit"); v != "" {
		limit = cast.ToInt(v)
	}
	if limit <= 0 {
		// A zero limit would never produce a short page
		limit = DefaultPageSize
	}
	params.Del("offset")
	params.Del("limit")

	return &Iterator{
		client:  c,
		path:    path,
		version: version,
		query:   params,
		dataKey: cfg.dataKey,
		limit:   limit,
		offset:  max(offset, 0),
	}
}

// Next moves to the next record, a new page is requested when the current one is exhausted.
// It returns false when there are no more records or an error occurred, see Err.
func (it *Iterator) Next(ctx context.Context) bool {
	for {
		if len(it.page) > 0 {
			it.current = it.page[0]
			it.page = it.page[1:]
			return true
		}

		it.current = nil
		if it.done {
			return false
		}

		it.fetchPage(ctx)
	}
}

// Record returns the current record.
func (it *Iterator) Record() Record {
	return it.current
}

// Err returns the error that stopped the iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// All drains the iterator.
func (it *Iterator) All(ctx context.Context) ([]Record, error) {
	var out []Record
	for it.Next(ctx) {
		out = append(out, it.Record())
	}
	return out, it.Err()
}

func (it *Iterator) fetchPage(ctx context.Context) {
	params := url.Values{}
	for k, v := range it.query {
		params[k] = v
	}
	params.Set("limit", strconv.Itoa(it.limit))
	params.Set("offset", strconv.Itoa(it.offset))

	body, err := it.client.Get(ctx, it.path, it.version, params)
	if err != nil {
		it.err = err
		it.done = true
		return
	}

	items, ok := body[it.dataKey].([]any)
	if !ok {
		it.client.logger.Warnw("Unexpected paginated payload, stopping pagination", "path", it.path, "offset", it.offset, "data_key", it.dataKey)
		it.done = true
		return
	}

	for _, item := range items {
		if record, ok := item.(map[string]any); ok {
			it.page = append(it.page, record)
		} else {
			it.client.logger.Warnw("Skipped non-object item in paginated payload", "path", it.path, "offset", it.offset)
		}
	}

	if len(items) < it.limit {
		it.done = true
	} else {
		it.offset += it.limit
	}
}
