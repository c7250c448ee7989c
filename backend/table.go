package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Query is a request builder for the backend's table API. Filters are
// equality only; ordering and limit follow the REST conventions of the
// hosted Postgres gateway.
type Query struct {
	c       *Client
	table   string
	columns string
	filters url.Values
	order   string
	limit   int
}

// From starts a query against the given table.
func (c *Client) From(table string) *Query {
	return &Query{
		c:       c,
		table:   table,
		columns: "*",
		filters: url.Values{},
	}
}

// Select sets the columns to return.
func (q *Query) Select(columns ...string) *Query {
	if len(columns) > 0 {
		q.columns = strings.Join(columns, ",")
	}
	return q
}

// Eq adds an equality filter on a column.
func (q *Query) Eq(column, value string) *Query {
	q.filters.Set(column, "eq."+value)
	return q
}

// Order sets the result ordering.
func (q *Query) Order(column string, descending bool) *Query {
	dir := "asc"
	if descending {
		dir = "desc"
	}
	q.order = column + "." + dir
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) endpoint() (*url.URL, error) {
	u, err := url.Parse(q.c.baseURL + "/rest/v1/" + q.table)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	query := u.Query()
	for column, values := range q.filters {
		for _, v := range values {
			query.Set(column, v)
		}
	}
	u.RawQuery = query.Encode()
	return u, nil
}

// Get executes the query and decodes the resulting rows into dest, which
// must be a pointer to a slice.
func (q *Query) Get(ctx context.Context, dest any) error {
	u, err := q.endpoint()
	if err != nil {
		return err
	}

	query := u.Query()
	query.Set("select", q.columns)
	if q.order != "" {
		query.Set("order", q.order)
	}
	if q.limit > 0 {
		query.Set("limit", strconv.Itoa(q.limit))
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	body, err := q.c.do(req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// Insert adds a new row.
func (q *Query) Insert(ctx context.Context, row any) error {
	return q.write(ctx, row, "")
}

// Upsert inserts or updates a row, resolving conflicts on the given
// column.
func (q *Query) Upsert(ctx context.Context, row any, onConflict string) error {
	return q.write(ctx, row, onConflict)
}

func (q *Query) write(ctx context.Context, row any, onConflict string) error {
	u, err := q.endpoint()
	if err != nil {
		return err
	}
	if onConflict != "" {
		query := u.Query()
		query.Set("on_conflict", onConflict)
		u.RawQuery = query.Encode()
	}

	jsonBody, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if onConflict != "" {
		req.Header.Set("Prefer", "resolution=merge-duplicates")
	} else {
		req.Header.Set("Prefer", "return=minimal")
	}

	_, err = q.c.do(req)
	return err
}

// Delete removes the rows matching the query filters. A query without
// filters is rejected so a bug cannot wipe a whole table.
func (q *Query) Delete(ctx context.Context) error {
	if len(q.filters) == 0 {
		return fmt.Errorf("refusing to delete from %s without filters", q.table)
	}

	u, err := q.endpoint()
	if err != nil {
		return err
	}
	u.RawQuery = u.Query().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	_, err = q.c.do(req)
	return err
}
