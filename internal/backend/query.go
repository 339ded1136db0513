// ABOUTME: PostgREST-dialect query builder for the backend REST interface
// ABOUTME: Select/filter/order/range queries with exact counts and row patches

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Query accumulates a single REST round trip against one table. Filters are
// conjunctive; Or composes a disjunction as one filter. A Query is built,
// executed once, and discarded.
type Query struct {
	c       *Client
	table   string
	sel     string
	count   bool
	filters []queryFilter
	order   string
	limit   int
	from    int
	to      int
	ranged  bool
}

type queryFilter struct {
	key   string
	value string
}

// Select sets the column projection, including any resource embeds
// (e.g. "id,status,live_accounts(id,platform)").
func (q *Query) Select(columns string) *Query {
	q.sel = columns
	return q
}

// Count requests the exact matching row count alongside the page.
func (q *Query) Count() *Query {
	q.count = true
	return q
}

// Eq adds an equality predicate. Qualified columns address embedded
// relations (e.g. "live_accounts.platform").
func (q *Query) Eq(column, value string) *Query {
	q.filters = append(q.filters, queryFilter{column, "eq." + value})
	return q
}

// Ilike adds a case-insensitive pattern predicate. The caller is responsible
// for escaping pattern metacharacters in operator input (see EscapeLike).
func (q *Query) Ilike(column, pattern string) *Query {
	q.filters = append(q.filters, queryFilter{column, "ilike." + pattern})
	return q
}

// In adds a membership predicate over the given values.
func (q *Query) In(column string, values []string) *Query {
	q.filters = append(q.filters, queryFilter{column, "in.(" + strings.Join(values, ",") + ")"})
	return q
}

// Or adds a disjunction of raw conditions, each in "column.op.value" form.
func (q *Query) Or(conditions ...string) *Query {
	q.filters = append(q.filters, queryFilter{"or", "(" + strings.Join(conditions, ",") + ")"})
	return q
}

// Order sets the ordering column. Every listing orders by a stable column so
// pagination stays deterministic.
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

// Range selects the inclusive row window [from, to], sent as a Range header.
func (q *Query) Range(from, to int) *Query {
	q.from = from
	q.to = to
	q.ranged = true
	return q
}

func (q *Query) buildURL() string {
	params := url.Values{}
	if q.sel != "" {
		params.Set("select", q.sel)
	}
	for _, f := range q.filters {
		params.Add(f.key, f.value)
	}
	if q.order != "" {
		params.Set("order", q.order)
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	u := q.c.baseURL + "/rest/v1/" + q.table
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func (q *Query) applyHeaders(req *http.Request) {
	if q.count {
		req.Header.Set("Prefer", "count=exact")
	}
	if q.ranged {
		req.Header.Set("Range-Unit", "items")
		req.Header.Set("Range", fmt.Sprintf("%d-%d", q.from, q.to))
	}
}

// Get executes the query, decodes the row page into dest (a pointer to a
// slice), and returns the exact total when Count was requested (-1 otherwise).
// The page and the total come from the same round trip.
func (q *Query) Get(ctx context.Context, token string, dest any) (int64, error) {
	req, err := q.c.newRequest(ctx, http.MethodGet, q.buildURL(), nil, token)
	if err != nil {
		return 0, err
	}
	q.applyHeaders(req)

	resp, err := q.c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, decodeError(resp)
	}

	total := parseContentRangeTotal(resp.Header.Get("Content-Range"))
	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return 0, fmt.Errorf("decoding rows: %w", err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return total, nil
}

// GetOne fetches a single entity into dest. Zero matching rows yield
// ErrNotFound; dest receives the first (and only expected) row otherwise.
func (q *Query) GetOne(ctx context.Context, token string, dest any) error {
	q.limit = 1
	var raw []json.RawMessage
	if _, err := q.Get(ctx, token, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw[0], dest); err != nil {
		return fmt.Errorf("decoding row: %w", err)
	}
	return nil
}

// CountOnly returns the exact matching row count without fetching rows,
// using a HEAD request.
func (q *Query) CountOnly(ctx context.Context, token string) (int64, error) {
	q.count = true
	req, err := q.c.newRequest(ctx, http.MethodHead, q.buildURL(), nil, token)
	if err != nil {
		return 0, err
	}
	q.applyHeaders(req)

	resp, err := q.c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, decodeError(resp)
	}

	total := parseContentRangeTotal(resp.Header.Get("Content-Range"))
	if total < 0 {
		return 0, fmt.Errorf("backend returned no row count")
	}
	return total, nil
}

// UpdateOne issues a conditional PATCH with the accumulated filters and
// decodes the single updated row (projected by Select) into dest. Zero
// affected rows yield ErrNotFound.
func (q *Query) UpdateOne(ctx context.Context, token string, patch any, dest any) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encoding patch: %w", err)
	}

	req, err := q.c.newRequest(ctx, http.MethodPatch, q.buildURL(), strings.NewReader(string(data)), token)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=representation")

	resp, err := q.c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decoding updated rows: %w", err)
	}
	if len(raw) == 0 {
		return ErrNotFound
	}
	if dest != nil {
		if err := json.Unmarshal(raw[0], dest); err != nil {
			return fmt.Errorf("decoding updated row: %w", err)
		}
	}
	return nil
}

// parseContentRangeTotal extracts the total from a Content-Range header of
// the form "0-19/57", "*/0", or "items 0-19/57". Returns -1 when the header
// is absent or carries no total.
func parseContentRangeTotal(header string) int64 {
	if header == "" {
		return -1
	}
	header = strings.TrimPrefix(header, "items ")
	idx := strings.LastIndexByte(header, '/')
	if idx < 0 {
		return -1
	}
	totalPart := header[idx+1:]
	if totalPart == "*" || totalPart == "" {
		return -1
	}
	total, err := strconv.ParseInt(totalPart, 10, 64)
	if err != nil {
		return -1
	}
	return total
}
