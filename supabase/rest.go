package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rpupo63/portfolio-site-backend/errs"
)

// Match is a set of column equality filters.
type Match map[string]any

// Query describes a filtered read. Zero values mean "all columns, no filter,
// server order, no limit".
type Query struct {
	Columns string
	Eq      Match
	Order   string // e.g. "display_order.asc"
	Limit   int
}

func (q Query) encode() string {
	cols := q.Columns
	if cols == "" {
		cols = "*"
	}

	var b strings.Builder
	b.WriteString("select=")
	b.WriteString(cols)
	if f := q.Eq.encode(); f != "" {
		b.WriteByte('&')
		b.WriteString(f)
	}
	if q.Order != "" {
		b.WriteString("&order=")
		b.WriteString(q.Order)
	}
	if q.Limit > 0 {
		b.WriteString("&limit=")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	return b.String()
}

// encode renders the filters as col=eq.value pairs in column order.
func (m Match) encode() string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"=eq."+escapeComponent(fmt.Sprint(m[k])))
	}
	return strings.Join(parts, "&")
}

// escapeComponent percent-encodes a query value, spaces included.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func restPath(table, query string) string {
	p := "/rest/v1/" + url.PathEscape(table)
	if query != "" {
		p += "?" + query
	}
	return p
}

// Select reads the rows matching q into dest, which must point to a slice.
func (c *Client) Select(ctx context.Context, table string, q Query, dest any) error {
	req, err := c.newRequest(ctx, http.MethodGet, restPath(table, q.encode()), nil, c.bearer(ctx, false))
	if err != nil {
		return err
	}

	raw, status, err := c.do(req, "select "+table, failure{
		kind:     errs.ErrQuery,
		keys:     []string{"message", "error"},
		fallback: "Failed to fetch data",
	})
	if err != nil {
		return err
	}
	return decodeRows(raw, dest, errs.ErrQuery, status)
}

// SelectSingle reads the first matching row into dest. It reports false,
// without error, when nothing matched.
func (c *Client) SelectSingle(ctx context.Context, table string, q Query, dest any) (bool, error) {
	q.Limit = 1

	var rows []json.RawMessage
	if err := c.Select(ctx, table, q, &rows); err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(rows[0], dest); err != nil {
		return false, &errs.BackendErr{Kind: errs.ErrQuery, StatusCode: http.StatusOK, Message: "Failed to decode row", Cause: err}
	}
	return true, nil
}

// Insert creates record and decodes the stored representation into dest
// when dest is not nil.
func (c *Client) Insert(ctx context.Context, table string, record, dest any) error {
	body, err := jsonBody(record)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, restPath(table, ""), body, c.bearer(ctx, true))
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=representation")

	raw, status, err := c.do(req, "insert "+table, failure{
		kind:     errs.ErrInsert,
		keys:     []string{"message", "error"},
		fallback: "Failed to insert data",
	})
	if err != nil {
		return err
	}
	return decodeRows(raw, dest, errs.ErrInsert, status)
}

// Update applies patch to every row matching match.
func (c *Client) Update(ctx context.Context, table string, patch any, match Match, dest any) error {
	if len(match) == 0 {
		return errs.NewMissingRequiredFieldError("match")
	}
	body, err := jsonBody(patch)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPatch, restPath(table, match.encode()), body, c.bearer(ctx, true))
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=representation")

	raw, status, err := c.do(req, "update "+table, failure{
		kind:     errs.ErrUpdate,
		keys:     []string{"message", "error"},
		fallback: "Failed to update data",
	})
	if err != nil {
		return err
	}
	return decodeRows(raw, dest, errs.ErrUpdate, status)
}

// Delete removes every row matching match.
func (c *Client) Delete(ctx context.Context, table string, match Match) (bool, error) {
	if len(match) == 0 {
		return false, errs.NewMissingRequiredFieldError("match")
	}
	req, err := c.newRequest(ctx, http.MethodDelete, restPath(table, match.encode()), nil, c.bearer(ctx, true))
	if err != nil {
		return false, err
	}

	if _, _, err := c.do(req, "delete "+table, failure{
		kind:     errs.ErrDelete,
		keys:     []string{"message", "error"},
		fallback: "Failed to delete data",
	}); err != nil {
		return false, err
	}
	return true, nil
}

func decodeRows(raw []byte, dest any, kind error, status int) error {
	if dest == nil || len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return &errs.BackendErr{Kind: kind, StatusCode: status, Message: "Failed to decode response", Cause: err}
	}
	return nil
}
