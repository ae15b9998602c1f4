// Package pager runs a compiled search as a counted, paginated query or as a
// capped export. Count always runs before the page fetch because the page
// window depends on it. Failures are returned as ErrQueryExecution and never
// retried.
package pager

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"multisearch/internal/logger"

	"github.com/Masterminds/squirrel"
)

// DefaultPageSize is used when a definition does not set one.
const DefaultPageSize = 50

// ErrQueryExecution wraps every failure of the execution collaborator.
var ErrQueryExecution = errors.New("query execution failure")

// Row is one result record keyed by column name.
type Row map[string]any

// RowSet is a fetched result with its column order.
type RowSet struct {
	Columns []string
	Rows    []Row
}

// Executor is the query execution capability handed to the pager.
type Executor interface {
	Count(ctx context.Context, sql string, args []any) (int, error)
	Fetch(ctx context.Context, sql string, args []any) (RowSet, error)
}

// Query is what the pager needs from a compiled search.
type Query interface {
	CountBuilder() squirrel.SelectBuilder
	SelectBuilder() squirrel.SelectBuilder
}

// PageResult is one page of a search.
type PageResult struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
	// TotalAvailable is truncated to the hard cap when one applies.
	TotalAvailable int `json:"total"`
	// TotalMatched is the untruncated count.
	TotalMatched int  `json:"total_matched"`
	TotalPages   int  `json:"total_pages"`
	CurrentPage  int  `json:"page"`
	CappedAt     *int `json:"capped_at,omitempty"`
}

// Capped reports whether a hard cap truncated the result.
func (p PageResult) Capped() bool {
	return p.CappedAt != nil
}

// Summary is the user-facing count line.
func (p PageResult) Summary() string {
	if p.TotalMatched == 0 {
		return "No items were found."
	}
	s := "There are " + strconv.Itoa(p.TotalMatched) + " items."
	if p.TotalMatched == 1 {
		s = "There is one item."
	}
	if p.Capped() {
		return s + " Only the first " + strconv.Itoa(*p.CappedAt) + " can be shown."
	}
	shown := len(p.Rows)
	if shown == p.TotalMatched {
		return s
	}
	if shown == 1 {
		return s + " One is shown."
	}
	return s + " " + strconv.Itoa(shown) + " are shown."
}

// ParsePage reads a requested page number; anything but a positive decimal
// number is page 1.
func ParsePage(s string) int {
	if s == "" {
		return 1
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 1
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func execError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrQueryExecution, op, err)
}

// Count runs the COUNT query and applies the hard cap.
func Count(ctx context.Context, exec Executor, q Query, hardCap int) (total, matched int, cappedAt *int, err error) {
	sqlStr, args, err := q.CountBuilder().ToSql()
	if err != nil {
		return 0, 0, nil, fmt.Errorf("count sql: %w", err)
	}
	logger.Debug("sql", map[string]any{"op": "count", "sql": sqlStr, "args": args})

	matched, err = exec.Count(ctx, sqlStr, args)
	if err != nil {
		return 0, 0, nil, execError("count", err)
	}
	total = matched
	if hardCap > 0 && matched > hardCap {
		c := hardCap
		total, cappedAt = hardCap, &c
	}
	return total, matched, cappedAt, nil
}

// Execute counts, then fetches the requested page. Pages past the end yield
// zero rows without error.
func Execute(ctx context.Context, exec Executor, q Query, page, pageSize, hardCap int) (PageResult, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	total, matched, cappedAt, err := Count(ctx, exec, q, hardCap)
	if err != nil {
		return PageResult{}, err
	}

	res := PageResult{
		Rows:           []Row{},
		TotalAvailable: total,
		TotalMatched:   matched,
		TotalPages:     (total + pageSize - 1) / pageSize,
		CurrentPage:    page,
		CappedAt:       cappedAt,
	}

	// compared in pages so an absurd page number cannot overflow the offset
	if page > res.TotalPages {
		return res, nil
	}
	offset := (page - 1) * pageSize
	limit := pageSize
	if offset+limit > total {
		// stops the fetch at the hard cap; without a cap this is the real end
		limit = total - offset
	}

	sb := q.SelectBuilder().Limit(uint64(limit))
	if offset > 0 {
		sb = sb.Offset(uint64(offset))
	}
	rs, err := fetch(ctx, exec, sb, "page")
	if err != nil {
		return PageResult{}, err
	}
	res.Columns, res.Rows = rs.Columns, rs.Rows
	return res, nil
}

// Export fetches the whole result in search order, up to hardCap rows when
// one is configured.
func Export(ctx context.Context, exec Executor, q Query, hardCap int) (RowSet, error) {
	sb := q.SelectBuilder()
	if hardCap > 0 {
		sb = sb.Limit(uint64(hardCap))
	}
	return fetch(ctx, exec, sb, "export")
}

func fetch(ctx context.Context, exec Executor, sb squirrel.SelectBuilder, op string) (RowSet, error) {
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return RowSet{}, fmt.Errorf("%s sql: %w", op, err)
	}
	logger.Debug("sql", map[string]any{"op": op, "sql": sqlStr, "args": args})

	rs, err := exec.Fetch(ctx, sqlStr, args)
	if err != nil {
		return RowSet{}, execError(op, err)
	}
	if rs.Rows == nil {
		rs.Rows = []Row{}
	}
	return rs, nil
}
