package db

import (
	"context"
	"fmt"

	"multisearch/internal/pager"

	"github.com/jackc/pgx/v5"
)

// Querier is the part of pgx.Conn / pgxpool.Pool the executor uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Executor runs search queries over pgx. It owns no connection lifecycle and
// never retries.
type Executor struct {
	DB Querier
}

func (e Executor) Count(ctx context.Context, sql string, args []any) (int, error) {
	var n int64
	if err := e.DB.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (e Executor) Fetch(ctx context.Context, sql string, args []any) (pager.RowSet, error) {
	rows, err := e.DB.Query(ctx, sql, args...)
	if err != nil {
		return pager.RowSet{}, err
	}
	defer rows.Close()
	return ScanRowSet(rows)
}

// ScanRowSet reads every row of rows keyed by the result column names.
func ScanRowSet(rows pgx.Rows) (pager.RowSet, error) {
	if rows == nil {
		return pager.RowSet{}, fmt.Errorf("rows is nil")
	}
	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	out := pager.RowSet{Columns: cols, Rows: make([]pager.Row, 0, 64)}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return pager.RowSet{}, err
		}
		// На всякий случай — берём минимум от фактических и ожидаемых колонок
		n := len(vals)
		if len(cols) < n {
			n = len(cols)
		}
		row := make(pager.Row, n)
		for i := 0; i < n; i++ {
			row[cols[i]] = vals[i]
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return pager.RowSet{}, err
	}
	return out, nil
}
