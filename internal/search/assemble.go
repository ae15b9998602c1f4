package search

import (
	"strings"

	"multisearch/internal/geometry"

	"github.com/Masterminds/squirrel"
)

// Operator joins the compiled clauses.
type Operator string

const (
	OpOr  Operator = "OR"
	OpAnd Operator = "AND"
)

// Prefilter asks the assembler to narrow the datasource by the bounding box
// of a polygon before the exact test runs in the outer WHERE.
type Prefilter struct {
	Field   string
	Literal geometry.Literal
}

type AssembleInput struct {
	Clauses []Clause
	Join    Operator
	// Constraints are ANDed at top level next to the joined clauses.
	Constraints     []squirrel.Sqlizer
	FixedConstraint string
	OrderBy         string
	Table           string
	Prefilter       *Prefilter
	Dialect         Dialect
}

// CompiledQuery is an executable search over Datasource.
type CompiledQuery struct {
	Where       squirrel.Sqlizer
	OrderBy     string
	Datasource  string
	Placeholder squirrel.PlaceholderFormat
}

// Assemble combines clauses, constraints, the fixed administrative
// constraint and the optional prefilter into one query. The fixed constraint
// is applied outside the joined clauses so OR mode cannot bypass it.
func Assemble(in AssembleInput) CompiledQuery {
	parts := make([]squirrel.Sqlizer, len(in.Clauses))
	for i, c := range in.Clauses {
		parts[i] = c
	}

	var joined squirrel.Sqlizer
	if in.Join == OpOr {
		joined = squirrel.Or(parts)
	} else {
		joined = squirrel.And(parts)
	}

	top := squirrel.And{joined}
	top = append(top, in.Constraints...)
	if fc := strings.TrimSpace(in.FixedConstraint); fc != "" {
		top = append(top, squirrel.Expr("("+fc+")"))
	}

	var where squirrel.Sqlizer = top
	if len(top) == 1 {
		where = joined
	}

	q := CompiledQuery{
		Where:      where,
		OrderBy:    in.OrderBy,
		Datasource: in.Table,
	}
	if in.Dialect != nil {
		q.Placeholder = in.Dialect.Placeholder()
		q.Datasource = datasource(in.Table, in.Prefilter, in.Dialect)
	}
	return q
}

// datasource falls back to the plain table when the dialect has no bounding
// box primitive.
func datasource(table string, pf *Prefilter, d Dialect) string {
	if pf == nil {
		return table
	}
	bb, ok := d.(BoundingBoxer)
	if !ok {
		return table
	}
	pred := bb.BoundingBox(pf.Literal, pf.Field)
	if pred == "" {
		return table
	}
	alias := table
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		alias = table[i+1:]
	}
	return "(SELECT * FROM " + table + " WHERE " + pred + ") AS " + alias
}

func (q CompiledQuery) statement() squirrel.StatementBuilderType {
	ph := q.Placeholder
	if ph == nil {
		ph = squirrel.Question
	}
	return squirrel.StatementBuilder.PlaceholderFormat(ph)
}

// SelectBuilder selects every column in search order.
func (q CompiledQuery) SelectBuilder() squirrel.SelectBuilder {
	sb := q.statement().Select("*").From(q.Datasource).Where(q.Where)
	if q.OrderBy != "" {
		sb = sb.OrderBy(q.OrderBy)
	}
	return sb
}

// CountBuilder counts the rows matched by the same datasource and WHERE.
func (q CompiledQuery) CountBuilder() squirrel.SelectBuilder {
	return q.statement().Select("COUNT(*)").From(q.Datasource).Where(q.Where)
}

// WhereSQL renders the WHERE body with ? placeholders and its bound values.
func (q CompiledQuery) WhereSQL() (string, []any, error) {
	return q.Where.ToSql()
}
