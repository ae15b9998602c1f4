package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"multisearch/internal/catalog"
	"multisearch/internal/geometry"
	"multisearch/internal/logger"

	"github.com/Masterminds/squirrel"
)

const (
	boundaryStart = `(^|[^[:alnum:]_])`
	boundaryEnd   = `([^[:alnum:]_]|$)`
)

// Clause is one compiled predicate. Field and operator come from the trusted
// catalog; user values only ever travel in Args.
type Clause struct {
	Field string
	SQL   string
	Args  []any
	// Geometry is set for a successfully decoded point field.
	Geometry *geometry.Literal
}

func (c Clause) ToSql() (string, []interface{}, error) {
	return c.SQL, c.Args, nil
}

func fromSqlizer(field string, s squirrel.Sqlizer) (Clause, error) {
	sqlStr, args, err := s.ToSql()
	if err != nil {
		return Clause{}, fmt.Errorf("compile %s: %w", field, err)
	}
	return Clause{Field: field, SQL: sqlStr, Args: args}, nil
}

// Compiler turns field/value pairs into clauses.
type Compiler struct {
	KeyField         string
	MainSubjectField string
	Dialect          Dialect
}

// Compile dispatches on the descriptor type. The key field always gets a
// LIKE match with * globbing, whatever its type.
func (c Compiler) Compile(field, raw string, fd catalog.FieldDescriptor, wildcards bool) (Clause, error) {
	if field == c.KeyField {
		return fromSqlizer(field, squirrel.Like{c.Dialect.TextColumn(field): strings.ReplaceAll(raw, "*", "%")})
	}

	switch fd.SimpleType {
	case catalog.TypeString, catalog.TypeText:
		return c.wordBoundary(field, raw, wildcards), nil
	case catalog.TypeNumeric:
		return c.numeric(field, raw)
	case catalog.TypeDate, catalog.TypeList:
		return fromSqlizer(field, squirrel.Eq{c.Dialect.TextColumn(field): raw})
	case catalog.TypePoint:
		return c.point(field, raw), nil
	}
	return Clause{}, fmt.Errorf("%w: %s has type %s", ErrUnsupportedFieldType, field, fd.SimpleType)
}

// Simple produces the fixed two-clause simple search: key field equality and a
// non-wildcard word match on the main subject field.
func (c Compiler) Simple(term string) ([]Clause, error) {
	key, err := fromSqlizer(c.KeyField, squirrel.Eq{c.Dialect.TextColumn(c.KeyField): term})
	if err != nil {
		return nil, err
	}
	return []Clause{key, c.wordBoundary(c.MainSubjectField, term, false)}, nil
}

// numeric compares the column itself so its index stays usable; a value that
// is not a number can match nothing.
func (c Compiler) numeric(field, raw string) (Clause, error) {
	v := strings.TrimSpace(raw)
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		logger.Warn("numeric_value_rejected", map[string]any{
			"field": field,
			"value": raw,
		})
		return Clause{Field: field, SQL: "1=0"}, nil
	}
	return fromSqlizer(field, squirrel.Eq{field: v})
}

// WordPattern builds the regular expression used for text fields.
func WordPattern(term string, wildcards bool) string {
	p := regexp.QuoteMeta(term)
	if wildcards {
		p = strings.ReplaceAll(p, `\*`, `(.*)`)
	}
	return boundaryStart + p + boundaryEnd
}

func (c Compiler) wordBoundary(field, term string, wildcards bool) Clause {
	return Clause{
		Field: field,
		SQL:   field + " " + c.Dialect.RegexpOperator() + " ?",
		Args:  []any{WordPattern(term, wildcards)},
	}
}

func (c Compiler) point(field, raw string) Clause {
	lit, err := geometry.Decode(raw)
	if err != nil {
		logger.Warn("geometry_decode_failed", map[string]any{
			"field": field,
			"error": err.Error(),
		})
		return Clause{Field: field, SQL: "1=0"}
	}
	return Clause{
		Field:    field,
		SQL:      c.Dialect.Contains(lit, field),
		Geometry: &lit,
	}
}
