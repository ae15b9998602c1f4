package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"multisearch/internal/geometry"

	"github.com/Masterminds/squirrel"
)

// Dialect holds the vendor specific pieces of a search query.
type Dialect interface {
	Name() string
	Placeholder() squirrel.PlaceholderFormat
	// RegexpOperator is placed between the column and the bound pattern.
	RegexpOperator() string
	// TextColumn is the column expression compared with raw request strings
	// in key and equality matches.
	TextColumn(field string) string
	// Contains is the exact polygon containment predicate for field.
	Contains(lit geometry.Literal, field string) string
}

// BoundingBoxer is implemented by dialects that have an indexed, approximate
// containment test worth running before Contains. An empty result means no
// prefilter for this configuration.
type BoundingBoxer interface {
	BoundingBox(lit geometry.Literal, field string) string
}

// DialectOptions are the per-definition knobs a dialect factory may use.
type DialectOptions struct {
	SRID       int
	TrueWithin bool
}

// DialectFactory builds a Dialect for one search definition.
type DialectFactory func(opts DialectOptions) Dialect

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]DialectFactory{
		"postgres": func(o DialectOptions) Dialect { return postgresDialect{srid: o.SRID} },
		"mysql":    func(o DialectOptions) Dialect { return mysqlDialect{trueWithin: o.TrueWithin} },
		"generic":  func(o DialectOptions) Dialect { return genericDialect{} },
	}
)

// RegisterDialect adds or replaces a vendor.
func RegisterDialect(name string, f DialectFactory) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(name)] = f
}

// LookupDialect returns the dialect registered under vendor.
func LookupDialect(vendor string, opts DialectOptions) (Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	f, ok := dialects[strings.ToLower(vendor)]
	if !ok {
		return nil, fmt.Errorf("unknown vendor %q (known: %s)", vendor, strings.Join(knownDialects(), ", "))
	}
	return f(opts), nil
}

func knownDialects() []string {
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type postgresDialect struct {
	srid int
}

func (postgresDialect) Name() string                            { return "postgres" }
func (postgresDialect) Placeholder() squirrel.PlaceholderFormat { return squirrel.Dollar }

// RegexpOperator is case-insensitive, as MySQL REGEXP is under its default
// collations.
func (postgresDialect) RegexpOperator() string { return "~*" }

func (postgresDialect) TextColumn(field string) string { return "CAST(" + field + " AS TEXT)" }

func (d postgresDialect) geom(wkt string) string {
	if d.srid > 0 {
		return "ST_GeomFromText('" + wkt + "', " + strconv.Itoa(d.srid) + ")"
	}
	return "ST_GeomFromText('" + wkt + "')"
}

func (d postgresDialect) Contains(lit geometry.Literal, field string) string {
	return "ST_Contains(" + d.geom(lit.WKT()) + ", " + field + ")"
}

func (d postgresDialect) BoundingBox(lit geometry.Literal, field string) string {
	return field + " && " + d.geom(lit.EnvelopeWKT())
}

type mysqlDialect struct {
	trueWithin bool
}

func (mysqlDialect) Name() string                            { return "mysql" }
func (mysqlDialect) Placeholder() squirrel.PlaceholderFormat { return squirrel.Question }
func (mysqlDialect) RegexpOperator() string                  { return "REGEXP" }
func (mysqlDialect) TextColumn(field string) string          { return field }

func (d mysqlDialect) Contains(lit geometry.Literal, field string) string {
	geom := "ST_GeomFromText('" + lit.WKT() + "')"
	if d.trueWithin {
		return "trueWithin(" + field + ", " + geom + ")"
	}
	return "MBRContains(" + geom + ", " + field + ")"
}

// BoundingBox only pays off when the exact test is the slow trueWithin;
// otherwise Contains already is the MBR test.
func (d mysqlDialect) BoundingBox(lit geometry.Literal, field string) string {
	if !d.trueWithin {
		return ""
	}
	return "MBRContains(ST_GeomFromText('" + lit.WKT() + "'), " + field + ")"
}

// genericDialect speaks OGC function names and has no fast spatial primitive.
type genericDialect struct{}

func (genericDialect) Name() string                            { return "generic" }
func (genericDialect) Placeholder() squirrel.PlaceholderFormat { return squirrel.Question }
func (genericDialect) RegexpOperator() string                  { return "REGEXP" }
func (genericDialect) TextColumn(field string) string          { return field }

func (genericDialect) Contains(lit geometry.Literal, field string) string {
	return "ST_Contains(ST_GeomFromText('" + lit.WKT() + "'), " + field + ")"
}
