package search

import (
	"fmt"

	"multisearch/internal/catalog"
	"multisearch/internal/logger"

	"github.com/Masterminds/squirrel"
)

// Options configure one searchable table.
type Options struct {
	Database         string
	Table            string
	KeyField         string
	MainSubjectField string
	OrderBy          string
	FixedConstraint  string
	// GeographicField is the request key and column of the map search;
	// empty disables geographic classification.
	GeographicField string
	Dialect         Dialect
}

// TableRef is database.table, or table when no database is set.
func (o Options) TableRef() string {
	if o.Database == "" {
		return o.Table
	}
	return o.Database + "." + o.Table
}

// Compiled is the outcome of Build.
type Compiled struct {
	Mode    Mode
	Clauses []Clause
	Query   CompiledQuery
}

// Build classifies req, compiles its clauses against fields and assembles the
// query. Unknown fields are dropped; if nothing survives the result is
// ErrInvalidSearchParameters.
func Build(req Request, fields []catalog.FieldDescriptor, opts Options) (Compiled, error) {
	if opts.Dialect == nil {
		return Compiled{}, fmt.Errorf("build %s: no dialect configured", opts.TableRef())
	}
	mode := Classify(req, opts.GeographicField)
	if mode == ModeNone {
		return Compiled{Mode: mode}, ErrInvalidSearchParameters
	}

	comp := Compiler{
		KeyField:         opts.KeyField,
		MainSubjectField: opts.MainSubjectField,
		Dialect:          opts.Dialect,
	}
	index := catalog.Index(fields)

	var (
		clauses     []Clause
		constraints []squirrel.Sqlizer
		spatial     []Clause
		join        = OpAnd
		err         error
	)

	switch mode {
	case ModeSimple:
		join = OpOr
		clauses, err = comp.Simple(req.Fields[KeySearch])
		if err != nil {
			return Compiled{Mode: mode}, err
		}
		if raw, ok := req.Fields[opts.GeographicField]; ok {
			if fd, known := index[opts.GeographicField]; known {
				c, err := comp.Compile(opts.GeographicField, raw, fd, false)
				if err != nil {
					return Compiled{Mode: mode}, err
				}
				constraints = append(constraints, c)
				spatial = append(spatial, c)
			}
		}
	default:
		for _, key := range req.Keys() {
			fd, ok := index[key]
			if !ok {
				logger.Debug("search_field_dropped", map[string]any{"field": key, "table": opts.TableRef()})
				continue
			}
			c, err := comp.Compile(key, req.Fields[key], fd, true)
			if err != nil {
				return Compiled{Mode: mode}, err
			}
			clauses = append(clauses, c)
		}
		if len(clauses) == 0 {
			return Compiled{Mode: mode}, ErrInvalidSearchParameters
		}
		spatial = clauses
	}

	var pf *Prefilter
	for _, c := range spatial {
		if c.Geometry != nil {
			pf = &Prefilter{Field: c.Field, Literal: *c.Geometry}
			break
		}
	}

	q := Assemble(AssembleInput{
		Clauses:         clauses,
		Join:            join,
		Constraints:     constraints,
		FixedConstraint: opts.FixedConstraint,
		OrderBy:         opts.OrderBy,
		Table:           opts.TableRef(),
		Prefilter:       pf,
		Dialect:         opts.Dialect,
	})
	return Compiled{Mode: mode, Clauses: clauses, Query: q}, nil
}
