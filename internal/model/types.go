package model

import (
	"multisearch/internal/catalog"
	"multisearch/internal/postprocess"
	"multisearch/internal/search"
)

// Model describes one searchable table.
type Model struct {
	Name             string                       `yaml:"-"` // file name without extension
	Database         string                       `yaml:"database"`
	Table            string                       `yaml:"table"`
	Description      string                       `yaml:"description"`      // as in "search the <description>"
	KeyField         string                       `yaml:"key_field"`        // default "id"
	MainSubjectField string                       `yaml:"main_subject_field"`
	OrderBy          string                       `yaml:"order_by"`
	PageSize         int                          `yaml:"page_size"`        // default 50
	HardCap          int                          `yaml:"hard_cap"`         // 0 = unlimited
	ExcludeFields    []string                     `yaml:"exclude_fields"`
	ShowFields       []string                     `yaml:"show_fields"`
	Codings          map[string]map[string]string `yaml:"codings"`
	FixedConstraint  string                       `yaml:"fixed_constraint"` // trusted SQL, never user input
	Geographic       Geographic                   `yaml:"geographic"`
	Vendor           string                       `yaml:"vendor"`           // postgres, mysql, generic
	RecordLink       string                       `yaml:"record_link"`
	Headings         map[string]string            `yaml:"headings"`
	IgnoreKeys       []string                     `yaml:"ignore_keys"`
	// Fields, when present, replaces schema introspection.
	Fields []catalog.FieldDescriptor `yaml:"fields"`

	// для runtime (не сериализуется)
	_Dialect search.Dialect `yaml:"-"`
}

type Geographic struct {
	Enabled    bool   `yaml:"enabled"`
	Field      string `yaml:"field"`       // default "geometry"
	TrueWithin bool   `yaml:"true_within"` // mysql: exact test via trueWithin()
	SRID       int    `yaml:"srid"`        // postgres: SRID passed to ST_GeomFromText
}

// Dialect returns the resolved vendor dialect (set by Validate).
func (m *Model) Dialect() search.Dialect {
	return m._Dialect
}

// SearchOptions maps the definition onto search.Options.
func (m *Model) SearchOptions() search.Options {
	opts := search.Options{
		Database:         m.Database,
		Table:            m.Table,
		KeyField:         m.KeyField,
		MainSubjectField: m.MainSubjectField,
		OrderBy:          m.OrderBy,
		FixedConstraint:  m.FixedConstraint,
		Dialect:          m._Dialect,
	}
	if m.Geographic.Enabled {
		opts.GeographicField = m.Geographic.Field
	}
	return opts
}

// Processor builds the row postprocessor for this definition.
func (m *Model) Processor() postprocess.Processor {
	return postprocess.Processor{
		Exclude: m.ExcludeFields,
		Show:    m.ShowFields,
		Codings: m.Codings,
	}
}

// Renderer returns the row renderer for this definition.
func (m *Model) Renderer() postprocess.RowRenderer {
	return postprocess.Renderer(m.RecordLink)
}

// IgnoredKeys are the request keys stripped before classification.
func (m *Model) IgnoredKeys() []string {
	if len(m.IgnoreKeys) > 0 {
		return m.IgnoreKeys
	}
	return search.DefaultIgnoredKeys
}
