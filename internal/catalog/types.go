package catalog

import (
	"context"
	"fmt"
	"strings"
)

// SimpleType is the reduced column type that selects a search strategy.
type SimpleType int

const (
	TypeUnknown SimpleType = iota
	TypeString
	TypeText
	TypeNumeric
	TypeDate
	TypeList
	TypePoint
)

var simpleTypeNames = map[SimpleType]string{
	TypeUnknown: "unknown",
	TypeString:  "string",
	TypeText:    "text",
	TypeNumeric: "numeric",
	TypeDate:    "date",
	TypeList:    "list",
	TypePoint:   "point",
}

func (t SimpleType) String() string {
	if name, ok := simpleTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SimpleType(%d)", int(t))
}

func (t SimpleType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText is the inverse of MarshalText, so a cached catalog holding
// columns of no searchable type reads back unchanged.
func (t *SimpleType) UnmarshalText(text []byte) error {
	if strings.EqualFold(strings.TrimSpace(string(text)), simpleTypeNames[TypeUnknown]) {
		*t = TypeUnknown
		return nil
	}
	parsed, err := ParseSimpleType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseSimpleType accepts the names produced by SimpleType.String.
func ParseSimpleType(s string) (SimpleType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range simpleTypeNames {
		if name == s && t != TypeUnknown {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("unknown simple type %q", s)
}

// FieldDescriptor describes one searchable column.
type FieldDescriptor struct {
	Name       string     `json:"name" yaml:"name"`
	SimpleType SimpleType `json:"type" yaml:"type"`
	Nullable   bool       `json:"nullable" yaml:"nullable"`
}

// Supplier returns the columns of database.table.
type Supplier interface {
	GetFields(ctx context.Context, database, table string) ([]FieldDescriptor, error)
}

// Index maps field names to descriptors.
func Index(fields []FieldDescriptor) map[string]FieldDescriptor {
	out := make(map[string]FieldDescriptor, len(fields))
	for _, f := range fields {
		out[f.Name] = f
	}
	return out
}

// SimpleTypeFromSQL reduces a vendor column type (MySQL COLUMN_TYPE, Postgres
// data_type or udt_name) to a SimpleType.
func SimpleTypeFromSQL(sqlType string) SimpleType {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	if i := strings.IndexAny(t, "( "); i > 0 {
		t = t[:i]
	}
	switch t {
	case "char", "varchar", "character", "bpchar", "uuid", "citext":
		return TypeString
	case "text", "tinytext", "mediumtext", "longtext":
		return TypeText
	case "int", "integer", "tinyint", "smallint", "mediumint", "bigint",
		"int2", "int4", "int8", "float", "float4", "float8", "double", "real",
		"decimal", "numeric", "serial", "bigserial":
		return TypeNumeric
	case "date", "datetime", "timestamp", "timestamptz", "time", "timetz", "year":
		return TypeDate
	case "enum", "set", "bool", "boolean":
		return TypeList
	case "point", "geometry", "polygon", "multipolygon", "geography":
		return TypePoint
	}
	return TypeUnknown
}
