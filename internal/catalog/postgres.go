package catalog

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// Querier is the part of pgx.Conn / pgxpool.Pool used for introspection.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres reads column metadata from information_schema.
// The database argument of GetFields is the schema name; empty means "public".
type Postgres struct {
	DB Querier
}

func (p Postgres) GetFields(ctx context.Context, database, table string) ([]FieldDescriptor, error) {
	if database == "" {
		database = "public"
	}
	sqlStr, args, err := squirrel.Select("column_name", "data_type", "udt_name", "is_nullable").
		From("information_schema.columns").
		Where(squirrel.Eq{"table_schema": database, "table_name": table}).
		OrderBy("ordinal_position").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := p.DB.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("introspect %s.%s: %w", database, table, err)
	}
	defer rows.Close()

	var fields []FieldDescriptor
	for rows.Next() {
		var name, dataType, udtName, nullable string
		if err := rows.Scan(&name, &dataType, &udtName, &nullable); err != nil {
			return nil, fmt.Errorf("introspect %s.%s: %w", database, table, err)
		}
		st := SimpleTypeFromSQL(dataType)
		if st == TypeUnknown {
			// USER-DEFINED (PostGIS) and ARRAY columns carry the useful name in udt_name
			st = SimpleTypeFromSQL(udtName)
		}
		fields = append(fields, FieldDescriptor{
			Name:       name,
			SimpleType: st,
			Nullable:   nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect %s.%s: %w", database, table, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("introspect %s.%s: table has no columns or does not exist", database, table)
	}
	return fields, nil
}
