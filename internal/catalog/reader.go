package catalog

import (
	"context"
	"fmt"

	"github.com/vvka-141/pgstage/internal/typemap"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// queryTableColumns returns a table's columns in physical order.
// Array and user-defined types report their udt_name so they can be
// shown to the operator (e.g. "_int4", "mood").
// Parameters: $1 schema, $2 table
const queryTableColumns = `
	SELECT column_name::text,
	       (CASE WHEN data_type IN ('ARRAY', 'USER-DEFINED') THEN udt_name ELSE data_type END)::text,
	       ordinal_position::int4,
	       is_nullable::text = 'YES'
	FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = $2
	ORDER BY ordinal_position
`

// Reader resolves table schemas from information_schema.
// It issues read-only queries and is safe for concurrent use.
type Reader struct{}

// NewReader creates a catalog Reader.
func NewReader() *Reader {
	return &Reader{}
}

var _ pgstage.SchemaReader = (*Reader)(nil)

// ReadSchema returns schema.table's columns ordered by ordinal position.
// A table that does not exist, or whose columns the session cannot see,
// yields *pgstage.SchemaNotFoundError.
func (r *Reader) ReadSchema(ctx context.Context, q pgstage.Querier, schema, table string) (pgstage.TableSchema, error) {
	rows, err := q.Query(ctx, queryTableColumns, schema, table)
	if err != nil {
		return pgstage.TableSchema{}, fmt.Errorf("failed to query columns of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	result := pgstage.TableSchema{Schema: schema, Table: table}
	for rows.Next() {
		var col pgstage.Column
		var position int32
		if err := rows.Scan(&col.Name, &col.DeclaredType, &position, &col.Nullable); err != nil {
			return pgstage.TableSchema{}, fmt.Errorf("failed to scan column of %s.%s: %w", schema, table, err)
		}
		col.Position = int(position)
		col.Tag = typemap.Classify(col.DeclaredType)
		result.Columns = append(result.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return pgstage.TableSchema{}, fmt.Errorf("failed to read columns of %s.%s: %w", schema, table, err)
	}

	if len(result.Columns) == 0 {
		return pgstage.TableSchema{}, &pgstage.SchemaNotFoundError{Schema: schema, Table: table}
	}
	return result, nil
}
