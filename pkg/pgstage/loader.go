package pgstage

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Querier is the read side of a connection or transaction.
// Both pgx.Tx and *pgxpool.Conn satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SchemaReader resolves a target table's ordered column list from the catalog.
type SchemaReader interface {
	// ReadSchema returns the columns of schema.table in ordinal order.
	// It returns *SchemaNotFoundError when the table has no visible columns.
	ReadSchema(ctx context.Context, q Querier, schema, table string) (TableSchema, error)
}

// Stager moves parsed batches into a session-scoped staging relation and
// promotes them to the target table. All methods run inside the caller's
// transaction and never commit or roll back.
type Stager interface {
	// OpenStaging (re)creates an empty staging relation shaped like the target.
	// Calling it twice for the same table leaves exactly one empty relation.
	OpenStaging(ctx context.Context, tx pgx.Tx, target TableSchema) (StagingRelation, error)

	// AppendBatch bulk-copies one batch and returns the rows written.
	AppendBatch(ctx context.Context, tx pgx.Tx, rel StagingRelation, batch RowBatch) (int64, error)

	// Promote inserts all staged rows into the target and returns the count.
	Promote(ctx context.Context, tx pgx.Tx, rel StagingRelation) (int64, error)

	// DropStaging removes the staging relation.
	DropStaging(ctx context.Context, tx pgx.Tx, rel StagingRelation) error
}
