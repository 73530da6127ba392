package staging_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgstage/internal/catalog"
	"github.com/vvka-141/pgstage/internal/logging"
	"github.com/vvka-141/pgstage/internal/staging"
	"github.com/vvka-141/pgstage/internal/typemap"
	testhelpers "github.com/vvka-141/pgstage/internal/testing"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

func beginStagingTx(t *testing.T, dbName, ddl string) (pgx.Tx, pgstage.TableSchema) {
	t.Helper()

	connString := testhelpers.RequireDatabase(t)
	testhelpers.CleanupTestDB(t, connString, dbName)
	t.Cleanup(testhelpers.CreateTestDB(t, connString, dbName))

	ctx := context.Background()
	pool := testhelpers.GetTestPool(t, connString, dbName)
	_, err := pool.Exec(ctx, ddl)
	require.NoError(t, err)

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	t.Cleanup(conn.Release)

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })

	schema, err := catalog.NewReader().ReadSchema(ctx, tx, "public", "items")
	require.NoError(t, err)
	return tx, schema
}

func countStaging(t *testing.T, tx pgx.Tx) (relations int, rows int64) {
	t.Helper()

	ctx := context.Background()
	err := tx.QueryRow(ctx, `
		SELECT count(*)
		FROM pg_class
		WHERE relname = 'staging_items' AND relnamespace = pg_my_temp_schema()
	`).Scan(&relations)
	require.NoError(t, err)

	if relations > 0 {
		require.NoError(t, tx.QueryRow(ctx, `SELECT count(*) FROM pg_temp.staging_items`).Scan(&rows))
	}
	return relations, rows
}

func TestOpenStaging_Integration_Idempotent(t *testing.T) {
	tx, schema := beginStagingTx(t, "pgstage_test_staging_idem", `CREATE TABLE public.items (id integer, name text)`)
	ctx := context.Background()
	loader := staging.NewLoader(logging.NewNullLogger())

	rel, err := loader.OpenStaging(ctx, tx, schema)
	require.NoError(t, err)

	n, err := loader.AppendBatch(ctx, tx, rel, pgstage.RowBatch{Rows: [][]any{{int32(1), "a"}, {int32(2), "b"}}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	relations, rows := countStaging(t, tx)
	assert.Equal(t, 1, relations)
	assert.Equal(t, int64(2), rows)

	_, err = loader.OpenStaging(ctx, tx, schema)
	require.NoError(t, err)

	relations, rows = countStaging(t, tx)
	assert.Equal(t, 1, relations, "reopening must leave exactly one staging table")
	assert.Equal(t, int64(0), rows, "reopening must leave it empty")
}

func TestStaging_Integration_PromoteAndDrop(t *testing.T) {
	tx, schema := beginStagingTx(t, "pgstage_test_staging_promote", `
		CREATE TABLE public.items (
			id      integer NOT NULL,
			name    text DEFAULT 'unnamed',
			price   numeric(8,2),
			seen_at timestamp
		)
	`)
	ctx := context.Background()
	loader := staging.NewLoader(logging.NewNullLogger())

	rel, err := loader.OpenStaging(ctx, tx, schema)
	require.NoError(t, err)

	seen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	batch := pgstage.RowBatch{Rows: [][]any{
		{int32(1), "first", nil, seen},
		{int32(2), nil, nil, nil},
	}}
	_, err = loader.AppendBatch(ctx, tx, rel, batch)
	require.NoError(t, err)

	promoted, err := loader.Promote(ctx, tx, rel)
	require.NoError(t, err)
	assert.Equal(t, int64(2), promoted)

	require.NoError(t, loader.DropStaging(ctx, tx, rel))
	relations, _ := countStaging(t, tx)
	assert.Equal(t, 0, relations)

	var target int64
	require.NoError(t, tx.QueryRow(ctx, `SELECT count(*) FROM public.items`).Scan(&target))
	assert.Equal(t, int64(2), target)
}

func TestAppendBatch_Integration_NotNullRejected(t *testing.T) {
	tx, schema := beginStagingTx(t, "pgstage_test_staging_notnull", `CREATE TABLE public.items (id integer NOT NULL)`)
	ctx := context.Background()
	loader := staging.NewLoader(logging.NewNullLogger())

	rel, err := loader.OpenStaging(ctx, tx, schema)
	require.NoError(t, err)

	_, err = loader.AppendBatch(ctx, tx, rel, pgstage.RowBatch{Rows: [][]any{{nil}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, pgstage.ErrLoadFailed)
}

func TestAppendBatch_Integration_TextCopyWithUnmappedColumns(t *testing.T) {
	tx, schema := beginStagingTx(t, "pgstage_test_staging_textcopy", `
		CREATE TABLE public.items (
			id      integer NOT NULL,
			doc     jsonb,
			ref     uuid,
			price   numeric(8,2),
			seen_at timestamptz,
			note    text
		)
	`)
	ctx := context.Background()
	loader := staging.NewLoader(logging.NewNullLogger())

	plan, err := typemap.NewMapper(typemap.Options{AllowUnmapped: true}).Build(schema)
	require.NoError(t, err)
	require.Len(t, plan.Unmapped, 2)

	raw := [][]string{
		{"1", `{"a": "x,y"}`, "6f1c1f1e-3b9a-4c2e-9d1e-0a1b2c3d4e5f", "12.50", "2024-05-01 12:00:00+02", `he said "hi", twice`},
		{"2", "", "", "", "", ""},
	}
	var batch pgstage.RowBatch
	for _, fields := range raw {
		row := make([]any, len(fields))
		for i, f := range fields {
			row[i], err = plan.Directives[i].Parse(f)
			require.NoError(t, err)
		}
		batch.Rows = append(batch.Rows, row)
	}

	rel, err := loader.OpenStaging(ctx, tx, schema)
	require.NoError(t, err)

	n, err := loader.AppendBatch(ctx, tx, rel, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	promoted, err := loader.Promote(ctx, tx, rel)
	require.NoError(t, err)
	assert.Equal(t, int64(2), promoted)

	var (
		doc, ref, price, note *string
		seenAt                *time.Time
	)
	const query = `SELECT doc::text, ref::text, price::text, seen_at, note FROM public.items WHERE id = $1`

	require.NoError(t, tx.QueryRow(ctx, query, 1).Scan(&doc, &ref, &price, &seenAt, &note))
	require.NotNil(t, doc)
	assert.Equal(t, `{"a": "x,y"}`, *doc)
	require.NotNil(t, ref)
	assert.Equal(t, "6f1c1f1e-3b9a-4c2e-9d1e-0a1b2c3d4e5f", *ref)
	require.NotNil(t, price)
	assert.Equal(t, "12.50", *price)
	require.NotNil(t, seenAt)
	assert.True(t, seenAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)), "seen_at = %v", seenAt)
	require.NotNil(t, note)
	assert.Equal(t, `he said "hi", twice`, *note)

	require.NoError(t, tx.QueryRow(ctx, query, 2).Scan(&doc, &ref, &price, &seenAt, &note))
	assert.Nil(t, doc)
	assert.Nil(t, ref)
	assert.Nil(t, price)
	assert.Nil(t, seenAt)
	assert.Nil(t, note)
}
