package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgstage/internal/catalog"
	testhelpers "github.com/vvka-141/pgstage/internal/testing"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

func TestReadSchema_Integration(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)

	const dbName = "pgstage_test_catalog"
	testhelpers.CleanupTestDB(t, connString, dbName)
	cleanup := testhelpers.CreateTestDB(t, connString, dbName)
	t.Cleanup(cleanup)

	ctx := context.Background()
	pool := testhelpers.GetTestPool(t, connString, dbName)

	_, err := pool.Exec(ctx, `
		CREATE TYPE mood AS ENUM ('ok', 'sad');
		CREATE TABLE public.readings (
			id        bigint NOT NULL,
			label     varchar(20),
			reading   double precision,
			taken_on  date,
			feeling   mood,
			attrs     jsonb
		);
	`)
	require.NoError(t, err)

	schema, err := catalog.NewReader().ReadSchema(ctx, pool, "public", "readings")
	require.NoError(t, err)

	require.Equal(t, 6, schema.Len())
	assert.Equal(t, []string{"id", "label", "reading", "taken_on", "feeling", "attrs"}, schema.ColumnNames())
	assert.Equal(t, "bigint", schema.Columns[0].DeclaredType)
	assert.False(t, schema.Columns[0].Nullable)
	assert.Equal(t, "character varying", schema.Columns[1].DeclaredType)
	assert.Equal(t, pgstage.TypeText, schema.Columns[1].Tag)
	assert.Equal(t, pgstage.TypeFloat, schema.Columns[2].Tag)
	assert.Equal(t, pgstage.TypeTemporal, schema.Columns[3].Tag)
	assert.Equal(t, "mood", schema.Columns[4].DeclaredType)
	assert.Equal(t, pgstage.TypeOther, schema.Columns[4].Tag)
	assert.Equal(t, "jsonb", schema.Columns[5].DeclaredType)

	_, err = catalog.NewReader().ReadSchema(ctx, pool, "public", "missing")
	assert.ErrorIs(t, err, pgstage.ErrSchemaNotFound)
}
