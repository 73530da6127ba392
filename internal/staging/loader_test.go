package staging

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgstage/internal/logging"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// mockTx records statements. Only the methods the loader uses are implemented.
type mockTx struct {
	pgx.Tx

	execs    []string
	execErr  map[string]error // substring -> error
	execRows int64

	copyTable pgx.Identifier
	copyCols  []string
	copyRows  [][]any
	copyErr   error
}

func (m *mockTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	m.execs = append(m.execs, sql)
	for substr, err := range m.execErr {
		if strings.Contains(sql, substr) {
			return pgconn.CommandTag{}, err
		}
	}
	return pgconn.NewCommandTag("INSERT 0 " + strconv.FormatInt(m.execRows, 10)), nil
}

func (m *mockTx) CopyFrom(_ context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	if m.copyErr != nil {
		return 0, m.copyErr
	}
	m.copyTable, m.copyCols = table, cols
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		m.copyRows = append(m.copyRows, vals)
	}
	return int64(len(m.copyRows)), src.Err()
}

func ordersSchema() pgstage.TableSchema {
	return pgstage.TableSchema{
		Schema: "public",
		Table:  "orders",
		Columns: []pgstage.Column{
			{Name: "id", DeclaredType: "integer"},
			{Name: "total", DeclaredType: "numeric"},
			{Name: "placed_at", DeclaredType: "timestamp without time zone"},
		},
	}
}

func newTestLoader() *Loader {
	return NewLoader(logging.NewNullLogger())
}

func TestNewLoader_NilLogger(t *testing.T) {
	assert.PanicsWithValue(t, "logger cannot be nil", func() { NewLoader(nil) })
}

func TestOpenStaging_DropsThenCreates(t *testing.T) {
	tx := &mockTx{}
	rel, err := newTestLoader().OpenStaging(context.Background(), tx, ordersSchema())
	require.NoError(t, err)

	assert.Equal(t, `"pg_temp"."staging_orders"`, rel.Name.Sanitize())
	require.Len(t, tx.execs, 2)
	assert.Equal(t, `DROP TABLE IF EXISTS "pg_temp"."staging_orders"`, tx.execs[0])
	assert.Equal(t,
		`CREATE TEMP TABLE "staging_orders" (LIKE "public"."orders" INCLUDING DEFAULTS INCLUDING CONSTRAINTS) ON COMMIT DROP`,
		tx.execs[1])
}

func TestOpenStaging_TwiceIssuesDropEachTime(t *testing.T) {
	tx := &mockTx{}
	l := newTestLoader()
	for i := 0; i < 2; i++ {
		_, err := l.OpenStaging(context.Background(), tx, ordersSchema())
		require.NoError(t, err)
	}
	require.Len(t, tx.execs, 4)
	assert.True(t, strings.HasPrefix(tx.execs[2], "DROP TABLE IF EXISTS"))
}

func TestOpenStaging_QuotesIdentifiers(t *testing.T) {
	tx := &mockTx{}
	schema := pgstage.TableSchema{Schema: "Sales", Table: `odd"name`, Columns: []pgstage.Column{{Name: "id", DeclaredType: "integer"}}}

	_, err := newTestLoader().OpenStaging(context.Background(), tx, schema)
	require.NoError(t, err)
	assert.Contains(t, tx.execs[1], `"staging_odd""name"`)
	assert.Contains(t, tx.execs[1], `"Sales"."odd""name"`)
}

func TestOpenStaging_ErrorIsLoadError(t *testing.T) {
	tx := &mockTx{execErr: map[string]error{"CREATE TEMP TABLE": errors.New("relation does not exist")}}

	_, err := newTestLoader().OpenStaging(context.Background(), tx, ordersSchema())
	require.Error(t, err)

	var loadErr *pgstage.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, OpOpenStaging, loadErr.Op)
	assert.Equal(t, "public.orders", loadErr.Table)
	assert.ErrorIs(t, err, pgstage.ErrLoadFailed)
}

func TestOpenStaging_TempPrivilegeGuidance(t *testing.T) {
	denied := &pgconn.PgError{
		Code:    "42501",
		Message: `permission denied to create temporary tables in database "warehouse"`,
	}
	tx := &mockTx{execErr: map[string]error{"CREATE TEMP TABLE": denied}}

	_, err := newTestLoader().OpenStaging(context.Background(), tx, ordersSchema())
	require.Error(t, err)
	assert.ErrorIs(t, err, pgstage.ErrLoadFailed)
	assert.Contains(t, err.Error(), "GRANT TEMPORARY ON DATABASE")

	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "42501", pgErr.Code)
}

func TestOpenStaging_OtherDDLErrorsUnchanged(t *testing.T) {
	missing := &pgconn.PgError{Code: "42P01", Message: `relation "public.orders" does not exist`}
	tx := &mockTx{execErr: map[string]error{"CREATE TEMP TABLE": missing}}

	_, err := newTestLoader().OpenStaging(context.Background(), tx, ordersSchema())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "GRANT")
}

func TestAppendBatch_BinaryCopy(t *testing.T) {
	tx := &mockTx{}
	rel := pgstage.StagingRelation{Name: pgstage.StagingName("orders"), Target: ordersSchema()}
	batch := pgstage.RowBatch{Rows: [][]any{
		{int32(1), nil, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{int32(2), nil, nil},
	}}

	n, err := newTestLoader().AppendBatch(context.Background(), tx, rel, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, pgx.Identifier{"pg_temp", "staging_orders"}, tx.copyTable)
	assert.Equal(t, []string{"id", "total", "placed_at"}, tx.copyCols)
	assert.Equal(t, batch.Rows, tx.copyRows)
	assert.Empty(t, tx.execs, "append must not issue row-by-row statements")
}

func TestAppendBatch_EmptyBatch(t *testing.T) {
	tx := &mockTx{}
	rel := pgstage.StagingRelation{Name: pgstage.StagingName("orders"), Target: ordersSchema()}

	n, err := newTestLoader().AppendBatch(context.Background(), tx, rel, pgstage.RowBatch{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, tx.copyRows)
}

func TestAppendBatch_WidthMismatch(t *testing.T) {
	tx := &mockTx{}
	rel := pgstage.StagingRelation{Name: pgstage.StagingName("orders"), Target: ordersSchema()}

	_, err := newTestLoader().AppendBatch(context.Background(), tx, rel, pgstage.RowBatch{Rows: [][]any{{int32(1)}}})
	assert.ErrorIs(t, err, pgstage.ErrLoadFailed)
	assert.Nil(t, tx.copyRows)
}

func TestAppendBatch_DatabaseRejection(t *testing.T) {
	tx := &mockTx{copyErr: &pgconn.PgError{Code: "23502", Message: "null value in column \"id\""}}
	rel := pgstage.StagingRelation{Name: pgstage.StagingName("orders"), Target: ordersSchema()}

	_, err := newTestLoader().AppendBatch(context.Background(), tx, rel, pgstage.RowBatch{Rows: [][]any{{nil, nil, nil}}})
	require.Error(t, err)

	var loadErr *pgstage.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, OpAppend, loadErr.Op)

	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr), "driver error must stay reachable")
}

func TestPromote(t *testing.T) {
	tx := &mockTx{execRows: 250}
	rel := pgstage.StagingRelation{Name: pgstage.StagingName("orders"), Target: ordersSchema()}

	n, err := newTestLoader().Promote(context.Background(), tx, rel)
	require.NoError(t, err)
	assert.Equal(t, int64(250), n)
	assert.Equal(t,
		`INSERT INTO "public"."orders" ("id", "total", "placed_at") SELECT "id", "total", "placed_at" FROM "pg_temp"."staging_orders"`,
		tx.execs[0])
}

func TestPromote_Error(t *testing.T) {
	tx := &mockTx{execErr: map[string]error{"INSERT INTO": errors.New("duplicate key")}}
	rel := pgstage.StagingRelation{Name: pgstage.StagingName("orders"), Target: ordersSchema()}

	_, err := newTestLoader().Promote(context.Background(), tx, rel)
	var loadErr *pgstage.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, OpPromote, loadErr.Op)
}

func TestDropStaging(t *testing.T) {
	tx := &mockTx{}
	rel := pgstage.StagingRelation{Name: pgstage.StagingName("orders"), Target: ordersSchema()}

	require.NoError(t, newTestLoader().DropStaging(context.Background(), tx, rel))
	assert.Equal(t, []string{`DROP TABLE IF EXISTS "pg_temp"."staging_orders"`}, tx.execs)
}

func TestEncodeCSV(t *testing.T) {
	schema := pgstage.TableSchema{Columns: []pgstage.Column{
		{Name: "id", DeclaredType: "bigint"},
		{Name: "note", DeclaredType: "text"},
		{Name: "meta", DeclaredType: "jsonb"},
		{Name: "ok", DeclaredType: "boolean"},
	}}
	ds := directivesFor(schema)
	require.False(t, allMapped(ds))

	var buf bytes.Buffer
	encodeCSV(&buf, ds, [][]any{
		{int64(1), `say "hi", then leave`, `{"a":1}`, true},
		{int64(2), "", nil, false},
		{nil, nil, nil, nil},
	})

	want := strings.Join([]string{
		`"1","say ""hi"", then leave","{""a"":1}","t"`,
		`"2","",,"f"`,
		`,,,`,
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestColumnList(t *testing.T) {
	schema := pgstage.TableSchema{Columns: []pgstage.Column{{Name: "id"}, {Name: "Order Date"}}}
	assert.Equal(t, `"id", "Order Date"`, columnList(schema))
}
