package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

type mockConnector struct {
	pool *pgxpool.Pool
	err  error
}

func (m *mockConnector) Connect(_ context.Context) (*pgxpool.Pool, error) {
	return m.pool, m.err
}

type mockSessionOpener struct {
	err error
}

func (m *mockSessionOpener) OpenSession(_ context.Context, _ *pgstage.ConnectionConfig) (*pgstage.Session, error) {
	return nil, m.err
}

type mockFileScanner struct {
	files   []pgstage.SourceFile
	scanErr error
}

func (m *mockFileScanner) ScanDirectory(_, _ string) ([]pgstage.SourceFile, error) {
	return m.files, m.scanErr
}

// mockSchemaReader serves schemas by table name; unknown tables are not found.
type mockSchemaReader struct {
	mu      sync.Mutex
	schemas map[string]pgstage.TableSchema
	reads   []string
}

func (m *mockSchemaReader) ReadSchema(_ context.Context, _ pgstage.Querier, schema, table string) (pgstage.TableSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads = append(m.reads, table)
	ts, ok := m.schemas[table]
	if !ok {
		return pgstage.TableSchema{}, &pgstage.SchemaNotFoundError{Schema: schema, Table: table}
	}
	return ts, nil
}

// mockStager records every call as "op:table" and tracks staged rows per table.
type mockStager struct {
	calls      []string
	staged     map[string]int64
	batchSizes map[string][]int
	failOn     string // "op:table" that fails
	err        error
	promoteAdj int64
}

func newMockStager() *mockStager {
	return &mockStager{staged: map[string]int64{}, batchSizes: map[string][]int{}}
}

func (m *mockStager) record(op, table string) error {
	call := op + ":" + table
	m.calls = append(m.calls, call)
	if call == m.failOn {
		return m.err
	}
	return nil
}

func (m *mockStager) OpenStaging(_ context.Context, _ pgx.Tx, target pgstage.TableSchema) (pgstage.StagingRelation, error) {
	if err := m.record("open", target.Table); err != nil {
		return pgstage.StagingRelation{}, err
	}
	m.staged[target.Table] = 0
	return pgstage.StagingRelation{Name: pgstage.StagingName(target.Table), Target: target}, nil
}

func (m *mockStager) AppendBatch(_ context.Context, _ pgx.Tx, rel pgstage.StagingRelation, batch pgstage.RowBatch) (int64, error) {
	if err := m.record("append", rel.Target.Table); err != nil {
		return 0, err
	}
	m.staged[rel.Target.Table] += int64(batch.Len())
	m.batchSizes[rel.Target.Table] = append(m.batchSizes[rel.Target.Table], batch.Len())
	return int64(batch.Len()), nil
}

func (m *mockStager) Promote(_ context.Context, _ pgx.Tx, rel pgstage.StagingRelation) (int64, error) {
	if err := m.record("promote", rel.Target.Table); err != nil {
		return 0, err
	}
	return m.staged[rel.Target.Table] + m.promoteAdj, nil
}

func (m *mockStager) DropStaging(_ context.Context, _ pgx.Tx, rel pgstage.StagingRelation) error {
	return m.record("drop", rel.Target.Table)
}

// mockTx counts commits and rollbacks. Only the methods the coordinator uses are implemented.
type mockTx struct {
	pgx.Tx

	commits     int
	rollbacks   int
	commitErr   error
	rollbackCtx context.Context
}

func (m *mockTx) Commit(_ context.Context) error {
	m.commits++
	return m.commitErr
}

func (m *mockTx) Rollback(ctx context.Context) error {
	m.rollbacks++
	m.rollbackCtx = ctx
	return nil
}

type mockConn struct {
	tx       *mockTx
	beginErr error
}

func (m *mockConn) Begin(_ context.Context) (pgx.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m.tx, nil
}

type mockQuerier struct{}

func (mockQuerier) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("mockQuerier: unexpected query")
}

// recordingObserver keeps every event it receives.
type recordingObserver struct {
	mu       sync.Mutex
	events   []string
	progress []int64
	outcome  *pgstage.RunOutcome
}

func (o *recordingObserver) add(e string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) RunStarted(_ uuid.UUID, files []pgstage.SourceFile) {
	o.add(fmt.Sprintf("run-started:%d", len(files)))
}

func (o *recordingObserver) FileStarted(index int, file pgstage.SourceFile, _ pgstage.TableSchema) {
	o.add(fmt.Sprintf("file-started:%d:%s", index, file.Name))
}

func (o *recordingObserver) Progress(_ pgstage.SourceFile, _ int, rows int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, rows)
}

func (o *recordingObserver) FileFinished(result pgstage.FileResult) {
	o.add("file-finished:" + result.File.Name)
}

func (o *recordingObserver) RunFinished(outcome pgstage.RunOutcome) {
	o.add("run-finished:" + outcome.State.String())
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcome = &outcome
}

type mockLogger struct{}

func (m *mockLogger) Verbose(_ string, _ ...interface{}) {}
func (m *mockLogger) Info(_ string, _ ...interface{})    {}
func (m *mockLogger) Error(_ string, _ ...interface{})   {}
