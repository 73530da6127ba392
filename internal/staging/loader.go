package staging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgstage/internal/typemap"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// Operation names reported in pgstage.LoadError.Op.
const (
	OpOpenStaging = "open staging"
	OpAppend      = "append batch to"
	OpPromote     = "promote"
	OpDropStaging = "drop staging for"
)

// Loader implements pgstage.Stager on a caller-owned transaction.
type Loader struct {
	logger pgstage.Logger
}

// NewLoader creates a staging Loader.
// Panics if logger is nil.
func NewLoader(logger pgstage.Logger) *Loader {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Loader{logger: logger}
}

var _ pgstage.Stager = (*Loader)(nil)

// OpenStaging drops any staging table left for target.Table in this session
// and creates a new, empty one. Calling it repeatedly leaves exactly one.
func (l *Loader) OpenStaging(ctx context.Context, tx pgx.Tx, target pgstage.TableSchema) (pgstage.StagingRelation, error) {
	rel := pgstage.StagingRelation{Name: pgstage.StagingName(target.Table), Target: target}

	if _, err := tx.Exec(ctx, fmt.Sprintf(sqlDropStaging, rel.Name.Sanitize())); err != nil {
		return pgstage.StagingRelation{}, loadError(target, OpOpenStaging, err)
	}

	unqualified := pgx.Identifier{rel.Name[len(rel.Name)-1]}
	create := fmt.Sprintf(sqlCreateStaging, unqualified.Sanitize(), target.QualifiedName().Sanitize())
	if _, err := tx.Exec(ctx, create); err != nil {
		return pgstage.StagingRelation{}, loadError(target, OpOpenStaging, explainStagingDDLError(err))
	}

	l.logger.Verbose("Opened staging table %s for %s", rel.Name.Sanitize(), target.QualifiedName().Sanitize())
	return rel, nil
}

// AppendBatch copies one batch into the staging table and returns the
// number of rows the server accepted. It never retries.
func (l *Loader) AppendBatch(ctx context.Context, tx pgx.Tx, rel pgstage.StagingRelation, batch pgstage.RowBatch) (int64, error) {
	if batch.Len() == 0 {
		return 0, nil
	}
	if width := batch.ColumnCount(); width != rel.Target.Len() {
		return 0, loadError(rel.Target, OpAppend, fmt.Errorf("batch has %d columns, staging table has %d", width, rel.Target.Len()))
	}

	directives := directivesFor(rel.Target)

	var n int64
	var err error
	if allMapped(directives) {
		n, err = tx.CopyFrom(ctx, rel.Name, rel.Target.ColumnNames(), pgx.CopyFromRows(batch.Rows))
	} else {
		n, err = l.copyText(ctx, tx, rel, directives, batch)
	}
	if err != nil {
		return 0, loadError(rel.Target, OpAppend, err)
	}
	if n != int64(batch.Len()) {
		return n, loadError(rel.Target, OpAppend, fmt.Errorf("copied %d of %d rows", n, batch.Len()))
	}
	return n, nil
}

// copyText streams the batch as CSV so the server parses every column,
// including those without a typed directive.
func (l *Loader) copyText(ctx context.Context, tx pgx.Tx, rel pgstage.StagingRelation, directives []typemap.Directive, batch pgstage.RowBatch) (int64, error) {
	var buf bytes.Buffer
	encodeCSV(&buf, directives, batch.Rows)

	sql := fmt.Sprintf(sqlCopyCSV, rel.Name.Sanitize(), columnList(rel.Target))
	tag, err := tx.Conn().PgConn().CopyFrom(ctx, &buf, sql)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Promote inserts every staged row into the target table.
func (l *Loader) Promote(ctx context.Context, tx pgx.Tx, rel pgstage.StagingRelation) (int64, error) {
	cols := columnList(rel.Target)
	sql := fmt.Sprintf(sqlPromote, rel.Target.QualifiedName().Sanitize(), cols, cols, rel.Name.Sanitize())

	tag, err := tx.Exec(ctx, sql)
	if err != nil {
		return 0, loadError(rel.Target, OpPromote, err)
	}
	return tag.RowsAffected(), nil
}

// DropStaging removes the staging table.
func (l *Loader) DropStaging(ctx context.Context, tx pgx.Tx, rel pgstage.StagingRelation) error {
	if _, err := tx.Exec(ctx, fmt.Sprintf(sqlDropStaging, rel.Name.Sanitize())); err != nil {
		return loadError(rel.Target, OpDropStaging, err)
	}
	return nil
}

// insufficient_privilege
const sqlStateInsufficientPrivilege = "42501"

// explainStagingDDLError adds the missing grant to permission errors raised
// while creating a staging table. Other errors are returned unchanged.
func explainStagingDDLError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != sqlStateInsufficientPrivilege {
		return err
	}
	return fmt.Errorf("the role needs TEMPORARY on the database and SELECT on the target "+
		"(GRANT TEMPORARY ON DATABASE <db> TO <role>): %w", err)
}

func loadError(target pgstage.TableSchema, op string, err error) error {
	table := target.Table
	if target.Schema != "" {
		table = target.Schema + "." + target.Table
	}
	return &pgstage.LoadError{Table: table, Op: op, Err: err}
}

func directivesFor(schema pgstage.TableSchema) []typemap.Directive {
	ds := make([]typemap.Directive, len(schema.Columns))
	for i, col := range schema.Columns {
		ds[i] = typemap.For(col)
	}
	return ds
}

func allMapped(ds []typemap.Directive) bool {
	for _, d := range ds {
		if !d.Mapped() {
			return false
		}
	}
	return true
}

func columnList(schema pgstage.TableSchema) string {
	quoted := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		quoted[i] = pgx.Identifier{col.Name}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

// encodeCSV writes rows in the CSV dialect COPY expects: NULL is an
// unquoted empty field and every other value is quoted.
func encodeCSV(buf *bytes.Buffer, directives []typemap.Directive, rows [][]any) {
	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			if v == nil {
				continue
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(directives[i].Format(v), `"`, `""`))
			buf.WriteByte('"')
		}
		buf.WriteByte('\n')
	}
}
