package reader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/vvka-141/pgstage/internal/typemap"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// maxPreallocRows caps the initial capacity of a batch's row slice.
const maxPreallocRows = 1 << 16

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options control how a file is split and parsed.
type Options struct {
	BatchSize int
	Delimiter rune
	NoHeader  bool
}

// BatchReader yields typed RowBatches from one source file.
// It is not safe for concurrent use.
type BatchReader struct {
	csv     *csv.Reader
	file    pgstage.SourceFile
	plan    typemap.Plan
	opts    Options
	header  []string
	pending []string

	batches  int
	rowsRead int64
	err      error
	done     bool
}

// Open prepares a reader over src and checks the source width.
// With a header, the header row is consumed and compared with the plan;
// without one, the first record is compared and kept as data.
// A width mismatch returns *pgstage.ColumnCountMismatchError before any
// batch can be read.
func Open(src io.Reader, file pgstage.SourceFile, plan typemap.Plan, opts Options) (*BatchReader, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d: %w", opts.BatchSize, pgstage.ErrInvalidConfig)
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = pgstage.DefaultDelimiter
	}

	cr := csv.NewReader(skipBOM(src))
	cr.Comma = opts.Delimiter
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	r := &BatchReader{csv: cr, file: file, plan: plan, opts: opts}

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, r.mismatch(0, 0)
	}
	if err != nil {
		return nil, r.malformed(err)
	}
	if len(first) != plan.Len() {
		return nil, r.mismatch(len(first), 0)
	}

	record := append([]string(nil), first...)
	if opts.NoHeader {
		r.pending = record
	} else {
		r.header = record
	}
	return r, nil
}

func skipBOM(src io.Reader) io.Reader {
	br := bufio.NewReader(src)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && string(prefix) == string(utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// Header returns the consumed header row, or nil when the file has none.
func (r *BatchReader) Header() []string {
	return r.header
}

// RowsRead returns the number of data rows parsed so far.
func (r *BatchReader) RowsRead() int64 {
	return r.rowsRead
}

// Batches returns the number of batches returned so far.
func (r *BatchReader) Batches() int {
	return r.batches
}

// Next returns the next batch of up to BatchSize rows, or io.EOF once the
// file is exhausted. After an error every further call returns that error.
func (r *BatchReader) Next() (pgstage.RowBatch, error) {
	if r.err != nil {
		return pgstage.RowBatch{}, r.err
	}
	if r.done {
		return pgstage.RowBatch{}, io.EOF
	}

	batch := pgstage.RowBatch{
		Index:    r.batches,
		FirstRow: r.rowsRead + 1,
		Rows:     make([][]any, 0, min(r.opts.BatchSize, maxPreallocRows)),
	}

	for len(batch.Rows) < r.opts.BatchSize {
		record, err := r.read()
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		if err != nil {
			r.err = r.malformed(err)
			return pgstage.RowBatch{}, r.err
		}

		row, err := r.parse(record, r.rowsRead+1)
		if err != nil {
			r.err = err
			return pgstage.RowBatch{}, err
		}
		r.rowsRead++
		batch.Rows = append(batch.Rows, row)
	}

	if len(batch.Rows) == 0 {
		return pgstage.RowBatch{}, io.EOF
	}
	r.batches++
	return batch, nil
}

func (r *BatchReader) read() ([]string, error) {
	if r.pending != nil {
		record := r.pending
		r.pending = nil
		return record, nil
	}
	return r.csv.Read()
}

func (r *BatchReader) parse(record []string, rowNum int64) ([]any, error) {
	if len(record) != r.plan.Len() {
		return nil, r.mismatch(len(record), rowNum)
	}

	row := make([]any, len(record))
	for i, raw := range record {
		v, err := r.plan.Directives[i].Parse(raw)
		if err != nil {
			col := r.plan.Schema.Columns[i]
			return nil, &pgstage.CellParseError{
				File:   r.file.Name,
				Row:    rowNum,
				Column: col.Name,
				Raw:    raw,
				Type:   col.DeclaredType,
				Err:    err,
			}
		}
		row[i] = v
	}
	return row, nil
}

func (r *BatchReader) mismatch(actual int, row int64) error {
	return &pgstage.ColumnCountMismatchError{
		File:     r.file.Name,
		Table:    r.plan.Schema.Table,
		Expected: r.plan.Len(),
		Actual:   actual,
		Row:      row,
	}
}

func (r *BatchReader) malformed(err error) error {
	return fmt.Errorf("malformed record in %s: %w: %w", r.file.Name, pgstage.ErrCellParse, err)
}
