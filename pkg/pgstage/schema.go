package pgstage

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TypeTag classifies a column's declared database type into the families
// the loader knows how to parse.
type TypeTag int

const (
	TypeOther TypeTag = iota // no directive; reported as unmapped
	TypeInteger
	TypeFloat
	TypeNumeric
	TypeText
	TypeBoolean
	TypeTemporal
)

// String returns a human-readable string representation of the TypeTag.
func (t TypeTag) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeNumeric:
		return "numeric"
	case TypeText:
		return "text"
	case TypeBoolean:
		return "boolean"
	case TypeTemporal:
		return "temporal"
	case TypeOther:
		return "other"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// Column is one positional column of a target table.
type Column struct {
	Name         string
	DeclaredType string // information_schema.columns.data_type, e.g. "timestamp without time zone"
	Tag          TypeTag
	Position     int // 1-based ordinal_position
	Nullable     bool
}

// TableSchema is the ordered column list of a target table.
// Column order is authoritative: it defines the staging relation's shape
// and the expected column order of the source file.
type TableSchema struct {
	Schema  string
	Table   string
	Columns []Column
}

// Len returns the number of columns.
func (s TableSchema) Len() int {
	return len(s.Columns)
}

// ColumnNames returns the column names in positional order.
func (s TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// QualifiedName returns the schema-qualified identifier of the target table.
func (s TableSchema) QualifiedName() pgx.Identifier {
	if s.Schema == "" {
		return pgx.Identifier{s.Table}
	}
	return pgx.Identifier{s.Schema, s.Table}
}

// RowBatch is a bounded group of parsed rows from one source file.
// Each row holds exactly one typed value per schema column; nil is SQL NULL.
type RowBatch struct {
	Index    int   // zero-based batch number within the file
	FirstRow int64 // 1-based data row number of Rows[0]
	Rows     [][]any
}

// Len returns the number of rows in the batch.
func (b RowBatch) Len() int {
	return len(b.Rows)
}

// ColumnCount returns the row width, or 0 for an empty batch.
func (b RowBatch) ColumnCount() int {
	if len(b.Rows) == 0 {
		return 0
	}
	return len(b.Rows[0])
}

// StagingRelation is the session-scoped table a file is staged into
// before promotion to its target.
type StagingRelation struct {
	Name   pgx.Identifier
	Target TableSchema
}

// StagingName returns the deterministic staging identifier for a target table.
func StagingName(table string) pgx.Identifier {
	return pgx.Identifier{"pg_temp", StagingTablePrefix + table}
}
