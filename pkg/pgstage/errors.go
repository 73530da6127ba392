package pgstage

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	outcome := loader.Run(ctx, cfg)
//	if errors.Is(outcome.Err, pgstage.ErrSchemaNotFound) {
//	    // a file has no matching table
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrSchemaNotFound indicates the target table does not exist or is not visible.
	ErrSchemaNotFound = errors.New("schema not found")

	// ErrColumnCountMismatch indicates a source file's width differs from its target table.
	ErrColumnCountMismatch = errors.New("column count mismatch")

	// ErrCellParse indicates a field could not be coerced to its column type.
	ErrCellParse = errors.New("cell parse error")

	// ErrLoadFailed indicates the database rejected a staging, promotion or commit step.
	ErrLoadFailed = errors.New("load failed")

	// ErrUnmappedType indicates a target column has a declared type with no parsing directive.
	ErrUnmappedType = errors.New("unmapped column type")

	// ErrRunAborted marks every error that caused a run to roll back.
	ErrRunAborted = errors.New("run aborted")
)

// SchemaNotFoundError reports a missing or invisible target table.
type SchemaNotFoundError struct {
	Schema string
	Table  string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("table %s.%s not found or not visible to the current session", e.Schema, e.Table)
}

func (e *SchemaNotFoundError) Unwrap() error { return ErrSchemaNotFound }

// ColumnCountMismatchError reports a source whose width disagrees with the target schema.
// Row is 0 when the mismatch was detected on the header (or first record),
// otherwise it is the 1-based data row that was ragged.
type ColumnCountMismatchError struct {
	File     string
	Table    string
	Expected int
	Actual   int
	Row      int64
}

func (e *ColumnCountMismatchError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s: row %d has %d columns, table %s has %d", e.File, e.Row, e.Actual, e.Table, e.Expected)
	}
	return fmt.Sprintf("%s: file has %d columns, table %s has %d", e.File, e.Actual, e.Table, e.Expected)
}

func (e *ColumnCountMismatchError) Unwrap() error { return ErrColumnCountMismatch }

// CellParseError identifies a single field that failed type coercion.
// Row is the 1-based data row (header excluded).
type CellParseError struct {
	File   string
	Row    int64
	Column string
	Raw    string
	Type   string
	Err    error
}

func (e *CellParseError) Error() string {
	return fmt.Sprintf("%s: row %d, column %q: cannot parse %q as %s: %v",
		e.File, e.Row, e.Column, previewValue(e.Raw), e.Type, e.Err)
}

func (e *CellParseError) Unwrap() []error { return []error{ErrCellParse, e.Err} }

// LoadError reports a database-side rejection while staging or promoting.
type LoadError struct {
	Table string
	Op    string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrLoadFailed, e.Err} }

// UnmappedTypeError lists target columns whose declared types have no directive.
type UnmappedTypeError struct {
	Table   string
	Columns []Column
}

func (e *UnmappedTypeError) Error() string {
	parts := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		parts[i] = fmt.Sprintf("%s (%s)", c.Name, c.DeclaredType)
	}
	return fmt.Sprintf("table %s has columns with unsupported types: %s (use --allow-unmapped to load them as text)",
		e.Table, strings.Join(parts, ", "))
}

func (e *UnmappedTypeError) Unwrap() error { return ErrUnmappedType }

// RunError is the single error reported for a rolled-back run.
// It names the file and stage where the run failed and wraps the cause.
type RunError struct {
	File      string
	Table     string
	FileIndex int
	Stage     Stage
	Err       error
}

func (e *RunError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s failed for %s (table %s): %v", e.Stage, e.File, e.Table, e.Err)
}

func (e *RunError) Unwrap() []error { return []error{ErrRunAborted, e.Err} }

func previewValue(s string) string {
	if len(s) <= MaxRawValuePreview {
		return s
	}
	return s[:MaxRawValuePreview] + "..."
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrSchemaNotFound):
		return ExitSchemaNotFound
	case errors.Is(err, ErrColumnCountMismatch):
		return ExitColumnMismatch
	case errors.Is(err, ErrCellParse):
		return ExitCellParseError
	case errors.Is(err, ErrUnmappedType):
		return ExitUnmappedType
	case errors.Is(err, ErrLoadFailed):
		return ExitLoadFailed
	}

	errStr := err.Error()
	if isUsageError(errStr) {
		return ExitUsageError
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

// isUsageError matches the messages cobra produces for command-line misuse.
func isUsageError(msg string) bool {
	for _, prefix := range []string{
		"unknown flag",
		"unknown shorthand flag",
		"unknown command",
		"accepts ",
		"requires at least",
		"required flag",
		"missing required argument",
		"invalid argument",
	} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
