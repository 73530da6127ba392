// Package typemap translates declared PostgreSQL column types into parsing
// directives.
//
// Classification is a closed table: every declared type maps to exactly one
// pgstage.TypeTag, and anything not in the table is TypeOther. A Directive
// is derived from a column alone, so the same column always yields the same
// directive. Columns classified as TypeOther get an Unmapped directive that
// keeps the original type name; the Mapper either rejects them or passes
// them through as text, depending on Options.AllowUnmapped.
package typemap
