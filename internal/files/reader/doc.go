// Package reader streams a delimited source file as typed row batches.
//
// A BatchReader checks the file's width against the target table before
// returning anything, then yields at most BatchSize rows per call to Next.
// Every field is coerced with its column's typemap.Directive; the first
// field that does not parse stops the reader with a *pgstage.CellParseError.
// The sequence is single-pass.
package reader
