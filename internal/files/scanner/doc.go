// Package scanner discovers input files in a directory.
//
// Only the top level of the directory is listed. Files are selected by
// extension (case-insensitive) and returned sorted by name so every run
// processes them in the same order.
package scanner
