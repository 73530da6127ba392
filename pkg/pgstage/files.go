package pgstage

import (
	"strings"
	"time"
)

// SourceFile describes one discovered input file.
// Table is the file's base name without extension; it names the target table.
type SourceFile struct {
	Path       string
	Name       string
	Table      string
	SizeBytes  int64
	ModifiedAt time.Time
}

// FileScanner discovers input files.
// Implementations must be safe for concurrent use by multiple goroutines.
type FileScanner interface {
	// ScanDirectory lists the files directly under dir whose extension
	// matches ext case-insensitively, sorted by name.
	ScanDirectory(dir, ext string) ([]SourceFile, error)
}

// TableNameFromFile derives the target table name from a file name:
// the base name with its final extension removed.
func TableNameFromFile(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}
