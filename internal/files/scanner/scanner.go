package scanner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vvka-141/pgstage/internal/files/filesystem"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// Scanner discovers input files through a FileSystemProvider.
// Scanner is safe for concurrent use as long as the provider is.
type Scanner struct {
	fsProvider filesystem.FileSystemProvider
}

// NewScanner creates a scanner over the OS filesystem.
func NewScanner() *Scanner {
	return &Scanner{fsProvider: filesystem.NewOSFileSystem()}
}

// NewScannerWithFS creates a scanner with a custom filesystem provider.
// Panics if fsProvider is nil.
func NewScannerWithFS(fsProvider filesystem.FileSystemProvider) *Scanner {
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	return &Scanner{fsProvider: fsProvider}
}

var _ pgstage.FileScanner = (*Scanner)(nil)

// ScanDirectory lists regular files directly under dir whose extension
// matches ext, sorted by name. An empty result is not an error.
func (s *Scanner) ScanDirectory(dir, ext string) ([]pgstage.SourceFile, error) {
	entries, err := s.fsProvider.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var files []pgstage.SourceFile
	for _, info := range entries {
		if info.IsDir() {
			continue
		}
		name := info.Name()
		if !hasExtension(name, ext) || strings.HasPrefix(name, ".") {
			continue
		}
		files = append(files, pgstage.SourceFile{
			Path:       s.fsProvider.Join(dir, name),
			Name:       name,
			Table:      pgstage.TableNameFromFile(name),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func hasExtension(name, ext string) bool {
	return len(name) > len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext)
}
