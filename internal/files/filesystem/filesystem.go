package filesystem

import (
	"io"
	"io/fs"
	"strings"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// FileSystemProvider gives read-only access to input files.
// Implementations must be safe for concurrent use by multiple goroutines.
type FileSystemProvider interface {
	// ReadDir lists the entries directly under path. It does not recurse.
	ReadDir(path string) ([]FileInfo, error)

	// Stat returns file information for the given path.
	Stat(path string) (FileInfo, error)

	// OpenFile opens a file for streaming. The caller must close it.
	OpenFile(path string) (io.ReadCloser, error)

	// ReadFile reads a whole file. Intended for small files such as configuration.
	ReadFile(path string) ([]byte, error)

	// Join builds a path the provider understands from a directory and a name.
	Join(dir, name string) string
}

// NewProvider returns the provider matching an input location:
// S3 for s3:// URIs, the OS filesystem otherwise.
func NewProvider(location string, s3Opts S3Options) (FileSystemProvider, error) {
	if IsS3URI(location) {
		return NewS3FileSystemFromConfig(s3Opts)
	}
	return NewOSFileSystem(), nil
}

// IsS3URI reports whether location uses the s3:// scheme.
func IsS3URI(location string) bool {
	return strings.HasPrefix(strings.ToLower(location), "s3://")
}
