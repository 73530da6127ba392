// Package filesystem abstracts where input files come from.
//
// The loader only needs to list one directory, stat a file and stream its
// bytes, so FileSystemProvider is limited to those operations.
//
// Implementations:
//   - OSFileSystem: local directories
//   - MemoryFileSystem: in-memory files for tests
//   - S3FileSystem: objects under an s3://bucket/prefix
package filesystem
