// Package files groups the input side of a load into sub-packages:
//   - filesystem: read-only access to input files on the OS filesystem, in memory or in S3
//   - scanner: discovery of input files and their target table names
//   - reader: CSV parsing into typed, fixed-size row batches
//
// # Usage
//
//	import (
//	    "github.com/vvka-141/pgstage/internal/files/filesystem"
//	    "github.com/vvka-141/pgstage/internal/files/reader"
//	    "github.com/vvka-141/pgstage/internal/files/scanner"
//	)
//
//	fsProvider := filesystem.NewOSFileSystem()
//	files, err := scanner.NewScannerWithFS(fsProvider).ScanDirectory("./exports", ".csv")
//
//	src, err := fsProvider.OpenFile(files[0].Path)
//	defer src.Close()
//	br, err := reader.Open(src, files[0], plan, reader.Options{BatchSize: 10000})
//	for {
//	    batch, err := br.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package files
