// Package checksum fingerprints input files while they are being read.
//
// HashingReader wraps the file stream handed to the CSV reader, so the
// SHA-256 of every loaded file is known at the end of its single pass
// without reading it twice. The digest is reported per file in the run
// summary and lets operators match a load to the exact bytes it consumed.
//
// # Example Usage
//
//	hr := checksum.NewHashingReader(file)
//	// ... consume hr until io.EOF ...
//	fmt.Println(hr.Sum(), hr.BytesRead())
package checksum
