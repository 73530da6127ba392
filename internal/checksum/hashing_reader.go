package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// HashingReader computes a SHA-256 digest of everything read through it.
// It is not safe for concurrent use.
type HashingReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

// NewHashingReader wraps r. Panics if r is nil.
func NewHashingReader(r io.Reader) *HashingReader {
	if r == nil {
		panic("reader cannot be nil")
	}
	return &HashingReader{r: r, h: sha256.New()}
}

func (hr *HashingReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	if n > 0 {
		hr.h.Write(p[:n])
		hr.n += int64(n)
	}
	return n, err
}

// Sum returns the hex digest of the bytes read so far.
func (hr *HashingReader) Sum() string {
	return hex.EncodeToString(hr.h.Sum(nil))
}

// BytesRead returns how many bytes have passed through the reader.
func (hr *HashingReader) BytesRead() int64 {
	return hr.n
}

// Sum returns the hex SHA-256 digest of content.
func Sum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
