package importer

// source.go prepares an export for line scanning without buffering it:
//
//   - a leading UTF-8 byte order mark is dropped
//   - invalid UTF-8 is replaced with U+FFFD
//   - text is normalized to NFC so composed and decomposed titles compare equal
//   - raw bytes are counted for progress reporting

import (
	"io"
	"sync/atomic"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

// CountingReader counts bytes read from the raw source.
type CountingReader struct {
	reader io.Reader
	read   atomic.Int64
	Total  int64 // 0 if unknown
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read.Add(int64(n))
	return n, err
}

// BytesRead returns the number of raw bytes consumed so far.
func (r *CountingReader) BytesRead() int64 {
	return r.read.Load()
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	p := int(r.BytesRead() * 100 / r.Total)
	if p > 100 {
		return 100
	}
	return p
}

// Source is a decoded export stream together with its raw byte counter.
type Source struct {
	io.Reader
	Counter *CountingReader
}

// WrapSource returns r decoded for scanning. size is the raw length if
// known, or 0.
func WrapSource(r io.Reader, size int64) *Source {
	counter := &CountingReader{reader: r, Total: size}
	decoded := unicode.UTF8BOM.NewDecoder().Reader(counter)
	return &Source{
		Reader:  norm.NFC.Reader(decoded),
		Counter: counter,
	}
}
