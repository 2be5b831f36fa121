// Package buffer implements methods for writing and reading fixed-size
// values to and from io.Writer and io.Reader in little-endian order.
package buffer

import (
	"io"
)

// Buffer is a simple []byte-based buffer that complies to the
// io.Writer and io.Reader interfaces. Writes append to the backing
// slice and reads consume it from the front.
type Buffer struct {
	buf []byte
	off int
}

// NewBuffer creates a new Buffer struct with buff as a backing
// []byte. The read offset is initialized at buff[0] and writes
// append after len(buff).
func NewBuffer(buff []byte) *Buffer {
	return &Buffer{buf: buff}
}

// NewBufferSize creates a new empty Buffer with size capacity.
func NewBufferSize(size int) *Buffer {
	return &Buffer{buf: make([]byte, 0, size)}
}

// Write appends p to b.
func (b *Buffer) Write(p []byte) (n int, err error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Bytes returns the unread portion of the backing slice.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.off:]
}

// Read reads len(p) bytes from the read offset of b into p. It returns the
// number n of bytes read and io.ErrUnexpectedEOF if 0 < n < len(p).
func (b *Buffer) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.off >= len(b.buf) {
		return 0, io.EOF
	}
	n = copy(p, b.buf[b.off:])
	b.off += n
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

// Size returns the number of bytes available for read.
func (b *Buffer) Size() int {
	return len(b.buf) - b.off
}
