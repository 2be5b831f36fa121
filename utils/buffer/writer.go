package buffer

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteUint8 writes a single byte on w.
func WriteUint8(w io.Writer, c uint8) (n int64, err error) {
	inc, err := w.Write([]byte{c})
	return int64(inc), err
}

// WriteUint64 writes an uint64 on w.
func WriteUint64(w io.Writer, c uint64) (n int64, err error) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], c)
	inc, err := w.Write(b[:])
	return int64(inc), err
}

// WriteUint64Slice writes a slice of uint64 on w.
// The length of the slice is not written.
func WriteUint64Slice(w io.Writer, c []uint64) (n int64, err error) {

	b := make([]byte, 8*len(c))
	for i := range c {
		binary.LittleEndian.PutUint64(b[i<<3:], c[i])
	}

	inc, err := w.Write(b)
	if err != nil {
		return int64(inc), fmt.Errorf("WriteUint64Slice: %w", err)
	}

	return int64(inc), nil
}
