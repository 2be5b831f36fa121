package buffer

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadUint8 reads a byte from r and stores the result into c.
func ReadUint8(r io.Reader, c *uint8) (n int64, err error) {
	var b [1]byte
	inc, err := io.ReadFull(r, b[:])
	if err != nil {
		return int64(inc), fmt.Errorf("ReadUint8: %w", err)
	}
	*c = b[0]
	return int64(inc), nil
}

// ReadUint64 reads an uint64 from r and stores the result into c.
func ReadUint64(r io.Reader, c *uint64) (n int64, err error) {
	var b [8]byte
	inc, err := io.ReadFull(r, b[:])
	if err != nil {
		return int64(inc), fmt.Errorf("ReadUint64: %w", err)
	}
	*c = binary.LittleEndian.Uint64(b[:])
	return int64(inc), nil
}

// ReadUint64Slice reads len(c) uint64 from r and stores the result into c.
func ReadUint64Slice(r io.Reader, c []uint64) (n int64, err error) {
	b := make([]byte, 8*len(c))
	inc, err := io.ReadFull(r, b)
	if err != nil {
		return int64(inc), fmt.Errorf("ReadUint64Slice: %w", err)
	}
	for i := range c {
		c[i] = binary.LittleEndian.Uint64(b[i<<3:])
	}
	return int64(inc), nil
}
