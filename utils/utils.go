// Package utils implements various helper functions.
package utils

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Min returns the minimum between a and b.
func Min[V constraints.Ordered](a, b V) V {
	if a < b {
		return a
	}
	return b
}

// IsPowerOfTwo returns true if x is a non-zero power of two.
func IsPowerOfTwo[V constraints.Integer](x V) bool {
	return x > 0 && x&(x-1) == 0
}

// Log2 returns floor(log2(x)) for x > 0.
func Log2(x uint64) int {
	return bits.Len64(x) - 1
}

// BitReverse64 returns the bit-reverse value of the input value, within a context of 2^bitLen.
func BitReverse64[V constraints.Integer](index V, bitLen int) uint64 {
	return bits.Reverse64(uint64(index)) >> (64 - bitLen)
}
