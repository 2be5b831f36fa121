package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsPowerOfTwo(t *testing.T) {
	for _, x := range []int{1, 2, 8, 1 << 20} {
		require.True(t, IsPowerOfTwo(x), x)
	}
	for _, x := range []int{0, 3, 12, -8} {
		require.False(t, IsPowerOfTwo(x), x)
	}
}

func TestMin(t *testing.T) {
	require.Equal(t, uint64(3), Min(uint64(3), 7))
	require.Equal(t, -2, Min(5, -2))
}

func TestBitReverse64(t *testing.T) {
	require.Equal(t, 4, Log2(17))
	for i, want := range []uint64{0, 4, 2, 6, 1, 5, 3, 7} {
		require.Equal(t, want, BitReverse64(i, 3))
	}
}
