package sampling_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/bfvcore/utils/sampling"
)

func Test_PRNG(t *testing.T) {

	t.Run("KeyedPRNG", func(t *testing.T) {

		key := []byte{0x49, 0x0a, 0x42, 0x3d, 0x97, 0x9d, 0xc1, 0x07, 0xa1, 0xd7, 0xe9, 0x7b, 0x3b, 0xce, 0xa1, 0xdb,
			0x42, 0xf3, 0xa6, 0xd5, 0x75, 0xd2, 0x0c, 0x92, 0xb7, 0x35, 0xce, 0x0c, 0xee, 0x09, 0x7c, 0x98}

		Ha, err := sampling.NewKeyedPRNG(key)
		require.NoError(t, err)
		Hb, err := sampling.NewKeyedPRNG(key)
		require.NoError(t, err)

		sum0 := make([]byte, 512)
		sum1 := make([]byte, 512)

		for i := 0; i < 128; i++ {
			_, err = Ha.Read(sum0)
			require.NoError(t, err)
			_, err = Hb.Read(sum1)
			require.NoError(t, err)
			require.Equal(t, sum0, sum1)
		}

		key[0] ^= 1
		Hc, err := sampling.NewKeyedPRNG(key)
		require.NoError(t, err)
		_, err = Hc.Read(sum1)
		require.NoError(t, err)
		require.NotEqual(t, sum0, sum1)
	})

	t.Run("ThreadSafePRNG", func(t *testing.T) {
		buf := make([]byte, 64)
		n, err := sampling.NewPRNG().Read(buf)
		require.NoError(t, err)
		require.Equal(t, 64, n)
	})
}

func TestSeed(t *testing.T) {

	seed, err := sampling.NewSeed(sampling.NewPRNG())
	require.NoError(t, err)
	require.NotEqual(t, sampling.Seed{}, seed)

	t.Run("NewPRNG", func(t *testing.T) {
		a, b := make([]byte, 96), make([]byte, 96)
		_, err := seed.NewPRNG().Read(a)
		require.NoError(t, err)
		_, err = seed.NewPRNG().Read(b)
		require.NoError(t, err)
		require.Equal(t, a, b)
	})

	t.Run("DeriveSeed", func(t *testing.T) {
		s0 := sampling.DeriveSeed(seed, 0)
		require.Equal(t, s0, sampling.DeriveSeed(seed, 0))
		require.NotEqual(t, s0, sampling.DeriveSeed(seed, 1))
		require.NotEqual(t, seed, s0)

		other := seed
		other[0] ^= 1
		require.NotEqual(t, s0, sampling.DeriveSeed(other, 0))
	})
}
