package ring

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/tuneinsight/bfvcore/utils/sampling"
)

type testParameters struct {
	logN  int
	logQi []int
}

var testParams = []testParameters{
	{logN: 3, logQi: []int{62}},
	{logN: 4, logQi: []int{55, 45, 36}},
	{logN: 10, logQi: []int{60, 60}},
}

func testString(opname string, ctx *Context) string {
	return fmt.Sprintf("%s/N=%d/limbs=%d", opname, ctx.N(), ctx.ModuliCount())
}

type testContext struct {
	ctx  *Context
	prng sampling.PRNG
}

func genTestContext(params testParameters) (tc *testContext, err error) {

	n := 1 << params.logN

	var moduli []uint64
	for _, logQi := range params.logQi {
		var p []uint64
		if p, err = GenerateNTTPrimes(logQi, n, 1, moduli...); err != nil {
			return nil, err
		}
		moduli = append(moduli, p...)
	}

	tc = &testContext{prng: sampling.NewPRNG()}

	if tc.ctx, err = NewContext(moduli, n); err != nil {
		return nil, err
	}

	return
}

func TestRing(t *testing.T) {

	testNewContext(t)
	testGeneratePrime(t)

	for _, params := range testParams {

		tc, err := genTestContext(params)
		require.NoError(t, err)

		testModulus(tc, t)
		testNTT(tc, t)
		testRNS(tc, t)
		testPolyArithmetic(tc, t)
		testSampler(tc, t)
		testScaler(tc, t)
		testRNSScaler(tc, t)
		testDivRoundByLastModulus(tc, t)
		testWriterAndReader(tc, t)
	}
}

func testNewContext(t *testing.T) {

	t.Run("NewContext/Errors", func(t *testing.T) {

		_, err := NewContext(nil, 8)
		require.Error(t, err)

		// Degree is not a power of two, or is too small.
		_, err = NewContext([]uint64{4611686018427387761}, 7)
		require.Error(t, err)
		_, err = NewContext([]uint64{4611686018427387761}, 4)
		require.Error(t, err)

		// Not prime.
		_, err = NewContext([]uint64{4611686018427387761 - 16}, 8)
		require.Error(t, err)

		// Not 1 mod 2n.
		_, err = NewContext([]uint64{1153}, 128)
		require.Error(t, err)

		// Duplicated moduli.
		_, err = NewContext([]uint64{1153, 1153}, 8)
		require.Error(t, err)

		ctx, err := NewContext([]uint64{4611686018427387761, 1153}, 8)
		require.NoError(t, err)
		require.Equal(t, 8, ctx.N())
		require.Equal(t, []uint64{4611686018427387761, 1153}, ctx.Moduli())
	})

	t.Run("Context/PrefixAndConcat", func(t *testing.T) {

		ctx, err := NewContext([]uint64{4611686018427387761, 4611686018427387617, 1153}, 8)
		require.NoError(t, err)

		head, err := ctx.Prefix(2)
		require.NoError(t, err)
		require.True(t, head.IsPrefixOf(ctx))
		require.False(t, ctx.IsPrefixOf(head))

		tail, err := NewContext([]uint64{1153}, 8)
		require.NoError(t, err)

		all, err := head.Concat(tail)
		require.NoError(t, err)
		require.True(t, all.Equal(ctx))
		require.Equal(t, 0, all.BigModulus().Cmp(ctx.BigModulus()))

		_, err = ctx.Concat(tail)
		require.Error(t, err)

		_, err = ctx.Prefix(0)
		require.Error(t, err)
		_, err = ctx.Prefix(4)
		require.Error(t, err)
	})

	t.Run("NewModulus/Errors", func(t *testing.T) {
		for _, p := range []uint64{0, 1, 2, 4, 9, 1 << 62, (1 << 62) + 135} {
			_, err := NewModulus(p)
			require.Error(t, err, p)
		}
	})

	t.Run("NewIntegerModulus", func(t *testing.T) {

		for _, p := range []uint64{0, 1, 1 << 62} {
			_, err := NewIntegerModulus(p)
			require.Error(t, err, p)
		}

		for _, p := range []uint64{2, 1152, 65536, 1153, 1<<62 - 1} {

			m, err := NewIntegerModulus(p)
			require.NoError(t, err, p)
			require.Equal(t, IsPrime(p), m.IsPrime())

			bigP := new(big.Int).SetUint64(p)

			for _, x := range []uint64{0, 1, p - 1, p, 1<<64 - 1, 0x123456789abcdef} {

				X := new(big.Int).SetUint64(x)
				require.Equal(t, new(big.Int).Mod(X, bigP).Uint64(), m.Reduce(x), p)

				a := m.Reduce(x)
				A := new(big.Int).SetUint64(a)
				require.Equal(t, new(big.Int).Mod(new(big.Int).Mul(A, A), bigP).Uint64(), m.Mul(a, a), p)
				require.Equal(t, new(big.Int).Mod(new(big.Int).Add(A, new(big.Int).SetUint64(p-1)), bigP).Uint64(), m.Add(a, p-1), p)

				if inv := new(big.Int).ModInverse(A, bigP); inv != nil {
					got, ok := m.Inv(a)
					require.True(t, ok)
					require.Equal(t, inv.Uint64(), got)
				} else {
					_, ok := m.Inv(a)
					require.False(t, ok)
				}
			}

			require.Equal(t, int64(p>>1), m.Center(p>>1))
			if p > 2 {
				require.Equal(t, -int64((p-1)>>1), m.Center(p>>1+1))
			}
		}

		// The NTT requires a prime modulus, even if it is equal to 1 mod 2n.
		m, err := NewIntegerModulus(561)
		require.NoError(t, err)
		_, err = NewNTTOperator(m, 8)
		require.Error(t, err)
	})
}

func testGeneratePrime(t *testing.T) {

	t.Run("GeneratePrime", func(t *testing.T) {

		expected := []uint64{4611686018427387761, 4611686018427387617, 4611686018427387409, 2305843009213693921, 1152921504606846577, 2017}

		primes, err := GenerateNTTPrimes(62, 8, 3)
		require.NoError(t, err)

		for _, logP := range []int{61, 60, 11} {
			p, err := GeneratePrime(logP, 16, 1<<logP)
			require.NoError(t, err)
			primes = append(primes, p)
		}

		require.Equal(t, expected, primes)

		for _, p := range primes {
			require.True(t, IsPrime(p))
			require.Equal(t, uint64(1), p%16)
		}

		_, err = GeneratePrime(10, 1<<11, 1<<10)
		require.Error(t, err)

		_, err = GeneratePrime(63, 16, 1<<62)
		require.Error(t, err)
	})
}

func testModulus(tc *testContext, t *testing.T) {

	for i := 0; i < tc.ctx.ModuliCount(); i++ {

		m := tc.ctx.Modulus(i)
		p := m.Value()
		bigP := new(big.Int).SetUint64(p)

		t.Run(testString(fmt.Sprintf("Modulus/p=%d", p), tc.ctx), func(t *testing.T) {

			n := tc.ctx.N()

			a, err := m.RandomVec(n, tc.prng)
			require.NoError(t, err)
			b, err := m.RandomVec(n, tc.prng)
			require.NoError(t, err)

			a[0], b[0] = 0, p-1
			a[1], b[1] = p-1, p-1

			for j := range a {

				x, y := new(big.Int).SetUint64(a[j]), new(big.Int).SetUint64(b[j])

				require.Equal(t, new(big.Int).Mod(new(big.Int).Add(x, y), bigP).Uint64(), m.Add(a[j], b[j]))
				require.Equal(t, new(big.Int).Mod(new(big.Int).Sub(x, y), bigP).Uint64(), m.Sub(a[j], b[j]))
				require.Equal(t, new(big.Int).Mod(new(big.Int).Neg(x), bigP).Uint64(), m.Neg(a[j]))
				require.Equal(t, new(big.Int).Mod(new(big.Int).Mul(x, y), bigP).Uint64(), m.Mul(a[j], b[j]))
				require.Equal(t, m.Mul(a[j], b[j]), m.MulShoup(a[j], b[j], m.Shoup(b[j])))
				require.Equal(t, ShoupConstantVT(b[j], p), m.Shoup(b[j]))

				if a[j] != 0 {
					inv, ok := m.Inv(a[j])
					require.True(t, ok)
					require.Equal(t, uint64(1), m.Mul(inv, a[j]))
				}
			}

			_, ok := m.Inv(0)
			require.False(t, ok)

			require.Equal(t, new(big.Int).Exp(new(big.Int).SetUint64(a[2]), big.NewInt(12345), bigP).Uint64(), m.Pow(a[2], 12345))

			for _, x := range []uint64{0, 1, p, p + 1, 1<<64 - 1, 1 << 63} {
				require.Equal(t, new(big.Int).Mod(new(big.Int).SetUint64(x), bigP).Uint64(), m.Reduce(x))
				require.Equal(t, m.Reduce(x), m.ReduceVT(x))
			}

			for _, x := range []int64{0, 1, -1, -12345678, 1<<63 - 1, -1 << 63} {
				require.Equal(t, new(big.Int).Mod(big.NewInt(x), bigP).Uint64(), m.ReduceInt64(x))
			}

			require.Equal(t, int64(-1), m.Center(p-1))
			require.Equal(t, int64(1), m.Center(1))

			// Constant-time and variable-time vector primitives agree.
			type vecOp struct {
				name   string
				ct, vt func(a []uint64)
			}

			bShoup := m.ShoupVec(b)
			require.Equal(t, bShoup, m.ShoupVecVT(b))

			for _, op := range []vecOp{
				{"Add", func(x []uint64) { m.AddVec(x, b) }, func(x []uint64) { m.AddVecVT(x, b) }},
				{"Sub", func(x []uint64) { m.SubVec(x, b) }, func(x []uint64) { m.SubVecVT(x, b) }},
				{"Neg", m.NegVec, m.NegVecVT},
				{"Mul", func(x []uint64) { m.MulVec(x, b) }, func(x []uint64) { m.MulVecVT(x, b) }},
				{"MulShoup", func(x []uint64) { m.MulShoupVec(x, b, bShoup) }, func(x []uint64) { m.MulShoupVecVT(x, b, bShoup) }},
				{"ScalarMul", func(x []uint64) { m.ScalarMulVec(x, b[3]) }, func(x []uint64) { m.ScalarMulVecVT(x, b[3]) }},
				{"Reduce", m.ReduceVec, m.ReduceVecVT},
			} {
				x, y := append([]uint64{}, a...), append([]uint64{}, a...)
				op.ct(x)
				op.vt(y)
				require.Empty(t, cmp.Diff(x, y), op.name)
			}

			c := append([]uint64{}, a...)
			m.MulVec(c, b)
			d := append([]uint64{}, a...)
			m.MulShoupVec(d, b, bShoup)
			require.Equal(t, c, d)
		})
	}
}

// negacyclicProduct returns a*b in Z_p[X]/(X^n+1) with the schoolbook algorithm.
func negacyclicProduct(m *Modulus, a, b []uint64) (c []uint64) {
	n := len(a)
	c = make([]uint64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.Mul(a[i], b[j])
			if k := i + j; k < n {
				c[k] = m.Add(c[k], v)
			} else {
				c[k-n] = m.Sub(c[k-n], v)
			}
		}
	}
	return
}

func testNTT(tc *testContext, t *testing.T) {

	t.Run(testString("NTT", tc.ctx), func(t *testing.T) {

		for i := 0; i < tc.ctx.ModuliCount(); i++ {

			op := tc.ctx.NTT(i)
			m := op.Modulus()
			n := op.N()

			a, err := m.RandomVec(n, tc.prng)
			require.NoError(t, err)
			b, err := m.RandomVec(n, tc.prng)
			require.NoError(t, err)

			x := append([]uint64{}, a...)
			y := append([]uint64{}, a...)

			op.Forward(x)
			op.ForwardVT(y)
			require.Equal(t, x, y)

			op.Backward(x)
			op.BackwardVT(y)
			require.Equal(t, a, x)
			require.Equal(t, a, y)

			// Convolution theorem for the negacyclic product.
			if n <= 64 {
				x := append([]uint64{}, a...)
				y := append([]uint64{}, b...)
				op.Forward(x)
				op.Forward(y)
				m.MulVec(x, y)
				op.Backward(x)
				require.Equal(t, negacyclicProduct(m, a, b), x)
			}

			// X * X^{n-1} = -1
			x = make([]uint64, n)
			y = make([]uint64, n)
			x[1], y[n-1] = 1, 1
			op.ForwardVT(x)
			op.ForwardVT(y)
			m.MulVecVT(x, y)
			op.BackwardVT(x)
			expected := make([]uint64, n)
			expected[0] = m.Value() - 1
			require.Equal(t, expected, x)
		}
	})
}

func testRNS(tc *testContext, t *testing.T) {

	t.Run(testString("RNS", tc.ctx), func(t *testing.T) {

		rns := tc.ctx.RNS()
		P := rns.Modulus()
		moduli := tc.ctx.Moduli()

		for i := range moduli {
			residues := rns.Project(rns.Garner(i))
			for j := range residues {
				if i == j {
					require.Equal(t, uint64(1), residues[j])
				} else {
					require.Equal(t, uint64(0), residues[j])
				}
			}
		}

		for k := 0; k < 32; k++ {
			x, err := rand.Int(tc.prng, P)
			require.NoError(t, err)
			require.Zero(t, x.Cmp(rns.Lift(rns.Project(x))))
		}

		neg := big.NewInt(-5)
		require.Zero(t, new(big.Int).Sub(P, big.NewInt(5)).Cmp(rns.Lift(rns.Project(neg))))

		_, err := NewRNSContext([]uint64{15, 10})
		require.Error(t, err)
	})
}

func testPolyArithmetic(tc *testContext, t *testing.T) {

	ctx := tc.ctx

	t.Run(testString("Poly/Representation", ctx), func(t *testing.T) {

		p, err := NewUniformPoly(ctx, Coefficient, tc.prng)
		require.NoError(t, err)

		q := p.CopyNew()
		q.ChangeRepresentation(TransformedShoup)
		require.Equal(t, TransformedShoup, q.Representation())
		q.ChangeRepresentation(Transformed)
		q.ChangeRepresentation(Coefficient)
		require.True(t, p.Equal(q))

		q.AllowVariableTimeComputations()
		q.ChangeRepresentation(Transformed)
		r := p.CopyNew()
		r.ChangeRepresentation(Transformed)
		require.True(t, q.Equal(r))
	})

	t.Run(testString("Poly/Arithmetic", ctx), func(t *testing.T) {

		a, err := NewUniformPoly(ctx, Coefficient, tc.prng)
		require.NoError(t, err)
		b, err := NewUniformPoly(ctx, Coefficient, tc.prng)
		require.NoError(t, err)

		zero := NewPoly(ctx, Coefficient)

		sum := NewPoly(ctx, Coefficient)
		ctx.Add(a, b, sum)
		ctx.Sub(sum, b, sum)
		require.True(t, sum.Equal(a))

		neg := NewPoly(ctx, Coefficient)
		ctx.Neg(a, neg)
		ctx.Add(neg, a, neg)
		require.True(t, neg.Equal(zero))

		if ctx.N() <= 64 {

			aT, bT := a.CopyNew(), b.CopyNew()
			aT.ChangeRepresentation(Transformed)
			bT.ChangeRepresentation(TransformedShoup)

			prod := ctx.MulNew(aT, bT)
			require.Equal(t, Transformed, prod.Representation())

			bT.ChangeRepresentation(Transformed)
			prod2 := ctx.MulNew(aT, bT)
			require.True(t, prod.Equal(prod2))

			prod.ChangeRepresentation(Coefficient)

			for i := 0; i < ctx.ModuliCount(); i++ {
				require.Equal(t, negacyclicProduct(ctx.Modulus(i), a.Coeffs[i], b.Coeffs[i]), prod.Coeffs[i])
			}
		}

		c := NewPoly(ctx, Coefficient)
		ctx.MulScalarBig(a, big.NewInt(-1), c)
		ctx.Add(c, a, c)
		require.True(t, c.Equal(zero))

		// The operands are left unchanged.
		require.False(t, a.Equal(zero))
		require.False(t, b.Equal(zero))
	})

	t.Run(testString("Poly/Aliasing", ctx), func(t *testing.T) {

		a, err := NewUniformPoly(ctx, Transformed, tc.prng)
		require.NoError(t, err)
		b, err := NewUniformPoly(ctx, Transformed, tc.prng)
		require.NoError(t, err)

		sum := NewPoly(ctx, Transformed)
		ctx.Add(a, b, sum)
		diff := NewPoly(ctx, Transformed)
		ctx.Sub(a, b, diff)
		prod := ctx.MulNew(a, b)
		square := ctx.MulNew(a, a)

		// Output aliasing the first operand.
		x := a.CopyNew()
		ctx.Add(x, b, x)
		require.True(t, x.Equal(sum))

		// Output aliasing the second operand.
		x = b.CopyNew()
		ctx.Sub(a, x, x)
		require.True(t, x.Equal(diff))

		x = b.CopyNew()
		ctx.Mul(a, x, x)
		require.True(t, x.Equal(prod))

		// Output aliasing both operands.
		x = a.CopyNew()
		ctx.Mul(x, x, x)
		require.True(t, x.Equal(square))

		x = a.CopyNew()
		ctx.Sub(x, x, x)
		require.True(t, x.Equal(NewPoly(ctx, Transformed)))

		// Shoup operand aliasing the output.
		x = a.CopyNew()
		x.ChangeRepresentation(TransformedShoup)
		ctx.Mul(x, x, x)
		require.Equal(t, Transformed, x.Representation())
		require.True(t, x.Equal(square))

		x = b.CopyNew()
		x.ChangeRepresentation(TransformedShoup)
		ctx.Mul(a, x, x)
		require.True(t, x.Equal(prod))

		// Shoup operands are read as Transformed.
		y := a.CopyNew()
		y.ChangeRepresentation(TransformedShoup)
		x = NewPoly(ctx, Transformed)
		ctx.Add(y, b, x)
		require.True(t, x.Equal(sum))
		require.Equal(t, TransformedShoup, y.Representation())

		x = a.CopyNew()
		ctx.Neg(x, x)
		ctx.Neg(x, x)
		require.True(t, x.Equal(a))
	})

	t.Run(testString("Poly/VariableTime", ctx), func(t *testing.T) {

		a := NewPoly(ctx, Transformed)
		b := NewPoly(ctx, Transformed)
		require.False(t, a.IsVariableTime())

		b.AllowVariableTimeComputations()
		ctx.Add(a, b, a)
		require.False(t, a.IsVariableTime())

		a.AllowVariableTimeComputations()
		ctx.Mul(a, b, a)
		require.True(t, a.IsVariableTime())

		out := NewPoly(ctx, Transformed)
		ctx.Neg(a, out)
		require.True(t, out.IsVariableTime())

		b.DisallowVariableTimeComputations()
		ctx.Sub(a, b, a)
		require.False(t, a.IsVariableTime())
	})

	t.Run(testString("Poly/Preconditions", ctx), func(t *testing.T) {

		a := NewPoly(ctx, Coefficient)
		b := NewPoly(ctx, Transformed)
		out := NewPoly(ctx, Transformed)

		require.Panics(t, func() { ctx.Add(a, b, out) })
		require.Panics(t, func() { ctx.Mul(b, a, out) })
		require.Panics(t, func() { ctx.Mul(a, b, out) })

		other, err := NewContext([]uint64{1153}, 8)
		require.NoError(t, err)
		require.Panics(t, func() { ctx.Add(b, b, NewPoly(other, Transformed)) })
		require.Panics(t, func() { other.Neg(b, b) })
	})

	t.Run(testString("Poly/BigInts", ctx), func(t *testing.T) {

		Q := ctx.BigModulus()

		values := []*big.Int{big.NewInt(-1), big.NewInt(0), big.NewInt(42), new(big.Int).Rsh(Q, 1)}

		p := NewPoly(ctx, Coefficient)
		p.SetCoefficientsBigInt(values)

		got := p.BigInts()
		require.Zero(t, new(big.Int).Sub(Q, big.NewInt(1)).Cmp(got[0]))
		require.Zero(t, got[1].Sign())
		require.Zero(t, got[2].Cmp(big.NewInt(42)))
		require.Zero(t, got[3].Cmp(values[3]))
		require.Zero(t, got[4].Sign())

		q := NewPoly(ctx, Coefficient)
		q.SetCoefficientsInt64([]int64{-1, 0, 42})
		for i := range q.Coeffs {
			require.Equal(t, p.Coeffs[i][:3], q.Coeffs[i][:3])
		}
	})

	t.Run(testString("Poly/Truncate", ctx), func(t *testing.T) {

		sub, err := ctx.Prefix(1)
		require.NoError(t, err)
		require.True(t, sub.IsPrefixOf(ctx))

		p, err := NewUniformPoly(ctx, Transformed, tc.prng)
		require.NoError(t, err)

		tr := p.Truncate(sub)
		require.Equal(t, 1, len(tr.Coeffs))
		require.Equal(t, p.Coeffs[0], tr.Coeffs[0])

		other, err := NewContext([]uint64{1153}, 8)
		require.NoError(t, err)
		require.Panics(t, func() { p.Truncate(other) })
	})
}

func testSampler(tc *testContext, t *testing.T) {

	ctx := tc.ctx

	t.Run(testString("Sampler/Small", ctx), func(t *testing.T) {

		for _, variance := range []int{1, 10, 16} {

			p, err := NewSmallPoly(ctx, variance, tc.prng)
			require.NoError(t, err)
			require.Equal(t, Coefficient, p.Representation())

			bound := int64(2 * variance)
			for j := 0; j < ctx.N(); j++ {
				c := ctx.Modulus(0).Center(p.Coeffs[0][j])
				require.LessOrEqual(t, c, bound)
				require.GreaterOrEqual(t, c, -bound)
				for i := 1; i < ctx.ModuliCount(); i++ {
					require.Equal(t, c, ctx.Modulus(i).Center(p.Coeffs[i][j]))
				}
			}
		}

		_, err := NewSmallPoly(ctx, 0, tc.prng)
		require.Error(t, err)
		_, err = NewSmallPoly(ctx, 17, tc.prng)
		require.Error(t, err)

		sampler, err := NewSmallSampler(tc.prng, 1)
		require.NoError(t, err)
		require.Error(t, sampler.Read(NewPoly(ctx, Transformed)))
	})

	t.Run(testString("Sampler/Uniform", ctx), func(t *testing.T) {

		p, err := NewUniformPoly(ctx, Transformed, tc.prng)
		require.NoError(t, err)

		for i, row := range p.Coeffs {
			for _, c := range row {
				require.Less(t, c, ctx.Modulus(i).Value())
			}
		}

		seed, err := sampling.NewSeed(tc.prng)
		require.NoError(t, err)

		a := NewUniformPolyFromSeed(ctx, Transformed, seed)
		b := NewUniformPolyFromSeed(ctx, Transformed, seed)
		require.True(t, a.Equal(b))

		seed[0] ^= 1
		c := NewUniformPolyFromSeed(ctx, Transformed, seed)
		require.False(t, a.Equal(c))
	})
}

func testScaler(tc *testContext, t *testing.T) {

	ctx := tc.ctx
	n := ctx.N()

	extra, err := GenerateNTTPrimes(61, n, 2, ctx.Moduli()...)
	require.NoError(t, err)

	extraCtx, err := NewContext(extra, n)
	require.NoError(t, err)

	ext, err := ctx.Concat(extraCtx)
	require.NoError(t, err)

	t.Run(testString("Scaler/Extend", ctx), func(t *testing.T) {

		s, err := NewScaler(ctx, ext, ScalingFactorOne())
		require.NoError(t, err)

		values := []int64{-3, 0, 7, -1 << 40, 1<<31 + 5}

		p := NewPoly(ctx, Coefficient)
		p.SetCoefficientsInt64(values)

		got, err := s.Scale(p, false)
		require.NoError(t, err)

		want := NewPoly(ext, Coefficient)
		want.SetCoefficientsInt64(values)
		require.True(t, want.Equal(got))

		// Extension to a basis that does not start with the source primes.
		alt, err := NewContext(extra, n)
		require.NoError(t, err)
		s, err = NewScaler(ctx, alt, ScalingFactorOne())
		require.NoError(t, err)

		got, err = s.Scale(p, false)
		require.NoError(t, err)
		want = NewPoly(alt, Coefficient)
		want.SetCoefficientsInt64(values)
		require.True(t, want.Equal(got))
	})

	t.Run(testString("Scaler/Rescale", ctx), func(t *testing.T) {

		// Scales by 1/den from ext to ctx, den being the product of the extra primes.
		den := new(big.Int).SetUint64(extra[0])
		den.Mul(den, new(big.Int).SetUint64(extra[1]))

		factor, err := NewScalingFactor(big.NewInt(1), den)
		require.NoError(t, err)

		s, err := NewScaler(ext, ctx, factor)
		require.NoError(t, err)

		half := new(big.Int).Rsh(den, 1)

		// x = k * den + r
		ks := []int64{5, -5, 0, 1 << 20}
		rs := []*big.Int{big.NewInt(3), new(big.Int).Add(half, big.NewInt(1)), big.NewInt(-7), new(big.Int).Neg(new(big.Int).Add(half, big.NewInt(2)))}

		values := make([]*big.Int, len(ks))
		for i := range ks {
			values[i] = new(big.Int).Mul(big.NewInt(ks[i]), den)
			values[i].Add(values[i], rs[i])
		}

		p := NewPoly(ext, Coefficient)
		p.SetCoefficientsBigInt(values)

		rounded, err := s.Scale(p, false)
		require.NoError(t, err)
		floored, err := s.Scale(p, true)
		require.NoError(t, err)

		want := NewPoly(ctx, Coefficient)

		want.SetCoefficientsInt64([]int64{5, -4, 0, 1<<20 - 1})
		require.True(t, want.Equal(rounded))

		want.SetCoefficientsInt64([]int64{5, -5, -1, 1<<20 - 1})
		require.True(t, want.Equal(floored))
	})

	t.Run(testString("Scaler/Errors", ctx), func(t *testing.T) {

		_, err := NewScalingFactor(big.NewInt(1), big.NewInt(0))
		require.Error(t, err)

		s, err := NewScaler(ctx, ext, ScalingFactorOne())
		require.NoError(t, err)

		_, err = s.Scale(NewPoly(ctx, Transformed), false)
		require.Error(t, err)

		_, err = s.Scale(NewPoly(ext, Coefficient), false)
		require.Error(t, err)

		primes, err := GenerateNTTPrimes(40, 2*n, 1)
		require.NoError(t, err)
		other, err := NewContext(primes, 2*n)
		require.NoError(t, err)
		_, err = NewScaler(ctx, other, ScalingFactorOne())
		require.Error(t, err)
	})
}

func testRNSScaler(tc *testContext, t *testing.T) {

	ctx := tc.ctx
	Q := ctx.BigModulus()

	for _, T := range []uint64{2, 65536, 1153, 1<<40 + 1} {

		t.Run(testString(fmt.Sprintf("RNSScaler/t=%d", T), ctx), func(t *testing.T) {

			m, err := NewIntegerModulus(T)
			require.NoError(t, err)

			s := NewRNSScaler(ctx, m)

			p, err := NewUniformPoly(ctx, Coefficient, tc.prng)
			require.NoError(t, err)

			bigT := new(big.Int).SetUint64(T)

			// largest x with t*x/Q < 1/2
			half := new(big.Int).Quo(Q, new(big.Int).Lsh(bigT, 1))
			step := new(big.Int).Quo(Q, bigT)

			special := []*big.Int{
				big.NewInt(0),
				new(big.Int).Sub(Q, big.NewInt(1)),
				half,
				step,
				new(big.Int).Add(step, big.NewInt(1)),
			}

			for j, x := range special {
				for i, r := range ctx.RNS().Project(x) {
					p.Coeffs[i][j] = r
				}
			}

			out := make([]uint64, ctx.N())
			require.NoError(t, s.DivByQOverTRounded(p, out))

			// floor((2*t*x + Q) / 2Q) mod t
			twoQ := new(big.Int).Lsh(Q, 1)
			for j, x := range p.BigInts() {
				want := new(big.Int).Mul(x, bigT)
				want.Lsh(want, 1).Add(want, Q).Quo(want, twoQ).Mod(want, bigT)
				require.Equal(t, want.Uint64(), out[j], j)
			}

			require.Equal(t, uint64(0), out[0])
			require.Equal(t, uint64(0), out[1])
			require.Equal(t, uint64(0), out[2])

			require.Error(t, s.DivByQOverTRounded(NewPoly(ctx, Transformed), out))
			require.Error(t, s.DivByQOverTRounded(p, out[:1]))
		})
	}
}

func testDivRoundByLastModulus(tc *testContext, t *testing.T) {

	ctx := tc.ctx
	k := ctx.ModuliCount()

	if k < 2 {
		return
	}

	t.Run(testString("DivRoundByLastModulus", ctx), func(t *testing.T) {

		next, err := ctx.Prefix(k - 1)
		require.NoError(t, err)

		qL := new(big.Int).SetUint64(ctx.Modulus(k - 1).Value())
		half := new(big.Int).Rsh(qL, 1)
		Q := ctx.BigModulus()
		QNext := next.BigModulus()

		p, err := NewUniformPoly(ctx, Coefficient, tc.prng)
		require.NoError(t, err)

		// x = a * q_last + r around the rounding boundary
		a := new(big.Int).Quo(Q, new(big.Int).Lsh(qL, 1))
		special := []*big.Int{
			big.NewInt(0),
			new(big.Int).Sub(Q, big.NewInt(1)),
			new(big.Int).Add(new(big.Int).Mul(a, qL), half),
			new(big.Int).Add(new(big.Int).Mul(a, qL), new(big.Int).Add(half, big.NewInt(1))),
		}

		for j, x := range special {
			for i, r := range ctx.RNS().Project(x) {
				p.Coeffs[i][j] = r
			}
		}

		out := NewPoly(next, Coefficient)
		ctx.DivRoundByLastModulus(p, out)

		have := out.BigInts()
		for j, x := range p.BigInts() {
			want := new(big.Int).Add(x, half)
			want.Quo(want, qL).Mod(want, QNext)
			require.Zero(t, want.Cmp(have[j]), j)
		}

		require.Zero(t, have[2].Cmp(a))
		require.Zero(t, have[3].Cmp(new(big.Int).Add(a, big.NewInt(1))))

		// Same result as the arbitrary precision rescaling.
		factor, err := NewScalingFactor(big.NewInt(1), qL)
		require.NoError(t, err)
		s, err := NewScaler(ctx, next, factor)
		require.NoError(t, err)
		ref, err := s.Scale(p, false)
		require.NoError(t, err)
		require.True(t, ref.Equal(out))

		require.Panics(t, func() { ctx.DivRoundByLastModulus(p, NewPoly(ctx, Coefficient)) })
		require.Panics(t, func() { ctx.DivRoundByLastModulus(p, NewPoly(next, Transformed)) })

		single, err := ctx.Prefix(1)
		require.NoError(t, err)
		require.Panics(t, func() { single.DivRoundByLastModulus(NewPoly(single, Coefficient), NewPoly(single, Coefficient)) })
	})
}

func testWriterAndReader(tc *testContext, t *testing.T) {

	ctx := tc.ctx

	t.Run(testString("WriterAndReader", ctx), func(t *testing.T) {

		for _, rep := range []Representation{Coefficient, Transformed, TransformedShoup} {

			p, err := NewUniformPoly(ctx, rep, tc.prng)
			require.NoError(t, err)

			buf := new(bytes.Buffer)
			n, err := p.WriteTo(buf)
			require.NoError(t, err)
			require.Equal(t, int64(p.BinarySize()), n)
			require.Equal(t, p.BinarySize(), buf.Len())

			data := buf.Bytes()

			q := NewPoly(ctx, Coefficient)
			_, err = q.ReadFrom(bytes.NewReader(data))
			require.NoError(t, err)
			require.True(t, p.Equal(q))

			if rep == TransformedShoup {
				require.Equal(t, p.shoup, q.shoup)
			}

			// Truncated data.
			_, err = NewPoly(ctx, Coefficient).ReadFrom(bytes.NewReader(data[:len(data)-1]))
			require.Error(t, err)

			// Unreduced coefficient.
			bad := append([]byte{}, data...)
			for i := 17; i < 25; i++ {
				bad[i] = 0xff
			}
			_, err = NewPoly(ctx, Coefficient).ReadFrom(bytes.NewReader(bad))
			require.Error(t, err)
		}

		// Wrong context.
		p, err := NewUniformPoly(ctx, Coefficient, tc.prng)
		require.NoError(t, err)
		buf := new(bytes.Buffer)
		_, err = p.WriteTo(buf)
		require.NoError(t, err)

		other, err := NewContext([]uint64{1153}, 8)
		require.NoError(t, err)
		_, err = NewPoly(other, Coefficient).ReadFrom(buf)
		require.Error(t, err)
	})
}
