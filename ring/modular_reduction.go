package ring

import (
	"math/big"
	"math/bits"
)

//==========================
//=== BARRETT REDUCTION  ===
//==========================

// BRedConstant computes the constant floor(2^128/q) required for the Barrett
// reduction with a radix of 2^128, as {hi, lo}.
func BRedConstant(q uint64) (u [2]uint64) {
	bigR := new(big.Int).Lsh(big.NewInt(1), 128)
	bigR.Quo(bigR, new(big.Int).SetUint64(q))
	u[1] = bigR.Uint64()
	u[0] = bigR.Rsh(bigR, 64).Uint64()
	return
}

// BRedAddLazy reduces a 64 bit integer by q.
// Runs in constant time and returns a value in [0, 2q-1].
func BRedAddLazy(x, q uint64, u [2]uint64) uint64 {
	s0, _ := bits.Mul64(x, u[0])
	return x - s0*q
}

// BRedLazy operates a 64x64 bit multiplication with a Barrett reduction.
// Runs in constant time and returns a value in [0, 3q-1].
func BRedLazy(x, y, q uint64, u [2]uint64) (r uint64) {

	var lhi, mhi, mlo, s0, s1, carry uint64

	ahi, alo := bits.Mul64(x, y)

	// (alo*ulo)>>64

	lhi, _ = bits.Mul64(alo, u[1])

	// ((ahi*ulo + alo*uhi) + (alo*ulo))>>64

	mhi, mlo = bits.Mul64(alo, u[0])

	s0, carry = bits.Add64(mlo, lhi, 0)

	s1 = mhi + carry

	mhi, mlo = bits.Mul64(ahi, u[1])

	_, carry = bits.Add64(mlo, s0, 0)

	lhi = mhi + carry

	// (ahi*uhi) + (((ahi*ulo + alo*uhi) + (alo*ulo))>>64)

	s0 = ahi*u[0] + s1 + lhi

	return alo - s0*q
}

// BRed operates a 64x64 bit multiplication with a Barrett reduction
// in constant time. Returns a value in [0, q-1].
func BRed(x, y, q uint64, u [2]uint64) uint64 {
	return CRed(CRed(BRedLazy(x, y, q, u), q), q)
}

// BRedVT is identical to BRed, except that its running time depends on the result.
func BRedVT(x, y, q uint64, u [2]uint64) (r uint64) {
	r = BRedLazy(x, y, q, u)
	for r >= q {
		r -= q
	}
	return
}

//===============================
//==== CONDITIONAL REDUCTION ====
//===============================

// CRed returns a mod q in constant time, where a is required to be in the range [0, 2q-1]
// and q smaller than 2^63.
func CRed(a, q uint64) uint64 {
	y := a - q
	mask := -(y >> 63)
	return y + (q & mask)
}

// CRedVT is identical to CRed, except that it branches on the value of a.
func CRedVT(a, q uint64) uint64 {
	if a >= q {
		return a - q
	}
	return a
}

//===============================
//====== SHOUP MULTIPLICATION ===
//===============================

// ShoupConstant returns floor(w * 2^64 / q) for w < q, using a bitwise
// restoring division whose running time does not depend on w.
func ShoupConstant(w, q uint64) (ws uint64) {
	// The high word of the dividend is w < q, so the quotient fits in 64 bits.
	rem := w
	for i := 63; i >= 0; i-- {
		rem <<= 1
		d := rem - q
		borrow := d >> 63
		rem = d + (q & -borrow)
		ws |= (1 ^ borrow) << uint(i)
	}
	return
}

// ShoupConstantVT is identical to ShoupConstant but uses the hardware division.
func ShoupConstantVT(w, q uint64) uint64 {
	ws, _ := bits.Div64(w, 0, q)
	return ws
}

// MRedShoupLazy returns x * w mod q in [0, 2q-1], given ws = ShoupConstant(w, q).
func MRedShoupLazy(x, w, ws, q uint64) uint64 {
	hi, _ := bits.Mul64(x, ws)
	return x*w - hi*q
}
