package ring

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/tuneinsight/bfvcore/utils/sampling"
)

// MaxModulusBits is the maximum bit-size of a Modulus.
const MaxModulusBits = 62

// Modulus implements the arithmetic modulo an integer in [2, 2^62). The
// ciphertext moduli are odd primes, see NewModulus, while the plaintext
// modulus can be any integer, see NewIntegerModulus.
//
// Every vector method comes in two flavors: the default one runs in time
// independent of the operand values and is safe to use on secret data, and the
// variable-time one, suffixed with VT, branches on the values and must only be
// used on data that does not depend on secrets anymore.
type Modulus struct {
	p       uint64
	barrett [2]uint64
	bitLen  int
	prime   bool
}

// NewModulus creates a new Modulus. Returns an error if p is not an odd prime
// in the range (2, 2^62).
func NewModulus(p uint64) (*Modulus, error) {

	if p < 3 || p>>MaxModulusBits != 0 {
		return nil, fmt.Errorf("cannot NewModulus: modulus %d must be in the range (2, 2^%d)", p, MaxModulusBits)
	}

	if p&1 == 0 {
		return nil, fmt.Errorf("cannot NewModulus: modulus %d must be odd", p)
	}

	if !IsPrime(p) {
		return nil, fmt.Errorf("cannot NewModulus: modulus %d is not prime", p)
	}

	return newModulus(p, true), nil
}

// NewIntegerModulus creates a new Modulus for any integer p in the range [2, 2^62),
// prime or not. Returns an error if p is out of range.
func NewIntegerModulus(p uint64) (*Modulus, error) {

	if p < 2 || p>>MaxModulusBits != 0 {
		return nil, fmt.Errorf("cannot NewIntegerModulus: modulus %d must be in the range [2, 2^%d)", p, MaxModulusBits)
	}

	return newModulus(p, IsPrime(p)), nil
}

func newModulus(p uint64, prime bool) *Modulus {
	return &Modulus{
		p:       p,
		barrett: BRedConstant(p),
		bitLen:  bits.Len64(p),
		prime:   prime,
	}
}

// Value returns the value of the modulus.
func (m *Modulus) Value() uint64 {
	return m.p
}

// BitLen returns the bit-size of the modulus.
func (m *Modulus) BitLen() int {
	return m.bitLen
}

// IsPrime returns true if the modulus is prime.
func (m *Modulus) IsPrime() bool {
	return m.prime
}

// Add returns a + b mod p, for a, b in [0, p).
func (m *Modulus) Add(a, b uint64) uint64 {
	return CRed(a+b, m.p)
}

// Sub returns a - b mod p, for a, b in [0, p).
func (m *Modulus) Sub(a, b uint64) uint64 {
	return CRed(a+m.p-b, m.p)
}

// Neg returns -a mod p, for a in [0, p).
func (m *Modulus) Neg(a uint64) uint64 {
	return CRed(m.p-a, m.p)
}

// Mul returns a * b mod p, for a, b in [0, p).
func (m *Modulus) Mul(a, b uint64) uint64 {
	return BRed(a, b, m.p, m.barrett)
}

// Reduce returns a mod p for any a.
func (m *Modulus) Reduce(a uint64) uint64 {
	return CRed(BRedAddLazy(a, m.p, m.barrett), m.p)
}

// ReduceVT is the variable-time version of Reduce.
func (m *Modulus) ReduceVT(a uint64) uint64 {
	return CRedVT(BRedAddLazy(a, m.p, m.barrett), m.p)
}

// ReduceInt64 returns a mod p in [0, p) for a signed a.
func (m *Modulus) ReduceInt64(a int64) uint64 {
	mask := uint64(a >> 63)
	abs := (uint64(a) ^ mask) - mask
	r := m.Reduce(abs)
	neg := CRed(m.p-r, m.p)
	return r ^ ((r ^ neg) & mask)
}

// Shoup returns the Shoup constant floor(w * 2^64 / p) of w in [0, p).
func (m *Modulus) Shoup(w uint64) uint64 {
	return ShoupConstant(w, m.p)
}

// MulShoup returns a * w mod p, given ws = m.Shoup(w).
func (m *Modulus) MulShoup(a, w, ws uint64) uint64 {
	return CRed(MRedShoupLazy(a, w, ws, m.p), m.p)
}

// Pow returns a^e mod p. The running time depends on e but not on a.
func (m *Modulus) Pow(a, e uint64) (r uint64) {
	a = m.Reduce(a)
	r = 1
	for e > 0 {
		if e&1 == 1 {
			r = m.Mul(r, a)
		}
		a = m.Mul(a, a)
		e >>= 1
	}
	return
}

// Inv returns the inverse of a modulo p. The second return value is false if a
// is not invertible modulo p.
// For a prime modulus, the inverse is computed with Fermat's little theorem and
// the running time does not depend on a. Otherwise it falls back on the
// extended Euclidean algorithm, which must only be used on public values.
func (m *Modulus) Inv(a uint64) (uint64, bool) {

	a = m.Reduce(a)

	if a == 0 {
		return 0, false
	}

	if m.prime {
		return m.Pow(a, m.p-2), true
	}

	inv := new(big.Int).ModInverse(new(big.Int).SetUint64(a), new(big.Int).SetUint64(m.p))
	if inv == nil {
		return 0, false
	}

	return inv.Uint64(), true
}

// Center returns the representative of a in (-p/2, p/2], for a in [0, p).
// Runs in constant time.
func (m *Modulus) Center(a uint64) int64 {
	mask := -(((m.p >> 1) - a) >> 63)
	return int64(a) - int64(m.p&mask)
}

// AddVec computes a = a + b mod p.
func (m *Modulus) AddVec(a, b []uint64) {
	p := m.p
	for i := range a {
		a[i] = CRed(a[i]+b[i], p)
	}
}

// AddVecVT is the variable-time version of AddVec.
func (m *Modulus) AddVecVT(a, b []uint64) {
	p := m.p
	for i := range a {
		a[i] = CRedVT(a[i]+b[i], p)
	}
}

// SubVec computes a = a - b mod p.
func (m *Modulus) SubVec(a, b []uint64) {
	p := m.p
	for i := range a {
		a[i] = CRed(a[i]+p-b[i], p)
	}
}

// SubVecVT is the variable-time version of SubVec.
func (m *Modulus) SubVecVT(a, b []uint64) {
	p := m.p
	for i := range a {
		a[i] = CRedVT(a[i]+p-b[i], p)
	}
}

// NegVec computes a = -a mod p.
func (m *Modulus) NegVec(a []uint64) {
	p := m.p
	for i := range a {
		a[i] = CRed(p-a[i], p)
	}
}

// NegVecVT is the variable-time version of NegVec.
func (m *Modulus) NegVecVT(a []uint64) {
	p := m.p
	for i := range a {
		if a[i] != 0 {
			a[i] = p - a[i]
		}
	}
}

// MulVec computes a = a * b mod p.
func (m *Modulus) MulVec(a, b []uint64) {
	p, u := m.p, m.barrett
	for i := range a {
		a[i] = BRed(a[i], b[i], p, u)
	}
}

// MulVecVT is the variable-time version of MulVec.
func (m *Modulus) MulVecVT(a, b []uint64) {
	p, u := m.p, m.barrett
	for i := range a {
		a[i] = BRedVT(a[i], b[i], p, u)
	}
}

// MulShoupVec computes a = a * b mod p, given bShoup = m.ShoupVec(b).
func (m *Modulus) MulShoupVec(a, b, bShoup []uint64) {
	p := m.p
	for i := range a {
		a[i] = CRed(MRedShoupLazy(a[i], b[i], bShoup[i], p), p)
	}
}

// MulShoupVecVT is the variable-time version of MulShoupVec.
func (m *Modulus) MulShoupVecVT(a, b, bShoup []uint64) {
	p := m.p
	for i := range a {
		a[i] = CRedVT(MRedShoupLazy(a[i], b[i], bShoup[i], p), p)
	}
}

// ScalarMulVec computes a = a * b mod p for a scalar b in [0, p).
func (m *Modulus) ScalarMulVec(a []uint64, b uint64) {
	p := m.p
	bs := m.Shoup(b)
	for i := range a {
		a[i] = CRed(MRedShoupLazy(a[i], b, bs, p), p)
	}
}

// ScalarMulVecVT is the variable-time version of ScalarMulVec.
func (m *Modulus) ScalarMulVecVT(a []uint64, b uint64) {
	p := m.p
	bs := ShoupConstantVT(b, p)
	for i := range a {
		a[i] = CRedVT(MRedShoupLazy(a[i], b, bs, p), p)
	}
}

// ReduceVec reduces the values of a modulo p in place.
func (m *Modulus) ReduceVec(a []uint64) {
	for i := range a {
		a[i] = m.Reduce(a[i])
	}
}

// ReduceVecVT is the variable-time version of ReduceVec.
func (m *Modulus) ReduceVecVT(a []uint64) {
	for i := range a {
		a[i] = m.ReduceVT(a[i])
	}
}

// ShoupVec returns the Shoup constants of the values of a, which must be in [0, p).
func (m *Modulus) ShoupVec(a []uint64) (aShoup []uint64) {
	aShoup = make([]uint64, len(a))
	for i := range a {
		aShoup[i] = ShoupConstant(a[i], m.p)
	}
	return
}

// ShoupVecVT is the variable-time version of ShoupVec.
func (m *Modulus) ShoupVecVT(a []uint64) (aShoup []uint64) {
	aShoup = make([]uint64, len(a))
	for i := range a {
		aShoup[i] = ShoupConstantVT(a[i], m.p)
	}
	return
}

// CenterVec returns the representatives in (-p/2, p/2] of the values of a.
func (m *Modulus) CenterVec(a []uint64) (c []int64) {
	c = make([]int64, len(a))
	for i := range a {
		c[i] = m.Center(a[i])
	}
	return
}

// RandomVec samples a vector of n values uniformly distributed in [0, p),
// by rejection sampling on the bytes read from prng.
func (m *Modulus) RandomVec(n int, prng sampling.PRNG) (v []uint64, err error) {

	mask := uint64(1)<<uint(m.bitLen) - 1

	v = make([]uint64, n)

	const bufferSize = 1024
	buf := make([]byte, bufferSize)
	ptr := bufferSize

	for i := 0; i < n; {

		if ptr == bufferSize {
			if _, err = prng.Read(buf); err != nil {
				return nil, fmt.Errorf("cannot RandomVec: %w", err)
			}
			ptr = 0
		}

		x := binary.LittleEndian.Uint64(buf[ptr:]) & mask
		ptr += 8

		if x < m.p {
			v[i] = x
			i++
		}
	}

	return
}
