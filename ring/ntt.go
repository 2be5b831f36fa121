package ring

import (
	"fmt"
	"math/bits"

	"github.com/tuneinsight/bfvcore/utils"
)

// NTTOperator computes the negacyclic number theoretic transform in Z_p[X]/(X^N+1).
//
// The forward transform is a Cooley-Tukey decimation in time taking the coefficients
// in natural order and returning the evaluations in bit-reversed order, the backward
// transform is the Gentleman-Sande decimation in frequency that inverts it.
// Twiddle factors are stored with their Shoup constants.
type NTTOperator struct {
	m    *Modulus
	n    int
	logN int

	psi uint64

	rootsForward      []uint64
	rootsForwardShoup []uint64

	rootsBackward      []uint64
	rootsBackwardShoup []uint64

	nInv      uint64
	nInvShoup uint64
}

// NewNTTOperator creates a new NTTOperator of size n for the modulus m.
// Returns an error if n is not a power of two larger than or equal to 8,
// if the modulus is not prime or if it is not equal to 1 mod 2n.
func NewNTTOperator(m *Modulus, n int) (*NTTOperator, error) {

	if n < 8 || !utils.IsPowerOfTwo(n) {
		return nil, fmt.Errorf("cannot NewNTTOperator: n=%d must be a power of two larger than or equal to 8", n)
	}

	p := m.Value()
	twoN := uint64(2 * n)

	if !m.IsPrime() {
		return nil, fmt.Errorf("cannot NewNTTOperator: modulus %d is not prime", p)
	}

	if p%twoN != 1 {
		return nil, fmt.Errorf("cannot NewNTTOperator: modulus %d is not equal to 1 mod %d", p, twoN)
	}

	psi, err := primitiveRoot(m, twoN)
	if err != nil {
		return nil, fmt.Errorf("cannot NewNTTOperator: %w", err)
	}

	psiInv, _ := m.Inv(psi)
	nInv, _ := m.Inv(uint64(n))

	logN := bits.Len64(uint64(n)) - 1

	op := &NTTOperator{
		m:                  m,
		n:                  n,
		logN:               logN,
		psi:                psi,
		rootsForward:       make([]uint64, n),
		rootsForwardShoup:  make([]uint64, n),
		rootsBackward:      make([]uint64, n),
		rootsBackwardShoup: make([]uint64, n),
		nInv:               nInv,
		nInvShoup:          m.Shoup(nInv),
	}

	// rootsForward[k] = psi^{brv(k)}, rootsBackward[k] = psi^{-brv(k)}
	powF, powB := uint64(1), uint64(1)
	for i := 0; i < n; i++ {
		j := utils.BitReverse64(i, logN)
		op.rootsForward[j] = powF
		op.rootsBackward[j] = powB
		powF = m.Mul(powF, psi)
		powB = m.Mul(powB, psiInv)
	}

	for i := 0; i < n; i++ {
		op.rootsForwardShoup[i] = m.Shoup(op.rootsForward[i])
		op.rootsBackwardShoup[i] = m.Shoup(op.rootsBackward[i])
	}

	return op, nil
}

// primitiveRoot returns a primitive order-th root of unity modulo p, where
// order is a power of two dividing p-1.
func primitiveRoot(m *Modulus, order uint64) (uint64, error) {
	p := m.Value()
	exp := (p - 1) / order
	for g := uint64(2); g < p; g++ {
		x := m.Pow(g, exp)
		// x has order dividing `order`, and exactly `order` iff x^(order/2) = -1.
		if m.Pow(x, order>>1) == p-1 {
			return x, nil
		}
	}
	return 0, fmt.Errorf("no primitive %d-th root of unity modulo %d", order, p)
}

// N returns the size of the transform.
func (op *NTTOperator) N() int {
	return op.n
}

// Modulus returns the modulus of the transform.
func (op *NTTOperator) Modulus() *Modulus {
	return op.m
}

// Forward computes in place the forward NTT of a, whose values must be in [0, p).
// Runs in constant time.
func (op *NTTOperator) Forward(a []uint64) {

	p := op.m.Value()
	n := op.n

	t := n
	for m := 1; m < n; m <<= 1 {
		t >>= 1
		for i := 0; i < m; i++ {
			j1 := 2 * i * t
			w, ws := op.rootsForward[m+i], op.rootsForwardShoup[m+i]
			x, y := a[j1:j1+t], a[j1+t:j1+2*t]
			for j := range x {
				u := x[j]
				v := CRed(MRedShoupLazy(y[j], w, ws, p), p)
				x[j] = CRed(u+v, p)
				y[j] = CRed(u+p-v, p)
			}
		}
	}
}

// ForwardVT is the variable-time version of Forward. It uses lazy butterflies
// keeping the intermediate values in [0, 4p) and reduces them at the end.
func (op *NTTOperator) ForwardVT(a []uint64) {

	p := op.m.Value()
	twoP := p << 1
	n := op.n

	t := n
	for m := 1; m < n; m <<= 1 {
		t >>= 1
		for i := 0; i < m; i++ {
			j1 := 2 * i * t
			w, ws := op.rootsForward[m+i], op.rootsForwardShoup[m+i]
			x, y := a[j1:j1+t], a[j1+t:j1+2*t]
			for j := range x {
				u := x[j]
				if u >= twoP {
					u -= twoP
				}
				v := MRedShoupLazy(y[j], w, ws, p)
				x[j] = u + v
				y[j] = u + twoP - v
			}
		}
	}

	for i := range a {
		for a[i] >= p {
			a[i] -= p
		}
	}
}

// Backward computes in place the backward NTT of a, whose values must be in [0, p).
// Runs in constant time.
func (op *NTTOperator) Backward(a []uint64) {

	p := op.m.Value()
	n := op.n

	t := 1
	for m := n; m > 1; m >>= 1 {
		h := m >> 1
		j1 := 0
		for i := 0; i < h; i++ {
			w, ws := op.rootsBackward[h+i], op.rootsBackwardShoup[h+i]
			x, y := a[j1:j1+t], a[j1+t:j1+2*t]
			for j := range x {
				u, v := x[j], y[j]
				x[j] = CRed(u+v, p)
				y[j] = CRed(MRedShoupLazy(u+p-v, w, ws, p), p)
			}
			j1 += 2 * t
		}
		t <<= 1
	}

	for i := range a {
		a[i] = CRed(MRedShoupLazy(a[i], op.nInv, op.nInvShoup, p), p)
	}
}

// BackwardVT is the variable-time version of Backward. It uses lazy butterflies
// keeping the intermediate values in [0, 2p) and reduces them at the end.
func (op *NTTOperator) BackwardVT(a []uint64) {

	p := op.m.Value()
	twoP := p << 1
	n := op.n

	t := 1
	for m := n; m > 1; m >>= 1 {
		h := m >> 1
		j1 := 0
		for i := 0; i < h; i++ {
			w, ws := op.rootsBackward[h+i], op.rootsBackwardShoup[h+i]
			x, y := a[j1:j1+t], a[j1+t:j1+2*t]
			for j := range x {
				u, v := x[j], y[j]
				s := u + v
				if s >= twoP {
					s -= twoP
				}
				x[j] = s
				y[j] = MRedShoupLazy(u+twoP-v, w, ws, p)
			}
			j1 += 2 * t
		}
		t <<= 1
	}

	for i := range a {
		a[i] = CRedVT(MRedShoupLazy(a[i], op.nInv, op.nInvShoup, p), p)
	}
}
