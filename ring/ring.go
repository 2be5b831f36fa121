// Package ring implements RNS-accelerated modular arithmetic operations for polynomials,
// including: RNS basis extension and scaling, number theoretic transforms, sampling
// and constant-time vector arithmetic.
package ring

import (
	"fmt"
	"math/big"

	"github.com/tuneinsight/bfvcore/utils"
)

// Context is the ring Z_Q[X]/(X^N+1) for Q = prod p_i. It stores one Modulus and one
// NTTOperator per prime, as well as the RNSContext of the primes.
// A Context is immutable and shared by every Poly created from it.
type Context struct {
	n       int
	moduli  []*Modulus
	ntt     []*NTTOperator
	rns     *RNSContext
	qValues []uint64
}

// NewContext creates a new Context of degree n with the given list of primes.
// Returns an error if n is not a power of two larger than or equal to 8, if the
// list of moduli is empty or contains duplicates, or if a modulus is not a prime
// equal to 1 mod 2n.
func NewContext(moduli []uint64, n int) (*Context, error) {

	if len(moduli) == 0 {
		return nil, fmt.Errorf("cannot NewContext: moduli list is empty")
	}

	if !utils.IsDistinct(moduli) {
		return nil, fmt.Errorf("cannot NewContext: moduli %v are not distinct", moduli)
	}

	ctx := &Context{
		n:       n,
		moduli:  make([]*Modulus, len(moduli)),
		ntt:     make([]*NTTOperator, len(moduli)),
		qValues: make([]uint64, len(moduli)),
	}

	var err error
	for i, p := range moduli {

		if ctx.moduli[i], err = NewModulus(p); err != nil {
			return nil, fmt.Errorf("cannot NewContext: %w", err)
		}

		if ctx.ntt[i], err = NewNTTOperator(ctx.moduli[i], n); err != nil {
			return nil, fmt.Errorf("cannot NewContext: %w", err)
		}

		ctx.qValues[i] = p
	}

	if ctx.rns, err = NewRNSContext(moduli); err != nil {
		return nil, fmt.Errorf("cannot NewContext: %w", err)
	}

	return ctx, nil
}

// N returns the degree of the ring.
func (ctx *Context) N() int {
	return ctx.n
}

// ModuliCount returns the number of primes of the context.
func (ctx *Context) ModuliCount() int {
	return len(ctx.moduli)
}

// Moduli returns a copy of the list of primes of the context.
func (ctx *Context) Moduli() []uint64 {
	m := make([]uint64, len(ctx.qValues))
	copy(m, ctx.qValues)
	return m
}

// Modulus returns the i-th Modulus.
func (ctx *Context) Modulus(i int) *Modulus {
	return ctx.moduli[i]
}

// NTT returns the i-th NTTOperator.
func (ctx *Context) NTT(i int) *NTTOperator {
	return ctx.ntt[i]
}

// RNS returns the RNSContext of the primes.
func (ctx *Context) RNS() *RNSContext {
	return ctx.rns
}

// BigModulus returns a copy of the product of the primes.
func (ctx *Context) BigModulus() *big.Int {
	return ctx.rns.Modulus()
}

// Prefix returns a new Context made of the k first primes of ctx.
// The Modulus and NTTOperator instances are shared with ctx.
func (ctx *Context) Prefix(k int) (*Context, error) {

	if k < 1 || k > len(ctx.moduli) {
		return nil, fmt.Errorf("cannot Prefix: k=%d must be in [1, %d]", k, len(ctx.moduli))
	}

	rns, err := NewRNSContext(ctx.qValues[:k])
	if err != nil {
		return nil, fmt.Errorf("cannot Prefix: %w", err)
	}

	return &Context{
		n:       ctx.n,
		moduli:  ctx.moduli[:k:k],
		ntt:     ctx.ntt[:k:k],
		rns:     rns,
		qValues: ctx.qValues[:k:k],
	}, nil
}

// Concat returns a new Context whose primes are the ones of ctx followed by the ones of other.
// The Modulus and NTTOperator instances of both contexts are shared.
func (ctx *Context) Concat(other *Context) (*Context, error) {

	if ctx.n != other.n {
		return nil, fmt.Errorf("cannot Concat: degrees %d and %d differ", ctx.n, other.n)
	}

	all := append(ctx.Moduli(), other.qValues...)

	if !utils.IsDistinct(all) {
		return nil, fmt.Errorf("cannot Concat: moduli %v are not distinct", all)
	}

	rns, err := NewRNSContext(all)
	if err != nil {
		return nil, fmt.Errorf("cannot Concat: %w", err)
	}

	return &Context{
		n:       ctx.n,
		moduli:  append(append([]*Modulus{}, ctx.moduli...), other.moduli...),
		ntt:     append(append([]*NTTOperator{}, ctx.ntt...), other.ntt...),
		rns:     rns,
		qValues: all,
	}, nil
}

// IsPrefixOf returns true if other has the same degree and its first primes are the primes of ctx.
func (ctx *Context) IsPrefixOf(other *Context) bool {

	if ctx == other {
		return true
	}

	if ctx.n != other.n || len(ctx.qValues) > len(other.qValues) {
		return false
	}

	for i := range ctx.qValues {
		if ctx.qValues[i] != other.qValues[i] {
			return false
		}
	}

	return true
}

// Equal returns true if both contexts have the same degree and the same list of primes.
func (ctx *Context) Equal(other *Context) bool {
	return ctx.IsPrefixOf(other) && len(ctx.qValues) == len(other.qValues)
}
