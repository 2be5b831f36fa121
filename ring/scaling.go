package ring

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/tuneinsight/bfvcore/utils"
	"github.com/tuneinsight/bfvcore/utils/bignum"
)

// ScalingFactor is a rational number numerator/denominator with a non-zero denominator.
type ScalingFactor struct {
	numerator   *big.Int
	denominator *big.Int
	isOne       bool
}

// NewScalingFactor creates a new ScalingFactor numerator/denominator.
func NewScalingFactor(numerator, denominator *big.Int) (ScalingFactor, error) {

	if denominator.Sign() == 0 {
		return ScalingFactor{}, fmt.Errorf("cannot NewScalingFactor: denominator cannot be zero")
	}

	return ScalingFactor{
		numerator:   new(big.Int).Set(numerator),
		denominator: new(big.Int).Set(denominator),
		isOne:       numerator.Cmp(denominator) == 0,
	}, nil
}

// ScalingFactorOne returns the ScalingFactor 1/1.
func ScalingFactorOne() ScalingFactor {
	return ScalingFactor{numerator: big.NewInt(1), denominator: big.NewInt(1), isOne: true}
}

// IsOne returns true if the factor equals one.
func (f ScalingFactor) IsOne() bool {
	return f.isOne
}

// Numerator returns a copy of the numerator.
func (f ScalingFactor) Numerator() *big.Int {
	return new(big.Int).Set(f.numerator)
}

// Denominator returns a copy of the denominator.
func (f ScalingFactor) Denominator() *big.Int {
	return new(big.Int).Set(f.denominator)
}

// Scaler converts polynomials from a source Context to a destination Context while
// multiplying them by a ScalingFactor.
//
// Each coefficient x in [0, P) is first lifted from its residues, centered in (-P/2, P/2],
// scaled to round(x * numerator / denominator) (or floored) and finally reduced modulo each
// destination prime. With a factor of one this is a basis extension, otherwise a rescaling.
//
// The arbitrary precision arithmetic of the Scaler branches on the values: it must only be
// used on data that does not depend on secrets, such as ciphertexts. See RNSScaler and
// Context.DivRoundByLastModulus for the constant-time scalings.
type Scaler struct {
	from, to *Context
	factor   ScalingFactor

	// number of leading destination primes equal to the source primes,
	// whose residues can be copied when the factor is one.
	shared int
}

// NewScaler creates a new Scaler from the Context from to the Context to.
// Returns an error if the two contexts have different degrees.
func NewScaler(from, to *Context, factor ScalingFactor) (*Scaler, error) {

	if from.N() != to.N() {
		return nil, fmt.Errorf("cannot NewScaler: source degree %d and destination degree %d differ", from.N(), to.N())
	}

	if factor.denominator == nil {
		return nil, fmt.Errorf("cannot NewScaler: invalid scaling factor")
	}

	s := &Scaler{from: from, to: to, factor: factor}

	if factor.IsOne() {
		for s.shared < utils.Min(from.ModuliCount(), to.ModuliCount()) && from.qValues[s.shared] == to.qValues[s.shared] {
			s.shared++
		}
		// Copying is only valid if all the source residues are kept.
		if s.shared != from.ModuliCount() {
			s.shared = 0
		}
	}

	return s, nil
}

// From returns the source Context.
func (s *Scaler) From() *Context {
	return s.from
}

// To returns the destination Context.
func (s *Scaler) To() *Context {
	return s.to
}

// Factor returns the ScalingFactor.
func (s *Scaler) Factor() ScalingFactor {
	return s.factor
}

// Scale returns a new Poly over the destination Context equal to round(p * factor), or
// floor(p * factor) if floor is set. The input must be in the Coefficient representation
// and the output is in the Coefficient representation. The variable time flag is kept.
func (s *Scaler) Scale(p *Poly, floor bool) (*Poly, error) {

	if !p.ctx.Equal(s.from) {
		return nil, fmt.Errorf("cannot Scale: polynomial context does not match the source context of the scaler")
	}

	if p.rep != Coefficient {
		return nil, fmt.Errorf("cannot Scale: polynomial must be in %s representation but is in %s", Coefficient, p.rep)
	}

	out := NewPoly(s.to, Coefficient)
	out.variableTime = p.variableTime

	for i := 0; i < s.shared; i++ {
		copy(out.Coeffs[i], p.Coeffs[i])
	}

	if s.shared == s.to.ModuliCount() {
		return out, nil
	}

	rnsFrom := s.from.rns
	P := rnsFrom.product
	halfP := new(big.Int).Rsh(P, 1)

	num, den := s.factor.numerator, s.factor.denominator

	x, tmp := new(big.Int), new(big.Int)
	bigQ := new(big.Int)
	residues := make([]uint64, s.from.ModuliCount())

	for j := 0; j < p.N(); j++ {

		for i := range residues {
			residues[i] = p.Coeffs[i][j]
		}

		rnsFrom.lift(residues, x, tmp)

		if x.Cmp(halfP) > 0 {
			x.Sub(x, P)
		}

		if !s.factor.IsOne() {
			x.Mul(x, num)
			if floor {
				bignum.DivFloor(x, den, x)
			} else {
				bignum.DivRound(x, den, x)
			}
		}

		for i := s.shared; i < s.to.ModuliCount(); i++ {
			out.Coeffs[i][j] = tmp.Mod(x, bigQ.SetUint64(s.to.qValues[i])).Uint64()
		}
	}

	x.SetUint64(0)
	for i := range residues {
		residues[i] = 0
	}

	return out, nil
}

// RNSScaler computes round(t * x / Q) mod t for the polynomials of a Context of
// modulus Q = q_0 * ... * q_{k-1} and a plaintext Modulus t, without reconstructing x.
//
// With Q_i = Q/q_i and h_i = Q_i^{-1} mod q_i, x = sum x_i * h_i * Q_i mod Q, and writing
// t * h_i = a_i * q_i + b_i gives
//
//	t * x / Q = sum x_i * a_i + sum x_i * b_i / q_i mod t.
//
// The integer part is accumulated modulo t and the fractional part with a 128-bit
// fixed point precision. Every step runs in constant time.
type RNSScaler struct {
	ctx *Context
	t   *Modulus

	// a_i mod t
	omega []uint64

	// floor(b_i * 2^128 / q_i) = thetaHi * 2^64 + thetaLo
	thetaHi []uint64
	thetaLo []uint64
}

// NewRNSScaler creates a new RNSScaler from the Context ctx to the Modulus t.
// The precomputations use arbitrary precision arithmetic on public values only.
func NewRNSScaler(ctx *Context, t *Modulus) *RNSScaler {

	k := ctx.ModuliCount()

	s := &RNSScaler{
		ctx:     ctx,
		t:       t,
		omega:   make([]uint64, k),
		thetaHi: make([]uint64, k),
		thetaLo: make([]uint64, k),
	}

	Q := ctx.BigModulus()
	T := new(big.Int).SetUint64(t.Value())
	mask := new(big.Int).SetUint64(0xffffffffffffffff)

	for i, qi := range ctx.moduli {

		bigQi := new(big.Int).SetUint64(qi.Value())

		// h_i = (Q/q_i)^{-1} mod q_i
		h := new(big.Int).Quo(Q, bigQi)
		h.ModInverse(h.Mod(h, bigQi), bigQi)

		a, b := new(big.Int).QuoRem(h.Mul(h, T), bigQi, new(big.Int))

		s.omega[i] = a.Mod(a, T).Uint64()

		theta := b.Lsh(b, 128)
		theta.Quo(theta, bigQi)

		s.thetaLo[i] = new(big.Int).And(theta, mask).Uint64()
		s.thetaHi[i] = theta.Rsh(theta, 64).Uint64()
	}

	return s
}

// DivByQOverTRounded writes round(t * p / Q) mod t on out, for p in the Coefficient
// representation over the Context of the scaler. Returns an error if p does not match the
// context, is not in the Coefficient representation or if len(out) is smaller than the degree.
func (s *RNSScaler) DivByQOverTRounded(p *Poly, out []uint64) error {

	if !p.ctx.Equal(s.ctx) {
		return fmt.Errorf("cannot DivByQOverTRounded: polynomial context does not match the context of the scaler")
	}

	if p.rep != Coefficient {
		return fmt.Errorf("cannot DivByQOverTRounded: polynomial must be in %s representation but is in %s", Coefficient, p.rep)
	}

	if len(out) < p.N() {
		return fmt.Errorf("cannot DivByQOverTRounded: output length %d is smaller than the degree %d", len(out), p.N())
	}

	t := s.t

	for j := 0; j < p.N(); j++ {

		var integer uint64

		// fractional part in units of 2^-128, starting at 1/2 for the rounding
		lo, mid := uint64(0), uint64(1)<<63

		for i := range s.omega {

			x := p.Coeffs[i][j]

			integer = t.Add(integer, t.Mul(t.Reduce(x), s.omega[i]))

			var carry, over uint64

			hi0, lo0 := bits.Mul64(x, s.thetaLo[i])
			hi1, lo1 := bits.Mul64(x, s.thetaHi[i])

			lo, carry = bits.Add64(lo, lo0, 0)
			mid, carry = bits.Add64(mid, hi0, carry)
			over = hi1 + carry

			mid, carry = bits.Add64(mid, lo1, 0)
			over += carry

			integer = t.Add(integer, t.Reduce(over))
		}

		out[j] = integer
	}

	return nil
}

// DivRoundByLastModulus writes round(p0 / q_last) on p1, where q_last is the last prime of
// ctx, p0 is a polynomial of ctx and p1 a polynomial of the Context made of the first primes
// of ctx but the last one. Both polynomials must be in the Coefficient representation, and
// the rounding is done on the representative of p0 in [0, Q). Runs in constant time.
func (ctx *Context) DivRoundByLastModulus(p0, p1 *Poly) {

	last := len(ctx.moduli) - 1

	if last < 1 {
		panic(fmt.Errorf("cannot DivRoundByLastModulus: the context must have at least two primes"))
	}

	if !ctx.Equal(p0.ctx) || p1.ctx.ModuliCount() != last || !p1.ctx.IsPrefixOf(ctx) {
		panic(fmt.Errorf("cannot DivRoundByLastModulus: polynomial contexts do not match"))
	}

	if p0.rep != Coefficient || p1.rep != Coefficient {
		panic(fmt.Errorf("cannot DivRoundByLastModulus: polynomials must be in %s representation", Coefficient))
	}

	qL := ctx.moduli[last]
	half := (qL.Value() - 1) >> 1

	// (x_last + half) mod q_last
	y := make([]uint64, ctx.n)
	for j, x := range p0.Coeffs[last] {
		y[j] = CRed(x+half, qL.Value())
	}

	for i, qi := range ctx.moduli[:last] {

		// q_last is public
		inv, _ := qi.Inv(qL.Value())
		invShoup := qi.Shoup(inv)
		halfI := qi.Reduce(half)

		in, out := p0.Coeffs[i], p1.Coeffs[i]

		for j := range out {
			v := qi.Sub(qi.Add(in[j], halfI), qi.Reduce(y[j]))
			out[j] = qi.MulShoup(v, inv, invShoup)
		}
	}

	p1.dropShoup()
	p1.variableTime = p0.variableTime

	utils.Zero(y)
}
