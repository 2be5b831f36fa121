package bfv

import (
	"fmt"
	"math/big"
	"runtime"

	"github.com/tuneinsight/bfvcore/ring"
	"github.com/tuneinsight/bfvcore/utils"
	"github.com/tuneinsight/bfvcore/utils/bignum"
	"github.com/tuneinsight/bfvcore/utils/sampling"
)

// SecretKey is a BFV secret key: a polynomial with small coefficients, stored in the
// TransformedShoup representation modulo all the ciphertext moduli.
// A SecretKey is zeroized when it becomes unreachable.
type SecretKey struct {
	params *Parameters
	value  *ring.Poly
	prng   sampling.PRNG
}

// NewSecretKey generates a new SecretKey whose coefficients follow the
// centered binomial distribution of the variance of the Parameters.
func NewSecretKey(params *Parameters) (*SecretKey, error) {

	prng := sampling.NewPRNG()

	s, err := ring.NewSmallPoly(params.levels[0].ctx, params.variance, prng)
	if err != nil {
		return nil, fmt.Errorf("cannot NewSecretKey: %w", err)
	}

	return newSecretKey(params, s, prng), nil
}

// NewSecretKeyFromCoefficients creates a SecretKey from its Degree signed coefficients.
func NewSecretKeyFromCoefficients(params *Parameters, coeffs []int64) (*SecretKey, error) {

	if len(coeffs) != params.degree {
		return nil, fmt.Errorf("cannot NewSecretKeyFromCoefficients: %w: %d coefficients for Degree=%d", ErrInvalidParameter, len(coeffs), params.degree)
	}

	s := ring.NewPoly(params.levels[0].ctx, ring.Coefficient)
	s.SetCoefficientsInt64(coeffs)

	return newSecretKey(params, s, sampling.NewPRNG()), nil
}

func newSecretKey(params *Parameters, s *ring.Poly, prng sampling.PRNG) *SecretKey {

	s.ChangeRepresentation(ring.TransformedShoup)

	sk := &SecretKey{params: params, value: s, prng: prng}

	runtime.SetFinalizer(sk, func(sk *SecretKey) {
		sk.Zeroize()
	})

	return sk
}

// Parameters returns the Parameters of the SecretKey.
func (sk *SecretKey) Parameters() *Parameters {
	return sk.params
}

// Zeroize overwrites the SecretKey with zeros.
func (sk *SecretKey) Zeroize() {
	sk.value.Zeroize()
}

// valueAt returns a copy of the key at the given level, in the TransformedShoup representation.
// The caller must zeroize it.
func (sk *SecretKey) valueAt(lp *levelParameters) *ring.Poly {
	return sk.value.Truncate(lp.ctx)
}

// Encrypt encrypts the Plaintext at its level. The returned Ciphertext has two
// polynomials (b, a) with b = e - a*s + Delta*m, where a is generated from a fresh seed.
// Runs in constant time.
func (sk *SecretKey) Encrypt(pt *Plaintext) (*Ciphertext, error) {

	if err := sk.params.checkParameters(pt.params); err != nil {
		return nil, fmt.Errorf("cannot Encrypt: %w", err)
	}

	lp, err := sk.params.level(pt.level)
	if err != nil {
		return nil, fmt.Errorf("cannot Encrypt: %w", err)
	}

	seed, err := sampling.NewSeed(sk.prng)
	if err != nil {
		return nil, fmt.Errorf("cannot Encrypt: %w", err)
	}

	s := sk.valueAt(lp)
	defer s.Zeroize()

	a := ring.NewUniformPolyFromSeed(lp.ctx, ring.Transformed, seed)

	as := lp.ctx.MulNew(a, s)
	defer as.Zeroize()

	b, err := ring.NewSmallPoly(lp.ctx, sk.params.variance, sk.prng)
	if err != nil {
		return nil, fmt.Errorf("cannot Encrypt: %w", err)
	}

	b.ChangeRepresentation(ring.Transformed)
	lp.ctx.Sub(b, as, b)

	m := pt.scaledPoly()
	defer m.Zeroize()

	lp.ctx.Add(b, m, b)

	a.AllowVariableTimeComputations()
	b.AllowVariableTimeComputations()

	return &Ciphertext{
		params: sk.params,
		Value:  []*ring.Poly{b, a},
		level:  pt.level,
		seed:   &seed,
	}, nil
}

// dotProduct returns sum c_i * s^i in the Coefficient representation.
// The polynomials of the ciphertext are copied and the computation runs in
// constant time unless variableTime is set.
func (sk *SecretKey) dotProduct(ct *Ciphertext, lp *levelParameters, variableTime bool) *ring.Poly {

	s := sk.valueAt(lp)
	defer s.Zeroize()

	if variableTime {
		s.AllowVariableTimeComputations()
	}

	c := ct.Value[0].CopyNew()
	if !variableTime {
		c.DisallowVariableTimeComputations()
	}

	var sPow *ring.Poly

	for i := 1; i < len(ct.Value); i++ {

		if sPow == nil {
			sPow = s.CopyNew()
		} else {
			next := lp.ctx.MulNew(sPow, s)
			sPow.Zeroize()
			sPow = next
		}

		ci := ct.Value[i].CopyNew()
		if !variableTime {
			ci.DisallowVariableTimeComputations()
		}

		lp.ctx.Mul(ci, sPow, ci)
		lp.ctx.Add(c, ci, c)
		ci.Zeroize()
	}

	if sPow != nil {
		sPow.Zeroize()
	}

	c.ChangeRepresentation(ring.Coefficient)

	return c
}

// Decrypt decrypts a Ciphertext of any degree. The computation runs in constant time,
// regardless of the variable time flag of the polynomials of the Ciphertext.
func (sk *SecretKey) Decrypt(ct *Ciphertext) (*Plaintext, error) {

	if err := sk.params.checkParameters(ct.params); err != nil {
		return nil, fmt.Errorf("cannot Decrypt: %w", err)
	}

	if ct.IsEmpty() {
		return nil, fmt.Errorf("cannot Decrypt: %w: empty ciphertext", ErrMalformedCiphertext)
	}

	if err := ct.check(); err != nil {
		return nil, fmt.Errorf("cannot Decrypt: %w", err)
	}

	lp := sk.params.levels[ct.level]

	c := sk.dotProduct(ct, lp, false)
	defer c.Zeroize()

	value := make([]uint64, sk.params.degree)
	if err := lp.scaler.DivByQOverTRounded(c, value); err != nil {
		return nil, fmt.Errorf("cannot Decrypt: %w", err)
	}

	pt, err := newPlaintext(sk.params, value, 0, ct.level)
	if err != nil {
		utils.Zero(value)
		return nil, fmt.Errorf("cannot Decrypt: %w", err)
	}

	return pt, nil
}

// MeasureNoise returns the base 2 logarithm of the largest coefficient, in absolute
// value, of the error c_0 + c_1*s + ... - Delta*m of the Ciphertext.
// This method runs in variable time and leaks information about the SecretKey:
// it must only be used for testing and parameter selection.
func (sk *SecretKey) MeasureNoise(ct *Ciphertext) (float64, error) {

	pt, err := sk.Decrypt(ct)
	if err != nil {
		return 0, fmt.Errorf("cannot MeasureNoise: %w", err)
	}
	defer pt.Zeroize()

	lp := sk.params.levels[ct.level]

	m := pt.scaledPoly()
	m.ChangeRepresentation(ring.Coefficient)
	defer m.Zeroize()

	c := sk.dotProduct(ct, lp, true)
	defer c.Zeroize()

	lp.ctx.Sub(c, m, c)

	Q := lp.ctx.BigModulus()

	max := new(big.Int)
	for _, x := range c.BigInts() {
		bignum.Center(x, Q, x)
		if x.CmpAbs(max) > 0 {
			max.Abs(x)
		}
	}

	return bignum.Log2(max), nil
}

// GenKeySwitchingKey generates a KeySwitchingKey from the polynomial from to the SecretKey.
// The level of the key is the level whose context is the context of from.
func (sk *SecretKey) GenKeySwitchingKey(from *ring.Poly) (ksk *KeySwitchingKey, err error) {

	level := len(sk.params.moduli) - from.Context().ModuliCount()

	lp, err := sk.params.level(level)
	if err != nil {
		return nil, fmt.Errorf("cannot GenKeySwitchingKey: %w", err)
	}

	if !lp.ctx.Equal(from.Context()) {
		return nil, fmt.Errorf("cannot GenKeySwitchingKey: %w: polynomial is not defined over the ciphertext moduli", ErrParameterMismatch)
	}

	seed, err := sampling.NewSeed(sk.prng)
	if err != nil {
		return nil, fmt.Errorf("cannot GenKeySwitchingKey: %w", err)
	}

	s := sk.valueAt(lp)
	defer s.Zeroize()

	f := from.CopyNew()
	f.DisallowVariableTimeComputations()
	defer f.Zeroize()
	f.ChangeRepresentation(ring.Transformed)

	ksk = &KeySwitchingKey{
		params: sk.params,
		level:  level,
		seed:   seed,
		a:      make([]*ring.Poly, lp.ctx.ModuliCount()),
		b:      make([]*ring.Poly, lp.ctx.ModuliCount()),
	}

	for i := range ksk.a {

		a := ring.NewUniformPolyFromSeed(lp.ctx, ring.Transformed, sampling.DeriveSeed(seed, i))

		var b *ring.Poly
		if b, err = sk.genKeySwitchingRow(lp, a, s, f, i); err != nil {
			return nil, fmt.Errorf("cannot GenKeySwitchingKey: %w", err)
		}

		a.AllowVariableTimeComputations()
		a.ChangeRepresentation(ring.TransformedShoup)

		ksk.a[i], ksk.b[i] = a, b
	}

	return ksk, nil
}

// genKeySwitchingRow returns b = e - a*s + g_i*from, in the TransformedShoup representation.
func (sk *SecretKey) genKeySwitchingRow(lp *levelParameters, a, s, from *ring.Poly, i int) (b *ring.Poly, err error) {

	as := lp.ctx.MulNew(a, s)
	defer as.Zeroize()

	gFrom := ring.NewPoly(lp.ctx, ring.Transformed)
	defer gFrom.Zeroize()
	lp.ctx.MulScalarBig(from, lp.ctx.RNS().Garner(i), gFrom)

	if b, err = ring.NewSmallPoly(lp.ctx, sk.params.variance, sk.prng); err != nil {
		return nil, err
	}

	b.ChangeRepresentation(ring.Transformed)
	lp.ctx.Sub(b, as, b)
	lp.ctx.Add(b, gFrom, b)

	b.AllowVariableTimeComputations()
	b.ChangeRepresentation(ring.TransformedShoup)

	return b, nil
}
