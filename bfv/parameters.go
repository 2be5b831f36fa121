package bfv

import (
	"encoding/json"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/google/go-cmp/cmp"

	"github.com/tuneinsight/bfvcore/ring"
	"github.com/tuneinsight/bfvcore/utils"
)

const (
	// MinModulusSize is the minimum bit-size of a ciphertext modulus.
	MinModulusSize = 10
	// MaxModulusSize is the maximum bit-size of a ciphertext modulus.
	MaxModulusSize = ring.MaxModulusBits
	// DefaultVariance is the variance of the error distribution when none is specified.
	DefaultVariance = ring.MinVariance

	// bit-size of the auxiliary primes used by the multiplication
	extendedModulusSize = 62
)

// ParametersLiteral is a literal representation of BFV parameters. It has public
// fields and is used to express unchecked user-defined parameters literally into
// Go programs. The NewParametersFromLiteral function is used to generate the actual
// checked parameters from the literal representation.
//
// Users must set the polynomial degree and the plaintext modulus, and exactly one of
// CiphertextModuli or CiphertextModuliSizes. When the sizes are given, distinct primes
// of the given sizes, equal to 1 mod 2*Degree, are generated.
//
// The Variance of the error distribution is optional and defaults to DefaultVariance.
type ParametersLiteral struct {
	Degree                int
	PlaintextModulus      uint64
	CiphertextModuli      []uint64 `json:",omitempty"`
	CiphertextModuliSizes []int    `json:",omitempty"`
	Variance              int      `json:",omitempty"`
}

// MultiplicationStrategy selects how the ciphertext basis is extended before a
// ciphertext-ciphertext multiplication.
type MultiplicationStrategy int

const (
	// ExtendByLargeModulus extends the basis of the level with auxiliary primes
	// adding about 60 bits more than the bit-size of the basis itself.
	ExtendByLargeModulus = MultiplicationStrategy(iota)
	// ExtendBySameSizeModuli extends the basis of the level with as many auxiliary
	// primes as the level has. The second operand is first scaled by P/Q.
	ExtendBySameSizeModuli
)

func (s MultiplicationStrategy) String() string {
	switch s {
	case ExtendByLargeModulus:
		return "ExtendByLargeModulus"
	case ExtendBySameSizeModuli:
		return "ExtendBySameSizeModuli"
	default:
		return fmt.Sprintf("MultiplicationStrategy(%d)", int(s))
	}
}

// MultiplicationParameters stores the extended context of a ciphertext multiplication
// and the scalers to and from it.
type MultiplicationParameters struct {
	ctx           *ring.Context
	extenderSelf  *ring.Scaler
	extenderOther *ring.Scaler
	downScaler    *ring.Scaler
}

func newMultiplicationParameters(from, to *ring.Context, self, other, down ring.ScalingFactor) (mp *MultiplicationParameters, err error) {

	mp = &MultiplicationParameters{ctx: to}

	if mp.extenderSelf, err = ring.NewScaler(from, to, self); err != nil {
		return nil, err
	}

	if mp.extenderOther, err = ring.NewScaler(from, to, other); err != nil {
		return nil, err
	}

	if mp.downScaler, err = ring.NewScaler(to, from, down); err != nil {
		return nil, err
	}

	return
}

// Context returns the extended context of the multiplication.
func (mp *MultiplicationParameters) Context() *ring.Context {
	return mp.ctx
}

// levelParameters stores everything derived for the ciphertexts of a given level,
// which are defined modulo the first len(moduli)-level ciphertext moduli.
type levelParameters struct {
	ctx *ring.Context

	// -1/t mod Q_l, in the TransformedShoup representation
	delta *ring.Poly

	// Q_l mod t
	qModT uint64

	// computes round(t/Q_l * x) mod t
	scaler *ring.RNSScaler

	mul [2]*MultiplicationParameters
}

// Parameters represents a parameter set for the BFV cryptosystem. Its fields are private
// and immutable. Parameters are created once and shared by pointer by every object
// created from them. See ParametersLiteral for user-specified parameters.
type Parameters struct {
	degree           int
	plaintextModulus uint64
	moduli           []uint64
	moduliSizes      []int
	variance         int

	plaintext    *ring.Modulus
	plaintextNTT *ring.NTTOperator

	extendedBasis []uint64

	levels []*levelParameters

	matrixRepsIndexMap []int
}

// NewParametersFromLiteral instantiates a set of BFV parameters from a ParametersLiteral specification.
// It returns a non-nil error wrapping ErrInvalidParameter if the specified parameters are invalid,
// or ErrPrimeGeneration if the moduli of the requested sizes cannot be generated.
func NewParametersFromLiteral(pl ParametersLiteral) (p *Parameters, err error) {

	n := pl.Degree

	if n < 8 || !utils.IsPowerOfTwo(n) {
		return nil, fmt.Errorf("cannot NewParametersFromLiteral: %w: Degree=%d must be a power of two larger or equal to 8", ErrInvalidParameter, n)
	}

	if (len(pl.CiphertextModuli) == 0) == (len(pl.CiphertextModuliSizes) == 0) {
		return nil, fmt.Errorf("cannot NewParametersFromLiteral: %w: one and only one of CiphertextModuli or CiphertextModuliSizes must be specified", ErrInvalidParameter)
	}

	variance := pl.Variance
	if variance == 0 {
		variance = DefaultVariance
	}

	if variance < ring.MinVariance || variance > ring.MaxVariance {
		return nil, fmt.Errorf("cannot NewParametersFromLiteral: %w: Variance=%d must be an integer between %d and %d", ErrInvalidParameter, variance, ring.MinVariance, ring.MaxVariance)
	}

	p = &Parameters{
		degree:           n,
		plaintextModulus: pl.PlaintextModulus,
		variance:         variance,
	}

	if len(pl.CiphertextModuli) != 0 {
		p.moduli = append([]uint64{}, pl.CiphertextModuli...)
		p.moduliSizes = make([]int, len(p.moduli))
		for i, qi := range p.moduli {
			p.moduliSizes[i] = bits.Len64(qi)
		}
	} else {
		p.moduliSizes = append([]int{}, pl.CiphertextModuliSizes...)
		if p.moduli, err = generateModuli(p.moduliSizes, n); err != nil {
			return nil, fmt.Errorf("cannot NewParametersFromLiteral: %w", err)
		}
	}

	if err = p.initPlaintext(); err != nil {
		return nil, fmt.Errorf("cannot NewParametersFromLiteral: %w", err)
	}

	if err = p.initLevels(); err != nil {
		return nil, fmt.Errorf("cannot NewParametersFromLiteral: %w", err)
	}

	p.initMatrixRepsIndexMap()

	return p, nil
}

// generateModuli returns distinct primes of the given sizes supporting the NTT of size n,
// each one being the largest available prime of its size.
func generateModuli(sizes []int, n int) (moduli []uint64, err error) {

	for _, size := range sizes {

		if size < MinModulusSize || size > MaxModulusSize {
			return nil, fmt.Errorf("%w: the moduli sizes must be between %d and %d bits", ErrInvalidParameter, MinModulusSize, MaxModulusSize)
		}

		var qi []uint64
		if qi, err = ring.GenerateNTTPrimes(size, n, 1, moduli...); err != nil {
			return nil, fmt.Errorf("%w: could not generate enough ciphertext moduli to match the sizes %v: %s", ErrPrimeGeneration, sizes, err)
		}

		moduli = append(moduli, qi[0])
	}

	return
}

func (p *Parameters) initPlaintext() (err error) {

	t := p.plaintextModulus

	if t < 2 || t >= p.moduli[0] {
		return fmt.Errorf("%w: PlaintextModulus=%d must be in the range [2, %d)", ErrInvalidParameter, t, p.moduli[0])
	}

	// The ciphertext moduli are prime: t is coprime with Q unless one of them divides it.
	for _, qi := range p.moduli {
		if t%qi == 0 {
			return fmt.Errorf("%w: PlaintextModulus=%d is not coprime with the ciphertext modulus %d", ErrInvalidParameter, t, qi)
		}
	}

	if p.plaintext, err = ring.NewIntegerModulus(t); err != nil {
		return fmt.Errorf("%w: PlaintextModulus: %s", ErrInvalidParameter, err)
	}

	// Batching is only available if the plaintext modulus is a prime supporting the NTT.
	if p.plaintext.IsPrime() && (t-1)%uint64(2*p.degree) == 0 {
		if p.plaintextNTT, err = ring.NewNTTOperator(p.plaintext, p.degree); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidParameter, err)
		}
	}

	return nil
}

func (p *Parameters) initLevels() (err error) {

	n := p.degree
	k := len(p.moduli)

	ctx, err := ring.NewContext(p.moduli, n)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidParameter, err)
	}

	// k+1 auxiliary primes are enough for both multiplication strategies at every level.
	if p.extendedBasis, err = ring.GenerateNTTPrimes(extendedModulusSize, n, k+1, p.moduli...); err != nil {
		return fmt.Errorf("%w: %s", ErrPrimeGeneration, err)
	}

	extCtx, err := ring.NewContext(p.extendedBasis, n)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidParameter, err)
	}

	t := new(big.Int).SetUint64(p.plaintextModulus)

	p.levels = make([]*levelParameters, k)

	for level := range p.levels {

		lp := &levelParameters{}

		if lp.ctx, err = ctx.Prefix(k - level); err != nil {
			return err
		}

		Q := lp.ctx.BigModulus()

		// delta = -1/t mod Q
		residues := make([]uint64, lp.ctx.ModuliCount())
		for i := range residues {
			qi := lp.ctx.Modulus(i)
			var ok bool
			if residues[i], ok = qi.Inv(qi.Neg(qi.Reduce(p.plaintextModulus))); !ok {
				return fmt.Errorf("%w: PlaintextModulus is not invertible modulo %d", ErrInvalidParameter, qi.Value())
			}
		}

		lp.delta = ring.NewPoly(lp.ctx, ring.Coefficient)
		lp.delta.SetCoefficientsBigInt([]*big.Int{lp.ctx.RNS().Lift(residues)})
		lp.delta.ChangeRepresentation(ring.TransformedShoup)

		lp.qModT = new(big.Int).Mod(Q, t).Uint64()

		lp.scaler = ring.NewRNSScaler(lp.ctx, p.plaintext)

		if lp.mul[ExtendByLargeModulus], err = p.newMultiplicationParametersLarge(lp.ctx, extCtx, t); err != nil {
			return err
		}

		if lp.mul[ExtendBySameSizeModuli], err = p.newMultiplicationParametersSameSize(lp.ctx, extCtx, t); err != nil {
			return err
		}

		p.levels[level] = lp
	}

	return nil
}

// newMultiplicationParametersLarge extends ctx to a context about 60 bits larger
// than the square of its modulus: both operands are extended exactly and the
// product is scaled by t/Q.
func (p *Parameters) newMultiplicationParametersLarge(ctx, extCtx *ring.Context, t *big.Int) (*MultiplicationParameters, error) {

	size := 0
	for _, s := range p.moduliSizes[:ctx.ModuliCount()] {
		size += s
	}

	count := (size + 60 + extendedModulusSize - 1) / extendedModulusSize

	ext, err := extCtx.Prefix(count)
	if err != nil {
		return nil, err
	}

	mulCtx, err := ctx.Concat(ext)
	if err != nil {
		return nil, err
	}

	down, err := ring.NewScalingFactor(t, ctx.BigModulus())
	if err != nil {
		return nil, err
	}

	return newMultiplicationParameters(ctx, mulCtx, ring.ScalingFactorOne(), ring.ScalingFactorOne(), down)
}

// newMultiplicationParametersSameSize extends ctx with as many auxiliary primes as it
// has, of product P: the second operand is scaled by P/Q and the product by t/P.
func (p *Parameters) newMultiplicationParametersSameSize(ctx, extCtx *ring.Context, t *big.Int) (*MultiplicationParameters, error) {

	ext, err := extCtx.Prefix(ctx.ModuliCount())
	if err != nil {
		return nil, err
	}

	mulCtx, err := ctx.Concat(ext)
	if err != nil {
		return nil, err
	}

	P := ext.BigModulus()

	other, err := ring.NewScalingFactor(P, ctx.BigModulus())
	if err != nil {
		return nil, err
	}

	down, err := ring.NewScalingFactor(t, P)
	if err != nil {
		return nil, err
	}

	return newMultiplicationParameters(ctx, mulCtx, ring.ScalingFactorOne(), other, down)
}

// initMatrixRepsIndexMap computes the permutation mapping the slots of the SIMD
// encoding to the evaluations of the plaintext NTT: slot i of the first (resp. second)
// row is the evaluation at psi^(3^i) (resp. psi^(-3^i)).
func (p *Parameters) initMatrixRepsIndexMap() {

	n := p.degree
	logN := utils.Log2(uint64(n))
	rowSize := n >> 1
	m := uint64(n) << 1
	mask := m - 1

	const generator = 3

	p.matrixRepsIndexMap = make([]int, n)

	pos := uint64(1)
	for i := 0; i < rowSize; i++ {
		index1 := (pos - 1) >> 1
		index2 := (m - pos - 1) >> 1
		p.matrixRepsIndexMap[i] = int(utils.BitReverse64(index1, logN))
		p.matrixRepsIndexMap[rowSize|i] = int(utils.BitReverse64(index2, logN))
		pos = (pos * generator) & mask
	}
}

// Degree returns the degree of the ring.
func (p *Parameters) Degree() int {
	return p.degree
}

// PlaintextModulus returns the plaintext modulus t.
func (p *Parameters) PlaintextModulus() uint64 {
	return p.plaintextModulus
}

// CiphertextModuli returns a copy of the ciphertext moduli.
func (p *Parameters) CiphertextModuli() []uint64 {
	return append([]uint64{}, p.moduli...)
}

// CiphertextModuliSizes returns a copy of the bit-sizes of the ciphertext moduli.
func (p *Parameters) CiphertextModuliSizes() []int {
	return append([]int{}, p.moduliSizes...)
}

// Variance returns the variance of the error distribution.
func (p *Parameters) Variance() int {
	return p.variance
}

// MaxLevel returns the largest ciphertext level. Ciphertexts at level l are defined
// modulo the first len(CiphertextModuli())-l moduli.
func (p *Parameters) MaxLevel() int {
	return len(p.moduli) - 1
}

// SupportsBatching returns true if the plaintext modulus allows the SIMD encoding,
// that is if t is a prime equal to 1 mod 2*Degree.
func (p *Parameters) SupportsBatching() bool {
	return p.plaintextNTT != nil
}

// ExtendedBasis returns a copy of the auxiliary primes used by the multiplication.
func (p *Parameters) ExtendedBasis() []uint64 {
	return append([]uint64{}, p.extendedBasis...)
}

// RingContext returns the ring context of the ciphertexts at the given level.
func (p *Parameters) RingContext(level int) (*ring.Context, error) {
	lp, err := p.level(level)
	if err != nil {
		return nil, err
	}
	return lp.ctx, nil
}

// MultiplicationParameters returns the multiplication parameters of the given level and strategy.
func (p *Parameters) MultiplicationParameters(level int, strategy MultiplicationStrategy) (*MultiplicationParameters, error) {

	lp, err := p.level(level)
	if err != nil {
		return nil, err
	}

	if strategy != ExtendByLargeModulus && strategy != ExtendBySameSizeModuli {
		return nil, fmt.Errorf("%w: unknown %s", ErrInvalidParameter, strategy)
	}

	return lp.mul[strategy], nil
}

func (p *Parameters) level(level int) (*levelParameters, error) {
	if level < 0 || level >= len(p.levels) {
		return nil, fmt.Errorf("%w: level=%d must be in [0, %d]", ErrInvalidParameter, level, p.MaxLevel())
	}
	return p.levels[level], nil
}

// ParametersLiteral returns the ParametersLiteral of the target Parameters.
// The ciphertext moduli are given explicitly.
func (p *Parameters) ParametersLiteral() ParametersLiteral {
	return ParametersLiteral{
		Degree:           p.degree,
		PlaintextModulus: p.plaintextModulus,
		CiphertextModuli: p.CiphertextModuli(),
		Variance:         p.variance,
	}
}

// Equal compares two sets of parameters for equality.
func (p *Parameters) Equal(other *Parameters) (res bool) {

	if p == other {
		return true
	}

	if other == nil {
		return false
	}

	res = p.degree == other.degree
	res = res && p.plaintextModulus == other.plaintextModulus
	res = res && p.variance == other.variance
	res = res && cmp.Equal(p.moduli, other.moduli)
	return
}

// MarshalJSON returns a JSON representation of this parameter set. See `Marshal` from the `encoding/json` package.
func (p *Parameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ParametersLiteral())
}

// UnmarshalJSON reads a JSON representation of a parameter set into the receiver Parameter. See `Unmarshal` from the `encoding/json` package.
func (p *Parameters) UnmarshalJSON(data []byte) (err error) {

	var pl ParametersLiteral
	if err = json.Unmarshal(data, &pl); err != nil {
		return fmt.Errorf("%w: %s", ErrSerialization, err)
	}

	var params *Parameters
	if params, err = NewParametersFromLiteral(pl); err != nil {
		return err
	}

	*p = *params

	return nil
}

// MarshalBinary returns a []byte representation of the parameter set.
// This representation corresponds to the MarshalJSON representation.
func (p *Parameters) MarshalBinary() ([]byte, error) {
	return p.MarshalJSON()
}

// UnmarshalBinary decodes a []byte into a parameter set struct.
func (p *Parameters) UnmarshalBinary(data []byte) (err error) {
	return p.UnmarshalJSON(data)
}

// checkParameters returns an error wrapping ErrParameterMismatch if other is not equal to p.
func (p *Parameters) checkParameters(other *Parameters) error {
	if !p.Equal(other) {
		return ErrParameterMismatch
	}
	return nil
}
