package ring

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/tuneinsight/bfvcore/utils"
	"github.com/tuneinsight/bfvcore/utils/sampling"
)

// MinVariance and MaxVariance bound the variance accepted by the SmallSampler.
const (
	MinVariance = 1
	MaxVariance = 16
)

// Sampler is an interface for random polynomial samplers.
// Its Read method populates the polynomial according to the Sampler's distribution.
type Sampler interface {
	Read(pol *Poly) error
}

const randomBufferSize = 1024

type randomBuffer struct {
	buf []byte
	ptr int
}

func newRandomBuffer() *randomBuffer {
	return &randomBuffer{buf: make([]byte, randomBufferSize), ptr: randomBufferSize}
}

func (r *randomBuffer) uint64(prng sampling.PRNG) (uint64, error) {
	if r.ptr == len(r.buf) {
		if _, err := prng.Read(r.buf); err != nil {
			return 0, err
		}
		r.ptr = 0
	}
	x := binary.LittleEndian.Uint64(r.buf[r.ptr:])
	r.ptr += 8
	return x, nil
}

func (r *randomBuffer) zeroize() {
	utils.Zero(r.buf)
	r.ptr = len(r.buf)
}

// UniformSampler samples polynomials with coefficients uniformly distributed modulo each prime.
type UniformSampler struct {
	*randomBuffer
	prng sampling.PRNG
}

// NewUniformSampler creates a new UniformSampler reading from prng.
func NewUniformSampler(prng sampling.PRNG) *UniformSampler {
	return &UniformSampler{randomBuffer: newRandomBuffer(), prng: prng}
}

// Read overwrites pol with uniformly random values. The uniform distribution being
// invariant under the NTT, the representation of pol is left unchanged.
func (u *UniformSampler) Read(pol *Poly) (err error) {

	for i, m := range pol.ctx.moduli {

		p := m.Value()
		mask := uint64(1)<<uint(m.BitLen()) - 1

		coeffs := pol.Coeffs[i]

		for j := range coeffs {
			for {
				var x uint64
				if x, err = u.uint64(u.prng); err != nil {
					return fmt.Errorf("cannot UniformSampler.Read: %w", err)
				}
				// Rejection sampling.
				if x &= mask; x < p {
					coeffs[j] = x
					break
				}
			}
		}
	}

	pol.refreshShoup()

	return nil
}

// SmallSampler samples polynomials with small coefficients from the centered binomial
// distribution of the given variance: each coefficient is the difference between the
// Hamming weights of two independent strings of 2*variance random bits, and thus lies
// in [-2*variance, 2*variance].
type SmallSampler struct {
	*randomBuffer
	prng     sampling.PRNG
	variance int
}

// NewSmallSampler creates a new SmallSampler. Returns an error if the variance is not in [1, 16].
func NewSmallSampler(prng sampling.PRNG, variance int) (*SmallSampler, error) {

	if variance < MinVariance || variance > MaxVariance {
		return nil, fmt.Errorf("cannot NewSmallSampler: variance=%d must be in [%d, %d]", variance, MinVariance, MaxVariance)
	}

	return &SmallSampler{randomBuffer: newRandomBuffer(), prng: prng, variance: variance}, nil
}

// Read overwrites pol, which must be in the Coefficient representation, with small values.
// Runs in constant time.
func (s *SmallSampler) Read(pol *Poly) (err error) {

	if pol.rep != Coefficient {
		return fmt.Errorf("cannot SmallSampler.Read: polynomial must be in %s representation", Coefficient)
	}

	defer s.zeroize()

	k := uint(2 * s.variance)
	mask := uint64(1)<<k - 1

	for j := 0; j < pol.N(); j++ {

		var x uint64
		if x, err = s.uint64(s.prng); err != nil {
			return fmt.Errorf("cannot SmallSampler.Read: %w", err)
		}

		c := int64(bits.OnesCount64(x&mask)) - int64(bits.OnesCount64((x>>k)&mask))

		// Maps c to [0, p) without branching on its sign.
		sign := uint64(c >> 63)
		for i, m := range pol.ctx.moduli {
			pol.Coeffs[i][j] = uint64(c) + (m.Value() & sign)
		}
	}

	return nil
}

// NewSmallPoly samples a new Poly in the Coefficient representation with small coefficients
// of the given variance, see SmallSampler.
func NewSmallPoly(ctx *Context, variance int, prng sampling.PRNG) (*Poly, error) {

	sampler, err := NewSmallSampler(prng, variance)
	if err != nil {
		return nil, err
	}

	pol := NewPoly(ctx, Coefficient)
	if err = sampler.Read(pol); err != nil {
		return nil, err
	}

	return pol, nil
}

// NewUniformPoly samples a new uniformly random Poly in the given representation.
func NewUniformPoly(ctx *Context, rep Representation, prng sampling.PRNG) (*Poly, error) {
	pol := NewPoly(ctx, rep)
	if err := NewUniformSampler(prng).Read(pol); err != nil {
		return nil, err
	}
	return pol, nil
}

// NewUniformPolyFromSeed deterministically expands the seed into a uniformly random
// Poly in the given representation. The same seed always yields the same Poly.
func NewUniformPolyFromSeed(ctx *Context, rep Representation, seed sampling.Seed) *Poly {
	pol, err := NewUniformPoly(ctx, rep, seed.NewPRNG())
	// Sanity check, reading from a keyed XOF cannot fail for the sizes at hand.
	if err != nil {
		panic(err)
	}
	return pol
}
