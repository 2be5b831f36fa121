package bfv

import (
	"fmt"
	"io"

	"github.com/tuneinsight/bfvcore/ring"
	"github.com/tuneinsight/bfvcore/utils/buffer"
	"github.com/tuneinsight/bfvcore/utils/sampling"
)

// KeySwitchingKey is a key switching key from a polynomial from to a SecretKey s.
// For each ciphertext modulus q_i of its level it stores the pair (b_i, a_i) with
// b_i = e_i - a_i*s + g_i*from, where g_i is the i-th Garner coefficient and a_i
// is generated from the i-th sub-seed of the key seed.
type KeySwitchingKey struct {
	params *Parameters
	level  int
	seed   sampling.Seed
	a, b   []*ring.Poly
}

// NewKeySwitchingKey returns a new empty KeySwitchingKey, to be populated with ReadFrom or UnmarshalBinary.
func NewKeySwitchingKey(params *Parameters) *KeySwitchingKey {
	return &KeySwitchingKey{params: params}
}

// Parameters returns the Parameters of the KeySwitchingKey.
func (ksk *KeySwitchingKey) Parameters() *Parameters {
	return ksk.params
}

// Level returns the level of the KeySwitchingKey.
func (ksk *KeySwitchingKey) Level() int {
	return ksk.level
}

// Equal returns true if both keys have the same parameters, level, seed and polynomials.
func (ksk *KeySwitchingKey) Equal(other *KeySwitchingKey) bool {

	if ksk == other {
		return true
	}

	if other == nil || !ksk.params.Equal(other.params) || ksk.level != other.level || ksk.seed != other.seed || len(ksk.b) != len(other.b) {
		return false
	}

	for i := range ksk.b {
		if !ksk.a[i].Equal(other.a[i]) || !ksk.b[i].Equal(other.b[i]) {
			return false
		}
	}

	return true
}

// Apply key switches the polynomial p, defined at the level of the key. It returns
// (c0, c1) in the Transformed representation such that c0 + c1*s = p*from + e.
// The computation runs in variable time if p allows it.
func (ksk *KeySwitchingKey) Apply(p *ring.Poly) (c0, c1 *ring.Poly, err error) {

	lp := ksk.params.levels[ksk.level]

	if !p.Context().Equal(lp.ctx) {
		return nil, nil, fmt.Errorf("cannot Apply: %w: polynomial is not defined at level %d", ErrParameterMismatch, ksk.level)
	}

	if p.Representation() != ring.Coefficient {
		p = p.CopyNew()
		p.ChangeRepresentation(ring.Coefficient)
	}

	variableTime := p.IsVariableTime()

	c0 = ring.NewPoly(lp.ctx, ring.Transformed)
	c1 = ring.NewPoly(lp.ctx, ring.Transformed)

	if variableTime {
		c0.AllowVariableTimeComputations()
		c1.AllowVariableTimeComputations()
	}

	tmp := ring.NewPoly(lp.ctx, ring.Transformed)

	// p = sum_i [p]_{q_i} * g_i mod Q
	for i := range ksk.b {

		r := ring.NewPoly(lp.ctx, ring.Coefficient)
		if variableTime {
			r.AllowVariableTimeComputations()
		}

		for j := range r.Coeffs {
			copy(r.Coeffs[j], p.Coeffs[i])
			if variableTime {
				lp.ctx.Modulus(j).ReduceVecVT(r.Coeffs[j])
			} else {
				lp.ctx.Modulus(j).ReduceVec(r.Coeffs[j])
			}
		}

		r.ChangeRepresentation(ring.Transformed)

		lp.ctx.Mul(r, ksk.b[i], tmp)
		lp.ctx.Add(c0, tmp, c0)

		lp.ctx.Mul(r, ksk.a[i], r)
		lp.ctx.Add(c1, r, c1)
	}

	return c0, c1, nil
}

// BinarySize returns the serialized size of the object in bytes.
func (ksk *KeySwitchingKey) BinarySize() (size int) {
	size = 8 + sampling.SeedSize + 8
	for _, b := range ksk.b {
		size += b.BinarySize()
	}
	return
}

// WriteTo writes the KeySwitchingKey on w: the level, the seed, the number of
// pairs and the polynomials b_i. The polynomials a_i are regenerated from the
// seed by ReadFrom.
func (ksk *KeySwitchingKey) WriteTo(w io.Writer) (n int64, err error) {

	var inc int64

	if inc, err = buffer.WriteUint64(w, uint64(ksk.level)); err != nil {
		return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	n += inc

	var m int
	if m, err = w.Write(ksk.seed[:]); err != nil {
		return n + int64(m), fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	n += int64(m)

	if inc, err = buffer.WriteUint64(w, uint64(len(ksk.b))); err != nil {
		return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	n += inc

	for _, b := range ksk.b {
		if inc, err = b.WriteTo(w); err != nil {
			return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
		}
		n += inc
	}

	return n, nil
}

// ReadFrom reads on the receiver a KeySwitchingKey written with WriteTo.
// The receiver must have been created with the Parameters of the written key.
func (ksk *KeySwitchingKey) ReadFrom(r io.Reader) (n int64, err error) {

	var inc int64

	var level uint64
	if inc, err = buffer.ReadUint64(r, &level); err != nil {
		return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	n += inc

	if level > uint64(ksk.params.MaxLevel()) {
		return n, fmt.Errorf("%w: invalid level %d", ErrSerialization, level)
	}

	lp := ksk.params.levels[level]

	var seed sampling.Seed
	var m int
	if m, err = io.ReadFull(r, seed[:]); err != nil {
		return n + int64(m), fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	n += int64(m)

	var count uint64
	if inc, err = buffer.ReadUint64(r, &count); err != nil {
		return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	n += inc

	if count != uint64(lp.ctx.ModuliCount()) {
		return n, fmt.Errorf("%w: %d pairs for %d moduli", ErrSerialization, count, lp.ctx.ModuliCount())
	}

	a := make([]*ring.Poly, count)
	b := make([]*ring.Poly, count)

	for i := range b {

		b[i] = ring.NewPoly(lp.ctx, ring.TransformedShoup)

		if inc, err = b[i].ReadFrom(r); err != nil {
			return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
		}
		n += inc

		if b[i].Representation() != ring.TransformedShoup {
			return n, fmt.Errorf("%w: polynomial %d is in %s representation", ErrSerialization, i, b[i].Representation())
		}

		b[i].AllowVariableTimeComputations()

		a[i] = ring.NewUniformPolyFromSeed(lp.ctx, ring.TransformedShoup, sampling.DeriveSeed(seed, i))
		a[i].AllowVariableTimeComputations()
	}

	ksk.level = int(level)
	ksk.seed = seed
	ksk.a, ksk.b = a, b

	return n, nil
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (ksk *KeySwitchingKey) MarshalBinary() (data []byte, err error) {
	buf := buffer.NewBufferSize(ksk.BinarySize())
	_, err = ksk.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or WriteTo on the object.
func (ksk *KeySwitchingKey) UnmarshalBinary(data []byte) (err error) {
	_, err = ksk.ReadFrom(buffer.NewBuffer(data))
	return
}
