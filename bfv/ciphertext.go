package bfv

import (
	"fmt"
	"io"

	"github.com/tuneinsight/bfvcore/ring"
	"github.com/tuneinsight/bfvcore/utils/buffer"
	"github.com/tuneinsight/bfvcore/utils/sampling"
)

// Operand is the second operand of the Evaluator, a *Ciphertext or a *Plaintext.
type Operand interface {
	Parameters() *Parameters
	Level() int
}

// Ciphertext is a BFV ciphertext: a vector of polynomials in the Transformed
// representation at a given level. A Ciphertext without polynomials is the
// additive identity. Freshly encrypted ciphertexts carry the seed from which
// their last polynomial is generated.
type Ciphertext struct {
	params *Parameters
	Value  []*ring.Poly
	level  int
	seed   *sampling.Seed
}

// NewCiphertext returns a new empty Ciphertext at level zero.
func NewCiphertext(params *Parameters) *Ciphertext {
	return &Ciphertext{params: params}
}

// Parameters returns the Parameters of the Ciphertext.
func (ct *Ciphertext) Parameters() *Parameters {
	return ct.params
}

// Level returns the level of the Ciphertext.
func (ct *Ciphertext) Level() int {
	return ct.level
}

// Degree returns the number of polynomials of the Ciphertext minus one.
func (ct *Ciphertext) Degree() int {
	return len(ct.Value) - 1
}

// IsEmpty returns true if the Ciphertext has no polynomial.
func (ct *Ciphertext) IsEmpty() bool {
	return len(ct.Value) == 0
}

// Seed returns the seed of the last polynomial, if any.
func (ct *Ciphertext) Seed() (seed sampling.Seed, ok bool) {
	if ct.seed == nil {
		return seed, false
	}
	return *ct.seed, true
}

// CopyNew returns a deep copy of the Ciphertext.
func (ct *Ciphertext) CopyNew() *Ciphertext {

	c := &Ciphertext{
		params: ct.params,
		level:  ct.level,
		Value:  make([]*ring.Poly, len(ct.Value)),
	}

	for i := range ct.Value {
		c.Value[i] = ct.Value[i].CopyNew()
	}

	if ct.seed != nil {
		seed := *ct.seed
		c.seed = &seed
	}

	return c
}

// Equal returns true if both ciphertexts have the same parameters, level and polynomials.
// The seed is not compared.
func (ct *Ciphertext) Equal(other *Ciphertext) bool {

	if ct == other {
		return true
	}

	if other == nil || !ct.params.Equal(other.params) || ct.level != other.level || len(ct.Value) != len(other.Value) {
		return false
	}

	for i := range ct.Value {
		if !ct.Value[i].Equal(other.Value[i]) {
			return false
		}
	}

	return true
}

// check returns an error if the Ciphertext polynomials are not consistent with its level.
func (ct *Ciphertext) check() error {

	lp, err := ct.params.level(ct.level)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedCiphertext, err)
	}

	for i, c := range ct.Value {

		if c == nil {
			return fmt.Errorf("%w: polynomial %d is nil", ErrMalformedCiphertext, i)
		}

		if !c.Context().Equal(lp.ctx) {
			return fmt.Errorf("%w: polynomial %d is not defined at level %d", ErrMalformedCiphertext, i, ct.level)
		}

		if c.Representation() != ring.Transformed {
			return fmt.Errorf("%w: polynomial %d is in %s representation", ErrMalformedCiphertext, i, c.Representation())
		}
	}

	return nil
}

// BinarySize returns the serialized size of the object in bytes.
func (ct *Ciphertext) BinarySize() (size int) {

	size = 8 + 1 + 8

	if ct.seed != nil {
		size += sampling.SeedSize
	}

	for _, c := range ct.Value[:ct.storedPolys()] {
		size += c.BinarySize()
	}

	return
}

// storedPolys returns the number of polynomials written by WriteTo.
func (ct *Ciphertext) storedPolys() int {
	if ct.seed != nil && len(ct.Value) > 1 {
		return len(ct.Value) - 1
	}
	return len(ct.Value)
}

// WriteTo writes the Ciphertext on w: the level, a seed flag, the seed if any, the
// number of stored polynomials and the polynomials. When the Ciphertext has a seed,
// its last polynomial is not written and is regenerated from the seed by ReadFrom.
func (ct *Ciphertext) WriteTo(w io.Writer) (n int64, err error) {

	var inc int64

	if inc, err = buffer.WriteUint64(w, uint64(ct.level)); err != nil {
		return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	n += inc

	stored := ct.storedPolys()

	hasSeed := ct.seed != nil && stored < len(ct.Value)

	var flag uint8
	if hasSeed {
		flag = 1
	}

	if inc, err = buffer.WriteUint8(w, flag); err != nil {
		return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	n += inc

	if hasSeed {
		var m int
		if m, err = w.Write(ct.seed[:]); err != nil {
			return n + int64(m), fmt.Errorf("%w: %s", ErrSerialization, err)
		}
		n += int64(m)
	}

	if inc, err = buffer.WriteUint64(w, uint64(stored)); err != nil {
		return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	n += inc

	for _, c := range ct.Value[:stored] {
		if inc, err = c.WriteTo(w); err != nil {
			return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
		}
		n += inc
	}

	return n, nil
}

// ReadFrom reads on the receiver a Ciphertext written with WriteTo.
// The receiver must have been created with the Parameters of the written Ciphertext.
// Returns an error wrapping ErrMalformedCiphertext if the data has no polynomial,
// or a single polynomial and no seed, and ErrSerialization if the data cannot be read.
// The polynomials of the decoded Ciphertext allow variable time computations.
func (ct *Ciphertext) ReadFrom(r io.Reader) (n int64, err error) {

	var inc int64

	var level uint64
	if inc, err = buffer.ReadUint64(r, &level); err != nil {
		return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	n += inc

	if level > uint64(ct.params.MaxLevel()) {
		return n, fmt.Errorf("%w: invalid level %d", ErrSerialization, level)
	}

	lp := ct.params.levels[level]

	var flag uint8
	if inc, err = buffer.ReadUint8(r, &flag); err != nil {
		return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	n += inc

	var seed *sampling.Seed

	switch flag {
	case 0:
	case 1:
		seed = new(sampling.Seed)
		var m int
		if m, err = io.ReadFull(r, seed[:]); err != nil {
			return n + int64(m), fmt.Errorf("%w: %s", ErrSerialization, err)
		}
		n += int64(m)
	default:
		return n, fmt.Errorf("%w: invalid seed flag %d", ErrSerialization, flag)
	}

	var stored uint64
	if inc, err = buffer.ReadUint64(r, &stored); err != nil {
		return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	n += inc

	if stored == 0 {
		return n, fmt.Errorf("%w: no polynomial", ErrMalformedCiphertext)
	}

	if stored == 1 && seed == nil {
		return n, fmt.Errorf("%w: a single polynomial and no seed", ErrMalformedCiphertext)
	}

	// Each polynomial takes at least one byte.
	if stored > uint64(1<<20) {
		return n, fmt.Errorf("%w: invalid number of polynomials %d", ErrSerialization, stored)
	}

	value := make([]*ring.Poly, stored)
	for i := range value {

		value[i] = ring.NewPoly(lp.ctx, ring.Transformed)

		if inc, err = value[i].ReadFrom(r); err != nil {
			return n + inc, fmt.Errorf("%w: %s", ErrSerialization, err)
		}
		n += inc

		if value[i].Representation() != ring.Transformed {
			return n, fmt.Errorf("%w: polynomial %d is in %s representation", ErrMalformedCiphertext, i, value[i].Representation())
		}
	}

	if seed != nil {
		value = append(value, ring.NewUniformPolyFromSeed(lp.ctx, ring.Transformed, *seed))
	}

	for _, c := range value {
		c.AllowVariableTimeComputations()
	}

	ct.Value = value
	ct.level = int(level)
	ct.seed = seed

	return n, nil
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (ct *Ciphertext) MarshalBinary() (data []byte, err error) {
	buf := buffer.NewBufferSize(ct.BinarySize())
	_, err = ct.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or WriteTo on the object.
func (ct *Ciphertext) UnmarshalBinary(data []byte) (err error) {
	_, err = ct.ReadFrom(buffer.NewBuffer(data))
	return
}
