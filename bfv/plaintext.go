package bfv

import (
	"fmt"

	"github.com/tuneinsight/bfvcore/ring"
	"github.com/tuneinsight/bfvcore/utils"
)

// Encoding is the way values are mapped to the coefficients of a Plaintext.
type Encoding int

const (
	// EncodingPoly maps the values to the coefficients of the plaintext polynomial.
	EncodingPoly = Encoding(iota + 1)
	// EncodingSIMD maps the values to the evaluations of the plaintext polynomial,
	// so that ciphertext multiplication acts slot-wise. Requires SupportsBatching.
	EncodingSIMD
)

func (e Encoding) String() string {
	switch e {
	case EncodingPoly:
		return "EncodingPoly"
	case EncodingSIMD:
		return "EncodingSIMD"
	default:
		return "EncodingUnknown"
	}
}

// Plaintext is a polynomial with coefficients in [0, t) at a given level.
// Plaintexts returned by SecretKey.Decrypt carry no encoding.
type Plaintext struct {
	params   *Parameters
	value    []uint64
	encoding Encoding
	level    int

	// centered value, TransformedShoup, for the plaintext-ciphertext multiplication
	polyNTT *ring.Poly
}

// newPlaintext takes ownership of value, which must be reduced modulo t.
func newPlaintext(params *Parameters, value []uint64, encoding Encoding, level int) (*Plaintext, error) {

	lp, err := params.level(level)
	if err != nil {
		return nil, err
	}

	centered := params.plaintext.CenterVec(value)
	defer utils.Zero(centered)

	poly := ring.NewPoly(lp.ctx, ring.Coefficient)
	poly.SetCoefficientsInt64(centered)
	poly.ChangeRepresentation(ring.TransformedShoup)

	return &Plaintext{
		params:   params,
		value:    value,
		encoding: encoding,
		level:    level,
		polyNTT:  poly,
	}, nil
}

// Parameters returns the Parameters of the Plaintext.
func (pt *Plaintext) Parameters() *Parameters {
	return pt.params
}

// Level returns the level of the Plaintext.
func (pt *Plaintext) Level() int {
	return pt.level
}

// Encoding returns the encoding of the Plaintext, zero if unknown.
func (pt *Plaintext) Encoding() Encoding {
	return pt.encoding
}

// Value returns a copy of the coefficients of the Plaintext, in [0, t).
func (pt *Plaintext) Value() []uint64 {
	return append([]uint64{}, pt.value...)
}

// Equal returns true if both plaintexts have the same parameters, level and coefficients.
func (pt *Plaintext) Equal(other *Plaintext) bool {

	if pt == other {
		return true
	}

	if other == nil || !pt.params.Equal(other.params) || pt.level != other.level || len(pt.value) != len(other.value) {
		return false
	}

	// Constant time comparison.
	var diff uint64
	for i := range pt.value {
		diff |= pt.value[i] ^ other.value[i]
	}

	return diff == 0
}

// Zeroize overwrites the Plaintext with zeros.
func (pt *Plaintext) Zeroize() {
	utils.Zero(pt.value)
	pt.polyNTT.Zeroize()
}

// scaledPoly returns Delta*m in the Transformed representation at the level of pt.
// Delta*m is computed as -((Q mod t)*m mod t)/t mod Q, which differs from
// floor(Q/t)*m by less than t.
func (pt *Plaintext) scaledPoly() *ring.Poly {

	lp := pt.params.levels[pt.level]

	m := make([]uint64, len(pt.value))
	defer utils.Zero(m)

	copy(m, pt.value)
	pt.params.plaintext.ScalarMulVec(m, lp.qModT)

	poly := ring.NewPoly(lp.ctx, ring.Coefficient)
	poly.SetCoefficientsUint64(m)
	poly.ChangeRepresentation(ring.Transformed)
	lp.ctx.Mul(poly, lp.delta, poly)

	return poly
}

func (pt *Plaintext) String() string {
	return fmt.Sprintf("Plaintext{level=%d, encoding=%s}", pt.level, pt.encoding)
}
