package bfv

import (
	"fmt"

	"github.com/tuneinsight/bfvcore/utils"
)

// Encoder maps vectors of integers to Plaintexts and back.
type Encoder struct {
	params *Parameters
}

// NewEncoder creates a new Encoder.
func NewEncoder(params *Parameters) *Encoder {
	return &Encoder{params: params}
}

// Encode encodes at most Degree values on a new Plaintext at the given level.
// The values are reduced modulo t and missing values are set to zero.
func (ecd *Encoder) Encode(values []uint64, encoding Encoding, level int) (*Plaintext, error) {

	if err := ecd.checkLength(len(values)); err != nil {
		return nil, err
	}

	w := make([]uint64, ecd.params.degree)
	for i, v := range values {
		w[i] = ecd.params.plaintext.Reduce(v)
	}

	return ecd.encode(w, encoding, level)
}

// EncodeInt64 is identical to Encode for signed values, which are mapped to [0, t).
func (ecd *Encoder) EncodeInt64(values []int64, encoding Encoding, level int) (*Plaintext, error) {

	if err := ecd.checkLength(len(values)); err != nil {
		return nil, err
	}

	w := make([]uint64, ecd.params.degree)
	for i, v := range values {
		w[i] = ecd.params.plaintext.ReduceInt64(v)
	}

	return ecd.encode(w, encoding, level)
}

func (ecd *Encoder) checkLength(n int) error {
	if n > ecd.params.degree {
		return fmt.Errorf("cannot Encode: %w: %d values for Degree=%d", ErrInvalidParameter, n, ecd.params.degree)
	}
	return nil
}

func (ecd *Encoder) encode(w []uint64, encoding Encoding, level int) (pt *Plaintext, err error) {

	switch encoding {
	case EncodingPoly:
	case EncodingSIMD:

		if !ecd.params.SupportsBatching() {
			return nil, fmt.Errorf("cannot Encode: %w: PlaintextModulus=%d does not support %s", ErrUnsupportedOperation, ecd.params.plaintextModulus, encoding)
		}

		slots := make([]uint64, len(w))
		for i, j := range ecd.params.matrixRepsIndexMap {
			slots[j] = w[i]
		}
		utils.Zero(w)

		ecd.params.plaintextNTT.Backward(slots)
		w = slots

	default:
		return nil, fmt.Errorf("cannot Encode: %w: invalid encoding %d", ErrInvalidParameter, encoding)
	}

	if pt, err = newPlaintext(ecd.params, w, encoding, level); err != nil {
		return nil, fmt.Errorf("cannot Encode: %w", err)
	}

	return
}

// Decode decodes the Plaintext with the given encoding and returns Degree values in [0, t).
// Returns an error if the Plaintext was encoded with another encoding.
func (ecd *Encoder) Decode(pt *Plaintext, encoding Encoding) ([]uint64, error) {

	if err := ecd.params.checkParameters(pt.params); err != nil {
		return nil, fmt.Errorf("cannot Decode: %w", err)
	}

	if pt.encoding != 0 && pt.encoding != encoding {
		return nil, fmt.Errorf("cannot Decode: %w: plaintext is encoded with %s", ErrInvalidParameter, pt.encoding)
	}

	w := pt.Value()

	switch encoding {
	case EncodingPoly:
		return w, nil
	case EncodingSIMD:

		if !ecd.params.SupportsBatching() {
			return nil, fmt.Errorf("cannot Decode: %w: PlaintextModulus=%d does not support %s", ErrUnsupportedOperation, ecd.params.plaintextModulus, encoding)
		}

		ecd.params.plaintextNTT.Forward(w)

		values := make([]uint64, len(w))
		for i, j := range ecd.params.matrixRepsIndexMap {
			values[i] = w[j]
		}
		utils.Zero(w)

		return values, nil
	default:
		return nil, fmt.Errorf("cannot Decode: %w: invalid encoding %d", ErrInvalidParameter, encoding)
	}
}

// DecodeInt64 is identical to Decode but returns the values centered in (-t/2, t/2].
func (ecd *Encoder) DecodeInt64(pt *Plaintext, encoding Encoding) ([]int64, error) {

	values, err := ecd.Decode(pt, encoding)
	if err != nil {
		return nil, err
	}

	defer utils.Zero(values)

	return ecd.params.plaintext.CenterVec(values), nil
}
