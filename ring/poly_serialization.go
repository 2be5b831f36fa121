package ring

import (
	"fmt"
	"io"

	"github.com/tuneinsight/bfvcore/utils/buffer"
)

// BinarySize returns the serialized size of the object in bytes.
func (p *Poly) BinarySize() int {
	return 1 + 8 + 8 + 8*len(p.Coeffs)*p.N()
}

// WriteTo writes the representation, the degree, the number of rows and the
// coefficients of the Poly on w. Shoup constants are not written.
func (p *Poly) WriteTo(w io.Writer) (n int64, err error) {

	var inc int64

	if inc, err = buffer.WriteUint8(w, uint8(p.rep)); err != nil {
		return n + inc, err
	}
	n += inc

	if inc, err = buffer.WriteUint64(w, uint64(p.N())); err != nil {
		return n + inc, err
	}
	n += inc

	if inc, err = buffer.WriteUint64(w, uint64(len(p.Coeffs))); err != nil {
		return n + inc, err
	}
	n += inc

	for i := range p.Coeffs {
		if inc, err = buffer.WriteUint64Slice(w, p.Coeffs[i]); err != nil {
			return n + inc, err
		}
		n += inc
	}

	return n, nil
}

// ReadFrom reads on the receiver a Poly written with WriteTo. The receiver must
// have been created over the Context the Poly was written from. Returns an error
// if the data does not match the Context or holds values that are not reduced.
func (p *Poly) ReadFrom(r io.Reader) (n int64, err error) {

	var inc int64

	var rep uint8
	if inc, err = buffer.ReadUint8(r, &rep); err != nil {
		return n + inc, err
	}
	n += inc

	if Representation(rep) > TransformedShoup {
		return n, fmt.Errorf("cannot ReadFrom: invalid representation %d", rep)
	}

	var degree, rows uint64

	if inc, err = buffer.ReadUint64(r, &degree); err != nil {
		return n + inc, err
	}
	n += inc

	if degree != uint64(p.ctx.N()) {
		return n, fmt.Errorf("cannot ReadFrom: degree %d does not match the context degree %d", degree, p.ctx.N())
	}

	if inc, err = buffer.ReadUint64(r, &rows); err != nil {
		return n + inc, err
	}
	n += inc

	if rows != uint64(p.ctx.ModuliCount()) {
		return n, fmt.Errorf("cannot ReadFrom: %d rows do not match the %d primes of the context", rows, p.ctx.ModuliCount())
	}

	coeffs := newMatrix(int(rows), int(degree))

	for i := range coeffs {

		if inc, err = buffer.ReadUint64Slice(r, coeffs[i]); err != nil {
			return n + inc, err
		}
		n += inc

		q := p.ctx.qValues[i]
		for _, c := range coeffs[i] {
			if c >= q {
				return n, fmt.Errorf("cannot ReadFrom: coefficient %d is not reduced modulo %d", c, q)
			}
		}
	}

	p.dropShoup()
	p.Coeffs = coeffs
	p.rep = Representation(rep)

	if p.rep == TransformedShoup {
		p.computeShoup()
	}

	return n, nil
}
