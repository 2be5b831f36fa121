package ring

import (
	"fmt"
	"math/big"

	"github.com/tuneinsight/bfvcore/utils"
	"golang.org/x/exp/slices"
)

// Representation is the representation of a Poly.
type Representation int

const (
	// Coefficient is the representation by the coefficients of the polynomial.
	Coefficient = Representation(iota)
	// Transformed is the representation by the evaluations of the polynomial, i.e. after a forward NTT.
	Transformed
	// TransformedShoup is the Transformed representation along with the Shoup constant of each value,
	// which speeds up repeated multiplications by the same Poly.
	TransformedShoup
)

func (r Representation) String() string {
	switch r {
	case Coefficient:
		return "Coefficient"
	case Transformed:
		return "Transformed"
	case TransformedShoup:
		return "TransformedShoup"
	default:
		return fmt.Sprintf("Representation(%d)", int(r))
	}
}

// Poly is a polynomial of Z_Q[X]/(X^N+1) stored as one row of N coefficients per prime of its Context.
//
// A Poly runs its arithmetic in constant time unless variable time computations have been
// explicitly allowed on it. An operation between several polynomials runs in variable time
// only if all of them allow it.
type Poly struct {
	ctx          *Context
	rep          Representation
	variableTime bool

	Coeffs [][]uint64

	shoup [][]uint64
}

// NewPoly creates a new zero Poly in the given representation.
func NewPoly(ctx *Context, rep Representation) *Poly {

	p := &Poly{
		ctx:    ctx,
		rep:    rep,
		Coeffs: newMatrix(ctx.ModuliCount(), ctx.N()),
	}

	if rep == TransformedShoup {
		p.shoup = newMatrix(ctx.ModuliCount(), ctx.N())
	}

	return p
}

func newMatrix(rows, cols int) (m [][]uint64) {
	buf := make([]uint64, rows*cols)
	m = make([][]uint64, rows)
	for i := range m {
		m[i] = buf[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return
}

// Context returns the Context of the Poly.
func (p *Poly) Context() *Context {
	return p.ctx
}

// Representation returns the current representation of the Poly.
func (p *Poly) Representation() Representation {
	return p.rep
}

// N returns the degree of the Poly.
func (p *Poly) N() int {
	return p.ctx.N()
}

// IsVariableTime returns true if variable time computations are allowed on the Poly.
func (p *Poly) IsVariableTime() bool {
	return p.variableTime
}

// AllowVariableTimeComputations allows variable time computations on the Poly.
// It must only be called once the Poly does not depend on secret data anymore.
func (p *Poly) AllowVariableTimeComputations() {
	p.variableTime = true
}

// DisallowVariableTimeComputations forces constant time computations on the Poly.
func (p *Poly) DisallowVariableTimeComputations() {
	p.variableTime = false
}

// CopyNew returns a deep copy of the Poly.
func (p *Poly) CopyNew() *Poly {

	c := &Poly{
		ctx:          p.ctx,
		rep:          p.rep,
		variableTime: p.variableTime,
		Coeffs:       newMatrix(len(p.Coeffs), p.ctx.N()),
	}

	for i := range p.Coeffs {
		copy(c.Coeffs[i], p.Coeffs[i])
	}

	if p.shoup != nil {
		c.shoup = newMatrix(len(p.shoup), p.ctx.N())
		for i := range p.shoup {
			copy(c.shoup[i], p.shoup[i])
		}
	}

	return c
}

// Equal returns true if both polynomials have the same context, representation and coefficients.
func (p *Poly) Equal(other *Poly) bool {

	if p == other {
		return true
	}

	if other == nil || !p.ctx.Equal(other.ctx) || p.rep != other.rep {
		return false
	}

	for i := range p.Coeffs {
		if !slices.Equal(p.Coeffs[i], other.Coeffs[i]) {
			return false
		}
	}

	return true
}

// Zeroize overwrites the coefficients of the Poly with zeros.
func (p *Poly) Zeroize() {
	for i := range p.Coeffs {
		utils.Zero(p.Coeffs[i])
	}
	for i := range p.shoup {
		utils.Zero(p.shoup[i])
	}
}

// ChangeRepresentation converts the Poly to the target representation.
func (p *Poly) ChangeRepresentation(to Representation) {

	if p.rep == to {
		return
	}

	switch p.rep {
	case Coefficient:
		p.forward()
	case TransformedShoup:
		p.dropShoup()
		if to == Coefficient {
			p.backward()
		}
	case Transformed:
		if to == Coefficient {
			p.backward()
		}
	}

	if to == TransformedShoup {
		p.computeShoup()
	}

	p.rep = to
}

func (p *Poly) forward() {
	for i, row := range p.Coeffs {
		if p.variableTime {
			p.ctx.ntt[i].ForwardVT(row)
		} else {
			p.ctx.ntt[i].Forward(row)
		}
	}
}

func (p *Poly) backward() {
	for i, row := range p.Coeffs {
		if p.variableTime {
			p.ctx.ntt[i].BackwardVT(row)
		} else {
			p.ctx.ntt[i].Backward(row)
		}
	}
}

func (p *Poly) computeShoup() {
	p.shoup = make([][]uint64, len(p.Coeffs))
	for i, row := range p.Coeffs {
		if p.variableTime {
			p.shoup[i] = p.ctx.moduli[i].ShoupVecVT(row)
		} else {
			p.shoup[i] = p.ctx.moduli[i].ShoupVec(row)
		}
	}
}

func (p *Poly) dropShoup() {
	for i := range p.shoup {
		utils.Zero(p.shoup[i])
	}
	p.shoup = nil
}

// SetCoefficientsUint64 sets the first len(values) coefficients of p to values, reduced
// modulo each prime, and the remaining ones to zero. The representation is left unchanged.
func (p *Poly) SetCoefficientsUint64(values []uint64) {

	if len(values) > p.N() {
		panic(fmt.Errorf("cannot SetCoefficientsUint64: %d values for degree %d", len(values), p.N()))
	}

	for i, m := range p.ctx.moduli {
		row := p.Coeffs[i]
		for j, v := range values {
			row[j] = m.Reduce(v)
		}
		utils.Zero(row[len(values):])
	}

	p.refreshShoup()
}

// SetCoefficientsInt64 is identical to SetCoefficientsUint64 for signed values.
func (p *Poly) SetCoefficientsInt64(values []int64) {

	if len(values) > p.N() {
		panic(fmt.Errorf("cannot SetCoefficientsInt64: %d values for degree %d", len(values), p.N()))
	}

	for i, m := range p.ctx.moduli {
		row := p.Coeffs[i]
		for j, v := range values {
			row[j] = m.ReduceInt64(v)
		}
		utils.Zero(row[len(values):])
	}

	p.refreshShoup()
}

// SetCoefficientsBigInt is identical to SetCoefficientsUint64 for arbitrary precision values.
func (p *Poly) SetCoefficientsBigInt(values []*big.Int) {

	if len(values) > p.N() {
		panic(fmt.Errorf("cannot SetCoefficientsBigInt: %d values for degree %d", len(values), p.N()))
	}

	for j, v := range values {
		residues := p.ctx.rns.Project(v)
		for i := range p.Coeffs {
			p.Coeffs[i][j] = residues[i]
		}
	}

	for i := range p.Coeffs {
		utils.Zero(p.Coeffs[i][len(values):])
	}

	p.refreshShoup()
}

func (p *Poly) refreshShoup() {
	if p.rep == TransformedShoup {
		p.dropShoup()
		p.computeShoup()
	}
}

// BigInts returns the coefficients of p reconstructed in [0, Q).
func (p *Poly) BigInts() (values []*big.Int) {

	rns := p.ctx.rns
	residues := make([]uint64, len(p.Coeffs))
	tmp := new(big.Int)

	values = make([]*big.Int, p.N())
	for j := range values {
		for i := range p.Coeffs {
			residues[i] = p.Coeffs[i][j]
		}
		values[j] = rns.lift(residues, new(big.Int), tmp)
	}

	utils.Zero(residues)

	return
}

// Truncate returns a copy of p restricted to the context ctx,
// whose primes must be the first primes of the context of p.
func (p *Poly) Truncate(ctx *Context) *Poly {

	if !ctx.IsPrefixOf(p.ctx) {
		panic(fmt.Errorf("cannot Truncate: target context is not a prefix of the context of the polynomial"))
	}

	t := &Poly{
		ctx:          ctx,
		rep:          p.rep,
		variableTime: p.variableTime,
		Coeffs:       newMatrix(ctx.ModuliCount(), ctx.N()),
	}

	for i := range t.Coeffs {
		copy(t.Coeffs[i], p.Coeffs[i])
	}

	if p.shoup != nil {
		t.shoup = newMatrix(ctx.ModuliCount(), ctx.N())
		for i := range t.shoup {
			copy(t.shoup[i], p.shoup[i])
		}
	}

	return t
}
