package ring

import (
	"fmt"
	"math/big"

	"github.com/tuneinsight/bfvcore/utils"
)

// domain maps TransformedShoup to Transformed: both hold the same values.
func domain(rep Representation) Representation {
	if rep == TransformedShoup {
		return Transformed
	}
	return rep
}

func (ctx *Context) checkOperands(method string, ops ...*Poly) {
	for _, op := range ops {
		if !ctx.Equal(op.ctx) {
			panic(fmt.Errorf("cannot %s: operand context does not match the context", method))
		}
	}
}

// prepareOutput sets opOut to op0 in its domain representation and returns the second
// operand to read from, which is a copy of op1 if writing on opOut would overwrite it.
// The returned bool is true if the operand is a copy that must be zeroized by the caller.
func prepareOutput(op0, op1, opOut *Poly) (operand *Poly, copied bool) {

	operand = op1

	if op1 != nil && utils.Alias1D(op1.Coeffs[0], opOut.Coeffs[0]) && (!utils.Alias1D(op0.Coeffs[0], opOut.Coeffs[0]) || op1.rep == TransformedShoup) {
		operand, copied = op1.CopyNew(), true
	}

	if !utils.Alias1D(op0.Coeffs[0], opOut.Coeffs[0]) {
		for i := range opOut.Coeffs {
			copy(opOut.Coeffs[i], op0.Coeffs[i])
		}
	}

	opOut.dropShoup()
	opOut.rep = domain(op0.rep)
	opOut.variableTime = op0.variableTime && (op1 == nil || op1.variableTime)

	return
}

// Add evaluates opOut = op0 + op1. The operands must be both in the Coefficient
// representation or both in a transformed one. opOut is in the representation of
// op0, TransformedShoup being replaced by Transformed, and may alias the operands.
func (ctx *Context) Add(op0, op1, opOut *Poly) {

	ctx.checkOperands("Add", op0, op1, opOut)

	if domain(op0.rep) != domain(op1.rep) {
		panic(fmt.Errorf("cannot Add: representations %s and %s differ", op0.rep, op1.rep))
	}

	op1, copied := prepareOutput(op0, op1, opOut)
	if copied {
		defer op1.Zeroize()
	}

	for i, m := range ctx.moduli {
		if opOut.variableTime {
			m.AddVecVT(opOut.Coeffs[i], op1.Coeffs[i])
		} else {
			m.AddVec(opOut.Coeffs[i], op1.Coeffs[i])
		}
	}
}

// Sub evaluates opOut = op0 - op1, see Add.
func (ctx *Context) Sub(op0, op1, opOut *Poly) {

	ctx.checkOperands("Sub", op0, op1, opOut)

	if domain(op0.rep) != domain(op1.rep) {
		panic(fmt.Errorf("cannot Sub: representations %s and %s differ", op0.rep, op1.rep))
	}

	op1, copied := prepareOutput(op0, op1, opOut)
	if copied {
		defer op1.Zeroize()
	}

	for i, m := range ctx.moduli {
		if opOut.variableTime {
			m.SubVecVT(opOut.Coeffs[i], op1.Coeffs[i])
		} else {
			m.SubVec(opOut.Coeffs[i], op1.Coeffs[i])
		}
	}
}

// Neg evaluates opOut = -op0. opOut may alias op0.
func (ctx *Context) Neg(op0, opOut *Poly) {

	ctx.checkOperands("Neg", op0, opOut)

	prepareOutput(op0, nil, opOut)

	for i, m := range ctx.moduli {
		if opOut.variableTime {
			m.NegVecVT(opOut.Coeffs[i])
		} else {
			m.NegVec(opOut.Coeffs[i])
		}
	}
}

// Mul evaluates opOut = op0 * op1. Both operands must be in a transformed
// representation and opOut is in the Transformed representation.
// The Shoup constants of op1 are used if it is in the TransformedShoup representation.
func (ctx *Context) Mul(op0, op1, opOut *Poly) {

	ctx.checkOperands("Mul", op0, op1, opOut)

	if domain(op0.rep) != Transformed || domain(op1.rep) != Transformed {
		panic(fmt.Errorf("cannot Mul: operands must be in a transformed representation but are in %s and %s", op0.rep, op1.rep))
	}

	op1, copied := prepareOutput(op0, op1, opOut)
	if copied {
		defer op1.Zeroize()
	}

	for i, m := range ctx.moduli {
		switch {
		case op1.rep == TransformedShoup && opOut.variableTime:
			m.MulShoupVecVT(opOut.Coeffs[i], op1.Coeffs[i], op1.shoup[i])
		case op1.rep == TransformedShoup:
			m.MulShoupVec(opOut.Coeffs[i], op1.Coeffs[i], op1.shoup[i])
		case opOut.variableTime:
			m.MulVecVT(opOut.Coeffs[i], op1.Coeffs[i])
		default:
			m.MulVec(opOut.Coeffs[i], op1.Coeffs[i])
		}
	}
}

// MulNew returns op0 * op1 in a new Poly, see Mul.
func (ctx *Context) MulNew(op0, op1 *Poly) (opOut *Poly) {
	opOut = NewPoly(ctx, Transformed)
	ctx.Mul(op0, op1, opOut)
	return
}

// MulScalarBig evaluates opOut = c * op0 for an arbitrary precision integer c.
// opOut may alias op0.
func (ctx *Context) MulScalarBig(op0 *Poly, c *big.Int, opOut *Poly) {

	ctx.checkOperands("MulScalarBig", op0, opOut)

	residues := ctx.rns.Project(c)

	prepareOutput(op0, nil, opOut)

	for i, m := range ctx.moduli {
		if opOut.variableTime {
			m.ScalarMulVecVT(opOut.Coeffs[i], residues[i])
		} else {
			m.ScalarMulVec(opOut.Coeffs[i], residues[i])
		}
	}
}
