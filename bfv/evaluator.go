package bfv

import (
	"fmt"

	"github.com/tuneinsight/bfvcore/ring"
)

// Evaluator evaluates homomorphic operations on ciphertexts.
// It is stateless apart from its parameters, evaluation key and multiplication strategy.
type Evaluator struct {
	params   *Parameters
	evk      *EvaluationKey
	strategy MultiplicationStrategy
}

// NewEvaluator creates a new Evaluator. The evaluation key can be nil, in which case the
// operations requiring it return an error.
func NewEvaluator(params *Parameters, evk *EvaluationKey) *Evaluator {
	return &Evaluator{params: params, evk: evk, strategy: ExtendByLargeModulus}
}

// WithStrategy returns a shallow copy of the Evaluator using the given multiplication strategy.
func (eval *Evaluator) WithStrategy(strategy MultiplicationStrategy) *Evaluator {
	return &Evaluator{params: eval.params, evk: eval.evk, strategy: strategy}
}

// Parameters returns the Parameters of the Evaluator.
func (eval *Evaluator) Parameters() *Parameters {
	return eval.params
}

func (eval *Evaluator) checkCiphertext(ct *Ciphertext) error {

	if ct == nil {
		return fmt.Errorf("%w: nil ciphertext", ErrInvalidParameter)
	}

	if err := eval.params.checkParameters(ct.params); err != nil {
		return err
	}

	return ct.check()
}

func (eval *Evaluator) checkOperand(op Operand) error {

	if err := eval.params.checkParameters(op.Parameters()); err != nil {
		return err
	}

	if ct, isCt := op.(*Ciphertext); isCt {
		return ct.check()
	}

	return nil
}

func (eval *Evaluator) setOutput(opOut *Ciphertext, level int, value []*ring.Poly) error {

	if opOut == nil {
		return fmt.Errorf("%w: nil output ciphertext", ErrInvalidParameter)
	}

	opOut.params = eval.params
	opOut.level = level
	opOut.Value = value
	opOut.seed = nil

	return nil
}

func copyPolys(value []*ring.Poly) (out []*ring.Poly) {
	out = make([]*ring.Poly, len(value))
	for i := range value {
		out[i] = value[i].CopyNew()
	}
	return
}

// Add computes opOut = op0 + op1, where op1 is a *Ciphertext or a *Plaintext.
// An empty Ciphertext is the additive identity.
func (eval *Evaluator) Add(op0 *Ciphertext, op1 Operand, opOut *Ciphertext) (err error) {
	if err = eval.addSub(op0, op1, opOut, false); err != nil {
		return fmt.Errorf("cannot Add: %w", err)
	}
	return
}

// AddNew returns op0 + op1 in a new Ciphertext, see Add.
func (eval *Evaluator) AddNew(op0 *Ciphertext, op1 Operand) (opOut *Ciphertext, err error) {
	opOut = NewCiphertext(eval.params)
	return opOut, eval.Add(op0, op1, opOut)
}

// Sub computes opOut = op0 - op1, where op1 is a *Ciphertext or a *Plaintext.
// An empty Ciphertext is the additive identity.
func (eval *Evaluator) Sub(op0 *Ciphertext, op1 Operand, opOut *Ciphertext) (err error) {
	if err = eval.addSub(op0, op1, opOut, true); err != nil {
		return fmt.Errorf("cannot Sub: %w", err)
	}
	return
}

// SubNew returns op0 - op1 in a new Ciphertext, see Sub.
func (eval *Evaluator) SubNew(op0 *Ciphertext, op1 Operand) (opOut *Ciphertext, err error) {
	opOut = NewCiphertext(eval.params)
	return opOut, eval.Sub(op0, op1, opOut)
}

func (eval *Evaluator) addSub(op0 *Ciphertext, op1 Operand, opOut *Ciphertext, sub bool) (err error) {

	if err = eval.checkCiphertext(op0); err != nil {
		return
	}

	if op1 == nil {
		return fmt.Errorf("%w: nil operand", ErrInvalidParameter)
	}

	if err = eval.checkOperand(op1); err != nil {
		return
	}

	switch op1 := op1.(type) {
	case *Ciphertext:

		switch {
		case op1.IsEmpty():
			return eval.setOutput(opOut, op0.level, copyPolys(op0.Value))
		case op0.IsEmpty():
			value := copyPolys(op1.Value)
			if sub {
				ctx := eval.params.levels[op1.level].ctx
				for _, c := range value {
					ctx.Neg(c, c)
				}
			}
			return eval.setOutput(opOut, op1.level, value)
		}

		if op0.level != op1.level {
			return fmt.Errorf("%w: operands are at levels %d and %d", ErrParameterMismatch, op0.level, op1.level)
		}

		if len(op0.Value) != len(op1.Value) {
			return fmt.Errorf("%w: operands have %d and %d polynomials", ErrMalformedCiphertext, len(op0.Value), len(op1.Value))
		}

		ctx := eval.params.levels[op0.level].ctx

		value := copyPolys(op0.Value)
		for i, c := range value {
			if sub {
				ctx.Sub(c, op1.Value[i], c)
			} else {
				ctx.Add(c, op1.Value[i], c)
			}
		}

		return eval.setOutput(opOut, op0.level, value)

	case *Plaintext:

		if op0.IsEmpty() {
			return fmt.Errorf("%w: plaintext operand with an empty ciphertext", ErrUnsupportedOperation)
		}

		if op0.level != op1.level {
			return fmt.Errorf("%w: operands are at levels %d and %d", ErrParameterMismatch, op0.level, op1.level)
		}

		m := op1.scaledPoly()
		defer m.Zeroize()

		ctx := eval.params.levels[op0.level].ctx

		value := copyPolys(op0.Value)
		if sub {
			ctx.Sub(value[0], m, value[0])
		} else {
			ctx.Add(value[0], m, value[0])
		}

		return eval.setOutput(opOut, op0.level, value)

	default:
		return fmt.Errorf("%w: invalid operand type %T", ErrInvalidParameter, op1)
	}
}

// Neg computes opOut = -op0.
func (eval *Evaluator) Neg(op0, opOut *Ciphertext) (err error) {

	if err = eval.checkCiphertext(op0); err != nil {
		return fmt.Errorf("cannot Neg: %w", err)
	}

	ctx := eval.params.levels[op0.level].ctx

	value := copyPolys(op0.Value)
	for _, c := range value {
		ctx.Neg(c, c)
	}

	if err = eval.setOutput(opOut, op0.level, value); err != nil {
		return fmt.Errorf("cannot Neg: %w", err)
	}

	return
}

// NegNew returns -op0 in a new Ciphertext.
func (eval *Evaluator) NegNew(op0 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = NewCiphertext(eval.params)
	return opOut, eval.Neg(op0, opOut)
}

// Mul computes opOut = op0 * op1, where op1 is a *Ciphertext or a *Plaintext.
//
// If op1 is a Plaintext, each polynomial of op0 is multiplied by the Plaintext.
// If op1 is a Ciphertext, opOut is the tensor product of op0 and op1 and has
// op0.Degree() + op1.Degree() + 1 polynomials. It is not relinearized, see MulRelin.
func (eval *Evaluator) Mul(op0 *Ciphertext, op1 Operand, opOut *Ciphertext) (err error) {

	if err = eval.checkCiphertext(op0); err != nil {
		return fmt.Errorf("cannot Mul: %w", err)
	}

	if op1 == nil {
		return fmt.Errorf("cannot Mul: %w: nil operand", ErrInvalidParameter)
	}

	if err = eval.checkOperand(op1); err != nil {
		return fmt.Errorf("cannot Mul: %w", err)
	}

	if op0.level != op1.Level() {
		return fmt.Errorf("cannot Mul: %w: operands are at levels %d and %d", ErrParameterMismatch, op0.level, op1.Level())
	}

	var value []*ring.Poly

	switch op1 := op1.(type) {
	case *Ciphertext:

		if op0.IsEmpty() || op1.IsEmpty() {
			break
		}

		if value, err = eval.tensor(op0, op1); err != nil {
			return fmt.Errorf("cannot Mul: %w", err)
		}

	case *Plaintext:

		ctx := eval.params.levels[op0.level].ctx

		value = copyPolys(op0.Value)
		for _, c := range value {
			ctx.Mul(c, op1.polyNTT, c)
		}

	default:
		return fmt.Errorf("cannot Mul: %w: invalid operand type %T", ErrInvalidParameter, op1)
	}

	if err = eval.setOutput(opOut, op0.level, value); err != nil {
		return fmt.Errorf("cannot Mul: %w", err)
	}

	return
}

// MulNew returns op0 * op1 in a new Ciphertext, see Mul.
func (eval *Evaluator) MulNew(op0 *Ciphertext, op1 Operand) (opOut *Ciphertext, err error) {
	opOut = NewCiphertext(eval.params)
	return opOut, eval.Mul(op0, op1, opOut)
}

// tensor returns the product of the polynomial vectors of op0 and op1:
// both are extended to the multiplication context, multiplied as polynomials in Y
// and scaled back to the context of their level.
func (eval *Evaluator) tensor(op0, op1 *Ciphertext) (value []*ring.Poly, err error) {

	mp, err := eval.params.MultiplicationParameters(op0.level, eval.strategy)
	if err != nil {
		return nil, err
	}

	var ext0, ext1 []*ring.Poly

	if ext0, err = extend(op0.Value, mp.extenderSelf); err != nil {
		return nil, err
	}

	if ext1, err = extend(op1.Value, mp.extenderOther); err != nil {
		return nil, err
	}

	variableTime := true
	for _, c := range append(append([]*ring.Poly{}, op0.Value...), op1.Value...) {
		variableTime = variableTime && c.IsVariableTime()
	}

	prod := make([]*ring.Poly, len(ext0)+len(ext1)-1)
	for k := range prod {
		prod[k] = ring.NewPoly(mp.ctx, ring.Transformed)
		if variableTime {
			prod[k].AllowVariableTimeComputations()
		}
	}

	tmp := ring.NewPoly(mp.ctx, ring.Transformed)

	for i, a := range ext0 {
		for j, b := range ext1 {
			mp.ctx.Mul(a, b, tmp)
			mp.ctx.Add(prod[i+j], tmp, prod[i+j])
		}
	}

	value = make([]*ring.Poly, len(prod))

	for k, c := range prod {

		c.ChangeRepresentation(ring.Coefficient)

		if value[k], err = mp.downScaler.Scale(c, false); err != nil {
			return nil, err
		}

		value[k].ChangeRepresentation(ring.Transformed)
	}

	return value, nil
}

// extend returns the polynomials scaled by the scaler, in the Transformed representation.
func extend(value []*ring.Poly, scaler *ring.Scaler) (ext []*ring.Poly, err error) {

	ext = make([]*ring.Poly, len(value))

	for i, c := range value {

		c = c.CopyNew()
		c.ChangeRepresentation(ring.Coefficient)

		if ext[i], err = scaler.Scale(c, false); err != nil {
			return nil, err
		}

		ext[i].ChangeRepresentation(ring.Transformed)
	}

	return
}

// MulRelin computes opOut = op0 * op1 and relinearizes the result, which has two polynomials.
// Both ciphertexts must have two polynomials and be at the same level, and the evaluation
// key must support relinearization at this level.
// Returns an error wrapping ErrUnsupportedOperation if the level has a single ciphertext
// modulus or if the evaluation key does not support relinearization.
func (eval *Evaluator) MulRelin(op0, op1, opOut *Ciphertext) (err error) {

	if err = eval.checkCiphertext(op0); err != nil {
		return fmt.Errorf("cannot MulRelin: %w", err)
	}

	if err = eval.checkCiphertext(op1); err != nil {
		return fmt.Errorf("cannot MulRelin: %w", err)
	}

	if err = eval.checkRelinearization(op0.level); err != nil {
		return fmt.Errorf("cannot MulRelin: %w", err)
	}

	if op0.Degree() != 1 || op1.Degree() != 1 {
		return fmt.Errorf("cannot MulRelin: %w: operands must have two polynomials but have %d and %d", ErrMalformedCiphertext, len(op0.Value), len(op1.Value))
	}

	if op0.level != op1.level {
		return fmt.Errorf("cannot MulRelin: %w: operands are at levels %d and %d", ErrParameterMismatch, op0.level, op1.level)
	}

	var value []*ring.Poly
	if value, err = eval.tensor(op0, op1); err != nil {
		return fmt.Errorf("cannot MulRelin: %w", err)
	}

	if value, err = eval.relinearize(op0.level, value); err != nil {
		return fmt.Errorf("cannot MulRelin: %w", err)
	}

	if err = eval.setOutput(opOut, op0.level, value); err != nil {
		return fmt.Errorf("cannot MulRelin: %w", err)
	}

	return
}

// MulRelinNew returns the relinearized product of op0 and op1 in a new Ciphertext, see MulRelin.
func (eval *Evaluator) MulRelinNew(op0, op1 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = NewCiphertext(eval.params)
	return opOut, eval.MulRelin(op0, op1, opOut)
}

// Relinearize computes opOut = op0 with two polynomials. op0 must have two or three polynomials.
func (eval *Evaluator) Relinearize(op0, opOut *Ciphertext) (err error) {

	if err = eval.checkCiphertext(op0); err != nil {
		return fmt.Errorf("cannot Relinearize: %w", err)
	}

	if err = eval.checkRelinearization(op0.level); err != nil {
		return fmt.Errorf("cannot Relinearize: %w", err)
	}

	if op0.Degree() != 1 && op0.Degree() != 2 {
		return fmt.Errorf("cannot Relinearize: %w: ciphertext must have two or three polynomials but has %d", ErrMalformedCiphertext, len(op0.Value))
	}

	var value []*ring.Poly
	if value, err = eval.relinearize(op0.level, copyPolys(op0.Value)); err != nil {
		return fmt.Errorf("cannot Relinearize: %w", err)
	}

	if err = eval.setOutput(opOut, op0.level, value); err != nil {
		return fmt.Errorf("cannot Relinearize: %w", err)
	}

	return
}

// RelinearizeNew returns the relinearization of op0 in a new Ciphertext, see Relinearize.
func (eval *Evaluator) RelinearizeNew(op0 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = NewCiphertext(eval.params)
	return opOut, eval.Relinearize(op0, opOut)
}

func (eval *Evaluator) checkRelinearization(level int) error {

	lp, err := eval.params.level(level)
	if err != nil {
		return err
	}

	if lp.ctx.ModuliCount() < 2 {
		return fmt.Errorf("%w: relinearization requires at least two ciphertext moduli", ErrUnsupportedOperation)
	}

	if eval.evk == nil || !eval.evk.SupportsRelinearizationAtLevel(level) {
		return fmt.Errorf("%w: the evaluation key does not support relinearization at level %d", ErrUnsupportedOperation, level)
	}

	return eval.params.checkParameters(eval.evk.params)
}

// relinearize folds the third polynomial of value, if any, into the first two.
// The polynomials of value are modified in place.
func (eval *Evaluator) relinearize(level int, value []*ring.Poly) ([]*ring.Poly, error) {

	if len(value) == 2 {
		return value, nil
	}

	ksk, err := eval.evk.RelinearizationKey(level)
	if err != nil {
		return nil, err
	}

	c2 := value[2]
	c2.ChangeRepresentation(ring.Coefficient)

	c0, c1, err := ksk.Apply(c2)
	if err != nil {
		return nil, err
	}

	ctx := eval.params.levels[level].ctx
	ctx.Add(value[0], c0, value[0])
	ctx.Add(value[1], c1, value[1])

	return value[:2], nil
}

// ModSwitchToNextLevel computes opOut = op0 at the next level: the last ciphertext modulus
// q of the level of op0 is dropped and the polynomials are scaled by 1/q with rounding.
// Returns an error wrapping ErrUnsupportedOperation if op0 is at the last level.
func (eval *Evaluator) ModSwitchToNextLevel(op0, opOut *Ciphertext) (err error) {

	if err = eval.checkCiphertext(op0); err != nil {
		return fmt.Errorf("cannot ModSwitchToNextLevel: %w", err)
	}

	if op0.level == eval.params.MaxLevel() {
		return fmt.Errorf("cannot ModSwitchToNextLevel: %w: ciphertext is at the last level", ErrUnsupportedOperation)
	}

	ctx := eval.params.levels[op0.level].ctx
	next := eval.params.levels[op0.level+1].ctx

	value := make([]*ring.Poly, len(op0.Value))
	for i, c := range op0.Value {

		c = c.CopyNew()
		c.ChangeRepresentation(ring.Coefficient)

		value[i] = ring.NewPoly(next, ring.Coefficient)
		ctx.DivRoundByLastModulus(c, value[i])
		value[i].ChangeRepresentation(ring.Transformed)
	}

	if err = eval.setOutput(opOut, op0.level+1, value); err != nil {
		return fmt.Errorf("cannot ModSwitchToNextLevel: %w", err)
	}

	return
}

// ModSwitchToNextLevelNew returns op0 at the next level in a new Ciphertext, see ModSwitchToNextLevel.
func (eval *Evaluator) ModSwitchToNextLevelNew(op0 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = NewCiphertext(eval.params)
	return opOut, eval.ModSwitchToNextLevel(op0, opOut)
}
