package bfv

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// EvaluationKey stores the public keys required by the Evaluator.
// Relinearization keys are KeySwitchingKeys from s^2 to s, one per enabled level.
type EvaluationKey struct {
	params *Parameters
	relin  map[int]*KeySwitchingKey
}

// Parameters returns the Parameters of the EvaluationKey.
func (evk *EvaluationKey) Parameters() *Parameters {
	return evk.params
}

// SupportsRelinearization returns true if the key can relinearize ciphertexts at level zero.
func (evk *EvaluationKey) SupportsRelinearization() bool {
	return evk.SupportsRelinearizationAtLevel(0)
}

// SupportsRelinearizationAtLevel returns true if the key can relinearize ciphertexts at the given level.
func (evk *EvaluationKey) SupportsRelinearizationAtLevel(level int) bool {
	if evk == nil {
		return false
	}
	_, ok := evk.relin[level]
	return ok
}

// RelinearizationKey returns the relinearization key of the given level.
func (evk *EvaluationKey) RelinearizationKey(level int) (*KeySwitchingKey, error) {
	if !evk.SupportsRelinearizationAtLevel(level) {
		return nil, fmt.Errorf("%w: no relinearization key at level %d", ErrUnsupportedOperation, level)
	}
	return evk.relin[level], nil
}

// EvaluationKeyBuilder selects the capabilities of an EvaluationKey and builds it.
type EvaluationKeyBuilder struct {
	sk          *SecretKey
	relinLevels []int
}

// NewEvaluationKeyBuilder creates a new EvaluationKeyBuilder for the given SecretKey.
func NewEvaluationKeyBuilder(sk *SecretKey) *EvaluationKeyBuilder {
	return &EvaluationKeyBuilder{sk: sk}
}

// EnableRelinearization enables the relinearization of ciphertexts at level zero.
func (b *EvaluationKeyBuilder) EnableRelinearization() *EvaluationKeyBuilder {
	return b.EnableRelinearizationAtLevels(0)
}

// EnableRelinearizationAtLevels enables the relinearization of ciphertexts at the given levels.
func (b *EvaluationKeyBuilder) EnableRelinearizationAtLevels(levels ...int) *EvaluationKeyBuilder {
	for _, level := range levels {
		if !slices.Contains(b.relinLevels, level) {
			b.relinLevels = append(b.relinLevels, level)
		}
	}
	return b
}

// Build generates the EvaluationKey. It returns an error wrapping ErrInvalidParameter if
// an enabled level does not exist, and ErrUnsupportedOperation if relinearization is
// enabled at a level with a single ciphertext modulus.
func (b *EvaluationKeyBuilder) Build() (evk *EvaluationKey, err error) {

	params := b.sk.params

	evk = &EvaluationKey{
		params: params,
		relin:  map[int]*KeySwitchingKey{},
	}

	levels := slices.Clone(b.relinLevels)
	slices.Sort(levels)

	for _, level := range levels {

		var lp *levelParameters
		if lp, err = params.level(level); err != nil {
			return nil, fmt.Errorf("cannot Build: %w", err)
		}

		if lp.ctx.ModuliCount() < 2 {
			return nil, fmt.Errorf("cannot Build: %w: relinearization requires at least two ciphertext moduli, level %d has one", ErrUnsupportedOperation, level)
		}

		if evk.relin[level], err = b.genRelinearizationKey(lp); err != nil {
			return nil, fmt.Errorf("cannot Build: %w", err)
		}
	}

	return evk, nil
}

func (b *EvaluationKeyBuilder) genRelinearizationKey(lp *levelParameters) (*KeySwitchingKey, error) {

	s := b.sk.valueAt(lp)
	defer s.Zeroize()

	s2 := lp.ctx.MulNew(s, s)
	defer s2.Zeroize()

	return b.sk.GenKeySwitchingKey(s2)
}
