package ring

import (
	"fmt"
	"math/big"
)

// RNSContext stores the data required to reconstruct an integer modulo
// P = prod p_i from its residues modulo each p_i.
type RNSContext struct {
	moduli  []uint64
	product *big.Int
	garner  []*big.Int
}

// NewRNSContext creates a new RNSContext for the given list of pairwise coprime moduli.
func NewRNSContext(moduli []uint64) (*RNSContext, error) {

	if len(moduli) == 0 {
		return nil, fmt.Errorf("cannot NewRNSContext: moduli list is empty")
	}

	product := big.NewInt(1)
	gcd := new(big.Int)

	for i, pi := range moduli {

		if pi < 2 {
			return nil, fmt.Errorf("cannot NewRNSContext: modulus %d must be larger than one", pi)
		}

		bigPi := new(big.Int).SetUint64(pi)

		for _, pj := range moduli[:i] {
			if gcd.GCD(nil, nil, bigPi, new(big.Int).SetUint64(pj)).Cmp(big.NewInt(1)) != 0 {
				return nil, fmt.Errorf("cannot NewRNSContext: moduli %d and %d are not coprime", pi, pj)
			}
		}

		product.Mul(product, bigPi)
	}

	// g_i = (P/p_i) * ((P/p_i)^{-1} mod p_i)
	garner := make([]*big.Int, len(moduli))
	for i, pi := range moduli {
		bigPi := new(big.Int).SetUint64(pi)
		qi := new(big.Int).Quo(product, bigPi)
		qiInv := new(big.Int).ModInverse(qi, bigPi)
		garner[i] = qi.Mul(qi, qiInv)
	}

	m := make([]uint64, len(moduli))
	copy(m, moduli)

	return &RNSContext{
		moduli:  m,
		product: product,
		garner:  garner,
	}, nil
}

// Modulus returns a copy of the product of the moduli.
func (rns *RNSContext) Modulus() *big.Int {
	return new(big.Int).Set(rns.product)
}

// Garner returns a copy of the i-th Garner coefficient, the unique
// value modulo P that is 1 modulo p_i and 0 modulo every other modulus.
func (rns *RNSContext) Garner(i int) *big.Int {
	return new(big.Int).Set(rns.garner[i])
}

// Lift returns the unique value in [0, P) whose residues are the given ones.
func (rns *RNSContext) Lift(residues []uint64) *big.Int {
	return rns.lift(residues, new(big.Int), new(big.Int))
}

// lift writes the reconstruction of residues on x, using tmp as a buffer.
func (rns *RNSContext) lift(residues []uint64, x, tmp *big.Int) *big.Int {
	x.SetUint64(0)
	for i, r := range residues {
		tmp.SetUint64(r)
		tmp.Mul(tmp, rns.garner[i])
		x.Add(x, tmp)
	}
	return x.Mod(x, rns.product)
}

// Project returns the residues of x modulo each modulus. Negative values are accepted.
func (rns *RNSContext) Project(x *big.Int) (residues []uint64) {
	residues = make([]uint64, len(rns.moduli))
	tmp, bigP := new(big.Int), new(big.Int)
	for i, pi := range rns.moduli {
		residues[i] = tmp.Mod(x, bigP.SetUint64(pi)).Uint64()
	}
	return
}
