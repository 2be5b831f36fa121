// Package bignum implements arbitrary precision arithmetic helpers.
package bignum

import (
	"fmt"
	"math/big"
)

// NewInt allocates a new *big.Int.
// Accepted types are: string, uint, uint64, int64, int or *big.Int.
func NewInt(x interface{}) (y *big.Int) {

	y = new(big.Int)

	if x == nil {
		return
	}

	switch x := x.(type) {
	case string:
		y.SetString(x, 0)
	case uint:
		y.SetUint64(uint64(x))
	case uint64:
		y.SetUint64(x)
	case int64:
		y.SetInt64(x)
	case int:
		y.SetInt64(int64(x))
	case *big.Int:
		y.Set(x)
	default:
		panic(fmt.Sprintf("cannot NewInt: accepted types are string, uint, uint64, int, int64, *big.Int, but is %T", x))
	}

	return
}

// DivRound sets the target i to round(a/b), rounding half away from zero.
func DivRound(a, b, i *big.Int) {
	_a := new(big.Int).Set(a)
	i.Quo(_a, b)
	r := new(big.Int).Rem(_a, b)
	r2 := new(big.Int).Lsh(r, 1)
	if r2.CmpAbs(b) != -1 {
		if _a.Sign() == b.Sign() {
			i.Add(i, big.NewInt(1))
		} else {
			i.Sub(i, big.NewInt(1))
		}
	}
}

// DivFloor sets the target i to floor(a/b).
func DivFloor(a, b, i *big.Int) {
	m := new(big.Int)
	i.DivMod(a, b, m)
	// DivMod implements the Euclidean division, which differs from
	// the floor division when the divisor is negative and the remainder non-zero.
	if b.Sign() < 0 && m.Sign() != 0 {
		i.Sub(i, big.NewInt(1))
	}
}

// Center maps x in [0, q) to its representative in (-q/2, q/2] and writes it on i.
func Center(x, q, i *big.Int) {
	i.Set(x)
	if new(big.Int).Lsh(x, 1).Cmp(q) > 0 {
		i.Sub(i, q)
	}
}
