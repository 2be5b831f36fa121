package bignum

import (
	"math"
	"math/big"

	"github.com/ALTree/bigfloat"
)

const log2Prec = 128

// Log2 returns log2(|x|) as a float64, and 0 if x is zero.
func Log2(x *big.Int) float64 {

	if x.Sign() == 0 {
		return 0
	}

	xf := new(big.Float).SetPrec(log2Prec).SetInt(new(big.Int).Abs(x))

	ln := bigfloat.Log(xf)
	ln.Quo(ln, bigfloat.Log(new(big.Float).SetPrec(log2Prec).SetInt64(2)))

	f, _ := ln.Float64()

	if math.IsNaN(f) {
		return float64(x.BitLen())
	}

	return f
}
