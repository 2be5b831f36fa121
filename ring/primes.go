package ring

import (
	"fmt"
	"math/big"
	"math/bits"
)

// IsPrime applies the Baillie-PSW, which is 100% accurate for numbers bellow 2^64.
func IsPrime(x uint64) bool {
	return new(big.Int).SetUint64(x).ProbablyPrime(0)
}

// GeneratePrime returns the largest prime p < upperBound such that p = 1 mod modulo
// and p has exactly logP bits. The upper bound must be at most 2^logP.
func GeneratePrime(logP int, modulo, upperBound uint64) (p uint64, err error) {

	if logP < 2 || logP > MaxModulusBits {
		return 0, fmt.Errorf("cannot GeneratePrime: logP=%d must be in [2, %d]", logP, MaxModulusBits)
	}

	if modulo == 0 {
		return 0, fmt.Errorf("cannot GeneratePrime: modulo cannot be zero")
	}

	if upperBound > 1<<uint(logP) || upperBound < 2 {
		return 0, fmt.Errorf("cannot GeneratePrime: upper bound %d must be in [2, 2^%d]", upperBound, logP)
	}

	p = upperBound - 1

	// Largest candidate congruent to 1 mod modulo.
	p -= (p + modulo - 1) % modulo

	for bits.Len64(p) == logP && p != 0 {
		if IsPrime(p) {
			return p, nil
		}
		if p < modulo {
			break
		}
		p -= modulo
	}

	return 0, fmt.Errorf("cannot GeneratePrime: no %d-bit prime equal to 1 mod %d below %d", logP, modulo, upperBound)
}

// GenerateNTTPrimes returns count distinct primes of logP bits supporting a
// negacyclic NTT of size n, in decreasing order, that are not in the exclude list.
func GenerateNTTPrimes(logP, n, count int, exclude ...uint64) (primes []uint64, err error) {

	upperBound := uint64(1) << uint(logP)

	for len(primes) < count {

		var p uint64
		if p, err = GeneratePrime(logP, uint64(2*n), upperBound); err != nil {
			return nil, fmt.Errorf("cannot GenerateNTTPrimes: %w", err)
		}

		upperBound = p

		excluded := false
		for _, q := range exclude {
			excluded = excluded || q == p
		}

		if !excluded {
			primes = append(primes, p)
		}
	}

	return
}
