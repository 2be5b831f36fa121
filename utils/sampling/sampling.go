// Package sampling implements secure sampling of bytes and seeds.
package sampling

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
)

// SeedSize is the size in bytes of a Seed.
const SeedSize = 32

// Seed is the key of a KeyedPRNG.
type Seed [SeedSize]byte

const seedDerivationContext = "bfvcore 2024 key switching seed derivation"

// NewSeed samples a fresh Seed from the given PRNG.
func NewSeed(prng PRNG) (seed Seed, err error) {
	if _, err = prng.Read(seed[:]); err != nil {
		return seed, fmt.Errorf("cannot NewSeed: %w", err)
	}
	return
}

// NewPRNG returns a KeyedPRNG keyed with the seed.
func (s Seed) NewPRNG() *KeyedPRNG {
	prng, err := NewKeyedPRNG(s[:])
	// Only fails for keys larger than 64 bytes.
	if err != nil {
		panic(err)
	}
	return prng
}

// DeriveSeed derives the index-th sub-seed of the master seed.
// The result is deterministic and sub-seeds of distinct indexes are independent.
func DeriveSeed(master Seed, index int) (seed Seed) {
	material := make([]byte, SeedSize+8)
	copy(material, master[:])
	binary.LittleEndian.PutUint64(material[SeedSize:], uint64(index))
	blake3.DeriveKey(seedDerivationContext, material, seed[:])
	return
}
