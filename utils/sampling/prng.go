package sampling

import (
	"crypto/rand"
	"io"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// PRNG is an interface for secure generation of random bytes
type PRNG interface {
	io.Reader
}

// ThreadSafePRNG reads from the operating system's secure source and can be shared between goroutines.
type ThreadSafePRNG struct {
}

// NewPRNG returns a new PRNG that is thread-safe
func NewPRNG() *ThreadSafePRNG {
	return &ThreadSafePRNG{}
}

// Read reads bytes from the ThreadSafePRNG on sum.
func (prng *ThreadSafePRNG) Read(sum []byte) (n int, err error) {
	return rand.Read(sum)
}

// KeyedPRNG deterministically expands a key into a stream of bytes with the blake2b XOF.
// Two instances created with the same key produce the same stream.
// WARNING: KeyedPRNG should NOT be read by multiple goroutines, the resulting
// sequence would not be deterministic for a given key.
type KeyedPRNG struct {
	mutex sync.Mutex
	xof   blake2b.XOF
}

// NewKeyedPRNG creates a new instance of KeyedPRNG.
// The key must be at most 64 bytes long.
func NewKeyedPRNG(key []byte) (*KeyedPRNG, error) {
	var err error
	prng := new(KeyedPRNG)
	prng.xof, err = blake2b.NewXOF(blake2b.OutputLengthUnknown, key)
	return prng, err
}

// Read reads bytes from the KeyedPRNG on sum.
func (prng *KeyedPRNG) Read(sum []byte) (n int, err error) {
	prng.mutex.Lock()
	defer prng.mutex.Unlock()
	return prng.xof.Read(sum)
}
