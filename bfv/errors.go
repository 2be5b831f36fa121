package bfv

import "errors"

// Errors returned by the package. They are wrapped with additional context and
// must be matched with errors.Is.
var (
	// ErrInvalidParameter is returned when a ParametersLiteral, a level or an argument is invalid.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrPrimeGeneration is returned when not enough primes of the requested sizes exist.
	ErrPrimeGeneration = errors.New("prime generation failed")

	// ErrParameterMismatch is returned when objects created from different Parameters,
	// or at different levels, are combined.
	ErrParameterMismatch = errors.New("parameter mismatch")

	// ErrUnsupportedOperation is returned when an operation is not available for the given
	// operands, for example a relinearization without a relinearization key.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrMalformedCiphertext is returned when a ciphertext does not have the expected shape.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")

	// ErrSerialization is returned when decoding an object fails.
	ErrSerialization = errors.New("serialization error")
)
