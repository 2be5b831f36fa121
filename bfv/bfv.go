// Package bfv implements the Brakerski/Fan-Vercauteren scale-invariant homomorphic
// encryption scheme over the residue number system. It provides parameters derivation,
// secret key encryption and decryption, key switching and relinearization keys, and the
// evaluation of additions, plaintext and ciphertext multiplications and modulus switching.
//
// Parameters are created once with NewParametersFromLiteral and shared by pointer by all
// the objects created from them. Objects created from different Parameters cannot be combined.
package bfv
