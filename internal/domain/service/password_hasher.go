// Package service defines interfaces for domain services. These are operations
// that don't naturally fit within a single entity, often involving external
// concerns like cryptography.
package service

// PasswordHasher defines the contract for password hashing and verification.
// Implementations must use a deliberately slow, salted, tunable-cost algorithm;
// the salt is embedded in the produced hash so verification needs no extra state.
type PasswordHasher interface {
	// Hash generates a salted one-way hash from a plaintext password.
	// A fresh salt is drawn on every call, so hashing the same password
	// twice yields different outputs.
	Hash(password string) (string, error)

	// Verify reports whether the plaintext password matches the stored hash.
	// Malformed hashes verify as false; Verify never fails with an error.
	Verify(password, hash string) bool
}
