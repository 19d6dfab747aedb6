package service

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"patient-payments/internal/core/domain"
	"patient-payments/pkg/apperror"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinKDFIterations is the PBKDF2 iteration floor.
	MinKDFIterations = 100_000
	// DerivedKeySize is the AES-256 key length.
	DerivedKeySize = 32
)

// PBKDF2KeyDeriver implements ports.KeyDeriver with PBKDF2-HMAC-SHA256.
type PBKDF2KeyDeriver struct {
	iterations int
}

// NewPBKDF2KeyDeriver creates a deriver. Iteration counts below
// MinKDFIterations are raised to the floor.
func NewPBKDF2KeyDeriver(iterations int) *PBKDF2KeyDeriver {
	if iterations < MinKDFIterations {
		iterations = MinKDFIterations
	}
	return &PBKDF2KeyDeriver{iterations: iterations}
}

// Iterations returns the effective iteration count.
func (d *PBKDF2KeyDeriver) Iterations() int {
	return d.iterations
}

// Derive returns a 32-byte key for secret and a 16-byte salt.
func (d *PBKDF2KeyDeriver) Derive(secret string, salt []byte) ([]byte, error) {
	if secret == "" {
		return nil, apperror.ErrKeyDerivation(errors.New("empty secret"))
	}
	if len(salt) != domain.SaltSize {
		return nil, apperror.ErrKeyDerivation(fmt.Errorf("salt must be %d bytes, got %d", domain.SaltSize, len(salt)))
	}
	return pbkdf2.Key([]byte(secret), salt, d.iterations, DerivedKeySize, sha256.New), nil
}
