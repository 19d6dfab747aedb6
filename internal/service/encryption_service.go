package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"patient-payments/internal/core/domain"
	"patient-payments/internal/core/ports"
	"patient-payments/pkg/apperror"
)

// AESGCMCipher implements ports.Cipher using AES-256-GCM with a per-call
// PBKDF2 key. Output is base64(salt || nonce || ciphertext||tag).
type AESGCMCipher struct {
	kdf ports.KeyDeriver
}

// NewAESGCMCipher creates a cipher deriving keys through kdf.
func NewAESGCMCipher(kdf ports.KeyDeriver) *AESGCMCipher {
	return &AESGCMCipher{kdf: kdf}
}

// Encrypt seals plaintext under a key derived from secret and a fresh salt.
func (c *AESGCMCipher) Encrypt(plaintext []byte, secret string) (string, error) {
	var env domain.EncryptedEnvelope
	if _, err := io.ReadFull(rand.Reader, env.Salt[:]); err != nil {
		return "", apperror.ErrEncryptionFailure(fmt.Errorf("generating salt: %w", err))
	}
	if _, err := io.ReadFull(rand.Reader, env.Nonce[:]); err != nil {
		return "", apperror.ErrEncryptionFailure(fmt.Errorf("generating nonce: %w", err))
	}

	key, err := c.kdf.Derive(secret, env.Salt[:])
	if err != nil {
		return "", err
	}
	defer clear(key)

	aesGCM, err := newGCM(key)
	if err != nil {
		return "", apperror.ErrEncryptionFailure(err)
	}

	env.Ciphertext = aesGCM.Seal(nil, env.Nonce[:], plaintext, nil)
	return env.Encode(), nil
}

// Decrypt opens an envelope produced by Encrypt. Every failure, key
// derivation included, yields the same CRY_002 error and no plaintext.
func (c *AESGCMCipher) Decrypt(envelope string, secret string) ([]byte, error) {
	env, err := domain.ParseEnvelope(envelope)
	if err != nil {
		return nil, apperror.ErrDecryptionFailed()
	}

	key, err := c.kdf.Derive(secret, env.Salt[:])
	if err != nil {
		return nil, apperror.ErrDecryptionFailed()
	}
	defer clear(key)

	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, apperror.ErrDecryptionFailed()
	}

	plaintext, err := aesGCM.Open(nil, env.Nonce[:], env.Ciphertext, nil)
	if err != nil {
		return nil, apperror.ErrDecryptionFailed()
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return aesGCM, nil
}
