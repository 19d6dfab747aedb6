package service

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"

	"patient-payments/internal/core/domain"
	"patient-payments/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCardSecret = "test-card-secret"

// fastDeriver stands in for PBKDF2 where a test needs hundreds of
// decryptions. It keeps the secret and salt dependency of the real one.
type fastDeriver struct{}

func (fastDeriver) Derive(secret string, salt []byte) ([]byte, error) {
	if secret == "" {
		return nil, apperror.ErrKeyDerivation(errors.New("empty secret"))
	}
	sum := sha256.Sum256(append([]byte(secret), salt...))
	return sum[:], nil
}

func TestAESGCMCipher_EncryptDecrypt(t *testing.T) {
	c := NewAESGCMCipher(NewPBKDF2KeyDeriver(MinKDFIterations))

	plaintext := []byte("4532015112830366")
	envelope, err := c.Encrypt(plaintext, testCardSecret)
	require.NoError(t, err)
	assert.NotContains(t, envelope, "4532015112830366")

	decrypted, err := c.Decrypt(envelope, testCardSecret)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestAESGCMCipher_RoundTripVariousPayloads(t *testing.T) {
	c := NewAESGCMCipher(fastDeriver{})

	payloads := [][]byte{
		{0x00},
		[]byte("a"),
		[]byte("héllo wörld"),
		make([]byte, 4096),
		{0xff, 0xfe, 0x00, 0x01},
	}
	for _, p := range payloads {
		envelope, err := c.Encrypt(p, testCardSecret)
		require.NoError(t, err)

		got, err := c.Decrypt(envelope, testCardSecret)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestAESGCMCipher_EnvelopeLayout(t *testing.T) {
	c := NewAESGCMCipher(fastDeriver{})

	plaintext := []byte("0123456789")
	envelope, err := c.Encrypt(plaintext, testCardSecret)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(envelope)
	require.NoError(t, err)
	assert.Len(t, raw, domain.SaltSize+domain.NonceSize+len(plaintext)+domain.TagSize)
}

func TestAESGCMCipher_FreshSaltAndNonce(t *testing.T) {
	c := NewAESGCMCipher(fastDeriver{})

	e1, err := c.Encrypt([]byte("same"), testCardSecret)
	require.NoError(t, err)
	e2, err := c.Encrypt([]byte("same"), testCardSecret)
	require.NoError(t, err)
	assert.NotEqual(t, e1, e2, "same plaintext should produce different envelopes")

	p1, err := domain.ParseEnvelope(e1)
	require.NoError(t, err)
	p2, err := domain.ParseEnvelope(e2)
	require.NoError(t, err)
	assert.NotEqual(t, p1.Salt, p2.Salt)
	assert.NotEqual(t, p1.Nonce, p2.Nonce)
}

func TestAESGCMCipher_EveryBitFlipFails(t *testing.T) {
	c := NewAESGCMCipher(fastDeriver{})

	envelope, err := c.Encrypt([]byte("4111111111111111"), testCardSecret)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(envelope)
	require.NoError(t, err)

	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), raw...)
			tampered[i] ^= 1 << bit

			got, err := c.Decrypt(base64.StdEncoding.EncodeToString(tampered), testCardSecret)
			require.Error(t, err, "byte %d bit %d", i, bit)
			assert.Nil(t, got)
			assertAppError(t, err, "CRY_002")
		}
	}
}

func TestAESGCMCipher_FailuresAreIndistinguishable(t *testing.T) {
	c := NewAESGCMCipher(fastDeriver{})

	envelope, err := c.Encrypt([]byte("secret data"), testCardSecret)
	require.NoError(t, err)
	raw, _ := base64.StdEncoding.DecodeString(envelope)

	cases := map[string]string{
		"wrong secret": envelope,
		"truncated":    base64.StdEncoding.EncodeToString(raw[:domain.SaltSize+domain.NonceSize+4]),
		"not base64":   "%%%not-base64%%%",
		"empty":        "",
	}

	var messages []string
	for name, env := range cases {
		secret := testCardSecret
		if name == "wrong secret" {
			secret = "other-secret"
		}
		_, err := c.Decrypt(env, secret)
		require.Error(t, err, name)

		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr), name)
		assert.Equal(t, "CRY_002", appErr.Code, name)
		assert.Nil(t, appErr.Unwrap(), name)
		messages = append(messages, appErr.Error())
	}
	for _, m := range messages[1:] {
		assert.Equal(t, messages[0], m)
	}
}

func TestAESGCMCipher_EmptySecret(t *testing.T) {
	c := NewAESGCMCipher(fastDeriver{})

	_, err := c.Encrypt([]byte("x"), "")
	assertAppError(t, err, "CRY_001")

	envelope, err := c.Encrypt([]byte("x"), testCardSecret)
	require.NoError(t, err)

	_, err = c.Decrypt(envelope, "")
	assertAppError(t, err, "CRY_002")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Nil(t, appErr.Unwrap())
}

func TestAESGCMCipher_WrongSecretWithRealKDF(t *testing.T) {
	c := NewAESGCMCipher(NewPBKDF2KeyDeriver(MinKDFIterations))

	envelope, err := c.Encrypt([]byte("balance_100"), testCardSecret)
	require.NoError(t, err)

	_, err = c.Decrypt(envelope, "not-the-secret")
	assertAppError(t, err, "CRY_002")
}
