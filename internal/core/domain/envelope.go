package domain

import (
	"encoding/base64"
	"errors"
)

// Envelope layout sizes in bytes.
const (
	SaltSize  = 16
	NonceSize = 12
	TagSize   = 16
)

// ErrMalformedEnvelope is returned when an encoded envelope cannot be split
// into salt, nonce and sealed payload.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// EncryptedEnvelope is the only persisted form of sensitive card data.
// Ciphertext includes the trailing GCM tag.
type EncryptedEnvelope struct {
	Salt       [SaltSize]byte
	Nonce      [NonceSize]byte
	Ciphertext []byte
}

// Encode returns base64(salt || nonce || ciphertext||tag).
func (e EncryptedEnvelope) Encode() string {
	buf := make([]byte, 0, SaltSize+NonceSize+len(e.Ciphertext))
	buf = append(buf, e.Salt[:]...)
	buf = append(buf, e.Nonce[:]...)
	buf = append(buf, e.Ciphertext...)
	return base64.StdEncoding.EncodeToString(buf)
}

// ParseEnvelope splits an encoded envelope by fixed offsets.
func ParseEnvelope(encoded string) (EncryptedEnvelope, error) {
	var env EncryptedEnvelope

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return env, ErrMalformedEnvelope
	}
	if len(raw) < SaltSize+NonceSize+TagSize {
		return env, ErrMalformedEnvelope
	}

	copy(env.Salt[:], raw[:SaltSize])
	copy(env.Nonce[:], raw[SaltSize:SaltSize+NonceSize])
	env.Ciphertext = raw[SaltSize+NonceSize:]
	return env, nil
}
