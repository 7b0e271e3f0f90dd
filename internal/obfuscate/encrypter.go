package obfuscate

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	dErrors "veil/pkg/domain-errors"
)

// Encrypter is the pluggable reversible transform: output is recoverable only
// by a keyholder. The engine falls back to Redact when none is configured, so
// a missing keyholder can never leak raw data.
type Encrypter interface {
	Encrypt(plaintext []byte) (string, error)
}

// ChaChaEncrypter is the reference Encrypter: XChaCha20-Poly1305 with a random
// nonce prepended to the ciphertext, encoded base64.
type ChaChaEncrypter struct {
	key []byte
}

// NewChaChaEncrypter builds the reference keyholder. The key must be exactly
// chacha20poly1305.KeySize (32) bytes.
func NewChaChaEncrypter(key []byte) (*ChaChaEncrypter, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("encrypt key must be %d bytes", chacha20poly1305.KeySize))
	}
	return &ChaChaEncrypter{key: append([]byte(nil), key...)}, nil
}

func (e *ChaChaEncrypter) Encrypt(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(e.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return "enc_" + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt recovers plaintext from an Encrypt output. Only the keyholder can
// call this meaningfully; it exists so receipts and tests can round-trip.
func (e *ChaChaEncrypter) Decrypt(encoded string) ([]byte, error) {
	if len(encoded) < 4 || encoded[:4] != "enc_" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "not an encrypted value")
	}
	sealed, err := base64.RawURLEncoding.DecodeString(encoded[4:])
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "malformed encrypted value")
	}
	aead, err := chacha20poly1305.NewX(e.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "malformed encrypted value")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
