// Package cryptox holds the cryptographic primitives behind the credential
// vault: argon2id key derivation, a key verifier, and AES-GCM sealing.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// NonceSize is the AES-GCM standard nonce length.
const NonceSize = 12

var ErrInvalidParams = errors.New("invalid kdf params")

// KDFParams are the argon2id cost parameters. They are stored next to the
// ciphertext so a vault can be reopened after the defaults change.
type KDFParams struct {
	Time      uint32 `json:"time"`
	MemoryKiB uint32 `json:"memory_kib"`
	Threads   uint8  `json:"threads"`
	KeyLen    uint32 `json:"key_len"`
}

// DefaultKDFParams returns conservative argon2id settings: 3 passes over
// 64 MiB with 4 lanes, producing an AES-256 key.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 3, MemoryKiB: 64 * 1024, Threads: 4, KeyLen: 32}
}

// Validate rejects parameters argon2 would panic on or that yield a key AES
// cannot use.
func (p KDFParams) Validate() error {
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return fmt.Errorf("%w: zero cost parameter", ErrInvalidParams)
	}
	switch p.KeyLen {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: key length %d", ErrInvalidParams, p.KeyLen)
	}
	return nil
}

// DeriveMasterKey stretches password with salt using argon2id.
func DeriveMasterKey(password, salt []byte, p KDFParams) []byte {
	return argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLen)
}

// MakeVerifier derives a value that proves knowledge of the master key
// without revealing it or the encryption key material.
func MakeVerifier(masterKey []byte) []byte {
	mac := hmac.New(sha256.New, masterKey)
	mac.Write([]byte("dbkeeper/verifier/v1"))
	return mac.Sum(nil)
}

// Seal encrypts plaintext with AES-GCM under key using a freshly generated
// nonce. additionalData is authenticated but not encrypted.
func Seal(key, plaintext, additionalData []byte) (ciphertext, nonce []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	ciphertext = aead.Seal(nil, nonce, plaintext, additionalData)
	return ciphertext, nonce, nil
}

// Open authenticates and decrypts ciphertext. It never returns partial
// plaintext: either the whole message verifies or an error is returned.
func Open(key, ciphertext, nonce, additionalData []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}
	return aead.Open(nil, nonce, ciphertext, additionalData)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
