// Package cryptox seals small secrets (the receipt-verification shared
// secret) before they are written to the local store.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	keyLen    = 32
	nonceSize = 12
)

// ErrSealedTooShort is returned when a sealed blob cannot hold a nonce.
var ErrSealedTooShort = errors.New("sealed data too short")

// DeriveKey stretches a device-bound passphrase into an AES-256 key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, keyLen)
}

// Seal encrypts plaintext with AES-GCM under key. The random nonce is
// prepended to the returned ciphertext.
func Seal(plaintext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(nonceSize)
	out := make([]byte, 0, nonceSize+len(plaintext)+aesgcm.Overhead())
	out = append(out, nonce...)
	return aesgcm.Seal(out, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(sealed, key []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, ErrSealedTooShort
	}
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
}

// SealSecret derives a key from passphrase and salt and seals secret with it.
func SealSecret(secret string, passphrase, salt []byte) ([]byte, error) {
	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)
	return Seal([]byte(secret), key)
}

// OpenSecret reverses SealSecret.
func OpenSecret(sealed, passphrase, salt []byte) (string, error) {
	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	plain, err := Open(sealed, key)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
